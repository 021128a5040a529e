package uwb

import (
	"context"
	"fmt"
	"math"

	"github.com/opd-ai/uwb/frame"
	"github.com/opd-ai/uwb/radio"
	"github.com/opd-ai/uwb/tof"
)

// Responder answers ranging polls: it schedules its reply at a precomputed
// device time so the reply's TX timestamp is known before it is sent.
type Responder struct {
	*station
}

// NewResponder creates the responding role around an exclusively owned
// transceiver.
func NewResponder(t radio.Transceiver, cfg RangingConfig) (*Responder, error) {
	st, err := newStation(t, cfg, "responder")
	if err != nil {
		return nil, err
	}
	return &Responder{station: st}, nil
}

// ServeOnce waits for one poll and serves the exchange it opens. With a
// zero PollRxTimeoutUUS the wait for a poll never expires.
func (r *Responder) ServeOnce() Result {
	return r.conclude(r.exchange())
}

// Run serves exchanges until the context is cancelled, delivering each
// outcome to results when a channel is supplied. Cancellation is observed
// between exchanges.
func (r *Responder) Run(ctx context.Context, results chan<- Result) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		res := r.ServeOnce()
		if results != nil {
			select {
			case results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *Responder) exchange() Result {
	if err := r.beginExchange(); err != nil {
		return Result{Err: err}
	}
	if err := r.t.ReceiveEnable(radio.RxImmediate); err != nil {
		return Result{Err: fmt.Errorf("uwb: receive enable: %w", err)}
	}

	ev := r.t.AwaitStatus(radio.EventRxAny, r.cfg.PollRxTimeoutUUS)
	if err := rxOutcome(ev); err != nil {
		return Result{Err: err}
	}

	stsErr := r.checkSts()
	buf, err := r.readFrame()
	if err != nil {
		return Result{Err: err}
	}
	if stsErr != nil {
		// The poll carries the peer's plaintext counter precisely for
		// this case: realign before rejecting the exchange so the next
		// one is back in sync.
		if f, derr := frame.Decode(buf, frame.KindPoll, r.peerAddressing()); derr == nil && r.sts != nil {
			r.sts.TryResync(f.StsCounter)
		}
		return Result{Err: stsErr}
	}

	if _, err := r.decode(buf, frame.KindPoll); err != nil {
		return Result{Err: err}
	}
	pollRx := r.t.ReadTimestamp(radio.TimestampRx)

	// The reply time is precomputed, not measured: the delayed-TX
	// scheduler takes a 32-bit time with 512-dtu granularity, and the
	// rounded value plus the antenna delay is the timestamp the radio
	// will record.
	respTxTime := radio.DelayedTxTime(pollRx,
		uint64(r.cfg.responderTurnaroundUUS())*radio.UUSToDeviceTime)
	respTxTs := radio.ProgrammedTxTimestamp(respTxTime, r.cfg.TxAntennaDelay)

	if r.cfg.Scheme == SchemeSingleSided {
		return r.replySingleSided(pollRx, respTxTime, respTxTs)
	}
	return r.replyDoubleSided(pollRx, respTxTime)
}

// replySingleSided reports the poll-RX capture and the predicted reply-TX
// timestamp; the initiator does the rest.
func (r *Responder) replySingleSided(pollRx uint64, respTxTime uint32, respTxTs uint64) Result {
	report := frame.Encode(frame.KindReport, r.cfg.Addressing, frame.Fields{
		Seq:    r.seq,
		PollRx: uint32(pollRx),
		RespTx: uint32(respTxTs),
	})
	if err := r.t.TransmitDelayed(report, respTxTime, radio.TxRanging); err != nil {
		return Result{Err: err}
	}
	r.t.AwaitStatus(radio.EventTxDone, 0)
	r.seq++
	return Result{}
}

// replyDoubleSided sends the empty response, then waits for the final
// message and computes the distance from all six captures.
func (r *Responder) replyDoubleSided(pollRx uint64, respTxTime uint32) Result {
	resp := frame.Encode(frame.KindResponse, r.cfg.Addressing, frame.Fields{Seq: r.seq})
	r.t.SetRxAfterTxDelay(r.cfg.RespTxToFinalRxDelayUUS)
	if err := r.t.TransmitDelayed(resp, respTxTime, radio.TxRanging|radio.TxResponseExpected); err != nil {
		return Result{Err: err}
	}
	r.t.AwaitStatus(radio.EventTxDone, 0)
	r.seq++
	if r.sts != nil {
		// Valid response leg: hold the counter steady until the final
		// message settles this exchange.
		r.sts.Suppress()
	}

	ev := r.t.AwaitStatus(radio.EventRxAny, r.cfg.FinalRxTimeoutUUS)
	if err := rxOutcome(ev); err != nil {
		return Result{Err: err}
	}
	if err := r.checkSts(); err != nil {
		return Result{Err: err}
	}
	buf, err := r.readFrame()
	if err != nil {
		return Result{Err: err}
	}
	f, err := r.decode(buf, frame.KindFinal)
	if err != nil {
		return Result{Err: err}
	}

	respTx := r.t.ReadTimestamp(radio.TimestampTx)
	finalRx := r.t.ReadTimestamp(radio.TimestampRx)
	d, err := tof.DoubleSided(tof.DoubleSidedTimes{
		PollTx:  f.PollTx,
		RespRx:  f.RespRx,
		FinalTx: f.FinalTx,
		PollRx:  uint32(pollRx),
		RespTx:  uint32(respTx),
		FinalRx: uint32(finalRx),
	})
	if err != nil {
		return Result{Err: err}
	}

	if r.cfg.ReportDistance {
		mm := uint32(math.Max(0, math.Round(d*1000)))
		rep := frame.Encode(frame.KindDistance, r.cfg.Addressing, frame.Fields{
			Seq:        r.seq,
			DistanceMM: mm,
		})
		if err := r.t.Transmit(rep, radio.TxRanging); err != nil {
			return Result{Err: fmt.Errorf("uwb: distance report: %w", err)}
		}
		r.t.AwaitStatus(radio.EventTxDone, 0)
		r.seq++
	}
	return Result{Distance: d, DistanceValid: true}
}

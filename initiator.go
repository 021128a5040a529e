package uwb

import (
	"context"
	"fmt"
	"time"

	"github.com/opd-ai/uwb/frame"
	"github.com/opd-ai/uwb/radio"
	"github.com/opd-ai/uwb/tof"
)

// Initiator drives ranging exchanges: it opens each one with a poll and
// finishes it according to the configured scheme.
type Initiator struct {
	*station
}

// NewInitiator creates the initiating role around an exclusively owned
// transceiver.
func NewInitiator(t radio.Transceiver, cfg RangingConfig) (*Initiator, error) {
	st, err := newStation(t, cfg, "initiator")
	if err != nil {
		return nil, err
	}
	return &Initiator{station: st}, nil
}

// RangeOnce performs a single ranging attempt and reports its outcome.
// Every failure is local to the attempt; the next call starts clean from
// idle.
func (in *Initiator) RangeOnce() Result {
	return in.conclude(in.exchange())
}

// Run ranges periodically until the context is cancelled, delivering each
// outcome to results when a channel is supplied.
func (in *Initiator) Run(ctx context.Context, results chan<- Result) {
	for {
		res := in.RangeOnce()
		if results != nil {
			select {
			case results <- res:
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(in.cfg.InterRangingDelay):
		}
	}
}

func (in *Initiator) exchange() Result {
	if err := in.beginExchange(); err != nil {
		return Result{Err: err}
	}

	// The receiver is armed automatically after the poll goes out,
	// delayed by the configured turnaround budget.
	in.t.SetRxAfterTxDelay(in.cfg.PollTxToRespRxDelayUUS)

	fields := frame.Fields{Seq: in.seq}
	if in.sts != nil {
		// Plaintext counter so an out-of-sync responder can realign.
		fields.StsCounter = in.sts.Counter()
	}
	poll := frame.Encode(frame.KindPoll, in.cfg.Addressing, fields)
	if err := in.t.Transmit(poll, radio.TxRanging|radio.TxResponseExpected); err != nil {
		return Result{Err: fmt.Errorf("uwb: poll transmit: %w", err)}
	}
	in.seq++

	ev := in.t.AwaitStatus(radio.EventRxAny, in.cfg.RespRxTimeoutUUS)
	if err := rxOutcome(ev); err != nil {
		return Result{Err: err}
	}
	if err := in.checkSts(); err != nil {
		return Result{Err: err}
	}
	buf, err := in.readFrame()
	if err != nil {
		return Result{Err: err}
	}

	if in.cfg.Scheme == SchemeSingleSided {
		return in.completeSingleSided(buf)
	}
	return in.completeDoubleSided(buf)
}

// completeSingleSided finishes an SS-TWR attempt from the responder's
// report: the two local captures, the two reported captures and the
// measured clock offset are everything the estimate needs.
func (in *Initiator) completeSingleSided(buf []byte) Result {
	f, err := in.decode(buf, frame.KindReport)
	if err != nil {
		return Result{Err: err}
	}
	pollTx := in.t.ReadTimestamp(radio.TimestampTx)
	respRx := in.t.ReadTimestamp(radio.TimestampRx)
	k := in.t.ReadClockOffsetRatio()

	d, err := tof.SingleSided(uint32(pollTx), uint32(respRx), f.PollRx, f.RespTx, k)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Distance: d, DistanceValid: true}
}

// completeDoubleSided sends the final message at a precomputed time so its
// TX timestamp can be embedded in the message itself.
func (in *Initiator) completeDoubleSided(buf []byte) Result {
	if _, err := in.decode(buf, frame.KindResponse); err != nil {
		return Result{Err: err}
	}
	if in.sts != nil {
		// The response leg is valid; a counter overwrite from here on
		// would desynchronize the final leg.
		in.sts.Suppress()
	}

	pollTx := in.t.ReadTimestamp(radio.TimestampTx)
	respRx := in.t.ReadTimestamp(radio.TimestampRx)

	finalTxTime := radio.DelayedTxTime(respRx,
		uint64(in.cfg.RespRxToFinalTxDelayUUS)*radio.UUSToDeviceTime)
	finalTxTs := radio.ProgrammedTxTimestamp(finalTxTime, in.cfg.TxAntennaDelay)

	final := frame.Encode(frame.KindFinal, in.cfg.Addressing, frame.Fields{
		Seq:     in.seq,
		PollTx:  uint32(pollTx),
		RespRx:  uint32(respRx),
		FinalTx: uint32(finalTxTs),
	})

	flags := radio.TxRanging
	if in.cfg.ReportDistance {
		in.t.SetRxAfterTxDelay(0)
		flags |= radio.TxResponseExpected
	}
	if err := in.t.TransmitDelayed(final, finalTxTime, flags); err != nil {
		// Late start: abandon now rather than wait for a TX-done event
		// that will never fire.
		return Result{Err: err}
	}
	in.t.AwaitStatus(radio.EventTxDone, 0)
	in.seq++

	if !in.cfg.ReportDistance {
		// The responder owns the distance in a plain double-sided
		// exchange.
		return Result{}
	}

	ev := in.t.AwaitStatus(radio.EventRxAny, in.cfg.ReportRxTimeoutUUS)
	if err := rxOutcome(ev); err != nil {
		return Result{Err: err}
	}
	if err := in.checkSts(); err != nil {
		return Result{Err: err}
	}
	rep, err := in.readFrame()
	if err != nil {
		return Result{Err: err}
	}
	f, err := in.decode(rep, frame.KindDistance)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Distance: float64(f.DistanceMM) / 1000, DistanceValid: true}
}

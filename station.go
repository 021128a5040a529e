package uwb

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/uwb/frame"
	"github.com/opd-ai/uwb/radio"
	"github.com/opd-ai/uwb/sts"
)

// station carries the state both ranging roles share: the owned
// transceiver, the immutable configuration, the optional STS session, the
// running frame sequence number and the diagnostics counters.
type station struct {
	t        radio.Transceiver
	cfg      RangingConfig
	sts      *sts.Session
	seq      byte
	counters Counters
	log      *logrus.Entry
}

func newStation(t radio.Transceiver, cfg RangingConfig, role string) (*station, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transceiver", ErrConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &station{
		t:   t,
		cfg: cfg,
		log: logrus.WithFields(logrus.Fields{
			"role":   role,
			"scheme": cfg.Scheme,
			"source": fmt.Sprintf("%#04x", cfg.Addressing.Source),
		}),
	}
	if cfg.Security == SecuritySts {
		s.sts = sts.NewSession(cfg.StsKey, cfg.StsIV)
	}
	return s, nil
}

// Counters returns a snapshot of the recovered-error tallies.
func (s *station) Counters() Counters {
	return s.counters
}

// beginExchange advances the STS state for a fresh exchange.
func (s *station) beginExchange() error {
	if s.sts == nil {
		return nil
	}
	return s.sts.Begin(s.t)
}

// rxOutcome maps a terminated receive wait onto the error taxonomy. The
// three RX status bits are mutually exclusive terminals for one wait.
func rxOutcome(ev radio.EventBits) error {
	switch {
	case ev&radio.EventRxGood != 0:
		return nil
	case ev&radio.EventRxTimeout != 0:
		return ErrRxTimeout
	default:
		return ErrRxError
	}
}

// checkSts rejects the frame just received when its STS quality is
// negative; a good FCS alone does not make its timestamps trustworthy.
func (s *station) checkSts() error {
	if s.sts == nil {
		return nil
	}
	if q := s.t.ReadStsQuality(); !sts.GoodQuality(q) {
		return fmt.Errorf("%w: quality %d", ErrBadSts, q)
	}
	return nil
}

// readFrame pulls the received frame bytes. A frame larger than anything
// the ranging process uses is not ours.
func (s *station) readFrame() ([]byte, error) {
	var buf [frame.MaxLen]byte
	n, err := s.t.ReadFrame(buf[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadFrame, err)
	}
	return buf[:n], nil
}

// peerAddressing is the addressing the peer stamps on its frames.
func (s *station) peerAddressing() frame.Addressing {
	return s.cfg.Addressing.Reverse()
}

// decode validates buf against the awaited kind from the peer.
func (s *station) decode(buf []byte, kind frame.Kind) (frame.Fields, error) {
	f, err := frame.Decode(buf, kind, s.peerAddressing())
	if err != nil {
		return f, fmt.Errorf("%w: %w", ErrBadFrame, err)
	}
	return f, nil
}

// conclude finishes an exchange: resynchronization is re-armed whatever
// the outcome, failures are counted for diagnostics, and the result is
// logged.
func (s *station) conclude(res Result) Result {
	if s.sts != nil {
		s.sts.Conclude()
	}
	s.counters.record(res.Err)
	switch {
	case res.Err != nil:
		s.log.WithField("error", res.Err.Error()).Debug("ranging exchange failed")
	case res.DistanceValid:
		s.log.WithField("distance_m", res.Distance).Debug("ranging exchange complete")
	default:
		s.log.Debug("ranging exchange complete")
	}
	return res
}

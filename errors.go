package uwb

import (
	"errors"

	"github.com/opd-ai/uwb/aesframe"
	"github.com/opd-ai/uwb/radio"
	"github.com/opd-ai/uwb/tof"
)

// Exchange error taxonomy. Every error terminates only the exchange it
// occurred in; the ranging loop recovers and retries, so none of these is
// fatal to the caller.
var (
	// ErrBadFrame reports a received frame whose header does not match
	// the awaited kind.
	ErrBadFrame = errors.New("uwb: unexpected frame")

	// ErrBadSts reports a good frame whose STS quality was negative; its
	// timestamps cannot be trusted.
	ErrBadSts = errors.New("uwb: bad STS quality")

	// ErrRxTimeout reports that the hardware receive window elapsed with
	// no frame.
	ErrRxTimeout = errors.New("uwb: receive timeout")

	// ErrRxError reports a PHY-level receive error.
	ErrRxError = errors.New("uwb: receive error")

	// ErrLateStart reports a delayed transmission scheduled in the past;
	// the exchange is abandoned immediately instead of waiting for a
	// TX-done event that will never fire.
	ErrLateStart = radio.ErrLateStart

	// ErrDegenerateTiming reports a timestamp capture the estimator
	// cannot divide through.
	ErrDegenerateTiming = tof.ErrDegenerateTiming

	// ErrLengthError and ErrCryptoError classify AES engine failures on
	// the secured data path.
	ErrLengthError = aesframe.ErrLength
	ErrCryptoError = aesframe.ErrCrypto
)

// Result is the outcome of one ranging exchange.
type Result struct {
	// Err is nil on success and one of the taxonomy errors otherwise.
	Err error

	// Distance in metres, meaningful only when DistanceValid. In a
	// double-sided exchange the responder computes the distance; the
	// initiator learns it only when the distance report leg is enabled.
	Distance      float64
	DistanceValid bool
}

// Counters tallies recovered exchange failures for diagnostics. Errors are
// counted, never silently dropped.
type Counters struct {
	BadFrame   uint32
	BadSts     uint32
	RxTimeout  uint32
	RxError    uint32
	LateStart  uint32
	Degenerate uint32
	Crypto     uint32
}

func (c *Counters) record(err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrBadFrame):
		c.BadFrame++
	case errors.Is(err, ErrBadSts):
		c.BadSts++
	case errors.Is(err, ErrRxTimeout):
		c.RxTimeout++
	case errors.Is(err, ErrRxError):
		c.RxError++
	case errors.Is(err, ErrLateStart):
		c.LateStart++
	case errors.Is(err, ErrDegenerateTiming):
		c.Degenerate++
	case errors.Is(err, ErrLengthError), errors.Is(err, ErrCryptoError):
		c.Crypto++
	}
}

package tof

import (
	"errors"

	"github.com/opd-ai/uwb/radio"
)

// ErrDegenerateTiming reports a timestamp capture whose deltas collapse to
// zero; the estimate would otherwise divide by zero.
var ErrDegenerateTiming = errors.New("tof: degenerate timing capture")

// Distance converts a time of flight in device time units to metres.
func Distance(tofDTU float64) float64 {
	return tofDTU * radio.DeviceTimeUnits * radio.SpeedOfLight
}

// SingleSided estimates the distance from one poll/report round trip.
// pollTx and respRx are the initiator's local captures; pollRx and respTx
// are the responder's captures carried in the report frame.
// clockOffsetRatio is the responder clock rate relative to the initiator,
// read from the carrier frequency offset of the report; it corrects the
// first-order error the responder's reply time would otherwise contribute.
func SingleSided(pollTx, respRx, pollRx, respTx uint32, clockOffsetRatio float64) (float64, error) {
	ra := int32(respRx - pollTx)
	rb := int32(respTx - pollRx)
	if ra == 0 && rb == 0 {
		return 0, ErrDegenerateTiming
	}
	tofDTU := (float64(ra) - float64(rb)*(1-clockOffsetRatio)) / 2
	return Distance(tofDTU), nil
}

// DoubleSidedTimes carries the six captures of a poll/response/final
// exchange. PollTx, RespRx and FinalTx are the initiator's captures
// (embedded in the final frame); PollRx, RespTx and FinalRx are the
// responder's own.
type DoubleSidedTimes struct {
	PollTx  uint32
	RespRx  uint32
	FinalTx uint32
	PollRx  uint32
	RespTx  uint32
	FinalRx uint32
}

// DoubleSided estimates the distance from a double-sided exchange. The
// symmetric formulation cancels clock-offset error to first order, so no
// offset ratio is needed.
func DoubleSided(t DoubleSidedTimes) (float64, error) {
	ra := float64(t.RespRx - t.PollTx)
	rb := float64(t.FinalRx - t.RespTx)
	da := float64(t.FinalTx - t.RespRx)
	db := float64(t.RespTx - t.PollRx)

	denom := ra + rb + da + db
	if denom == 0 {
		return 0, ErrDegenerateTiming
	}
	tofDTU := (ra*rb - da*db) / denom
	return Distance(tofDTU), nil
}

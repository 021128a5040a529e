package uwb

import (
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/uwb/frame"
	"github.com/opd-ai/uwb/radio"
)

// Scheme selects the ranging algorithm.
type Scheme uint8

const (
	// SchemeSingleSided uses one poll/report round trip with clock
	// offset correction.
	SchemeSingleSided Scheme = iota
	// SchemeDoubleSided adds a final frame so clock offset cancels
	// without being measured.
	SchemeDoubleSided
)

// SecurityMode selects frame timing protection.
type SecurityMode uint8

const (
	// SecurityNone ranges without STS protection.
	SecurityNone SecurityMode = iota
	// SecuritySts scrambles the timestamp sequence with the session key
	// and keeps the counters of both ends synchronized.
	SecuritySts
)

// StsLength is the configured STS field length; longer fields extend the
// frame and therefore the turnaround budget.
type StsLength uint8

const (
	StsLen32 StsLength = iota
	StsLen64
	StsLen128
	StsLen256
	StsLen512
	StsLen1024
	StsLen2048
)

// delayUUS returns the turnaround allowance for the STS field, in UWB
// microseconds.
func (l StsLength) delayUUS() uint32 {
	return (1 << (uint32(l) + 2)) * 8
}

// RangingConfig carries every calibration constant and protocol delay a
// session needs. It is passed to the role constructors and never mutated
// afterwards; there is no module-level configuration state.
type RangingConfig struct {
	Scheme   Scheme
	Security SecurityMode

	// Addressing holds this station's own source address; the peer's
	// frames are expected with the reversed addressing.
	Addressing frame.Addressing

	// StsKey and StsIV are the shared session material for SecuritySts.
	// Use sts.DeriveSession to derive both from an association secret.
	StsKey radio.Key128
	StsIV  radio.IV128

	// Initiator delays, UWB microseconds.
	PollTxToRespRxDelayUUS  uint32
	RespRxTimeoutUUS        uint32
	RespRxToFinalTxDelayUUS uint32
	ReportRxTimeoutUUS      uint32

	// Responder delays, UWB microseconds. PollRxTimeoutUUS of zero waits
	// indefinitely for a poll.
	PollRxTimeoutUUS        uint32
	PollRxToRespTxDelayUUS  uint32
	RespTxToFinalRxDelayUUS uint32
	FinalRxTimeoutUUS       uint32

	// Turnaround allowances that depend on the radio configuration, not
	// on runtime state: extra time for the configured data rate and TX
	// preamble length, and the STS field length.
	DataRateDelayUUS uint32
	PreambleDelayUUS uint32
	StsLength        StsLength

	// TxAntennaDelay is the calibrated antenna delay added by the
	// transceiver to programmed transmit times, in device time units.
	TxAntennaDelay uint16

	// ReportDistance makes the double-sided responder feed its computed
	// distance back to the initiator in a fourth frame.
	ReportDistance bool

	// InterRangingDelay paces the initiator's periodic ranging loop.
	InterRangingDelay time.Duration
}

// DefaultConfig returns the calibrated defaults for 6.8 Mbps operation.
func DefaultConfig() RangingConfig {
	return RangingConfig{
		Scheme:   SchemeDoubleSided,
		Security: SecurityNone,
		Addressing: frame.Addressing{
			PANID:  0xDECA,
			Source: 0x4156, // "VA"
			Dest:   0x5741, // "WA"
		},
		PollTxToRespRxDelayUUS:  290,
		RespRxTimeoutUUS:        1000,
		RespRxToFinalTxDelayUUS: 480,
		ReportRxTimeoutUUS:      1000,
		PollRxToRespTxDelayUUS:  500,
		RespTxToFinalRxDelayUUS: 100,
		FinalRxTimeoutUUS:       1200,
		StsLength:               StsLen64,
		InterRangingDelay:       time.Second,
	}
}

// ErrConfig reports an invalid RangingConfig.
var ErrConfig = errors.New("uwb: invalid configuration")

func (c *RangingConfig) validate() error {
	if c.Scheme != SchemeSingleSided && c.Scheme != SchemeDoubleSided {
		return fmt.Errorf("%w: unknown scheme %d", ErrConfig, c.Scheme)
	}
	if c.Security != SecurityNone && c.Security != SecuritySts {
		return fmt.Errorf("%w: unknown security mode %d", ErrConfig, c.Security)
	}
	if c.Security == SecuritySts && c.StsKey == (radio.Key128{}) {
		return fmt.Errorf("%w: STS mode without a key", ErrConfig)
	}
	if c.PollRxToRespTxDelayUUS == 0 {
		return fmt.Errorf("%w: zero responder turnaround", ErrConfig)
	}
	return nil
}

// responderTurnaroundUUS is the full delay between poll reception and the
// scheduled response transmission: the base turnaround plus the allowances
// for data rate, preamble and (when enabled) the STS field. A pure function
// of the configuration.
func (c *RangingConfig) responderTurnaroundUUS() uint32 {
	d := c.PollRxToRespTxDelayUUS + c.DataRateDelayUUS + c.PreambleDelayUUS
	if c.Security == SecuritySts {
		d += c.StsLength.delayUUS()
	}
	return d
}

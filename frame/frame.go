package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Kind identifies a ranging frame by its function code.
type Kind byte

const (
	// KindPoll opens an exchange; carries the initiator's plaintext STS
	// counter so an out-of-sync responder can realign.
	KindPoll Kind = 0xE0
	// KindResponse is the responder's empty reply in a double-sided
	// exchange.
	KindResponse Kind = 0xE1
	// KindFinal closes a double-sided exchange with the initiator's
	// three timestamps.
	KindFinal Kind = 0xE2
	// KindReport is the responder's reply in a single-sided exchange,
	// carrying its poll-RX and response-TX timestamps.
	KindReport Kind = 0xE3
	// KindDistance feeds the responder's computed distance back to the
	// initiator after a double-sided exchange.
	KindDistance Kind = 0xE4
)

// Header and payload geometry. All offsets are fixed by the protocol;
// frame sizes include the 2-byte FCS placeholder the transceiver fills.
const (
	// CommonLen is the length of the shared header, up to and including
	// the function code.
	CommonLen = 10

	// SeqIdx is the sequence-number byte, ignored for frame identity.
	SeqIdx = 2

	// FuncCodeIdx is the function-code byte.
	FuncCodeIdx = 9

	// PollStsCounterIdx is the plaintext STS counter in a poll.
	PollStsCounterIdx = 10

	// ReportPollRxIdx and ReportRespTxIdx locate the single-sided report
	// timestamps.
	ReportPollRxIdx = 10
	ReportRespTxIdx = 14

	// FinalPollTxIdx, FinalRespRxIdx and FinalFinalTxIdx locate the
	// final-message timestamps.
	FinalPollTxIdx  = 10
	FinalRespRxIdx  = 14
	FinalFinalTxIdx = 18

	// DistanceMMIdx locates the distance (millimetres, uint32) in a
	// distance report.
	DistanceMMIdx = 10

	fcsLen = 2

	// PollLen, ResponseLen, FinalLen, ReportLen and DistanceLen are the
	// full on-air frame sizes per kind.
	PollLen     = CommonLen + 4 + fcsLen
	ResponseLen = CommonLen + fcsLen
	FinalLen    = CommonLen + 12 + fcsLen
	ReportLen   = CommonLen + 8 + fcsLen
	DistanceLen = CommonLen + 4 + fcsLen

	// MaxLen is the longest frame the ranging process handles.
	MaxLen = FinalLen
)

// ErrMismatch reports a received frame whose header or size does not match
// the awaited kind.
var ErrMismatch = errors.New("frame: header mismatch")

// Addressing carries the session's fixed header fields.
type Addressing struct {
	PANID  uint16
	Source uint16
	Dest   uint16
}

// Reverse returns the addressing as seen from the other end of the link.
func (a Addressing) Reverse() Addressing {
	return Addressing{PANID: a.PANID, Source: a.Dest, Dest: a.Source}
}

// Fields holds the variable content of a frame. Only the fields relevant
// to the frame's kind are consulted.
type Fields struct {
	Seq        byte
	StsCounter uint32 // KindPoll
	PollRx     uint32 // KindReport
	RespTx     uint32 // KindReport
	PollTx     uint32 // KindFinal
	RespRx     uint32 // KindFinal
	FinalTx    uint32 // KindFinal
	DistanceMM uint32 // KindDistance
}

func kindLen(kind Kind) int {
	switch kind {
	case KindPoll:
		return PollLen
	case KindResponse:
		return ResponseLen
	case KindFinal:
		return FinalLen
	case KindReport:
		return ReportLen
	case KindDistance:
		return DistanceLen
	default:
		return 0
	}
}

func header(kind Kind, addr Addressing, seq byte) []byte {
	h := make([]byte, CommonLen)
	h[0] = 0x41
	h[1] = 0x88
	h[SeqIdx] = seq
	binary.LittleEndian.PutUint16(h[3:5], addr.PANID)
	binary.LittleEndian.PutUint16(h[5:7], addr.Dest)
	binary.LittleEndian.PutUint16(h[7:9], addr.Source)
	h[FuncCodeIdx] = byte(kind)
	return h
}

// Encode builds the on-air bytes for a frame of the given kind. The FCS
// bytes are left zero for the transceiver to fill.
func Encode(kind Kind, addr Addressing, f Fields) []byte {
	size := kindLen(kind)
	if size == 0 {
		panic(fmt.Sprintf("frame: unknown kind %#x", byte(kind)))
	}
	b := make([]byte, size)
	copy(b, header(kind, addr, f.Seq))
	switch kind {
	case KindPoll:
		binary.LittleEndian.PutUint32(b[PollStsCounterIdx:], f.StsCounter)
	case KindReport:
		PutTimestamp(b[ReportPollRxIdx:], uint64(f.PollRx))
		PutTimestamp(b[ReportRespTxIdx:], uint64(f.RespTx))
	case KindFinal:
		PutTimestamp(b[FinalPollTxIdx:], uint64(f.PollTx))
		PutTimestamp(b[FinalRespRxIdx:], uint64(f.RespRx))
		PutTimestamp(b[FinalFinalTxIdx:], uint64(f.FinalTx))
	case KindDistance:
		binary.LittleEndian.PutUint32(b[DistanceMMIdx:], f.DistanceMM)
	}
	return b
}

// Decode validates buf against the awaited kind and extracts its fields.
// The sequence-number byte is cleared before the header comparison, so a
// peer's running sequence number never causes a mismatch; any other header
// byte difference, or a wrong frame size, yields ErrMismatch.
func Decode(buf []byte, kind Kind, addr Addressing) (Fields, error) {
	size := kindLen(kind)
	if size == 0 {
		panic(fmt.Sprintf("frame: unknown kind %#x", byte(kind)))
	}
	if len(buf) != size {
		return Fields{}, fmt.Errorf("%w: length %d, want %d", ErrMismatch, len(buf), size)
	}

	var f Fields
	f.Seq = buf[SeqIdx]

	expect := header(kind, addr, 0)
	got := make([]byte, CommonLen)
	copy(got, buf[:CommonLen])
	got[SeqIdx] = 0
	for i := range expect {
		if got[i] != expect[i] {
			return Fields{}, fmt.Errorf("%w: header byte %d is %#x, want %#x",
				ErrMismatch, i, got[i], expect[i])
		}
	}

	switch kind {
	case KindPoll:
		f.StsCounter = binary.LittleEndian.Uint32(buf[PollStsCounterIdx:])
	case KindReport:
		f.PollRx = Timestamp32(buf[ReportPollRxIdx:])
		f.RespTx = Timestamp32(buf[ReportRespTxIdx:])
	case KindFinal:
		f.PollTx = Timestamp32(buf[FinalPollTxIdx:])
		f.RespRx = Timestamp32(buf[FinalRespRxIdx:])
		f.FinalTx = Timestamp32(buf[FinalFinalTxIdx:])
	case KindDistance:
		f.DistanceMM = binary.LittleEndian.Uint32(buf[DistanceMMIdx:])
	}
	return f, nil
}

// PutTimestamp embeds the low 32 bits of a device timestamp as a 4-byte
// little-endian span. Timestamps within one exchange are never separated by
// more than 2^32 device time units, so the top byte of the 40-bit capture
// is not needed for delta arithmetic.
func PutTimestamp(b []byte, ts uint64) {
	binary.LittleEndian.PutUint32(b[:4], uint32(ts))
}

// Timestamp32 extracts a 4-byte little-endian timestamp span.
func Timestamp32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b[:4])
}

package aesframe

import (
	"errors"

	"github.com/opd-ai/uwb/radio"
)

// HeaderLen is the on-air size of the secured data frame header.
const HeaderLen = 21

// CounterMask bounds the packet number to the 6 bytes the nonce carries.
const CounterMask = uint64(1)<<48 - 1

// ErrShortHeader reports a frame too small to hold the secured header.
var ErrShortHeader = errors.New("aesframe: frame shorter than header")

// Header is the authenticated, unencrypted prefix of a secured data frame:
// 2-byte frame control, sequence number, 48-bit destination and source
// addresses, and the 6-byte plaintext packet number the nonce is built
// from.
type Header struct {
	FrameCtrl [2]byte
	Seq       byte
	Dst       [6]byte
	Src       [6]byte
	Counter   uint64
}

// DataFrameCtrl is the frame control for an encrypted data frame with
// 48-bit addressing and no acknowledgement request.
var DataFrameCtrl = [2]byte{0x50, 0x40}

// Marshal renders the header's on-air bytes.
func (h *Header) Marshal() []byte {
	b := make([]byte, HeaderLen)
	b[0] = h.FrameCtrl[0]
	b[1] = h.FrameCtrl[1]
	b[2] = h.Seq
	copy(b[3:9], h.Dst[:])
	copy(b[9:15], h.Src[:])
	putCounter48(b[15:21], h.Counter)
	return b
}

// ParseHeader extracts the header from the front of a received frame.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderLen {
		return h, ErrShortHeader
	}
	h.FrameCtrl[0] = b[0]
	h.FrameCtrl[1] = b[1]
	h.Seq = b[2]
	copy(h.Dst[:], b[3:9])
	copy(h.Src[:], b[9:15])
	h.Counter = counter48(b[15:21])
	return h, nil
}

// Nonce builds the AES nonce for this header: the 6-byte packet number
// followed by the 6-byte source address.
func (h *Header) Nonce() [radio.AESNonceSize]byte {
	var n [radio.AESNonceSize]byte
	putCounter48(n[0:6], h.Counter)
	copy(n[6:12], h.Src[:])
	return n
}

func putCounter48(b []byte, c uint64) {
	c &= CounterMask
	b[0] = byte(c)
	b[1] = byte(c >> 8)
	b[2] = byte(c >> 16)
	b[3] = byte(c >> 24)
	b[4] = byte(c >> 32)
	b[5] = byte(c >> 40)
}

func counter48(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 |
		uint64(b[3])<<24 | uint64(b[4])<<32 | uint64(b[5])<<40
}

package aesframe

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/uwb/radio"
)

const fcsLen = 2

// BufferCapacity is the largest frame the extended PHY mode carries; every
// payload length is validated against it before a job reaches the engine.
const BufferCapacity = 1023

// ErrLength reports a payload length the engine cannot represent: negative
// after subtracting header, MIC and FCS, or exceeding the buffer. Raised
// before the hardware job runs, or mapped from a negative engine status.
var ErrLength = errors.New("aesframe: bad header/payload length")

// ErrCrypto reports an engine-flagged failure, such as a MIC that does not
// verify on decrypt.
var ErrCrypto = errors.New("aesframe: engine error")

// classify maps a raw engine status to the error taxonomy. Both the seal
// and open paths go through here so the two call sites can never diverge.
func classify(status int8) error {
	if status < 0 {
		return fmt.Errorf("%w: engine status %d", ErrLength, status)
	}
	if status&radio.AESErrors != 0 {
		return fmt.Errorf("%w: engine status %#x", ErrCrypto, status)
	}
	return nil
}

// Seal encrypts payload under the header's nonce and stages the secured
// frame (header, ciphertext, MIC) in the transceiver's TX buffer. The
// caller transmits it with Transmit(nil, flags).
func Seal(t radio.Transceiver, h *Header, payload []byte, micSize int) error {
	if len(payload) < 0 || HeaderLen+len(payload)+micSize+fcsLen > BufferCapacity {
		return fmt.Errorf("%w: payload %d bytes", ErrLength, len(payload))
	}
	job := radio.AESJob{
		Nonce:      h.Nonce(),
		Header:     h.Marshal(),
		Payload:    payload,
		PayloadLen: len(payload),
		MICSize:    micSize,
		Src:        radio.BufferRAM,
		Dst:        radio.BufferTx,
		Mode:       radio.AESEncrypt,
	}
	if err := classify(t.DoAES(&job)); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"counter": h.Counter,
		"payload": len(payload),
		"mic":     micSize,
	}).Debug("sealed data frame")
	return nil
}

// Open authenticates and decrypts a received secured frame of frameLen
// on-air bytes from the transceiver's RX buffer. The payload length is
// derived from the frame geometry and validated before the engine job
// runs; payload receives the plaintext. Returns the parsed header and the
// payload length.
func Open(t radio.Transceiver, frameLen, micSize int, payload []byte) (Header, int, error) {
	buf := make([]byte, frameLen)
	n, err := t.ReadFrame(buf)
	if err != nil {
		return Header{}, 0, fmt.Errorf("aesframe: read frame: %w", err)
	}
	h, err := ParseHeader(buf[:n])
	if err != nil {
		return Header{}, 0, err
	}

	payloadLen := frameLen - HeaderLen - micSize - fcsLen
	if payloadLen < 0 || payloadLen >= BufferCapacity || payloadLen > len(payload) {
		return h, 0, fmt.Errorf("%w: frame %d, mic %d", ErrLength, frameLen, micSize)
	}

	job := radio.AESJob{
		Nonce:      h.Nonce(),
		Header:     make([]byte, HeaderLen),
		Payload:    payload,
		PayloadLen: payloadLen,
		MICSize:    micSize,
		Src:        radio.BufferRx,
		Dst:        radio.BufferRAM,
		Mode:       radio.AESDecrypt,
	}
	if err := classify(t.DoAES(&job)); err != nil {
		return h, 0, err
	}
	return h, payloadLen, nil
}

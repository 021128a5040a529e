package aesframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/uwb/radio"
)

func testHeader() *Header {
	return &Header{
		FrameCtrl: DataFrameCtrl,
		Seq:       9,
		Dst:       [6]byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15},
		Src:       [6]byte{0x20, 0x21, 0x22, 0x23, 0x24, 0x25},
		Counter:   0x0000AABBCCDDEEFF & CounterMask,
	}
}

// TestHeaderRoundTrip marshals and re-parses the secured header.
func TestHeaderRoundTrip(t *testing.T) {
	h := testHeader()
	b := h.Marshal()
	require.Len(t, b, HeaderLen)

	got, err := ParseHeader(b)
	require.NoError(t, err)
	assert.Equal(t, *h, got)

	_, err = ParseHeader(b[:HeaderLen-1])
	assert.ErrorIs(t, err, ErrShortHeader)
}

// TestNonceLayout pins the nonce format: 6-byte little-endian packet number
// followed by the 6-byte source address.
func TestNonceLayout(t *testing.T) {
	h := testHeader()
	n := h.Nonce()
	assert.Equal(t, byte(0xFF), n[0])
	assert.Equal(t, byte(0xEE), n[1])
	assert.Equal(t, byte(0xAA), n[5])
	assert.Equal(t, h.Src[:], n[6:12])
}

// TestClassify maps the raw engine status codes onto the error taxonomy.
func TestClassify(t *testing.T) {
	assert.NoError(t, classify(0))
	assert.ErrorIs(t, classify(-1), ErrLength)
	assert.ErrorIs(t, classify(-128), ErrLength)
	assert.ErrorIs(t, classify(radio.AESErrMIC), ErrCrypto)
}

func aesPair(t *testing.T) (*radio.SimTransceiver, *radio.SimTransceiver) {
	t.Helper()
	var key radio.Key128
	copy(key[:], "frame-key-frame-")
	bus := radio.NewSimBus(radio.SimConfig{Distance: 3})
	left, right := bus.Endpoints()
	left.ConfigureAES(key)
	right.ConfigureAES(key)
	return left, right
}

func sendSealed(t *testing.T, tx, rx *radio.SimTransceiver, h *Header, payload []byte, micSize int) int {
	t.Helper()
	require.NoError(t, rx.ReceiveEnable(radio.RxImmediate))
	require.NoError(t, Seal(tx, h, payload, micSize))
	require.NoError(t, tx.Transmit(nil, 0))
	require.Equal(t, radio.EventRxGood, rx.AwaitStatus(radio.EventRxAny, 10000))

	var buf [BufferCapacity]byte
	n, err := rx.ReadFrame(buf[:])
	require.NoError(t, err)
	return n
}

// TestSealOpen runs a secured payload across the simulated link and checks
// the peer recovers header and plaintext.
func TestSealOpen(t *testing.T) {
	left, right := aesPair(t)
	h := testHeader()
	payload := []byte("ranging session telemetry")
	const micSize = 8

	frameLen := sendSealed(t, left, right, h, payload, micSize)
	assert.Equal(t, HeaderLen+len(payload)+micSize+fcsLen, frameLen)

	out := make([]byte, BufferCapacity)
	got, n, err := Open(right, frameLen, micSize, out)
	require.NoError(t, err)
	assert.Equal(t, *h, got)
	assert.Equal(t, payload, out[:n])
}

// TestSealOpenNoMIC covers the unauthenticated-encryption configuration.
func TestSealOpenNoMIC(t *testing.T) {
	left, right := aesPair(t)
	h := testHeader()
	payload := []byte{1, 2, 3, 4}

	frameLen := sendSealed(t, left, right, h, payload, 0)
	out := make([]byte, 16)
	_, n, err := Open(right, frameLen, 0, out)
	require.NoError(t, err)
	assert.Equal(t, payload, out[:n])
}

// TestOpenTamperedFrame flips a header byte in flight; the MIC must fail
// and surface as a crypto error.
func TestOpenTamperedFrame(t *testing.T) {
	left, right := aesPair(t)
	right.InjectCorruption()

	frameLen := sendSealed(t, left, right, testHeader(), []byte("payload"), 8)
	out := make([]byte, 64)
	_, _, err := Open(right, frameLen, 8, out)
	assert.ErrorIs(t, err, ErrCrypto)
}

// TestOpenBadGeometry rejects a MIC size that leaves no room for payload
// before any engine job runs.
func TestOpenBadGeometry(t *testing.T) {
	left, right := aesPair(t)

	frameLen := sendSealed(t, left, right, testHeader(), []byte{1}, 0)
	out := make([]byte, 64)
	_, _, err := Open(right, frameLen, 16, out)
	assert.ErrorIs(t, err, ErrLength)
}

// engineSpy counts AES jobs reaching the engine.
type engineSpy struct {
	radio.Transceiver
	jobs int
}

func (s *engineSpy) DoAES(job *radio.AESJob) int8 {
	s.jobs++
	return s.Transceiver.DoAES(job)
}

// TestSealOversizedPayload verifies the capacity check fires before the
// engine sees the job.
func TestSealOversizedPayload(t *testing.T) {
	left, _ := aesPair(t)
	spy := &engineSpy{Transceiver: left}

	payload := make([]byte, BufferCapacity)
	err := Seal(spy, testHeader(), payload, 16)
	assert.ErrorIs(t, err, ErrLength)
	assert.Zero(t, spy.jobs)
}

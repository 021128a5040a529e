package radio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDelayedTxTimeRounding pins the 512-dtu scheduler granularity and the
// predicted-timestamp reconstruction.
func TestDelayedTxTimeRounding(t *testing.T) {
	base := uint64(0x12_3456789A)
	txTime := DelayedTxTime(base, 1000)
	assert.Equal(t, uint32(((base+1000)&TimestampMask)>>8), txTime)

	ts := ProgrammedTxTimestamp(txTime, 0)
	// The reconstructed timestamp has the low 9 bits zeroed.
	assert.Zero(t, ts&0x1FF)
	assert.LessOrEqual(t, (base+1000)-ts, uint64(0x1FF))

	withDelay := ProgrammedTxTimestamp(txTime, 16385)
	assert.Equal(t, ts+16385, withDelay)
}

// TestIVCounter round-trips the low-32-bit counter accessors.
func TestIVCounter(t *testing.T) {
	var iv IV128
	iv.SetCounter(0xAABBCCDD)
	assert.Equal(t, uint32(0xAABBCCDD), iv.Counter())
	assert.Equal(t, byte(0xDD), iv[0])
	assert.Equal(t, byte(0xAA), iv[3])
}

// TestSimExchange sends one frame across the bus and checks the RX
// timestamp trails the TX timestamp by exactly the link's time of flight.
func TestSimExchange(t *testing.T) {
	const distance = 7.5
	bus := NewSimBus(SimConfig{Distance: distance})
	left, right := bus.Endpoints()

	require.NoError(t, right.ReceiveEnable(RxImmediate))
	require.NoError(t, left.Transmit([]byte{1, 2, 3}, TxRanging))

	ev := right.AwaitStatus(EventRxAny, 10000)
	require.Equal(t, EventRxGood, ev)

	var buf [16]byte
	n, err := right.ReadFrame(buf[:])
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, buf[:n])

	tofDtu := uint64(math.Round(distance / SpeedOfLight / DeviceTimeUnits))
	assert.Equal(t, left.ReadTimestamp(TimestampTx)+tofDtu, right.ReadTimestamp(TimestampRx))
}

// TestSimReceiveTimeout expires a receive window with nothing on the air.
func TestSimReceiveTimeout(t *testing.T) {
	bus := NewSimBus(SimConfig{})
	left, _ := bus.Endpoints()
	require.NoError(t, left.ReceiveEnable(RxImmediate))
	assert.Equal(t, EventRxTimeout, left.AwaitStatus(EventRxAny, 100))
}

// TestSimUnarmedDrop verifies frames are lost when the receiver is not
// enabled.
func TestSimUnarmedDrop(t *testing.T) {
	bus := NewSimBus(SimConfig{})
	left, right := bus.Endpoints()
	require.NoError(t, left.Transmit([]byte{9}, 0))
	// Arm after the frame already passed.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, right.ReceiveEnable(RxImmediate))
	assert.Equal(t, EventRxTimeout, right.AwaitStatus(EventRxAny, 200))
}

// TestSimTransmitDelayed schedules a transmission ahead of time and
// verifies the recorded timestamp is exactly the programmed one.
func TestSimTransmitDelayed(t *testing.T) {
	bus := NewSimBus(SimConfig{Distance: 2})
	left, right := bus.Endpoints()

	require.NoError(t, right.ReceiveEnable(RxImmediate))

	// About one millisecond ahead.
	target := DelayedTxTime(bus.now(), 1000*UUSToDeviceTime)
	require.NoError(t, left.TransmitDelayed([]byte{5}, target, TxRanging))

	assert.Equal(t, EventTxDone, left.AwaitStatus(EventTxDone, 0))
	assert.Equal(t, ProgrammedTxTimestamp(target, 0), left.ReadTimestamp(TimestampTx))

	require.Equal(t, EventRxGood, right.AwaitStatus(EventRxAny, 10000))
}

// TestSimLateStart rejects a target time in the past without hanging.
func TestSimLateStart(t *testing.T) {
	bus := NewSimBus(SimConfig{})
	left, _ := bus.Endpoints()

	past := DelayedTxTime(bus.now(), 0)
	err := left.TransmitDelayed([]byte{1}, past, 0)
	assert.ErrorIs(t, err, ErrLateStart)
}

// TestSimStsQuality covers counter-matched and mismatched receptions and
// the per-frame counter advance on both ends.
func TestSimStsQuality(t *testing.T) {
	var key Key128
	var iv IV128
	copy(key[:], "stskey-stskey-16")
	iv.SetCounter(10)

	bus := NewSimBus(SimConfig{})
	left, right := bus.Endpoints()
	require.NoError(t, left.ConfigureSts(key, iv))
	require.NoError(t, right.ConfigureSts(key, iv))

	require.NoError(t, right.ReceiveEnable(RxImmediate))
	require.NoError(t, left.Transmit([]byte{1}, 0))
	require.Equal(t, EventRxGood, right.AwaitStatus(EventRxAny, 10000))
	assert.GreaterOrEqual(t, right.ReadStsQuality(), int16(0))
	assert.Equal(t, uint32(11), left.StsCounter())
	assert.Equal(t, uint32(11), right.StsCounter())

	// Desynchronize the receiver: quality goes negative, counter holds.
	require.NoError(t, right.ReloadStsCounter(99))
	require.NoError(t, right.ReceiveEnable(RxImmediate))
	require.NoError(t, left.Transmit([]byte{2}, 0))
	require.Equal(t, EventRxGood, right.AwaitStatus(EventRxAny, 10000))
	assert.Negative(t, right.ReadStsQuality())
	assert.Equal(t, uint32(99), right.StsCounter())
}

// TestSimInjectors exercises the fault hooks.
func TestSimInjectors(t *testing.T) {
	bus := NewSimBus(SimConfig{})
	left, right := bus.Endpoints()

	right.InjectRxError()
	require.NoError(t, right.ReceiveEnable(RxImmediate))
	require.NoError(t, left.Transmit([]byte{1}, 0))
	assert.Equal(t, EventRxError, right.AwaitStatus(EventRxAny, 10000))

	right.InjectCorruption()
	require.NoError(t, right.ReceiveEnable(RxImmediate))
	require.NoError(t, left.Transmit([]byte{0x41, 0x88}, 0))
	require.Equal(t, EventRxGood, right.AwaitStatus(EventRxAny, 10000))
	var buf [4]byte
	n, err := right.ReadFrame(buf[:])
	require.NoError(t, err)
	assert.Equal(t, byte(0x41^0xFF), buf[0])
	assert.Equal(t, 2, n)

	right.InjectDrop()
	require.NoError(t, right.ReceiveEnable(RxImmediate))
	require.NoError(t, left.Transmit([]byte{1}, 0))
	assert.Equal(t, EventRxTimeout, right.AwaitStatus(EventRxAny, 200))
}

// TestSimReadFrameTooSmall reports a frame that does not fit.
func TestSimReadFrameTooSmall(t *testing.T) {
	bus := NewSimBus(SimConfig{})
	left, right := bus.Endpoints()
	require.NoError(t, right.ReceiveEnable(RxImmediate))
	require.NoError(t, left.Transmit(make([]byte, 32), 0))
	require.Equal(t, EventRxGood, right.AwaitStatus(EventRxAny, 10000))

	var small [8]byte
	_, err := right.ReadFrame(small[:])
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}

// TestDoAESRejectsBadJobs pins the negative-status contract for jobs the
// engine must refuse before running.
func TestDoAESRejectsBadJobs(t *testing.T) {
	bus := NewSimBus(SimConfig{})
	left, _ := bus.Endpoints()

	assert.Negative(t, left.DoAES(nil))
	assert.Negative(t, left.DoAES(&AESJob{MICSize: 64, Mode: AESEncrypt, Dst: BufferTx}))
	assert.Negative(t, left.DoAES(&AESJob{PayloadLen: -1, Mode: AESEncrypt, Dst: BufferTx}))
	assert.Negative(t, left.DoAES(&AESJob{Mode: AESDecrypt, Src: BufferTx}))
}

package radio

import "errors"

// Device-time constants for the impulse-radio transceiver. One device time
// unit (dtu) is one tick of the 64 GHz ranging counter; delays configured in
// UWB microseconds (uus) convert through UUSToDeviceTime.
const (
	// DeviceTimeUnits is the length of one device time unit in seconds
	// (1 / (128 * 499.2 MHz), about 15.65 ps).
	DeviceTimeUnits = 1.0 / (128 * 499.2e6)

	// UUSToDeviceTime is the number of device time units per UWB
	// microsecond (512 / 499.2 us).
	UUSToDeviceTime = 63898

	// SpeedOfLight in metres per second, as used for distance conversion.
	SpeedOfLight = 299702547.0

	// TimestampMask bounds the 40-bit device timestamp counter.
	TimestampMask = (uint64(1) << 40) - 1
)

// EventBits is the set of terminal status conditions a wait can resolve to.
// The bits mirror the transceiver status register: exactly one of the RX
// bits (or the TX-done bit) terminates a given wait.
type EventBits uint32

const (
	// EventTxDone signals the end of a frame transmission.
	EventTxDone EventBits = 1 << iota
	// EventRxGood signals a frame received with a valid FCS.
	EventRxGood
	// EventRxTimeout signals that the programmed receive window elapsed
	// with no frame.
	EventRxTimeout
	// EventRxError signals a PHY/CRC/sync-loss receive error.
	EventRxError
)

// EventRxAny covers every way a receive wait can terminate.
const EventRxAny = EventRxGood | EventRxTimeout | EventRxError

// TxFlags qualifies a transmission request.
type TxFlags uint8

const (
	// TxRanging sets the ranging bit in the PHY header so the receiver
	// captures a precise arrival timestamp.
	TxRanging TxFlags = 1 << iota
	// TxResponseExpected arms the receiver automatically after the
	// transmission completes, delayed by the configured turnaround.
	TxResponseExpected
)

// RxMode selects how the receiver is enabled.
type RxMode uint8

const (
	// RxImmediate starts listening right away.
	RxImmediate RxMode = iota
	// RxDelayed starts listening at the previously programmed offset.
	RxDelayed
)

// TimestampKind selects which captured timestamp to read.
type TimestampKind uint8

const (
	// TimestampTx is the departure time of the last transmitted frame.
	TimestampTx TimestampKind = iota
	// TimestampRx is the arrival time of the last received frame.
	TimestampRx
)

// Key128 is a 128-bit key for the STS generator or the AES engine.
type Key128 [16]byte

// IV128 is the 128-bit STS nonce. Its low 32 bits (little-endian at offset
// zero) are the advancing counter.
type IV128 [16]byte

// Counter returns the low-32-bit counter portion of the IV.
func (iv IV128) Counter() uint32 {
	return uint32(iv[0]) | uint32(iv[1])<<8 | uint32(iv[2])<<16 | uint32(iv[3])<<24
}

// SetCounter overwrites the low-32-bit counter portion of the IV.
func (iv *IV128) SetCounter(c uint32) {
	iv[0] = byte(c)
	iv[1] = byte(c >> 8)
	iv[2] = byte(c >> 16)
	iv[3] = byte(c >> 24)
}

// AESMode selects the direction of an AES job.
type AESMode uint8

const (
	// AESEncrypt encrypts the payload and appends the MIC.
	AESEncrypt AESMode = iota
	// AESDecrypt verifies the MIC and decrypts the payload.
	AESDecrypt
)

// AESBuffer selects the source or destination of an AES job.
type AESBuffer uint8

const (
	// BufferTx is the transceiver's transmit frame buffer.
	BufferTx AESBuffer = iota
	// BufferRx is the transceiver's receive frame buffer.
	BufferRx
	// BufferRAM is a caller-supplied slice (AESJob.Payload).
	BufferRAM
)

// AESNonceSize is the nonce length the AES engine consumes: a 6-byte
// plaintext counter followed by the 6-byte source address.
const AESNonceSize = 12

// AESJob describes one encrypt or decrypt operation for the AES engine.
// The header is authenticated but not encrypted; the payload is encrypted
// or decrypted in place between the selected buffers.
type AESJob struct {
	Nonce      [AESNonceSize]byte
	Header     []byte
	Payload    []byte // destination slice for BufferRAM jobs
	PayloadLen int
	MICSize    int
	Src        AESBuffer
	Dst        AESBuffer
	Mode       AESMode
}

// AESErrMIC is set in a non-negative DoAES status when authentication or
// decryption failed. Negative status values indicate the job itself was
// rejected (length or mode).
const AESErrMIC int8 = 0x01

// AESErrors masks every error bit a non-negative DoAES status can carry.
const AESErrors int8 = AESErrMIC

// ErrLateStart is returned by TransmitDelayed when the target time has
// already passed; the transmission never starts and no TX-done event will
// fire.
var ErrLateStart = errors.New("radio: delayed transmit time already passed")

// ErrBufferTooSmall is returned by ReadFrame when the received frame does
// not fit the caller's buffer.
var ErrBufferTooSmall = errors.New("radio: frame exceeds buffer")

// Transceiver is the contract the ranging core drives. Implementations are
// exclusively owned: one logical role issues commands at a time.
type Transceiver interface {
	// Transmit sends frame immediately. A nil frame transmits the staged
	// TX buffer contents (see WriteFrame and DoAES).
	Transmit(frame []byte, flags TxFlags) error

	// TransmitDelayed schedules frame for the given transmit time,
	// expressed as the high 32 bits of the 40-bit device time with the
	// lowest bit ignored (512-dtu granularity). Returns ErrLateStart if
	// the target time has already passed.
	TransmitDelayed(frame []byte, txTime uint32, flags TxFlags) error

	// ReceiveEnable arms the receiver.
	ReceiveEnable(mode RxMode) error

	// SetRxAfterTxDelay programs the turnaround between the end of a
	// TxResponseExpected transmission and the automatic receiver
	// enable, in UWB microseconds.
	SetRxAfterTxDelay(uus uint32)

	// AwaitStatus blocks until an event in mask fires, or until the
	// hardware receive timeout elapses (timeoutUUS > 0). A zero timeout
	// waits indefinitely.
	AwaitStatus(mask EventBits, timeoutUUS uint32) EventBits

	// ReadTimestamp returns the 40-bit capture for the last TX or RX
	// frame. The low 32 bits are safe for delta arithmetic within one
	// exchange.
	ReadTimestamp(which TimestampKind) uint64

	// ReadClockOffsetRatio reports the remote clock rate relative to the
	// local clock, measured from the carrier frequency offset of the
	// last received frame.
	ReadClockOffsetRatio() float64

	// ReadStsQuality reports the STS correlation score of the last
	// received frame; negative means the STS was absent or bad.
	ReadStsQuality() int16

	// ConfigureSts loads the STS key and full IV.
	ConfigureSts(key Key128, iv IV128) error

	// ReloadStsCounter rewrites only the low-32-bit counter of the
	// loaded IV.
	ReloadStsCounter(counter uint32) error

	// ConfigureAES loads the AES engine key register.
	ConfigureAES(key Key128)

	// DoAES executes one AES job and returns the raw engine status:
	// negative if the job was rejected, error bits per AESErrors
	// otherwise.
	DoAES(job *AESJob) int8

	// ReadFrame copies the last received frame into buf and returns its
	// length.
	ReadFrame(buf []byte) (int, error)

	// WriteFrame stages bytes in the TX buffer without transmitting.
	WriteFrame(frame []byte) error
}

// DelayedTxTime converts an absolute 40-bit device time into the 32-bit
// value TransmitDelayed accepts (time >> 8, low bit ignored by hardware).
func DelayedTxTime(base, delay uint64) uint32 {
	return uint32(((base + delay) & TimestampMask) >> 8)
}

// ProgrammedTxTimestamp predicts the timestamp the transceiver will record
// for a delayed transmission programmed at txTime, given the calibrated TX
// antenna delay.
func ProgrammedTxTimestamp(txTime uint32, antennaDelay uint16) uint64 {
	return ((uint64(txTime&^1) << 8) + uint64(antennaDelay)) & TimestampMask
}

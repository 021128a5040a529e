package radio

import (
	"math"
	"sync"
	"time"
)

// SimConfig configures a simulated radio link.
type SimConfig struct {
	// Distance between the two endpoints in metres. Determines the
	// simulated time of flight.
	Distance float64

	// ClockOffsetRatio is the relative clock rate the left endpoint
	// measures for the right one; the right endpoint reports the
	// negated value.
	ClockOffsetRatio float64

	// StsQuality is the score reported for a frame whose STS matched.
	// Zero selects a sane positive default.
	StsQuality int16
}

const defaultStsQuality = 64

// SimBus joins two SimTransceivers with a shared device-time clock. Device
// time is real monotonic time scaled to 15.65 ps ticks, so scheduled
// transmissions and receive timeouts behave like their hardware
// counterparts while all timestamps stay exact.
type SimBus struct {
	start   time.Time
	tofDtu  uint64
	offset  float64
	quality int16
	left    *SimTransceiver
	right   *SimTransceiver
}

// NewSimBus creates a simulated link between two endpoints.
func NewSimBus(cfg SimConfig) *SimBus {
	quality := cfg.StsQuality
	if quality == 0 {
		quality = defaultStsQuality
	}
	bus := &SimBus{
		start:   time.Now(),
		tofDtu:  uint64(math.Round(cfg.Distance / SpeedOfLight / DeviceTimeUnits)),
		offset:  cfg.ClockOffsetRatio,
		quality: quality,
	}
	bus.left = newSimTransceiver(bus, 0)
	bus.right = newSimTransceiver(bus, 1)
	bus.left.peer = bus.right
	bus.right.peer = bus.left
	return bus
}

// Endpoints returns the two sides of the link.
func (b *SimBus) Endpoints() (*SimTransceiver, *SimTransceiver) {
	return b.left, b.right
}

// now returns the current device time, without the 40-bit wrap applied so
// the simulator can schedule monotonically. Reported timestamps are masked
// at the read sites.
func (b *SimBus) now() uint64 {
	return uint64(float64(time.Since(b.start).Nanoseconds()) * 1e-9 / DeviceTimeUnits)
}

func (b *SimBus) sleepUntil(dtu uint64) {
	target := b.start.Add(dtuDuration(dtu))
	if d := time.Until(target); d > 0 {
		time.Sleep(d)
	}
}

func dtuDuration(dtu uint64) time.Duration {
	return time.Duration(float64(dtu) * DeviceTimeUnits * 1e9)
}

func uusDuration(uus uint32) time.Duration {
	return dtuDuration(uint64(uus) * UUSToDeviceTime)
}

type simDelivery struct {
	event EventBits
}

// SimTransceiver is one endpoint of a SimBus link. It satisfies Transceiver
// and is safe for the single-owner usage pattern the contract requires;
// internal synchronization only guards against the peer's delivery
// goroutines.
type SimTransceiver struct {
	bus  *SimBus
	peer *SimTransceiver
	side int

	inbox  chan simDelivery
	txDone chan struct{}

	mu         sync.Mutex
	rxArmed    bool
	rxAfterTx  uint32
	lastTxTs   uint64
	lastRxTs   uint64
	rxFrame    []byte
	stsQuality int16

	stsEnabled bool
	stsKey     Key128
	stsCounter uint32

	aesKey Key128
	txBuf  []byte

	dropNext    bool
	rxErrNext   bool
	badStsNext  bool
	corruptNext bool
}

func newSimTransceiver(bus *SimBus, side int) *SimTransceiver {
	return &SimTransceiver{
		bus:        bus,
		side:       side,
		inbox:      make(chan simDelivery, 1),
		txDone:     make(chan struct{}, 1),
		stsQuality: bus.quality,
	}
}

// InjectDrop discards the next frame that would be delivered to this
// endpoint.
func (t *SimTransceiver) InjectDrop() {
	t.mu.Lock()
	t.dropNext = true
	t.mu.Unlock()
}

// InjectRxError turns the next delivery to this endpoint into a PHY receive
// error.
func (t *SimTransceiver) InjectRxError() {
	t.mu.Lock()
	t.rxErrNext = true
	t.mu.Unlock()
}

// InjectBadSts forces a negative STS quality on the next frame this
// endpoint receives, regardless of counter state.
func (t *SimTransceiver) InjectBadSts() {
	t.mu.Lock()
	t.badStsNext = true
	t.mu.Unlock()
}

// InjectCorruption flips a header byte in the next frame this endpoint
// receives; the frame still arrives as a good-FCS event.
func (t *SimTransceiver) InjectCorruption() {
	t.mu.Lock()
	t.corruptNext = true
	t.mu.Unlock()
}

// StsCounter exposes the endpoint's live STS counter for tests.
func (t *SimTransceiver) StsCounter() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stsCounter
}

// Transmit implements Transceiver.
func (t *SimTransceiver) Transmit(frame []byte, flags TxFlags) error {
	if frame == nil {
		t.mu.Lock()
		frame = append([]byte(nil), t.txBuf...)
		t.mu.Unlock()
	}
	t.launch(frame, t.bus.now(), flags, false)
	return nil
}

// TransmitDelayed implements Transceiver.
func (t *SimTransceiver) TransmitDelayed(frame []byte, txTime uint32, flags TxFlags) error {
	if frame == nil {
		t.mu.Lock()
		frame = append([]byte(nil), t.txBuf...)
		t.mu.Unlock()
	}
	now := t.bus.now()
	target := uint64(txTime&^1) << 8
	// Place the 32-bit target in the half of the 40-bit range ahead of
	// the current time; anything behind is a late start.
	diff := (target - now) & TimestampMask
	if diff == 0 || diff > TimestampMask/2 {
		return ErrLateStart
	}
	t.launch(frame, now+diff, flags, true)
	return nil
}

// launch schedules the transmission: the recorded TX timestamp is exactly
// txTs, the peer's RX timestamp is exactly txTs plus the link's time of
// flight. Wall-clock jitter paces the exchange but never leaks into the
// timestamps.
func (t *SimTransceiver) launch(frame []byte, txTs uint64, flags TxFlags, delayed bool) {
	data := append([]byte(nil), frame...)

	t.mu.Lock()
	t.lastTxTs = txTs
	senderSts := t.stsEnabled
	senderKey := t.stsKey
	var senderCtr uint32
	if senderSts {
		senderCtr = t.stsCounter
		t.stsCounter++
	}
	t.mu.Unlock()

	// Drain a stale TX-done signal from a previous transmission.
	select {
	case <-t.txDone:
	default:
	}

	go func() {
		if delayed {
			t.bus.sleepUntil(txTs)
		}
		if flags&TxResponseExpected != 0 {
			t.mu.Lock()
			t.rxArmed = true
			t.mu.Unlock()
		}
		select {
		case t.txDone <- struct{}{}:
		default:
		}
		rxTs := txTs + t.bus.tofDtu
		t.bus.sleepUntil(rxTs)
		t.peer.deliver(data, rxTs, senderSts, senderKey, senderCtr)
	}()
}

func (t *SimTransceiver) deliver(data []byte, rxTs uint64, senderSts bool, senderKey Key128, senderCtr uint32) {
	t.mu.Lock()
	if t.dropNext {
		t.dropNext = false
		t.mu.Unlock()
		return
	}
	if !t.rxArmed {
		t.mu.Unlock()
		return
	}
	t.rxArmed = false

	event := EventRxGood
	if t.rxErrNext {
		t.rxErrNext = false
		event = EventRxError
	}
	if t.corruptNext {
		t.corruptNext = false
		if len(data) > 0 {
			data[0] ^= 0xFF
		}
	}

	quality := t.bus.quality
	if t.stsEnabled {
		stsMatch := senderSts && senderKey == t.stsKey && senderCtr == t.stsCounter
		if t.badStsNext {
			t.badStsNext = false
			stsMatch = false
		}
		if stsMatch {
			t.stsCounter++
		} else {
			quality = -1
		}
	}

	t.rxFrame = data
	t.lastRxTs = rxTs
	t.stsQuality = quality
	t.mu.Unlock()

	select {
	case t.inbox <- simDelivery{event: event}:
	default:
	}
}

// ReceiveEnable implements Transceiver.
func (t *SimTransceiver) ReceiveEnable(RxMode) error {
	// Drop anything left over from an abandoned exchange.
	select {
	case <-t.inbox:
	default:
	}
	t.mu.Lock()
	t.rxArmed = true
	t.mu.Unlock()
	return nil
}

// SetRxAfterTxDelay implements Transceiver. The simulator arms the receiver
// as soon as the transmission completes; the delay is retained only so the
// contract matches the hardware driver.
func (t *SimTransceiver) SetRxAfterTxDelay(uus uint32) {
	t.mu.Lock()
	t.rxAfterTx = uus
	t.mu.Unlock()
}

// AwaitStatus implements Transceiver. A zero timeout waits indefinitely for
// an event in mask.
func (t *SimTransceiver) AwaitStatus(mask EventBits, timeoutUUS uint32) EventBits {
	var txCh chan struct{}
	var rxCh chan simDelivery
	if mask&EventTxDone != 0 {
		txCh = t.txDone
	}
	if mask&(EventRxGood|EventRxError) != 0 {
		rxCh = t.inbox
	}
	var expired <-chan time.Time
	if timeoutUUS > 0 {
		timer := time.NewTimer(uusDuration(timeoutUUS))
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-txCh:
		return EventTxDone
	case d := <-rxCh:
		return d.event
	case <-expired:
		t.mu.Lock()
		t.rxArmed = false
		t.mu.Unlock()
		return EventRxTimeout
	}
}

// ReadTimestamp implements Transceiver.
func (t *SimTransceiver) ReadTimestamp(which TimestampKind) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if which == TimestampTx {
		return t.lastTxTs & TimestampMask
	}
	return t.lastRxTs & TimestampMask
}

// ReadClockOffsetRatio implements Transceiver.
func (t *SimTransceiver) ReadClockOffsetRatio() float64 {
	if t.side == 0 {
		return t.bus.offset
	}
	return -t.bus.offset
}

// ReadStsQuality implements Transceiver.
func (t *SimTransceiver) ReadStsQuality() int16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stsQuality
}

// ConfigureSts implements Transceiver.
func (t *SimTransceiver) ConfigureSts(key Key128, iv IV128) error {
	t.mu.Lock()
	t.stsEnabled = true
	t.stsKey = key
	t.stsCounter = iv.Counter()
	t.mu.Unlock()
	return nil
}

// ReloadStsCounter implements Transceiver.
func (t *SimTransceiver) ReloadStsCounter(counter uint32) error {
	t.mu.Lock()
	t.stsCounter = counter
	t.mu.Unlock()
	return nil
}

// ConfigureAES implements Transceiver.
func (t *SimTransceiver) ConfigureAES(key Key128) {
	t.mu.Lock()
	t.aesKey = key
	t.mu.Unlock()
}

// ReadFrame implements Transceiver.
func (t *SimTransceiver) ReadFrame(buf []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.rxFrame) > len(buf) {
		return 0, ErrBufferTooSmall
	}
	return copy(buf, t.rxFrame), nil
}

// WriteFrame implements Transceiver.
func (t *SimTransceiver) WriteFrame(frame []byte) error {
	t.mu.Lock()
	t.txBuf = append(t.txBuf[:0], frame...)
	t.mu.Unlock()
	return nil
}

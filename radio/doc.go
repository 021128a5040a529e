// Package radio defines the transceiver contract that the ranging core is
// written against, together with an in-process simulator used by the tests
// and the demo tooling.
//
// The Transceiver interface is the narrow waist between the protocol logic
// and the platform layer: frame TX/RX, delayed transmission, hardware-timed
// receive windows, timestamp capture, STS key/counter management and the
// AES engine. Register-level concerns (bus setup, chip reset, interrupt
// wiring) belong to the platform layer behind a Transceiver implementation
// and never surface here.
//
// The simulator (SimBus/SimTransceiver) connects two endpoints over a shared
// device-time clock with a configurable distance, so a full initiator and
// responder exchange can run in an ordinary unit test:
//
//	bus := radio.NewSimBus(radio.SimConfig{Distance: 7.5})
//	left, right := bus.Endpoints()
package radio

package sts

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/uwb/radio"
)

// Session tracks the STS key, IV counter and resynchronization state for
// one ranging association. It is mutated only between exchanges; the
// single-exchange-at-a-time model means there are no concurrent writers.
type Session struct {
	key     radio.Key128
	iv      radio.IV128
	counter uint32

	loaded        bool
	resyncPending bool
}

// NewSession creates a session around the shared key and IV. Both ends of
// the association must be configured with the same values.
func NewSession(key radio.Key128, iv radio.IV128) *Session {
	return &Session{
		key:           key,
		iv:            iv,
		counter:       iv.Counter(),
		resyncPending: true,
	}
}

// Counter returns the counter value the next (or current) exchange uses.
func (s *Session) Counter() uint32 {
	return s.counter
}

// ResyncPending reports whether a poll's plaintext counter would currently
// be accepted for realignment.
func (s *Session) ResyncPending() bool {
	return s.resyncPending
}

// Begin prepares the transceiver for a new exchange. The first call loads
// the full key and IV; every later call advances the counter and reloads
// only its low 32 bits, mirroring what the peer does so both generators
// stay aligned.
func (s *Session) Begin(t radio.Transceiver) error {
	if !s.loaded {
		iv := s.iv
		iv.SetCounter(s.counter)
		if err := t.ConfigureSts(s.key, iv); err != nil {
			return fmt.Errorf("sts: configure key/iv: %w", err)
		}
		s.loaded = true
		return nil
	}
	s.counter++
	if err := t.ReloadStsCounter(s.counter); err != nil {
		return fmt.Errorf("sts: reload counter: %w", err)
	}
	return nil
}

// GoodQuality reports whether a received frame's STS score allows its
// timestamps to be trusted.
func GoodQuality(score int16) bool {
	return score >= 0
}

// TryResync adopts the peer's plaintext counter after a quality failure.
// It is refused while resynchronization is suppressed mid-exchange:
// overwriting the counter between the response and final legs would
// desynchronize the rest of the exchange.
func (s *Session) TryResync(peerCounter uint32) bool {
	if !s.resyncPending {
		return false
	}
	logrus.WithFields(logrus.Fields{
		"local_counter": s.counter,
		"peer_counter":  peerCounter,
	}).Info("STS counter resynchronized from peer poll")
	s.counter = peerCounter
	return true
}

// Suppress disables resynchronization for the remainder of the current
// exchange. Called once the response leg has been validly exchanged.
func (s *Session) Suppress() {
	s.resyncPending = false
}

// Conclude re-arms resynchronization when an exchange ends, successfully
// or otherwise, so the next poll may realign the counter again.
func (s *Session) Conclude() {
	s.resyncPending = true
}

// Package aesframe protects data frames with the transceiver's AES engine.
//
// The frame header (an 802.15.8-style layout with 48-bit addresses and an
// embedded 6-byte packet number) is authenticated but not encrypted; the
// payload is encrypted and a MIC appended. The nonce is always the 6-byte
// plaintext packet number followed by the 6-byte source address, on both
// the transmit and receive paths, and the hardware completion status is
// classified identically for both.
//
// Frame protection is independent of the ranging exchange: it secures the
// application data frames a deployment sends alongside ranging.
package aesframe

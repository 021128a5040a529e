// Package sts manages the scrambled timestamp sequence state shared by the
// two ends of a ranging session.
//
// A session owns the 128-bit STS key and 128-bit IV whose low 32 bits are
// an advancing counter. The full key and IV are loaded into the transceiver
// once; every later exchange only bumps and reloads the counter. When a
// received frame's STS quality is negative the frame cannot be trusted for
// timing, and the plaintext counter carried in the peer's poll is used to
// realign the local counter for the next exchange.
package sts

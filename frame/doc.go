// Package frame encodes and decodes the fixed-layout ranging frames
// exchanged during a two-way ranging session.
//
// Every frame starts with the same 10-byte header: a 2-byte frame control
// (0x41 0x88, IEEE 802.15.4 data frame with 16-bit addressing), a 1-byte
// sequence number, the 2-byte PAN ID, 2-byte destination and source
// addresses, and a 1-byte function code naming the frame kind. The sequence
// number never participates in frame identity: decoding zeroes it before
// matching the header against the expected template.
//
// Payload layouts are fixed per kind; timestamps are 4-byte little-endian
// spans holding the low 32 bits of the 40-bit device time.
package frame

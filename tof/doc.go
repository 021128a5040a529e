// Package tof computes time-of-flight distance estimates from captured
// ranging timestamps.
//
// Both estimators are pure functions over 32-bit timestamp deltas: no two
// timestamps in one exchange are separated by more than 2^32 device time
// units, so unsigned 32-bit subtraction gives correct deltas even when the
// 40-bit device clock wraps mid-exchange.
package tof

package sts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/uwb/radio"
)

func testKeyIV() (radio.Key128, radio.IV128) {
	var key radio.Key128
	var iv radio.IV128
	copy(key[:], "0123456789abcdef")
	copy(iv[:], "fedcba9876543210")
	iv.SetCounter(100)
	return key, iv
}

// TestBeginLoadsThenReloads verifies the first exchange loads the full
// key/IV and each later one only bumps and reloads the counter.
func TestBeginLoadsThenReloads(t *testing.T) {
	key, iv := testKeyIV()
	bus := radio.NewSimBus(radio.SimConfig{})
	tr, _ := bus.Endpoints()
	s := NewSession(key, iv)

	require.NoError(t, s.Begin(tr))
	assert.Equal(t, uint32(100), s.Counter())
	assert.Equal(t, uint32(100), tr.StsCounter())

	require.NoError(t, s.Begin(tr))
	assert.Equal(t, uint32(101), s.Counter())
	assert.Equal(t, uint32(101), tr.StsCounter())

	require.NoError(t, s.Begin(tr))
	assert.Equal(t, uint32(102), s.Counter())
}

// TestResyncSuppression covers the mid-exchange lockout: once the response
// leg is valid, a bad-quality frame must not overwrite the counter; a
// concluded exchange re-arms resynchronization.
func TestResyncSuppression(t *testing.T) {
	key, iv := testKeyIV()
	s := NewSession(key, iv)

	assert.True(t, s.ResyncPending())
	assert.True(t, s.TryResync(500))
	assert.Equal(t, uint32(500), s.Counter())

	s.Suppress()
	assert.False(t, s.ResyncPending())
	assert.False(t, s.TryResync(900))
	assert.Equal(t, uint32(500), s.Counter(), "suppressed resync must not overwrite")

	s.Conclude()
	assert.True(t, s.ResyncPending())
	assert.True(t, s.TryResync(900))
	assert.Equal(t, uint32(900), s.Counter())
}

// TestGoodQuality pins the sign convention: negative means unusable.
func TestGoodQuality(t *testing.T) {
	assert.True(t, GoodQuality(0))
	assert.True(t, GoodQuality(150))
	assert.False(t, GoodQuality(-1))
	assert.False(t, GoodQuality(-32768))
}

package sts

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/opd-ai/uwb/radio"
)

// Association labels bind derived material to its purpose so the same
// shared secret can also feed the AES frame key without reuse.
const (
	stsInfo = "uwb-sts-key-iv-v1"
	aesInfo = "uwb-aes-frame-key-v1"
)

// ErrShortSecret rejects association secrets too short to be meaningful.
var ErrShortSecret = errors.New("sts: association secret shorter than 16 bytes")

// DeriveSession derives the STS key and IV for an association from a shared
// secret using HKDF-SHA256. Both devices derive identical values, so only
// the secret needs provisioning.
func DeriveSession(secret []byte) (radio.Key128, radio.IV128, error) {
	var key radio.Key128
	var iv radio.IV128
	if len(secret) < 16 {
		return key, iv, ErrShortSecret
	}
	r := hkdf.New(sha256.New, secret, nil, []byte(stsInfo))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, iv, fmt.Errorf("sts: derive key: %w", err)
	}
	if _, err := io.ReadFull(r, iv[:]); err != nil {
		return key, iv, fmt.Errorf("sts: derive iv: %w", err)
	}
	return key, iv, nil
}

// DeriveFrameKey derives the AES frame-protection key for the same
// association.
func DeriveFrameKey(secret []byte) (radio.Key128, error) {
	var key radio.Key128
	if len(secret) < 16 {
		return key, ErrShortSecret
	}
	r := hkdf.New(sha256.New, secret, nil, []byte(aesInfo))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, fmt.Errorf("sts: derive frame key: %w", err)
	}
	return key, nil
}

package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"time"
)

const (
	testIssuer   = "poker-test"
	testAudience = "poker-test-clients"
)

// NewTestTokenProvider returns a provider over a freshly generated P-256 key. Its tokens verify only
// against the same provider, so a test shares one instance between server and clients.
func NewTestTokenProvider() (*TokenProvider, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(key, nil, testIssuer, testAudience, 15*time.Minute), nil
}

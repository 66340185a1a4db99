package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"time"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyErr  error
)

// TestKey returns a process-wide RSA 2048 key generated on first use. Tests only.
func TestKey() (*rsa.PrivateKey, error) {
	testKeyOnce.Do(func() {
		testKey, testKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	return testKey, testKeyErr
}

// TestKeyPEM returns the PKCS#8 private and PKIX public PEM encodings of TestKey.
func TestKeyPEM() (privatePEM, publicPEM string, err error) {
	key, err := TestKey()
	if err != nil {
		return "", "", err
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", err
	}
	privatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	publicPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return privatePEM, publicPEM, nil
}

// NewTestTokenProvider returns a TokenProvider over TestKey with a 15m access TTL. Tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	key, err := TestKey()
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(key, &key.PublicKey, "piiwatch-test", "piiwatch-test-aud", 15*time.Minute), nil
}

package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

const (
	refreshSecretBytes = 32
	refreshSaltBytes   = 16
	refreshHashScheme  = "sha256"
)

var b64 = base64.RawURLEncoding

// NewRefreshSecret returns a random, URL-safe refresh secret (256 bits).
func NewRefreshSecret() (string, error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return b64.EncodeToString(b), nil
}

// HashRefreshSecret returns a salted SHA-256 digest of secret encoded as
// "sha256$<salt>$<digest>". Only this value is persisted; the raw secret is not.
func HashRefreshSecret(secret string) (string, error) {
	salt := make([]byte, refreshSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return refreshHashScheme + "$" + b64.EncodeToString(salt) + "$" + b64.EncodeToString(digest(salt, secret)), nil
}

// VerifyRefreshSecret reports whether secret hashes to stored. Malformed stored values never match.
func VerifyRefreshSecret(secret, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 || parts[0] != refreshHashScheme {
		return false
	}
	salt, err := b64.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := b64.DecodeString(parts[2])
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(digest(salt, secret), want) == 1
}

func digest(salt []byte, secret string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(secret))
	return h.Sum(nil)
}

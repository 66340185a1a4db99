// Package codec seals a session into the signed value stored in the session cookie.
package codec

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"piiwatch/internal/session/domain"
)

// ErrInvalidCookie is returned when a cookie value is malformed, forged, or expired.
var ErrInvalidCookie = errors.New("invalid session cookie")

// Claims is the JWT payload of the session cookie.
type Claims struct {
	jwt.RegisteredClaims
	AccessToken        string `json:"accessToken,omitempty"`
	AccessTokenExpires int64  `json:"accessTokenExpires,omitempty"`
	RefreshTokenID     string `json:"refreshTokenId,omitempty"`
	RefreshToken       string `json:"refreshToken,omitempty"`
	Error              string `json:"error,omitempty"`
}

// Codec signs and verifies session cookie values with RS256.
type Codec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	maxAge     time.Duration
	now        func() time.Time
}

// New returns a Codec. maxAge bounds how long a sealed value stays readable.
func New(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string, maxAge time.Duration) *Codec {
	return &Codec{privateKey: privateKey, publicKey: publicKey, issuer: issuer, maxAge: maxAge, now: time.Now}
}

// WithClock returns a copy of c that reads the current time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// MaxAge returns the lifetime of a sealed value.
func (c *Codec) MaxAge() time.Duration { return c.maxAge }

// Encode seals s.
func (c *Codec) Encode(s domain.Session) (string, error) {
	if c.privateKey == nil {
		return "", errors.New("session codec: signing key unavailable")
	}
	now := c.now().UTC().Truncate(time.Second)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
		AccessToken:    s.AccessToken,
		RefreshTokenID: s.RefreshTokenID,
		RefreshToken:   s.RefreshToken,
		Error:          s.Error,
	}
	if !s.AccessExpiresAt.IsZero() {
		claims.AccessTokenExpires = s.AccessExpiresAt.Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.privateKey)
}

// Decode verifies value and returns the session it carries.
func (c *Codec) Decode(value string) (domain.Session, error) {
	if c.publicKey == nil || value == "" {
		return domain.Session{}, ErrInvalidCookie
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return c.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return domain.Session{}, ErrInvalidCookie
	}
	s := domain.Session{
		UserID:         claims.Subject,
		AccessToken:    claims.AccessToken,
		RefreshTokenID: claims.RefreshTokenID,
		RefreshToken:   claims.RefreshToken,
		Error:          claims.Error,
	}
	if claims.AccessTokenExpires > 0 {
		s.AccessExpiresAt = time.Unix(claims.AccessTokenExpires, 0).UTC()
	}
	return s, nil
}

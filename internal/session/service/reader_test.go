package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piiwatch/internal/security"
	"piiwatch/internal/session/codec"
	"piiwatch/internal/session/domain"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type stubRefresher struct {
	out   domain.Session
	err   error
	calls int
}

func (s *stubRefresher) Refresh(_ context.Context, in domain.Session) (domain.Session, error) {
	s.calls++
	if s.out == (domain.Session{}) && s.err == nil {
		return in, nil
	}
	return s.out, s.err
}

func newTestReader(t *testing.T, refresher Refresher) (*Reader, *codec.Codec) {
	t.Helper()
	key, err := security.TestKey()
	require.NoError(t, err)
	c := codec.New(key, &key.PublicKey, "piiwatch-test", 7*24*time.Hour).WithClock(func() time.Time { return testNow })
	return NewReader(c, codec.CookieConfig{Name: "session-token"}, refresher, nil), c
}

func requestWith(t *testing.T, c *codec.Codec, sess domain.Session) *http.Request {
	t.Helper()
	value, err := c.Encode(sess)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: "session-token", Value: value})
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "session-token" {
			return ck
		}
	}
	return nil
}

func activeSession() domain.Session {
	return domain.Session{
		UserID:          "u1",
		AccessToken:     "access",
		AccessExpiresAt: testNow.Add(10 * time.Minute),
		RefreshTokenID:  "r1",
		RefreshToken:    "secret",
	}
}

func TestReader_NoCookie(t *testing.T) {
	refresher := &stubRefresher{}
	rd, _ := newTestReader(t, refresher)
	rec := httptest.NewRecorder()

	sess, ok := rd.Read(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, ok)
	assert.Equal(t, domain.Session{}, sess)
	assert.Nil(t, sessionCookie(rec))
	assert.Zero(t, refresher.calls)
}

func TestReader_ForgedCookieIsCleared(t *testing.T) {
	rd, _ := newTestReader(t, &stubRefresher{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session-token", Value: "not.a.jwt"})
	rec := httptest.NewRecorder()

	_, ok := rd.Read(rec, req)

	assert.False(t, ok)
	ck := sessionCookie(rec)
	require.NotNil(t, ck)
	assert.Equal(t, -1, ck.MaxAge)
}

func TestReader_FreshSessionUntouched(t *testing.T) {
	refresher := &stubRefresher{}
	rd, c := newTestReader(t, refresher)
	rec := httptest.NewRecorder()

	sess, ok := rd.Read(rec, requestWith(t, c, activeSession()))

	assert.True(t, ok)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, 1, refresher.calls)
	assert.Nil(t, sessionCookie(rec), "an unchanged session must not be rewritten")
}

func TestReader_RotatedSessionRewritten(t *testing.T) {
	rotated := activeSession()
	rotated.AccessToken = "access-2"
	rotated.RefreshTokenID = "r2"
	rotated.RefreshToken = "secret-2"
	rotated.AccessExpiresAt = testNow.Add(15 * time.Minute)
	rd, c := newTestReader(t, &stubRefresher{out: rotated})
	rec := httptest.NewRecorder()

	sess, ok := rd.Read(rec, requestWith(t, c, activeSession()))

	require.True(t, ok)
	assert.Equal(t, "r2", sess.RefreshTokenID)
	ck := sessionCookie(rec)
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)
	decoded, err := c.Decode(ck.Value)
	require.NoError(t, err)
	assert.Equal(t, rotated, decoded)
}

func TestReader_StrippedSessionRewritten(t *testing.T) {
	stripped := domain.Session{UserID: "u1", Error: domain.ErrorRefreshAccessToken}
	rd, c := newTestReader(t, &stubRefresher{out: stripped, err: errors.New("refresh token rotation failed")})
	rec := httptest.NewRecorder()

	sess, ok := rd.Read(rec, requestWith(t, c, activeSession()))

	assert.False(t, ok)
	assert.Equal(t, stripped, sess)
	ck := sessionCookie(rec)
	require.NotNil(t, ck)
	decoded, err := c.Decode(ck.Value)
	require.NoError(t, err)
	assert.Equal(t, domain.ErrorRefreshAccessToken, decoded.Error)
	assert.Empty(t, decoded.RefreshToken)
}

func TestReader_PeekDoesNotRefresh(t *testing.T) {
	refresher := &stubRefresher{}
	rd, c := newTestReader(t, refresher)

	sess, ok := rd.Peek(requestWith(t, c, activeSession()))

	assert.True(t, ok)
	assert.Equal(t, "u1", sess.UserID)
	assert.Zero(t, refresher.calls)
}

package codec

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"piiwatch/internal/security"
	"piiwatch/internal/session/domain"
)

func newTestCodec(t *testing.T, now time.Time) *Codec {
	t.Helper()
	key, err := security.TestKey()
	if err != nil {
		t.Fatalf("TestKey: %v", err)
	}
	return New(key, &key.PublicKey, "piiwatch-test", 7*24*time.Hour).WithClock(func() time.Time { return now })
}

func TestCodec_RoundTrip(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)
	in := domain.Session{
		UserID:          "u1",
		AccessToken:     "access.jwt.value",
		AccessExpiresAt: now.Add(15 * time.Minute),
		RefreshTokenID:  "r1",
		RefreshToken:    "secret",
	}
	value, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(value)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out != in {
		t.Errorf("Decode = %+v, want %+v", out, in)
	}
}

func TestCodec_ErrorMarkerSurvives(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)
	value, err := c.Encode(domain.Session{UserID: "u1", Error: domain.ErrorRefreshAccessToken})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(value)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Error != domain.ErrorRefreshAccessToken || !out.AccessExpiresAt.IsZero() {
		t.Errorf("Decode = %+v", out)
	}
}

func TestCodec_RejectsTamperedAndExpired(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)
	value, _ := c.Encode(domain.Session{UserID: "u1", AccessToken: "a"})

	parts := strings.Split(value, ".")
	forged := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	later := c.WithClock(func() time.Time { return now.Add(8 * 24 * time.Hour) })

	if _, err := c.Decode(forged); !errors.Is(err, ErrInvalidCookie) {
		t.Errorf("forged err = %v, want ErrInvalidCookie", err)
	}
	if _, err := c.Decode(""); !errors.Is(err, ErrInvalidCookie) {
		t.Errorf("empty err = %v, want ErrInvalidCookie", err)
	}
	if _, err := later.Decode(value); !errors.Is(err, ErrInvalidCookie) {
		t.Errorf("expired err = %v, want ErrInvalidCookie", err)
	}
}

func TestCookieConfig_WriteReadClear(t *testing.T) {
	cfg := CookieConfig{Name: "session-token", Secure: true, MaxAge: time.Hour}

	rec := httptest.NewRecorder()
	cfg.Write(rec, "v1")
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	ck := cookies[0]
	if ck.Name != "session-token" || ck.Value != "v1" || !ck.HttpOnly || !ck.Secure || ck.MaxAge != 3600 || ck.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie = %+v", ck)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(ck)
	if got := cfg.Read(req); got != "v1" {
		t.Errorf("Read = %q, want v1", got)
	}
	if got := cfg.Read(httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Errorf("Read without cookie = %q", got)
	}

	rec = httptest.NewRecorder()
	cfg.Clear(rec)
	cleared := rec.Result().Cookies()[0]
	if cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Errorf("cleared cookie = %+v", cleared)
	}
}

// Package service reads, refreshes and persists the client-held session cookie.
package service

import (
	"context"
	"errors"
	"net/http"

	"piiwatch/internal/logging"
	"piiwatch/internal/session/codec"
	"piiwatch/internal/session/domain"
)

// Refresher runs the session state machine once per read.
type Refresher interface {
	Refresh(ctx context.Context, sess domain.Session) (domain.Session, error)
}

// Reader resolves the session carried by a request. It is the single place
// that turns a cookie into a session, so every collaborator sees the same
// rotation and invalidation behaviour.
type Reader struct {
	codec     *codec.Codec
	cookie    codec.CookieConfig
	refresher Refresher
	logger    logging.Logger
}

// NewReader returns a Reader. The cookie MaxAge defaults to the codec's.
func NewReader(c *codec.Codec, cookie codec.CookieConfig, refresher Refresher, logger logging.Logger) *Reader {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = c.MaxAge()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Reader{codec: c, cookie: cookie, refresher: refresher, logger: logger}
}

// Read decodes the session cookie and refreshes it. A rotated or stripped
// session is written back to w. ok is true only for an authenticated session.
// A missing or unverifiable cookie yields the zero Session.
func (rd *Reader) Read(w http.ResponseWriter, r *http.Request) (sess domain.Session, ok bool) {
	current, present := rd.Peek(r)
	if !present {
		if rd.cookie.Read(r) != "" {
			rd.cookie.Clear(w)
		}
		return domain.Session{}, false
	}

	next, err := rd.refresher.Refresh(r.Context(), current)
	if next != current {
		if werr := rd.Write(w, next); werr != nil {
			rd.logger.Error(r.Context(), "session: rewrite cookie", "error", werr)
			rd.cookie.Clear(w)
			return domain.Session{}, false
		}
	}
	if err != nil {
		return next, false
	}
	return next, next.Authenticated()
}

// Peek decodes the session cookie without refreshing it.
func (rd *Reader) Peek(r *http.Request) (domain.Session, bool) {
	value := rd.cookie.Read(r)
	if value == "" {
		return domain.Session{}, false
	}
	sess, err := rd.codec.Decode(value)
	if err != nil {
		if !errors.Is(err, codec.ErrInvalidCookie) {
			rd.logger.Warn(r.Context(), "session: decode cookie", "error", err)
		}
		return domain.Session{}, false
	}
	return sess, true
}

// Write seals sess into the session cookie.
func (rd *Reader) Write(w http.ResponseWriter, sess domain.Session) error {
	value, err := rd.codec.Encode(sess)
	if err != nil {
		return err
	}
	rd.cookie.Write(w, value)
	return nil
}

// Clear removes the session cookie.
func (rd *Reader) Clear(w http.ResponseWriter) {
	rd.cookie.Clear(w)
}

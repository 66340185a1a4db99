package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"piiwatch/internal/logging"
)

type captureLogger struct {
	mu   sync.Mutex
	msgs []string
	args [][]any
}

func (l *captureLogger) Info(_ context.Context, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
	l.args = append(l.args, args)
}
func (l *captureLogger) Warn(ctx context.Context, msg string, args ...any)  { l.Info(ctx, msg, args...) }
func (l *captureLogger) Error(ctx context.Context, msg string, args ...any) { l.Info(ctx, msg, args...) }
func (l *captureLogger) With(...any) logging.Logger                          { return l }

func TestRequestLogger_RecordsStatus(t *testing.T) {
	logger := &captureLogger{}
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/profile?token=x", nil))

	if len(logger.msgs) != 1 {
		t.Fatalf("log lines = %d, want 1", len(logger.msgs))
	}
	fields := map[any]any{}
	args := logger.args[0]
	for i := 0; i+1 < len(args); i += 2 {
		fields[args[i]] = args[i+1]
	}
	if fields["status"] != http.StatusTeapot {
		t.Errorf("status = %v", fields["status"])
	}
	if fields["path"] != "/api/profile" {
		t.Errorf("path = %v", fields["path"])
	}
}

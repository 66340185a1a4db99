// Package audit records auth lifecycle events to the audit_logs table and the telemetry pipeline.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"piiwatch/internal/audit/domain"
	auditrepo "piiwatch/internal/audit/repository"
	"piiwatch/internal/logging"
	"piiwatch/internal/telemetry"
	telemetrydomain "piiwatch/internal/telemetry/domain"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by auth code paths.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository, an optional event emitter, and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	emitter     telemetry.EventEmitter
	ipExtractor IPExtractor
	logger      logging.Logger
	now         func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo and mirrors each event to emitter.
// repo, emitter and ipExtractor may be nil; a nil ipExtractor records IP as "unknown".
func NewLogger(repo auditrepo.Repository, emitter telemetry.EventEmitter, ipExtractor IPExtractor, logger logging.Logger) *Logger {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Logger{repo: repo, emitter: emitter, ipExtractor: ipExtractor, logger: logger, now: time.Now}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	createdAt := l.now().UTC()

	telemetry.EmitAsync(l.emitter, l.logger, &telemetrydomain.Event{
		Type:      action,
		UserID:    userID,
		Resource:  resource,
		ClientIP:  ip,
		Metadata:  []byte(metadata),
		CreatedAt: createdAt,
	})

	if l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: createdAt,
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.logger.Error(ctx, "audit: failed to log event", "action", action, "resource", resource, "error", err)
	}
}

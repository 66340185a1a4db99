package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome label values for auth counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeInvalid = "invalid"
)

// AuthMetrics holds the auth counters. A nil *AuthMetrics records nothing.
type AuthMetrics struct {
	rotations metric.Int64Counter
	signIns   metric.Int64Counter
	swept     metric.Int64Counter
}

// NewAuthMetrics registers the auth counters on meter.
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	rotations, err := meter.Int64Counter("piiwatch.auth.rotations",
		metric.WithDescription("Refresh token rotation attempts by outcome."))
	if err != nil {
		return nil, err
	}
	signIns, err := meter.Int64Counter("piiwatch.auth.signins",
		metric.WithDescription("Sign-in attempts by outcome."))
	if err != nil {
		return nil, err
	}
	swept, err := meter.Int64Counter("piiwatch.auth.refresh_tokens.swept",
		metric.WithDescription("Refresh token records deleted by the cleanup sweep."))
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{rotations: rotations, signIns: signIns, swept: swept}, nil
}

// RecordRotation counts one rotation attempt.
func (m *AuthMetrics) RecordRotation(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.rotations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSignIn counts one sign-in attempt.
func (m *AuthMetrics) RecordSignIn(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.signIns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSwept adds n deleted refresh token records.
func (m *AuthMetrics) RecordSwept(ctx context.Context, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(ctx, n)
}

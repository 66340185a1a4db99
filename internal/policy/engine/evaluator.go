package engine

import "context"

// Evaluator decides which request paths are public.
type Evaluator interface {
	// IsPublic reports whether path bypasses the session check.
	IsPublic(ctx context.Context, path string) (bool, error)
	// HealthCheck evaluates the loaded policy once and reports whether it yields a decision.
	HealthCheck(ctx context.Context) error
}

// Package engine evaluates the route guard policy with OPA Rego.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/open-policy-agent/opa/v1/rego"
)

const routeQuery = "data.piiwatch.route_guard.public"

// defaultRoutePolicy lists the paths that never need a session.
const defaultRoutePolicy = `package piiwatch.route_guard

default public := false

public if input.path in {"/", "/sign-in", "/sign-up", "/api/auth", "/favicon.ico"}

public if startswith(input.path, "/api/auth/")

public if startswith(input.path, "/_next/static/")

public if startswith(input.path, "/_next/image")

public if {
	some ext in {".svg", ".png", ".jpg", ".jpeg", ".webp", ".ico", ".txt", ".js", ".css", ".woff", ".woff2", ".ttf"}
	endswith(input.path, ext)
}
`

// ErrUndefinedDecision is returned when the policy produces no boolean for public.
var ErrUndefinedDecision = errors.New("route policy: undefined decision")

// RouteEvaluator evaluates a prepared route guard query.
type RouteEvaluator struct {
	query rego.PreparedEvalQuery
}

var _ Evaluator = (*RouteEvaluator)(nil)

// NewRouteEvaluator compiles the route policy. An empty policyPath uses the built-in policy;
// otherwise the file must define package piiwatch.route_guard with a boolean "public".
func NewRouteEvaluator(ctx context.Context, policyPath string) (*RouteEvaluator, error) {
	module := defaultRoutePolicy
	name := "route_guard.rego"
	if policyPath != "" {
		b, err := os.ReadFile(policyPath)
		if err != nil {
			return nil, fmt.Errorf("read route policy: %w", err)
		}
		module = string(b)
		name = path.Base(policyPath)
	}
	return compileRoutePolicy(ctx, name, module)
}

func compileRoutePolicy(ctx context.Context, name, module string) (*RouteEvaluator, error) {
	q, err := rego.New(
		rego.Query(routeQuery),
		rego.Module(name, module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile route policy: %w", err)
	}
	return &RouteEvaluator{query: q}, nil
}

// IsPublic evaluates the policy for the cleaned request path.
func (e *RouteEvaluator) IsPublic(ctx context.Context, p string) (bool, error) {
	if p == "" {
		p = "/"
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]any{"path": path.Clean(p)}))
	if err != nil {
		return false, fmt.Errorf("eval route policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, ErrUndefinedDecision
	}
	public, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, ErrUndefinedDecision
	}
	return public, nil
}

// HealthCheck verifies the compiled policy still evaluates to a decision.
func (e *RouteEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.IsPublic(ctx, "/")
	return err
}

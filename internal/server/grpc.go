// Package server assembles the HTTP handler and the gRPC readiness server.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthhandler "piiwatch/internal/health/handler"
	"piiwatch/internal/logging"
	"piiwatch/internal/server/interceptors"
)

// Deps holds optional dependencies for the gRPC services.
type Deps struct {
	// HealthPinger is used for readiness (e.g. *sql.DB). If nil, Check skips the store ping.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used for readiness (e.g. the route evaluator). If nil, Check skips the policy check.
	HealthPolicyChecker healthhandler.PolicyChecker
	Logger              logging.Logger
}

// healthCheckMethod is polled by load balancers and is not logged.
const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewGRPCServer returns a gRPC server with OpenTelemetry stats, client IP capture and request logging.
// Services are registered separately with RegisterServices.
func NewGRPCServer(logger logging.Logger) *grpc.Server {
	return grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.ClientIPUnary(),
			interceptors.LoggingUnary(logger, map[string]bool{healthCheckMethod: true}),
		),
	)
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - grpc.health.v1.Health → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	healthpb.RegisterHealthServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker, deps.Logger))
}

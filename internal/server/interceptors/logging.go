package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"piiwatch/internal/logging"
	"piiwatch/internal/server/middleware"
)

// LoggingUnary returns a unary server interceptor that logs each RPC with its status code and duration.
// skipMethods is the set of full method names not to log (e.g. a load balancer's frequent health Check).
// Failed RPCs are logged at Warn.
func LoggingUnary(logger logging.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = logging.Discard()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		code := status.Code(err)
		args := []any{
			"full_method", info.FullMethod,
			"status_code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", middleware.ClientIP(ctx),
		}
		if code != codes.OK {
			logger.Warn(ctx, "grpc request failed", append(args, "error", err)...)
		} else {
			logger.Info(ctx, "grpc request", args...)
		}
		return resp, err
	}
}

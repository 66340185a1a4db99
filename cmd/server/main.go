// Server runs the auth HTTP API (register, sign-in, session read, sign-out, route guard)
// and the gRPC readiness service.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"piiwatch/internal/audit"
	auditrepo "piiwatch/internal/audit/repository"
	"piiwatch/internal/config"
	"piiwatch/internal/db"
	identityrepo "piiwatch/internal/identity/repository"
	"piiwatch/internal/identity/service"
	"piiwatch/internal/logging"
	"piiwatch/internal/policy/engine"
	"piiwatch/internal/ratelimit"
	"piiwatch/internal/security"
	"piiwatch/internal/server"
	"piiwatch/internal/server/middleware"
	"piiwatch/internal/session/cleanup"
	"piiwatch/internal/session/codec"
	sessionrepo "piiwatch/internal/session/repository"
	sessionservice "piiwatch/internal/session/service"
	"piiwatch/internal/telemetry"
	telemetryotel "piiwatch/internal/telemetry/otel"
	"piiwatch/internal/telemetry/producer"
	userrepo "piiwatch/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// Issuing tokens without signing material is a configuration error; refuse to start.
	if err := cfg.RequireSigningKeys(); err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	privateKey, publicKey, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt keys: %v", err)
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	metrics, err := telemetry.NewAuthMetrics(providers.MeterProvider.Meter(telemetryotel.MeterName))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)
	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		kafkaEmitter, err := producer.NewKafkaEmitter(brokers, cfg.AuditKafkaTopic)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		defer kafkaEmitter.Close()
		emitter = telemetry.Fanout(emitter, kafkaEmitter)
		logger.Info(ctx, "publishing audit events to kafka", "topic", cfg.AuditKafkaTopic)
	}

	refreshTokens := sessionrepo.NewPostgresRepository(conn)
	users := userrepo.NewPostgresRepository(conn)
	auditLogs := auditrepo.NewPostgresRepository(conn)

	deps := service.Deps{
		Users:         users,
		Identities:    identityrepo.NewPostgresRepository(conn),
		Linker:        identityrepo.NewTxLinker(conn),
		RefreshTokens: refreshTokens,
		Hasher:        security.NewHasher(cfg.BcryptCost),
		Tokens:        security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()),
		RefreshTTL:    cfg.RefreshTTL(),
		Sweeper:       cleanup.NewSweeper(refreshTokens, cfg.RevokedGrace(), logger, metrics),
		Audit:         audit.NewLogger(auditLogs, emitter, middleware.ClientIP, logger),
		Metrics:       metrics,
		Logger:        logger,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		limiter := ratelimit.New(rdb, ratelimit.Config{MaxAttempts: cfg.LoginMaxAttempts, Cooldown: cfg.LoginCooldownDuration()})
		if err := limiter.Ping(ctx); err != nil {
			logger.Warn(ctx, "redis unreachable; login throttling fails open until it recovers", "error", err)
		}
		deps.Limiter = limiter
	}
	authService := service.NewAuthService(deps)

	routes, err := engine.NewRouteEvaluator(ctx, cfg.RoutePolicyPath)
	if err != nil {
		log.Fatalf("route policy: %v", err)
	}
	sessions := sessionservice.NewReader(
		codec.New(privateKey, publicKey, cfg.JWTIssuer, cfg.RefreshTTL()),
		codec.CookieConfig{Name: cfg.SessionCookieName, Secure: cfg.SessionCookieSecure},
		authService,
		logger,
	)

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewHTTPHandler(server.HTTPDeps{
			Auth:     authService,
			Sessions: sessions,
			Users:    users,
			Activity: auditLogs,
			Routes:   routes,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	grpcServer := server.NewGRPCServer(logger)
	server.RegisterServices(grpcServer, server.Deps{
		HealthPinger:        conn,
		HealthPolicyChecker: routes,
		Logger:              logger,
	})

	go func() {
		logger.Info(ctx, "gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()
	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http shutdown", "error", err)
	}
	grpcServer.GracefulStop()

	// Let in-flight async audit emits finish before the providers go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "otel shutdown", "error", err)
	}
	logger.Info(shutdownCtx, "servers stopped")
}

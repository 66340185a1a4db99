// Worker runs the refresh token cleanup sweep on CLEANUP_INTERVAL.
// When KAFKA_BROKERS and LOKI_URL are set it also forwards audit events from AUDIT_KAFKA_TOPIC to Loki.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"piiwatch/internal/config"
	"piiwatch/internal/db"
	"piiwatch/internal/logging"
	"piiwatch/internal/session/cleanup"
	sessionrepo "piiwatch/internal/session/repository"
	"piiwatch/internal/telemetry"
	"piiwatch/internal/telemetry/loki"
	telemetryotel "piiwatch/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}
	logger := logging.New(cfg.LogLevel).With("component", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	var wg sync.WaitGroup

	sweeper := cleanup.NewSweeper(sessionrepo.NewPostgresRepository(conn), cfg.RevokedGrace(), logger, metrics)
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info(ctx, "cleanup sweep scheduled", "interval", cfg.CleanupEvery().String())
		sweeper.Run(ctx, cfg.CleanupEvery())
	}()

	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 && cfg.LokiURL != "" {
		client, err := loki.NewClient(cfg.LokiURL, nil)
		if err != nil {
			log.Fatalf("loki: %v", err)
		}
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          cfg.AuditKafkaTopic,
			GroupID:        cfg.KafkaGroupID,
			MinBytes:       1,
			MaxBytes:       10e6, // 10MB
			MaxWait:        1 * time.Second,
			CommitInterval: time.Second,
		})
		defer reader.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info(ctx, "forwarding audit events", "topic", cfg.AuditKafkaTopic, "group", cfg.KafkaGroupID, "loki", cfg.LokiURL)
			loki.NewForwarder(reader, client, logger).Run(ctx)
		}()
	}

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down...")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "otel shutdown", "error", err)
	}
	logger.Info(shutdownCtx, "stopped")
}

// migrate applies the embedded SQL migrations and reports the resulting schema version.
//
//	go run ./cmd/migrate -direction=up
package main

import (
	"context"
	"flag"
	"log"

	"piiwatch/internal/config"
	"piiwatch/internal/db/migrate"
	"piiwatch/internal/logging"
)

func main() {
	direction := flag.String("direction", migrate.Up, "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	ctx := context.Background()
	logger := logging.New(cfg.LogLevel).With("component", "migrate")

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Fatalf("migrate %s: %v", *direction, err)
	}
	version, dirty, err := migrate.Version(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("migrate version: %v", err)
	}
	if dirty {
		logger.Error(ctx, "schema is dirty; fix the failed migration and force the version", "version", version)
		return
	}
	logger.Info(ctx, "schema migrated", "direction", *direction, "version", version)
}

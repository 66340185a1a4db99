// seed inserts development accounts for local testing.
// Idempotent: accounts whose email is already registered are skipped.
package main

import (
	"context"
	"errors"
	"log"

	"piiwatch/internal/config"
	"piiwatch/internal/db"
	identityrepo "piiwatch/internal/identity/repository"
	"piiwatch/internal/identity/service"
	"piiwatch/internal/logging"
	"piiwatch/internal/security"
	sessionrepo "piiwatch/internal/session/repository"
	userrepo "piiwatch/internal/user/repository"
)

const devPassword = "password123"

var devAccounts = []service.RegisterInput{
	{Name: "Dev User", Email: "dev@example.com", Password: devPassword},
	{Name: "Member User", Email: "member@example.com", Password: devPassword},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.Env == "production" {
		log.Fatal("seed: refusing to run with APP_ENV=production")
	}
	ctx := context.Background()
	logger := logging.New(cfg.LogLevel)

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	auth := service.NewAuthService(service.Deps{
		Users:         userrepo.NewPostgresRepository(conn),
		Identities:    identityrepo.NewPostgresRepository(conn),
		Linker:        identityrepo.NewTxLinker(conn),
		RefreshTokens: sessionrepo.NewPostgresRepository(conn),
		Hasher:        security.NewHasher(cfg.BcryptCost),
		Logger:        logger,
	})

	for _, in := range devAccounts {
		u, err := auth.Register(ctx, in)
		switch {
		case errors.Is(err, service.ErrDuplicateAccount):
			logger.Info(ctx, "seed: account exists, skipping", "email", in.Email)
		case err != nil:
			log.Fatalf("seed %s: %v", in.Email, err)
		default:
			logger.Info(ctx, "seed: account created", "email", u.Email, "user_id", u.ID)
		}
	}
	logger.Info(ctx, "seed complete", "password", devPassword)
}

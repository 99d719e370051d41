// Package main implements a standalone seed command that creates the
// initial admin account. It is idempotent: rerunning against a database
// that already holds the admin is a no-op.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mvtran/authd/internal/auth"
	"github.com/mvtran/authd/internal/config"
	"github.com/mvtran/authd/internal/domain"
	"github.com/mvtran/authd/internal/repository/postgres"
	"github.com/mvtran/authd/pkg/database"
	apperrors "github.com/mvtran/authd/pkg/errors"
	"github.com/mvtran/authd/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("authd-seed", cfg.LogLevel)

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Error("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	if existing, err := userRepo.GetByEmail(ctx, adminEmail); err == nil {
		log.Info("admin account already exists, nothing to do",
			slog.String("user_id", existing.ID),
			slog.String("email", adminEmail),
		)
		return
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		log.Error("failed to check for existing admin", slog.String("error", err.Error()))
		os.Exit(1)
	}

	passwordHash, err := hasher.Hash(adminPassword)
	if err != nil {
		log.Error("failed to hash admin password", slog.String("error", err.Error()))
		os.Exit(1)
	}

	now := time.Now().UTC()
	admin := &domain.User{
		ID:           uuid.New().String(),
		Email:        adminEmail,
		PasswordHash: passwordHash,
		Name:         "Administrator",
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		// Another seed run may have won the race; treat that as done.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			log.Info("admin account created concurrently, nothing to do")
			return
		}
		log.Error("failed to create admin account", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("admin account created",
		slog.String("user_id", admin.ID),
		slog.String("email", adminEmail),
	)
}

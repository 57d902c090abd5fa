package services

import (
	"context"
	"errors"
	"strings"

	"github.com/adminpanel/apiserver/config"
	"github.com/adminpanel/apiserver/internal/store"
	"github.com/adminpanel/apiserver/types"
	"github.com/rs/zerolog"
)

// Seed inserts a full-access admin role when none with that name exists and,
// if credentials are configured, an admin user when that username is free.
func Seed(ctx context.Context, cfg config.SeedConfig, roles RoleRepository, users *UserService, log zerolog.Logger) error {
	roleName := strings.TrimSpace(cfg.AdminRole)
	if roleName != "" {
		_, err := roles.GetByName(ctx, roleName)
		switch {
		case errors.Is(err, store.ErrNotFound):
			if _, err := roles.Create(ctx, types.FullAccessRole(roleName)); err != nil {
				return err
			}
			log.Info().Str("role", roleName).Msg("seeded admin role")
		case err != nil:
			return err
		}
	}

	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, err := users.repo.GetByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if _, err := users.Create(ctx, UserInput{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Role:     roleName,
	}); err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Warn().Str("username", cfg.AdminUsername).Msg("admin user created concurrently")
			return nil
		}
		return err
	}
	log.Info().Str("username", cfg.AdminUsername).Msg("seeded admin user")
	return nil
}

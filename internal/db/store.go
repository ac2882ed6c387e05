package db

import (
	"context"
	"fmt"

	"calorie-bot/config"
	"calorie-bot/internal/ledger"
	"calorie-bot/internal/models"
)

type ProfileStore interface {
	// GetProfile returns models.ErrNotFound when the user has no profile.
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// UpsertProfile merges the non-nil fields into the stored profile. A new
	// row needs a complete update, otherwise models.ErrIncompleteProfile.
	UpsertProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error)
}

type StateStore interface {
	// GetState returns models.ErrNotFound for unknown users.
	GetState(ctx context.Context, userID string) (*models.UserState, error)
	SaveState(ctx context.Context, state *models.UserState) error
	SetPremium(ctx context.Context, userID string, premium bool) error
}

// Store is everything the bot persists.
type Store interface {
	ProfileStore
	StateStore
	ledger.Store

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects the store selected by cfg.Driver. SQL stores are not
// migrated here; call Migrate.
func Open(ctx context.Context, cfg config.DBConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresDB(ctx, cfg)
	case "sqlite":
		return NewSQLiteDB(cfg.Path)
	case "memory":
		return NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

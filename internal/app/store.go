package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/config"
	"github.com/gokatarajesh/paper-builder/internal/db/model"
	"github.com/gokatarajesh/paper-builder/internal/db/pgstore"
	"github.com/gokatarajesh/paper-builder/internal/db/sqlitestore"
)

// Store is the paper and staff database, whichever driver backs it.
type Store interface {
	InsertPaper(ctx context.Context, arg model.InsertPaperParams) (model.Paper, error)
	GetPaper(ctx context.Context, paperID uuid.UUID) (model.Paper, error)
	UpdatePaper(ctx context.Context, arg model.UpdatePaperParams) (model.Paper, error)
	DeletePaper(ctx context.Context, arg model.DeletePaperParams) error
	ListPapersByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.PaperSummary, error)

	CreateStaff(ctx context.Context, arg model.CreateStaffParams) (model.Staff, error)
	GetStaffByEmail(ctx context.Context, email string) (model.Staff, error)
	GetStaffByID(ctx context.Context, staffID uuid.UUID) (model.Staff, error)
	UpdateStaffLogin(ctx context.Context, staffID uuid.UUID) error

	Ping(ctx context.Context) error
}

// OpenStore connects the configured store. The returned func releases it.
func OpenStore(ctx context.Context, cfg *config.App, logger zerolog.Logger) (Store, func(), error) {
	switch cfg.Store.Driver {
	case "sqlite":
		store, err := sqlitestore.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("path", cfg.Store.SQLitePath).Msg("using sqlite paper store")
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error().Err(err).Msg("sqlite close error")
			}
		}, nil
	case "postgres":
		pool, err := pgstore.Connect(ctx, cfg.Postgres.DSN(), cfg.Postgres.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("host", cfg.Postgres.Host).Str("database", cfg.Postgres.Database).Msg("using postgres paper store")
		return pgstore.New(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Package storage persists monitor definitions and check history behind a
// driver-neutral interface. Postgres backs production deployments, SQLite
// covers single-node and test setups.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sentinel/config"
	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
)

// Store is the full persistence surface of the engine.
type Store interface {
	CreateMonitor(ctx context.Context, m monitor.Monitor) error
	GetMonitor(ctx context.Context, id uuid.UUID) (monitor.Monitor, error)
	ListMonitors(ctx context.Context) ([]monitor.Monitor, error)
	UpdateMonitor(ctx context.Context, m monitor.Monitor) error
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	DeleteMonitor(ctx context.Context, id uuid.UUID) error

	AppendResult(ctx context.Context, r probe.Result) error
	History(ctx context.Context, id uuid.UUID, limit int) ([]probe.Result, error)
	Stats(ctx context.Context, id uuid.UUID, since time.Time) (monitor.Stats, error)

	Ping(ctx context.Context) error
	Close()
}

// Open connects the backend named by the config.
func Open(ctx context.Context, cfg *config.DBConfig, logger *zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return openPostgres(ctx, cfg, logger)
	case "sqlite":
		return openSQLite(ctx, cfg.URL, logger)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

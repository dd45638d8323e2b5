// Package postgres stores personal bests and the game catalog in PostgreSQL via bun.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/okian/highscore/internal/adapters/postgres/migrations"
	"github.com/okian/highscore/internal/adapters/repository"
	"github.com/okian/highscore/pkg/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

const connectMaxElapsed = 30 * time.Second

// Open connects to dsn and pings until the server answers or ctx ends.
func Open(ctx context.Context, dsn string, log logger.Logger) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = connectMaxElapsed

	operation := func() error { return db.PingContext(ctx) }
	notify := func(err error, d time.Duration) {
		log.Warn(ctx, "database not ready", logger.Error(err), logger.Duration("retry_in", d))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", repository.ErrStorageFailure, err)
	}
	return db, nil
}

// NewMigrator returns a migrator over the service schema.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, migrations.Migrations)
}

// Migrate creates the migration tables if needed and applies pending migrations.
func Migrate(ctx context.Context, db *bun.DB, log logger.Logger) error {
	m := NewMigrator(db)
	if err := m.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Lock(ctx); err != nil {
		return fmt.Errorf("lock migrations: %w", err)
	}
	defer func() { _ = m.Unlock(ctx) }()

	group, err := m.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if group.IsZero() {
		log.Info(ctx, "database schema up to date")
		return nil
	}
	log.Info(ctx, "database migrated", logger.String("group", group.String()))
	return nil
}

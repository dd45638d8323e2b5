package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS game_modes (
				id UUID PRIMARY KEY,
				slug TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT ''
			);
			CREATE TABLE IF NOT EXISTS game_contents (
				id UUID PRIMARY KEY,
				slug TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT ''
			);
		`)
		if err != nil {
			return fmt.Errorf("create catalog tables: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS game_contents;
			DROP TABLE IF EXISTS game_modes;
		`)
		if err != nil {
			return fmt.Errorf("drop catalog tables: %w", err)
		}
		return nil
	})
}

package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// One row per (user, mode, content, modifier): the personal best.
		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS scores (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL,
				username TEXT NOT NULL DEFAULT '',
				game_mode_id UUID NOT NULL REFERENCES game_modes (id),
				game_content_id UUID NOT NULL REFERENCES game_contents (id),
				game_modifier INTEGER NOT NULL,
				score BIGINT NOT NULL,
				date DATE NOT NULL,
				accepted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT scores_personal_best_key
					UNIQUE (user_id, game_mode_id, game_content_id, game_modifier)
			);
			CREATE INDEX IF NOT EXISTS scores_leaderboard_idx
				ON scores (game_mode_id, game_content_id, game_modifier, score DESC, date ASC);
		`)
		if err != nil {
			return fmt.Errorf("create scores table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS scores;`); err != nil {
			return fmt.Errorf("drop scores table: %w", err)
		}
		return nil
	})
}

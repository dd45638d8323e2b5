package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/uptrace/bun"
)

type scoreRow struct {
	bun.BaseModel `bun:"table:scores,alias:s"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	UserID        uuid.UUID `bun:"user_id,type:uuid,notnull"`
	Username      string    `bun:"username,notnull"`
	GameModeID    uuid.UUID `bun:"game_mode_id,type:uuid,notnull"`
	GameContentID uuid.UUID `bun:"game_content_id,type:uuid,notnull"`
	GameModifier  int       `bun:"game_modifier,notnull"`
	Score         int64     `bun:"score,notnull"`
	Date          time.Time `bun:"date,type:date,notnull"`
	AcceptedAt    time.Time `bun:"accepted_at,notnull"`
}

func (r scoreRow) entry() model.ScoreEntry {
	return model.ScoreEntry{
		ID: r.ID,
		Key: model.ScoreKey{
			UserID: r.UserID,
			GameKey: model.GameKey{
				ModeID:    r.GameModeID,
				ContentID: r.GameContentID,
				Modifier:  r.GameModifier,
			},
		},
		Username:   r.Username,
		Value:      r.Score,
		Recorded:   model.DateOf(r.Date),
		AcceptedAt: r.AcceptedAt,
	}
}

type modeRow struct {
	bun.BaseModel `bun:"table:game_modes,alias:gm"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	Slug        string    `bun:"slug,notnull,unique"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,notnull"`
}

type contentRow struct {
	bun.BaseModel `bun:"table:game_contents,alias:gc"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	Slug        string    `bun:"slug,notnull,unique"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,notnull"`
}

// Package types contains response shapes shared by the service and its adapters.
package types

import (
	"github.com/google/uuid"
	"github.com/okian/highscore/internal/domain/model"
)

// RankedRow is one leaderboard row.
type RankedRow struct {
	ID           uuid.UUID  `json:"id"`
	Rank         int        `json:"rank"`
	Score        int64      `json:"score"`
	Date         model.Date `json:"date"`
	Username     string     `json:"username"`
	GameMode     string     `json:"game_mode"`
	GameContent  string     `json:"game_content"`
	GameModifier int        `json:"game_modifier"`
}

// PersonalBest is a player's best on one game. Found is false when the player
// has never submitted for that game; the remaining fields are then omitted.
type PersonalBest struct {
	Found        bool        `json:"found"`
	ID           *uuid.UUID  `json:"id,omitempty"`
	Score        *int64      `json:"score,omitempty"`
	Date         *model.Date `json:"date,omitempty"`
	GameMode     string      `json:"game_mode,omitempty"`
	GameContent  string      `json:"game_content,omitempty"`
	GameModifier *int        `json:"game_modifier,omitempty"`
}

// NoEntry is the PersonalBest returned when nothing was recorded.
func NoEntry() PersonalBest { return PersonalBest{} }

// BestFrom builds a found PersonalBest from an entry and its catalog names.
func BestFrom(e model.ScoreEntry, mode, content string) PersonalBest {
	id, score, date, modifier := e.ID, e.Value, e.Recorded, e.Key.Modifier
	return PersonalBest{
		Found:        true,
		ID:           &id,
		Score:        &score,
		Date:         &date,
		GameMode:     mode,
		GameContent:  content,
		GameModifier: &modifier,
	}
}

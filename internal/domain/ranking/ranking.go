// Package ranking turns the current personal bests of a game into an ordered,
// ranked leaderboard. It keeps no state between calls.
package ranking

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/highscore/internal/domain/catalog"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/internal/domain/types"
	"github.com/okian/highscore/pkg/metrics"
)

// Lister supplies the entries of one game triple.
type Lister interface {
	ListByGame(ctx context.Context, game model.GameKey) ([]model.ScoreEntry, error)
}

// Engine computes leaderboards.
type Engine struct {
	store   Lister
	catalog catalog.Source
}

// New returns an Engine reading entries from store and names from cat.
func New(store Lister, cat catalog.Source) *Engine {
	return &Engine{store: store, catalog: cat}
}

// Rank returns the leaderboard of game. Ranks start at 1 and are strictly
// sequential; ties on value are split by the earliest recorded day. An empty
// game yields an empty slice.
func (e *Engine) Rank(ctx context.Context, game model.GameKey) ([]types.RankedRow, error) {
	entries, err := e.store.ListByGame(ctx, game)
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "list_failed")
		return nil, fmt.Errorf("list game entries: %w", err)
	}

	Order(entries)

	snap := e.catalog.Snapshot()
	mode, _ := snap.ModeByID(game.ModeID)
	content, _ := snap.ContentByID(game.ContentID)

	rows := make([]types.RankedRow, len(entries))
	for i, en := range entries {
		rows[i] = types.RankedRow{
			ID:           en.ID,
			Rank:         i + 1,
			Score:        en.Value,
			Date:         en.Recorded,
			Username:     en.Username,
			GameMode:     mode.Name,
			GameContent:  content.Name,
			GameModifier: en.Key.Modifier,
		}
	}

	metrics.RecordLeaderboard(len(rows))
	return rows, nil
}

// Order sorts entries in leaderboard order in place.
func Order(entries []model.ScoreEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RanksAbove(entries[j])
	})
}

// Package repository defines the score store interface and its in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/highscore/internal/domain/model"
)

// Store holds one personal best per ScoreKey.
//
// ReplaceIfHigher is atomic per key: concurrent calls on the same key are
// serialized, calls on different keys never wait on each other, and readers
// observe either the previous entry or the new one.
type Store interface {
	// GetBest returns the current entry for key. found is false when the key
	// has never been written.
	GetBest(ctx context.Context, key model.ScoreKey) (entry model.ScoreEntry, found bool, err error)

	// ListByGame returns every current entry of the game triple in no particular order.
	ListByGame(ctx context.Context, game model.GameKey) ([]model.ScoreEntry, error)

	// ReplaceIfHigher stores c when the key is empty or c.Value is strictly
	// greater than the current value. The outcome always carries the best
	// value after the call.
	ReplaceIfHigher(ctx context.Context, key model.ScoreKey, c model.Candidate) (model.Outcome, error)

	// Count returns the number of live entries.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

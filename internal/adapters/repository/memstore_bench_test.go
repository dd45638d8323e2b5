package repository

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/highscore/internal/domain/model"
)

func BenchmarkMemoryStore_ReplaceDistinctKeys(b *testing.B) {
	ctx := context.Background()
	s := NewMemoryStore(ctx)
	defer func() { _ = s.Close() }()
	game := model.GameKey{ModeID: uuid.New(), ContentID: uuid.New()}

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		key := model.NewScoreKey(uuid.New(), game)
		var v int64
		for pb.Next() {
			v++
			_, _ = s.ReplaceIfHigher(ctx, key, model.Candidate{Value: v})
		}
	})
}

func BenchmarkMemoryStore_ReplaceSameKey(b *testing.B) {
	ctx := context.Background()
	s := NewMemoryStore(ctx)
	defer func() { _ = s.Close() }()
	key := model.NewScoreKey(uuid.New(), model.GameKey{ModeID: uuid.New(), ContentID: uuid.New()})

	var v atomic.Int64
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = s.ReplaceIfHigher(ctx, key, model.Candidate{Value: v.Add(1)})
		}
	})
}

func BenchmarkMemoryStore_ListByGame(b *testing.B) {
	ctx := context.Background()
	s := NewMemoryStore(ctx)
	defer func() { _ = s.Close() }()
	game := model.GameKey{ModeID: uuid.New(), ContentID: uuid.New()}
	for i := 0; i < 10_000; i++ {
		_, _ = s.ReplaceIfHigher(ctx, model.NewScoreKey(uuid.New(), game), model.Candidate{Value: int64(i)})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.ListByGame(ctx, game)
	}
}

package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/pkg/metrics"
)

// slot owns the personal best of one ScoreKey. Writers hold mu; readers load
// cur without locking and always see a complete, immutable entry.
type slot struct {
	mu  sync.Mutex
	cur atomic.Pointer[model.ScoreEntry]
}

// board indexes the slots of one game triple by user.
type board struct {
	slots sync.Map // uuid.UUID -> *slot
}

// MemoryStore is an in-process Store. There is no store-wide lock: the only
// mutual exclusion is the per-key slot mutex.
type MemoryStore struct {
	boards  sync.Map // model.GameKey -> *board
	entries atomic.Int64

	now   func() time.Time
	newID func() uuid.UUID

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	closeOnce             sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a memory store and starts its metrics updater,
// which runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		now:                   time.Now,
		newID:                 uuid.New,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) lookup(key model.ScoreKey) *slot {
	b, ok := s.boards.Load(key.GameKey)
	if !ok {
		return nil
	}
	sl, ok := b.(*board).slots.Load(key.UserID)
	if !ok {
		return nil
	}
	return sl.(*slot)
}

func (s *MemoryStore) slotFor(key model.ScoreKey) *slot {
	b, _ := s.boards.LoadOrStore(key.GameKey, &board{})
	sl, _ := b.(*board).slots.LoadOrStore(key.UserID, &slot{})
	return sl.(*slot)
}

// GetBest implements Store.
func (s *MemoryStore) GetBest(ctx context.Context, key model.ScoreKey) (model.ScoreEntry, bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("get_best", metrics.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return model.ScoreEntry{}, false, err
	}
	sl := s.lookup(key)
	if sl == nil {
		return model.ScoreEntry{}, false, nil
	}
	cur := sl.cur.Load()
	if cur == nil {
		return model.ScoreEntry{}, false, nil
	}
	return *cur, true, nil
}

// ListByGame implements Store.
func (s *MemoryStore) ListByGame(ctx context.Context, game model.GameKey) ([]model.ScoreEntry, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("list_by_game", metrics.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []model.ScoreEntry{}
	b, ok := s.boards.Load(game)
	if !ok {
		return out, nil
	}
	b.(*board).slots.Range(func(_, v any) bool {
		if cur := v.(*slot).cur.Load(); cur != nil {
			out = append(out, *cur)
		}
		return true
	})
	return out, nil
}

// ReplaceIfHigher implements Store. The new entry is published with a single
// pointer swap while the key's slot lock is held.
func (s *MemoryStore) ReplaceIfHigher(ctx context.Context, key model.ScoreKey, c model.Candidate) (model.Outcome, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("replace_if_higher", metrics.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return model.Outcome{}, err
	}

	sl := s.slotFor(key)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	cur := sl.cur.Load()
	if !c.Beats(cur) {
		return model.Outcome{Accepted: false, Value: cur.Value, Entry: *cur}, nil
	}

	next := &model.ScoreEntry{
		ID:         s.newID(),
		Key:        key,
		Username:   c.Username,
		Value:      c.Value,
		Recorded:   c.Recorded,
		AcceptedAt: s.now(),
	}
	sl.cur.Store(next)
	if cur == nil {
		s.entries.Add(1)
	}
	return model.Outcome{Accepted: true, Value: next.Value, Entry: *next}, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	return int(s.entries.Load()), nil
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateStoreEntries(int(s.entries.Load()))
			}
		}
	}()
}

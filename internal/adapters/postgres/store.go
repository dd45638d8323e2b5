package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/okian/highscore/internal/adapters/repository"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/pkg/logger"
	"github.com/okian/highscore/pkg/metrics"
	"github.com/uptrace/bun"
)

// upsertBest inserts the candidate or replaces the existing row only when the
// candidate is strictly higher. When the WHERE clause rejects the update the
// conflicting row is still locked until the transaction ends, and RETURNING
// yields nothing.
const upsertBest = `
INSERT INTO scores AS s (id, user_id, username, game_mode_id, game_content_id, game_modifier, score, date, accepted_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?::date, ?)
ON CONFLICT (user_id, game_mode_id, game_content_id, game_modifier) DO UPDATE
SET id = EXCLUDED.id,
    username = EXCLUDED.username,
    score = EXCLUDED.score,
    date = EXCLUDED.date,
    accepted_at = EXCLUDED.accepted_at
WHERE s.score < EXCLUDED.score
RETURNING s.id, s.user_id, s.username, s.game_mode_id, s.game_content_id, s.game_modifier, s.score, s.date, s.accepted_at`

// Option configures a Store.
type Option func(*Store)

// WithRetryMaxElapsed bounds how long transient failures are retried.
func WithRetryMaxElapsed(d time.Duration) Option {
	return func(s *Store) { s.retryMaxElapsed = d }
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the source of acceptance timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets how entry IDs are minted.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Store is a repository.Store backed by the scores table.
type Store struct {
	db              bun.IDB
	log             logger.Logger
	now             func() time.Time
	newID           func() uuid.UUID
	retryMaxElapsed time.Duration
}

var _ repository.Store = (*Store)(nil)

// NewStore returns a Store using db. The caller owns db.
func NewStore(db bun.IDB, opts ...Option) *Store {
	s := &Store{
		db:              db,
		log:             logger.Discard(),
		now:             time.Now,
		newID:           uuid.New,
		retryMaxElapsed: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func storageFailure(op string, err error) error {
	metrics.RecordErrorByComponent("postgres", op)
	return fmt.Errorf("%w: %s: %w", repository.ErrStorageFailure, op, err)
}

func whereKey(q *bun.SelectQuery, key model.ScoreKey) *bun.SelectQuery {
	return q.
		Where("s.user_id = ?", key.UserID).
		Where("s.game_mode_id = ?", key.ModeID).
		Where("s.game_content_id = ?", key.ContentID).
		Where("s.game_modifier = ?", key.Modifier)
}

// GetBest implements repository.Store.
func (s *Store) GetBest(ctx context.Context, key model.ScoreKey) (model.ScoreEntry, bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("get_best", metrics.Since(start)) }()

	var row scoreRow
	err := whereKey(s.db.NewSelect().Model(&row), key).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoreEntry{}, false, nil
	}
	if err != nil {
		return model.ScoreEntry{}, false, storageFailure("get_best", err)
	}
	return row.entry(), true, nil
}

// ListByGame implements repository.Store.
func (s *Store) ListByGame(ctx context.Context, game model.GameKey) ([]model.ScoreEntry, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("list_by_game", metrics.Since(start)) }()

	var rows []scoreRow
	err := s.db.NewSelect().Model(&rows).
		Where("s.game_mode_id = ?", game.ModeID).
		Where("s.game_content_id = ?", game.ContentID).
		Where("s.game_modifier = ?", game.Modifier).
		OrderExpr("s.score DESC, s.date ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageFailure("list_by_game", err)
	}
	out := make([]model.ScoreEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry()
	}
	return out, nil
}

// ReplaceIfHigher implements repository.Store with a single conditional upsert.
// Serialization failures, deadlocks and dropped connections are retried; the
// transaction either commits the new row or leaves the old one untouched.
func (s *Store) ReplaceIfHigher(ctx context.Context, key model.ScoreKey, c model.Candidate) (model.Outcome, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("replace_if_higher", metrics.Since(start)) }()

	var out model.Outcome
	operation := func() error {
		o, err := s.replaceOnce(ctx, key, c)
		if err != nil {
			if transient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = o
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxElapsedTime = s.retryMaxElapsed
	notify := func(err error, d time.Duration) {
		metrics.RecordStoreRetry()
		s.log.Warn(ctx, "retrying score upsert", logger.Error(err), logger.Duration("retry_in", d))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.Outcome{}, err
		}
		return model.Outcome{}, storageFailure("replace_if_higher", err)
	}
	return out, nil
}

func (s *Store) replaceOnce(ctx context.Context, key model.ScoreKey, c model.Candidate) (model.Outcome, error) {
	var out model.Outcome
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row scoreRow
		err := tx.NewRaw(upsertBest,
			s.newID(), key.UserID, c.Username,
			key.ModeID, key.ContentID, key.Modifier,
			c.Value, c.Recorded.String(), s.now().UTC(),
		).Scan(ctx, &row)

		switch {
		case err == nil:
			out = model.Outcome{Accepted: true, Value: row.Score, Entry: row.entry()}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		// Not higher: the conflicting row is locked by the upsert, read it back.
		if err := whereKey(tx.NewSelect().Model(&row), key).Limit(1).Scan(ctx); err != nil {
			return err
		}
		out = model.Outcome{Accepted: false, Value: row.Score, Entry: row.entry()}
		return nil
	})
	return out, err
}

// Count implements repository.Store.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*scoreRow)(nil)).Count(ctx)
	if err != nil {
		return 0, storageFailure("count", err)
	}
	return n, nil
}

// Close implements repository.Store. The database handle belongs to the caller.
func (s *Store) Close() error { return nil }

// Package submission validates score submissions and applies them to the
// store under the personal-best rule.
package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/highscore/internal/adapters/repository"
	"github.com/okian/highscore/internal/domain/catalog"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/internal/domain/types"
	"github.com/okian/highscore/pkg/logger"
	"github.com/okian/highscore/pkg/metrics"
)

// Store is the part of the score store the coordinator needs.
type Store interface {
	GetBest(ctx context.Context, key model.ScoreKey) (model.ScoreEntry, bool, error)
	ReplaceIfHigher(ctx context.Context, key model.ScoreKey, c model.Candidate) (model.Outcome, error)
}

// Request is one score submission.
type Request struct {
	Player      model.Player
	ModeSlug    string
	ContentSlug string
	Modifier    int
	Value       int64
	Today       model.Date // zero means use the coordinator clock
}

// Game is a resolved game triple together with its catalog entries.
type Game struct {
	Key     model.GameKey
	Mode    model.ModeRef
	Content model.ContentRef
}

// Coordinator turns submissions into store updates.
type Coordinator struct {
	store   Store
	catalog catalog.Source
	log     logger.Logger
	now     func() time.Time
	loc     *time.Location
}

// New returns a Coordinator writing to store and resolving slugs through cat.
func New(store Store, cat catalog.Source, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		catalog: cat,
		log:     logger.Discard(),
		now:     time.Now,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Today returns the current calendar day in the configured location.
func (c *Coordinator) Today() model.Date {
	return model.DateOf(c.now().In(c.loc))
}

// ResolveGame maps slugs to a game triple using the current catalog snapshot.
func (c *Coordinator) ResolveGame(modeSlug, contentSlug string, modifier int) (Game, error) {
	snap := c.catalog.Snapshot()
	mode, ok := snap.ModeBySlug(modeSlug)
	if !ok {
		return Game{}, fmt.Errorf("%w: game mode %q", ErrUnknownReference, modeSlug)
	}
	content, ok := snap.ContentBySlug(contentSlug)
	if !ok {
		return Game{}, fmt.Errorf("%w: game content %q", ErrUnknownReference, contentSlug)
	}
	return Game{
		Key:     model.GameKey{ModeID: mode.ID, ContentID: content.ID, Modifier: modifier},
		Mode:    mode,
		Content: content,
	}, nil
}

// Submit records req.Value if it beats the player's personal best and returns
// the best value afterwards. A lower score is not an error: the current best
// is returned unchanged.
func (c *Coordinator) Submit(ctx context.Context, req Request) (int64, error) {
	out, err := c.Apply(ctx, req)
	if err != nil {
		return 0, err
	}
	return out.Value, nil
}

// Apply is Submit returning the full store outcome, including whether the
// submission replaced the previous best.
func (c *Coordinator) Apply(ctx context.Context, req Request) (model.Outcome, error) {
	start := time.Now()
	defer func() { metrics.RecordSubmissionLatency(metrics.Since(start)) }()

	if !req.Player.Valid() {
		metrics.RecordSubmission(metrics.OutcomeUnauthenticated)
		return model.Outcome{}, ErrUnauthenticated
	}

	game, err := c.ResolveGame(req.ModeSlug, req.ContentSlug, req.Modifier)
	if err != nil {
		metrics.RecordSubmission(metrics.OutcomeUnknownRef)
		return model.Outcome{}, err
	}

	today := req.Today
	if today.IsZero() {
		today = c.Today()
	}

	key := model.NewScoreKey(req.Player.ID, game.Key)
	out, err := c.store.ReplaceIfHigher(ctx, key, model.Candidate{
		Value:    req.Value,
		Recorded: today,
		Username: req.Player.Username,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStorageFailure) {
			metrics.RecordSubmission(metrics.OutcomeStorageFailure)
		}
		c.log.Error(ctx, "score submission failed",
			logger.String("user_id", req.Player.ID.String()),
			logger.String("mode", req.ModeSlug),
			logger.String("content", req.ContentSlug),
			logger.Error(err))
		return model.Outcome{}, fmt.Errorf("replace personal best: %w", err)
	}

	if out.Accepted {
		metrics.RecordSubmission(metrics.OutcomeAccepted)
		c.log.Debug(ctx, "personal best updated",
			logger.String("user_id", req.Player.ID.String()),
			logger.Int64("score", out.Value))
	} else {
		metrics.RecordSubmission(metrics.OutcomeCapped)
	}
	return out, nil
}

// PersonalBest returns the player's best on the game, or types.NoEntry when
// the player never submitted for it.
func (c *Coordinator) PersonalBest(ctx context.Context, player model.Player, modeSlug, contentSlug string, modifier int) (types.PersonalBest, error) {
	if !player.Valid() {
		return types.PersonalBest{}, ErrUnauthenticated
	}
	game, err := c.ResolveGame(modeSlug, contentSlug, modifier)
	if err != nil {
		return types.PersonalBest{}, err
	}

	entry, found, err := c.store.GetBest(ctx, model.NewScoreKey(player.ID, game.Key))
	if err != nil {
		return types.PersonalBest{}, fmt.Errorf("get personal best: %w", err)
	}
	metrics.RecordPersonalBestLookup(found)
	if !found {
		return types.NoEntry(), nil
	}
	return types.BestFrom(entry, game.Mode.Name, game.Content.Name), nil
}

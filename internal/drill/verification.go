package drill

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/okian/highscore/pkg/logger"
)

// ErrMismatch marks a verification failure.
var ErrMismatch = errors.New("drill verification failed")

// verifyResults checks personal bests and the leaderboard against the plan.
func verifyResults(ctx context.Context, config *Config, plan *Plan, bests map[uuid.UUID]PersonalBest, rows []RankedRow) error {
	log := logger.Get()
	log.Info(ctx, "verifying results")

	var errs []error
	for _, p := range plan.Players {
		want := plan.Expected[p.ID]
		got, ok := bests[p.ID]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%w: no personal best for %s", ErrMismatch, p.Username))
		case !got.Found || got.Score == nil:
			errs = append(errs, fmt.Errorf("%w: %s has no recorded score", ErrMismatch, p.Username))
		case *got.Score != want:
			errs = append(errs, fmt.Errorf("%w: %s best is %d, want %d", ErrMismatch, p.Username, *got.Score, want))
		}
	}

	if err := verifyLeaderboard(plan, rows); err != nil {
		errs = append(errs, err)
	}

	displayTopPerformers(ctx, rows, config.Verbose)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	log.Info(ctx, "result verification completed")
	return nil
}

// verifyLeaderboard checks ordering, rank numbering and completeness.
// Rows of players outside the plan are ignored for completeness but still
// have to be ordered.
func verifyLeaderboard(plan *Plan, rows []RankedRow) error {
	for i, row := range rows {
		if row.Rank != i+1 {
			return fmt.Errorf("%w: row %d has rank %d", ErrMismatch, i, row.Rank)
		}
		if i == 0 {
			continue
		}
		prev := rows[i-1]
		if row.Score > prev.Score {
			return fmt.Errorf("%w: row %d scores above row %d", ErrMismatch, i+1, i)
		}
		if row.Score == prev.Score && row.Date.Before(prev.Date) {
			return fmt.Errorf("%w: tie at rank %d is not ordered by date", ErrMismatch, row.Rank)
		}
	}

	byName := make(map[string]RankedRow, len(rows))
	for _, row := range rows {
		byName[row.Username] = row
	}
	for _, p := range plan.Players {
		row, ok := byName[p.Username]
		if !ok {
			return fmt.Errorf("%w: %s missing from leaderboard", ErrMismatch, p.Username)
		}
		if row.Score != plan.Expected[p.ID] {
			return fmt.Errorf("%w: %s listed with %d, want %d", ErrMismatch, p.Username, row.Score, plan.Expected[p.ID])
		}
	}
	return nil
}

// displayTopPerformers logs the head of the leaderboard.
func displayTopPerformers(ctx context.Context, rows []RankedRow, verbose bool) {
	topN := 10
	if verbose {
		topN = 25
	}
	if len(rows) < topN {
		topN = len(rows)
	}
	for _, row := range rows[:topN] {
		logger.Get().Info(ctx, "leaderboard",
			logger.Int("rank", row.Rank),
			logger.String("username", row.Username),
			logger.Int64("score", row.Score),
			logger.String("date", row.Date.String()))
	}
}

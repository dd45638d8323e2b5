// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Player identifies the authenticated owner of a submission.
type Player struct {
	ID       uuid.UUID
	Username string
}

// Valid reports whether the player carries a usable identity.
func (p Player) Valid() bool { return p.ID != uuid.Nil }

// GameKey is the leaderboard triple.
type GameKey struct {
	ModeID    uuid.UUID
	ContentID uuid.UUID
	Modifier  int
}

// ScoreKey identifies one personal best slot.
type ScoreKey struct {
	UserID uuid.UUID
	GameKey
}

// NewScoreKey builds a ScoreKey for user on game.
func NewScoreKey(user uuid.UUID, game GameKey) ScoreKey {
	return ScoreKey{UserID: user, GameKey: game}
}

// ScoreEntry is the live personal best for a ScoreKey. Entries are immutable;
// a higher score replaces the whole entry.
type ScoreEntry struct {
	ID         uuid.UUID
	Key        ScoreKey
	Username   string
	Value      int64
	Recorded   Date      // calendar day of the accepted submission
	AcceptedAt time.Time // instant the store accepted it; orders same-day ties
}

// RanksAbove reports whether e is placed before o on a leaderboard:
// higher value first, then earlier day, then earlier acceptance, then ID.
func (e ScoreEntry) RanksAbove(o ScoreEntry) bool {
	if e.Value != o.Value {
		return e.Value > o.Value
	}
	if !e.Recorded.Equal(o.Recorded) {
		return e.Recorded.Before(o.Recorded)
	}
	if !e.AcceptedAt.Equal(o.AcceptedAt) {
		return e.AcceptedAt.Before(o.AcceptedAt)
	}
	return e.ID.String() < o.ID.String()
}

// Candidate is a submitted score that may replace the current personal best.
type Candidate struct {
	Value    int64
	Recorded Date
	Username string
}

// Beats reports whether the candidate should replace current.
// A missing current entry is always beaten.
func (c Candidate) Beats(current *ScoreEntry) bool {
	return current == nil || c.Value > current.Value
}

// Outcome is the result of a conditional replace.
type Outcome struct {
	Accepted bool
	Value    int64      // best value after the call
	Entry    ScoreEntry // entry holding Value
}

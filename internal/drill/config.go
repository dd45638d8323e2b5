package drill

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/internal/domain/types"
)

// Config holds configuration for a drill run.
type Config struct {
	BaseURL              string        // Base URL of the service
	JWTSecret            string        // Secret used to sign player tokens
	Players              int           // Number of distinct players
	SubmissionsPerPlayer int           // Scores submitted by each player
	MaxScore             int           // Upper bound for generated scores
	ModeSlug             string        // Game mode to play
	ContentSlug          string        // Game content to play
	Modifier             int           // Game modifier to play
	Workers              int           // Number of concurrent workers
	Timeout              time.Duration // HTTP request timeout
	Seed                 int64         // Faker seed; zero picks one from the clock
	OutputFile           string        // Optional JSON dump of the submissions
	Verbose              bool          // Enable verbose logging
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid drill config")

// Validate rejects configs the drill cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	case c.JWTSecret == "":
		return fmt.Errorf("%w: jwt secret is required", ErrInvalidConfig)
	case c.Players <= 0:
		return fmt.Errorf("%w: players must be positive", ErrInvalidConfig)
	case c.SubmissionsPerPlayer <= 0:
		return fmt.Errorf("%w: per-player must be positive", ErrInvalidConfig)
	case c.MaxScore < 0:
		return fmt.Errorf("%w: max-score must not be negative", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.ModeSlug == "" || c.ContentSlug == "":
		return fmt.Errorf("%w: mode and content are required", ErrInvalidConfig)
	}
	return nil
}

// Player is a generated player with its access token.
type Player struct {
	model.Player
	Token string `json:"-"`
}

// Submission is one score a player posts.
type Submission struct {
	Player *Player `json:"-"`
	UserID string  `json:"user_id"`
	Score  int64   `json:"score"`
}

type submitRequest struct {
	Score           int64  `json:"score"`
	GameModifier    int    `json:"game_modifier"`
	GameModeSlug    string `json:"game_mode_slug"`
	GameContentSlug string `json:"game_content_slug"`
}

// RankedRow is a leaderboard row as returned by the service.
type RankedRow = types.RankedRow

// PersonalBest is the high score response as returned by the service.
type PersonalBest = types.PersonalBest

// Stats holds drill statistics.
type Stats struct {
	Submissions        int
	Accepted           int
	Capped             int
	Failed             int
	BestsRetrieved     int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

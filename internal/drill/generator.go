package drill

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/okian/highscore/internal/adapters/http/auth"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/pkg/logger"
)

const tokenTTL = time.Hour

// Plan is the generated workload plus the personal bests it must produce.
type Plan struct {
	Players     []*Player
	Submissions []Submission
	Expected    map[uuid.UUID]int64
}

// generatePlan creates players with signed tokens and shuffled submissions.
func generatePlan(ctx context.Context, config *Config) (*Plan, error) {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(uint64(seed))
	signer := auth.New(config.JWTSecret)

	logger.Get().Info(ctx, "generating drill plan",
		logger.Int("players", config.Players),
		logger.Int("perPlayer", config.SubmissionsPerPlayer),
		logger.Int64("seed", seed))

	plan := &Plan{
		Players:     make([]*Player, config.Players),
		Submissions: make([]Submission, 0, config.Players*config.SubmissionsPerPlayer),
		Expected:    make(map[uuid.UUID]int64, config.Players),
	}

	for i := range plan.Players {
		p := &Player{Player: model.Player{
			ID:       uuid.New(),
			Username: fmt.Sprintf("%s_%d", faker.Username(), i),
		}}
		token, err := signer.Sign(p.Player, tokenTTL)
		if err != nil {
			return nil, fmt.Errorf("sign token for player %d: %w", i, err)
		}
		p.Token = token
		plan.Players[i] = p

		for j := 0; j < config.SubmissionsPerPlayer; j++ {
			score := int64(faker.Number(0, config.MaxScore))
			plan.Submissions = append(plan.Submissions, Submission{Player: p, UserID: p.ID.String(), Score: score})
			if best, ok := plan.Expected[p.ID]; !ok || score > best {
				plan.Expected[p.ID] = score
			}
		}
	}

	faker.ShuffleAnySlice(plan.Submissions)
	return plan, nil
}

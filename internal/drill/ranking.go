package drill

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/okian/highscore/pkg/logger"
)

// retrieveBests fetches every player's personal best concurrently.
func retrieveBests(ctx context.Context, config *Config, client *HTTPClient, players []*Player, stats *Stats) (map[uuid.UUID]PersonalBest, error) {
	log := logger.Get()
	log.Info(ctx, "retrieving personal bests", logger.Int("players", len(players)))

	query := "/scores/high_score?" + gameQuery(config)
	bests := make([]PersonalBest, len(players))
	fetched := make([]bool, len(players))
	var failed int64

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range indexChan {
				if ctx.Err() != nil {
					return
				}
				var best PersonalBest
				if _, err := client.do(ctx, http.MethodGet, query, players[index].Token, nil, &best); err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Warn(ctx, "personal best lookup failed", logger.String("user", players[index].Username), logger.Error(err))
					}
					continue
				}
				bests[index] = best
				fetched[index] = true
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range players {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	out := make(map[uuid.UUID]PersonalBest, len(players))
	for i, p := range players {
		if fetched[i] {
			out[p.ID] = bests[i]
		}
	}
	stats.BestsRetrieved = len(out)

	log.Info(ctx, "personal best retrieval completed",
		logger.Int("retrieved", len(out)),
		logger.Int64("failed", atomic.LoadInt64(&failed)))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("retrieval interrupted: %w", err)
	}
	return out, nil
}

// getLeaderboard retrieves the ranked leaderboard of the drilled game.
func getLeaderboard(ctx context.Context, config *Config, client *HTTPClient, stats *Stats) ([]RankedRow, error) {
	var rows []RankedRow
	if _, err := client.do(ctx, http.MethodGet, "/scores/high_scores?"+gameQuery(config), "", nil, &rows); err != nil {
		return nil, err
	}
	stats.LeaderboardEntries = len(rows)
	logger.Get().Info(ctx, "retrieved leaderboard", logger.Int("rows", len(rows)))
	return rows, nil
}

// Package drill load-tests a running highscore service and verifies the
// personal-best and ranking rules end to end.
package drill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes the complete drill.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting highscore drill",
		logger.String("baseURL", config.BaseURL),
		logger.Int("players", config.Players),
		logger.Int("perPlayer", config.SubmissionsPerPlayer),
		logger.Int("workers", config.Workers),
		logger.String("mode", config.ModeSlug),
		logger.String("content", config.ContentSlug),
		logger.Int("modifier", config.Modifier))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	if err := checkCatalog(ctx, config, client); err != nil {
		return stats, err
	}

	plan, err := generatePlan(ctx, config)
	if err != nil {
		return stats, fmt.Errorf("plan generation failed: %w", err)
	}

	if err := submitScores(ctx, config, client, plan.Submissions, stats); err != nil {
		return stats, fmt.Errorf("score submission failed: %w", err)
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d submissions failed", stats.Failed)
	}

	bests, err := retrieveBests(ctx, config, client, plan.Players, stats)
	if err != nil {
		return stats, fmt.Errorf("personal best retrieval failed: %w", err)
	}

	rows, err := getLeaderboard(ctx, config, client, stats)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	if err := verifyResults(ctx, config, plan, bests, rows); err != nil {
		return stats, err
	}

	if config.OutputFile != "" {
		if err := saveSubmissions(ctx, config.OutputFile, plan.Submissions); err != nil {
			log.Warn(ctx, "failed to save submissions to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "drill completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	if _, err := client.do(ctx, http.MethodGet, "/healthz", "", nil, nil); err != nil {
		return fmt.Errorf("failed to reach service: %w", err)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// checkCatalog fails fast when the drilled slugs are not in the catalog.
func checkCatalog(ctx context.Context, config *Config, client *HTTPClient) error {
	var modes []model.ModeRef
	if _, err := client.do(ctx, http.MethodGet, "/games/modes", "", nil, &modes); err != nil {
		return fmt.Errorf("list game modes: %w", err)
	}
	var contents []model.ContentRef
	if _, err := client.do(ctx, http.MethodGet, "/games/contents", "", nil, &contents); err != nil {
		return fmt.Errorf("list game contents: %w", err)
	}

	if !hasSlug(modes, config.ModeSlug, func(m model.ModeRef) string { return m.Slug }) {
		return fmt.Errorf("game mode %q is not in the catalog", config.ModeSlug)
	}
	if !hasSlug(contents, config.ContentSlug, func(c model.ContentRef) string { return c.Slug }) {
		return fmt.Errorf("game content %q is not in the catalog", config.ContentSlug)
	}
	return nil
}

func hasSlug[T any](items []T, slug string, key func(T) string) bool {
	for _, it := range items {
		if key(it) == slug {
			return true
		}
	}
	return false
}

// saveSubmissions writes the generated submissions to a JSON file.
func saveSubmissions(ctx context.Context, filename string, subs []Submission) error {
	if len(subs) == 0 {
		return errors.New("no submissions to save")
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "submissions saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final drill statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, perSecond float64
	if stats.Submissions > 0 {
		acceptRate = float64(stats.Accepted) / float64(stats.Submissions) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submissions) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("submissions", stats.Submissions),
		logger.Int("accepted", stats.Accepted),
		logger.Int("capped", stats.Capped),
		logger.Int("failed", stats.Failed),
		logger.Int("bestsRetrieved", stats.BestsRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("submissionsPerSecond", perSecond))
}

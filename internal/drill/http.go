package drill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/highscore/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// do sends a request and decodes a 200 JSON response into out.
func (c *HTTPClient) do(ctx context.Context, method, path, token string, body, out any) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return resp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp, nil
}

func gameQuery(config *Config) string {
	q := url.Values{}
	q.Set("game_modifier", strconv.Itoa(config.Modifier))
	q.Set("game_mode_slug", config.ModeSlug)
	q.Set("game_content_slug", config.ContentSlug)
	return q.Encode()
}

// submitScores posts every submission using a worker pool.
func submitScores(ctx context.Context, config *Config, client *HTTPClient, subs []Submission, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "submitting scores", logger.Int("submissions", len(subs)), logger.Int("workers", config.Workers))

	var accepted, capped, failed, submitted int64

	subChan := make(chan Submission, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range subChan {
				if ctx.Err() != nil {
					return
				}
				ok, err := submitSingle(ctx, config, client, sub)
				n := atomic.AddInt64(&submitted, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Warn(ctx, "submission failed", logger.String("user", sub.UserID), logger.Error(err))
					}
				case ok:
					atomic.AddInt64(&accepted, 1)
				default:
					atomic.AddInt64(&capped, 1)
				}
				if config.Verbose && n%ProgressEvery == 0 {
					log.Debug(ctx, "submission progress", logger.Int64("submitted", n), logger.Int("total", len(subs)))
				}
			}
		}()
	}

	go func() {
		defer close(subChan)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case subChan <- sub:
			}
		}
	}()

	wg.Wait()

	stats.Submissions = int(atomic.LoadInt64(&submitted))
	stats.Accepted = int(atomic.LoadInt64(&accepted))
	stats.Capped = int(atomic.LoadInt64(&capped))
	stats.Failed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "score submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("capped", stats.Capped),
		logger.Int("failed", stats.Failed))

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	return nil
}

// submitSingle posts one score and reports whether it became the new best.
func submitSingle(ctx context.Context, config *Config, client *HTTPClient, sub Submission) (bool, error) {
	var best int64
	resp, err := client.do(ctx, http.MethodPost, "/scores/", sub.Player.Token, submitRequest{
		Score:           sub.Score,
		GameModifier:    config.Modifier,
		GameModeSlug:    config.ModeSlug,
		GameContentSlug: config.ContentSlug,
	}, &best)
	if err != nil {
		return false, err
	}
	if best < sub.Score {
		return false, fmt.Errorf("returned best %d is below submitted %d", best, sub.Score)
	}
	return resp.Header.Get(HeaderAccepted) == "true", nil
}

package drill

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/okian/highscore/internal/config"
	"github.com/okian/highscore/pkg/logger"
	"github.com/urfave/cli/v2"
)

// Defaults for the drill flags.
const (
	defaultBaseURL       = "http://localhost:9080"
	defaultPlayers       = 200
	defaultPerPlayer     = 20
	defaultMaxScore      = 100000
	defaultModeSlug      = "classic"
	defaultContentSlug   = "animals"
	defaultWorkersPerCPU = 2
	defaultTimeout       = 30 * time.Second
	defaultRunTimeout    = 10 * time.Minute
)

const logFilePermission = 0o600

// SetupLogging sends log output to stdout and, when logFile is set, to that file too.
func SetupLogging(logFile string, verbose bool) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.InitWriter(w, logger.FormatText); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// NewApp builds the command line interface of the drill tool.
func NewApp() *cli.App {
	return &cli.App{
		Name:  "scoredrill",
		Usage: "submit generated scores to a highscore service and verify the results",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: defaultBaseURL, Usage: "base URL of the service"},
			&cli.StringFlag{
				Name:    "jwt-secret",
				Value:   config.DevJWTSecret,
				Usage:   "secret used to sign player tokens",
				EnvVars: []string{"HIGHSCORE_JWT_SECRET"},
			},
			&cli.IntFlag{Name: "players", Value: defaultPlayers, Usage: "number of distinct players"},
			&cli.IntFlag{Name: "per-player", Value: defaultPerPlayer, Usage: "scores submitted by each player"},
			&cli.IntFlag{Name: "max-score", Value: defaultMaxScore, Usage: "upper bound for generated scores"},
			&cli.StringFlag{Name: "mode", Value: defaultModeSlug, Usage: "game mode slug"},
			&cli.StringFlag{Name: "content", Value: defaultContentSlug, Usage: "game content slug"},
			&cli.IntFlag{Name: "modifier", Usage: "game modifier"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * defaultWorkersPerCPU, Usage: "number of concurrent workers"},
			&cli.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "HTTP request timeout"},
			&cli.DurationFlag{Name: "run-timeout", Value: defaultRunTimeout, Usage: "overall drill timeout"},
			&cli.Int64Flag{Name: "seed", Usage: "faker seed, zero picks one from the clock"},
			&cli.StringFlag{Name: "output", Usage: "write generated submissions to this JSON file"},
			&cli.StringFlag{Name: "log", Usage: "also append log output to this file"},
			&cli.BoolFlag{Name: "verbose", Usage: "enable verbose logging"},
		},
		Action: func(c *cli.Context) error {
			if err := SetupLogging(c.String("log"), c.Bool("verbose")); err != nil {
				return err
			}
			cfg := ConfigFromContext(c)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("run-timeout"))
			defer cancel()

			_, err := Run(ctx, cfg)
			return err
		},
	}
}

// ConfigFromContext maps parsed flags onto a Config.
func ConfigFromContext(c *cli.Context) *Config {
	return &Config{
		BaseURL:              c.String("url"),
		JWTSecret:            c.String("jwt-secret"),
		Players:              c.Int("players"),
		SubmissionsPerPlayer: c.Int("per-player"),
		MaxScore:             c.Int("max-score"),
		ModeSlug:             c.String("mode"),
		ContentSlug:          c.String("content"),
		Modifier:             c.Int("modifier"),
		Workers:              c.Int("workers"),
		Timeout:              c.Duration("timeout"),
		Seed:                 c.Int64("seed"),
		OutputFile:           c.String("output"),
		Verbose:              c.Bool("verbose"),
	}
}

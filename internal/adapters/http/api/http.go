// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/okian/highscore/internal/adapters/http/swagger"
	"github.com/okian/highscore/internal/domain/model"
	"github.com/okian/highscore/internal/domain/submission"
	"github.com/okian/highscore/internal/domain/types"
	"github.com/okian/highscore/pkg/logger"
	"github.com/okian/highscore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Submit(ctx context.Context, req submission.Request) (model.Outcome, error)
	PersonalBest(ctx context.Context, player model.Player, modeSlug, contentSlug string, modifier int) (types.PersonalBest, error)
	Leaderboard(ctx context.Context, modeSlug, contentSlug string, modifier int) ([]types.RankedRow, error)
	Modes(ctx context.Context) []model.ModeRef
	Contents(ctx context.Context) []model.ContentRef
}

// Authenticator resolves the calling player from a request.
type Authenticator interface {
	FromRequest(r *http.Request) (model.Player, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	scores  *ScoresHandler
	games   *GamesHandler
	health  *HealthHandler
	stats   *StatsHandler
	authn   Authenticator
	origins []string
	log     logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins sets the origins allowed by the CORS policy.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithLogger sets the logger used for request errors.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, authn Authenticator, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		authn: authn,
		log:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scores = NewScoresHandler(deps, s.log)
	s.games = NewGamesHandler(deps)
	s.health = NewHealthHandler()
	s.stats = NewStatsHandler(statsProvider)
	return s
}

// Handler returns the root router with every route attached.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{headerAccepted},
		AllowCredentials: true,
	}).Handler)
	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(ctx context.Context, r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(MetricsMiddleware)

		r.Get("/healthz", s.health.HandleHealth)
		r.Get("/stats", s.stats.HandleStats)

		r.Route("/scores", func(r chi.Router) {
			r.Get("/high_scores", s.scores.HandleHighScores)
			r.Group(func(r chi.Router) {
				r.Use(RequireIdentity(s.authn))
				r.Post("/", s.scores.HandleSubmit)
				r.Get("/high_score", s.scores.HandleHighScore)
			})
		})

		r.Route("/games", func(r chi.Router) {
			r.Get("/modes", s.games.HandleModes)
			r.Get("/contents", s.games.HandleContents)
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	swagger.Register(ctx, r)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

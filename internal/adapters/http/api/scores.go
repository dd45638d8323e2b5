package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/highscore/internal/adapters/http/auth"
	"github.com/okian/highscore/internal/domain/submission"
	"github.com/okian/highscore/pkg/logger"
)

// headerAccepted tells clients whether a submission became the new best.
const headerAccepted = "X-Score-Accepted"

// Modifiers are stored as 32-bit integers.
const modifierBits = 32

// ScoresHandler serves score submission and leaderboard reads.
type ScoresHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps Dependencies, log logger.Logger) *ScoresHandler {
	return &ScoresHandler{deps: deps, log: log}
}

type submitRequest struct {
	Score           *int64 `json:"score"`
	GameModifier    *int   `json:"game_modifier"`
	GameModeSlug    string `json:"game_mode_slug"`
	GameContentSlug string `json:"game_content_slug"`
}

func (s submitRequest) validate(op string) error {
	switch {
	case s.Score == nil:
		return badRequest(op, "missing score")
	case s.GameModifier == nil:
		return badRequest(op, "missing game_modifier")
	case *s.GameModifier < math.MinInt32 || *s.GameModifier > math.MaxInt32:
		return badRequest(op, "game_modifier out of range")
	case strings.TrimSpace(s.GameModeSlug) == "":
		return badRequest(op, "missing game_mode_slug")
	case strings.TrimSpace(s.GameContentSlug) == "":
		return badRequest(op, "missing game_content_slug")
	}
	return nil
}

// gameQuery is the game triple shared by the read endpoints.
type gameQuery struct {
	mode     string
	content  string
	modifier int
}

func parseGameQuery(op string, r *http.Request) (gameQuery, error) {
	q := r.URL.Query()
	g := gameQuery{
		mode:    strings.TrimSpace(q.Get("game_mode_slug")),
		content: strings.TrimSpace(q.Get("game_content_slug")),
	}
	if g.mode == "" {
		return g, badRequest(op, "missing game_mode_slug")
	}
	if g.content == "" {
		return g, badRequest(op, "missing game_content_slug")
	}
	raw := q.Get("game_modifier")
	if raw == "" {
		return g, badRequest(op, "missing game_modifier")
	}
	m, err := strconv.ParseInt(raw, 10, modifierBits)
	if err != nil {
		return g, badRequest(op, "game_modifier must be a 32-bit integer")
	}
	g.modifier = int(m)
	return g, nil
}

// HandleSubmit handles POST /scores/ requests. The response body is the
// player's best after the submission.
func (h *ScoresHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"
	ctx := r.Context()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDomainError(ctx, w, h.log, op, badRequest(op, "invalid JSON body"))
		return
	}
	if err := req.validate(op); err != nil {
		writeDomainError(ctx, w, h.log, op, err)
		return
	}

	player, _ := auth.PlayerFrom(ctx)
	out, err := h.deps.Submit(ctx, submission.Request{
		Player:      player,
		ModeSlug:    req.GameModeSlug,
		ContentSlug: req.GameContentSlug,
		Modifier:    *req.GameModifier,
		Value:       *req.Score,
	})
	if err != nil {
		writeDomainError(ctx, w, h.log, op, err)
		return
	}
	w.Header().Set(headerAccepted, strconv.FormatBool(out.Accepted))
	writeJSON(w, http.StatusOK, out.Value)
}

// HandleHighScore handles GET /scores/high_score requests for the caller.
func (h *ScoresHandler) HandleHighScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_high_score"
	ctx := r.Context()

	g, err := parseGameQuery(op, r)
	if err != nil {
		writeDomainError(ctx, w, h.log, op, err)
		return
	}
	player, _ := auth.PlayerFrom(ctx)
	best, err := h.deps.PersonalBest(ctx, player, g.mode, g.content, g.modifier)
	if err != nil {
		writeDomainError(ctx, w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, best)
}

// HandleHighScores handles GET /scores/high_scores requests.
func (h *ScoresHandler) HandleHighScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_high_scores"
	ctx := r.Context()

	g, err := parseGameQuery(op, r)
	if err != nil {
		writeDomainError(ctx, w, h.log, op, err)
		return
	}
	rows, err := h.deps.Leaderboard(ctx, g.mode, g.content, g.modifier)
	if err != nil {
		writeDomainError(ctx, w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

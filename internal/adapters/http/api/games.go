package api

import "net/http"

// GamesHandler lists the reference catalog.
type GamesHandler struct {
	deps Dependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps Dependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

// HandleModes handles GET /games/modes requests.
func (h *GamesHandler) HandleModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Modes(r.Context()))
}

// HandleContents handles GET /games/contents requests.
func (h *GamesHandler) HandleContents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Contents(r.Context()))
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/highscore/internal/adapters/repository"
	"github.com/okian/highscore/internal/domain/submission"
	"github.com/okian/highscore/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

func badRequest(op, reason string) error {
	return fmt.Errorf("%s: %w: %s", op, ErrBadRequest, reason)
}

// writeDomainError maps service errors to HTTP statuses. Storage failures are
// logged with op and answered with a generic message.
func writeDomainError(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, submission.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="highscore"`)
		writeError(w, http.StatusUnauthorized, "unauthenticated", submission.ErrUnauthenticated)
	case errors.Is(err, submission.ErrUnknownReference):
		writeError(w, http.StatusNotFound, "unknown_reference", err)
	case errors.Is(err, repository.ErrStorageFailure):
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "storage_failure", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", nil)
	default:
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

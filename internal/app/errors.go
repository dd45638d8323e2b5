package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrNoDatabase     = errors.New("postgres backend requires a database handle")
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrCatalogMismatch is returned when scores live in postgres but game
	// modes and contents do not, so stored scores could not reference them.
	ErrCatalogMismatch = errors.New("postgres store requires the postgres catalog")
)

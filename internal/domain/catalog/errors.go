package catalog

import "errors"

// Sentinel errors for catalog operations.
var (
	ErrInvalidCatalog = errors.New("invalid catalog")
	ErrNoLoader       = errors.New("catalog has no loader")
)

package submission

import "errors"

// Sentinel errors returned by the coordinator.
var (
	// ErrUnknownReference means a mode or content slug is not in the catalog.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrUnauthenticated means the caller has no valid identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)

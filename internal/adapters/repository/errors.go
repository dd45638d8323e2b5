package repository

import "errors"

// ErrStorageFailure reports that the store could not durably complete an
// operation. No partial state is visible after it; the call is safe to retry.
var ErrStorageFailure = errors.New("storage failure")

package ritual

import "errors"

// Rejection classes for the engine. Handlers map these onto HTTP
// statuses; everything else is an internal failure.
var (
	// ErrInvalidInput rejects malformed actions and sync requests.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound rejects operations addressed to state that must
	// already exist, like syncing a conflict neither member decided.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentSync reports that a reconciliation write raced with
	// other updates twice in a row and gave up.
	ErrConcurrentSync = errors.New("concurrent sync")
)

package match

import "errors"

// Sentinel errors returned by the matching and claim-verification engine.
// Store-level failures are wrapped with context instead and surface as-is.
var (
	// ErrNotFound means an item or match id did not resolve to a record.
	ErrNotFound = errors.New("item not found")

	// ErrInvalidInput means a required id or answer was missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict means a status transition was refused, either because it
	// would be illegal or because a concurrent update won the race.
	ErrConflict = errors.New("conflicting status update")

	// ErrUnavailable means the item has no security question/answer configured.
	ErrUnavailable = errors.New("security check not configured")
)

package core

import "errors"

// Error taxonomy for ledger operations. Callers classify failures with
// errors.Is; wrapped errors carry the operation detail.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")

	// ErrStoreUnavailable marks transient store failures. Retryable by the
	// caller with backoff; the ledger never retries a financial mutation
	// internally to avoid double-applying it.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// IsRetryable reports whether the caller may safely retry the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

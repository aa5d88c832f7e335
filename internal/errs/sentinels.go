// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store layers.
var (
	// ErrValidation indicates input failed a format or policy rule.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a uniqueness violation (e.g., email or username taken).
	ErrConflict = errors.New("already exists")

	// ErrAuthentication indicates a credential mismatch. The message is
	// deliberately generic so callers cannot tell which field was wrong.
	ErrAuthentication = errors.New("invalid credentials")

	// ErrNotFound indicates the targeted row or request does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable indicates the underlying database failed to open
	// or the store was never initialized.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

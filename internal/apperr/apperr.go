// Package apperr defines the error taxonomy shared by every core operation.
// Callers classify failures with errors.Is against these sentinels.
package apperr

import "errors"

var (
	// ErrNotFound means the id or key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument means caller input violates a precondition.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict means a per-key serialized update lost a race; safe to retry.
	ErrConflict = errors.New("conflict")
	// ErrStoreUnavailable means the underlying persistence failed.
	ErrStoreUnavailable = errors.New("store unavailable")
)

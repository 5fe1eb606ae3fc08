// Package apierr defines the sentinel error kinds shared across the core
// stores and clients so callers can branch with errors.Is regardless of
// which package produced the error.
package apierr

import "errors"

var (
	// ErrNotLoggedIn is returned when a per-user store is accessed without
	// an active session.
	ErrNotLoggedIn = errors.New("no active user session")

	// ErrNetwork wraps request failures, timeouts, and non-success
	// upstream responses.
	ErrNetwork = errors.New("network request failed")

	// ErrDecode marks a streaming source or decoder I/O failure.
	ErrDecode = errors.New("decode failed")

	// ErrPersistence wraps SQLite and filesystem failures with no
	// automatic recovery.
	ErrPersistence = errors.New("persistence failed")

	// ErrResource marks a PCM/device open or write failure.
	ErrResource = errors.New("resource unavailable")

	// ErrValidation marks a rejected input that never touched state.
	ErrValidation = errors.New("validation failed")
)

package model

import "github.com/pkg/errors"

// Failure taxonomy surfaced to the caller. Callers classify with errors.Is;
// wrapped messages carry the offending field or value.
var (
	// ErrInvalidInput means caller-supplied data failed a precondition.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means a targeted lookup implied an existing row and found none.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFormat means a backup document is unparseable or missing
	// required structure.
	ErrInvalidFormat = errors.New("invalid backup format")
	// ErrIncompatibleBackup means a structurally valid document failed the
	// identity or version check.
	ErrIncompatibleBackup = errors.New("incompatible backup")
	// ErrStorageConflict means the store rejected a write unexpectedly.
	ErrStorageConflict = errors.New("storage conflict")
	// ErrStorageUnavailable means the store cannot be opened or reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

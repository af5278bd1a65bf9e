package repository

import "errors"

// Storage-agnostic repository errors.
var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry means a write violated a unique constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrUnavailable means a backing store could not be reached.
	ErrUnavailable = errors.New("repository: store unavailable")
)

// Resource-specific aliases.
var (
	ErrUserNotFound         = ErrNotFound
	ErrDocumentNotFound     = ErrNotFound
	ErrCollaboratorNotFound = ErrNotFound
)

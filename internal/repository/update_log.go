package repository

import (
	"context"
	"encoding/json"
)

// UpdateLog opens per-session handles onto the ordered per-document update log.
// A document's log comes into existence with its first append and is never deleted here.
type UpdateLog interface {
	// Open acquires a dedicated store connection for one session.
	// Errors wrap ErrUnavailable when the store cannot be reached.
	Open(ctx context.Context, documentID string) (UpdateLogHandle, error)
}

// UpdateLogHandle is one session's view of a document's log. It is not safe for concurrent use.
type UpdateLogHandle interface {
	// Append stores an update at the tail and returns its 1-based position.
	Append(ctx context.Context, update json.RawMessage) (int64, error)
	// ReadRange returns records in [start, stop], 0-based and inclusive; negative
	// indexes count from the tail.
	ReadRange(ctx context.Context, start, stop int64) ([]json.RawMessage, error)
	// ReadAll returns every record, oldest first.
	ReadAll(ctx context.Context) ([]json.RawMessage, error)
	// Len returns the number of records.
	Len(ctx context.Context) (int64, error)
	// Close releases the dedicated connection. Safe to call more than once.
	Close() error
}

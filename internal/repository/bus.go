package repository

import (
	"context"

	"github.com/Owskar/collaborative-code-editor/internal/dto"
)

// BroadcastBus fans envelopes out to every subscriber of a document's room,
// across relay processes.
type BroadcastBus interface {
	// Subscribe joins the room and returns once the subscription is confirmed,
	// so nothing published afterwards is missed. Errors wrap ErrUnavailable.
	Subscribe(ctx context.Context, documentID string) (Subscription, error)
	// Publish delivers env to all current subscribers, including the publisher's own.
	Publish(ctx context.Context, documentID string, env dto.Envelope) error
}

// Subscription is one session's membership in a room.
type Subscription interface {
	// Deliveries is closed when the subscription ends.
	Deliveries() <-chan dto.Envelope
	// Close leaves the room. Safe to call more than once.
	Close() error
}

package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
	"github.com/Owskar/collaborative-code-editor/internal/dto"
	"github.com/Owskar/collaborative-code-editor/internal/repository"
)

// appendMaxRetries bounds extra attempts at appending one update.
const appendMaxRetries = 3

// Peer is the session-side view the dispatcher needs from a connection.
type Peer interface {
	SessionID() string
	DocumentID() string
	Identity() domain.Identity
	Color() string
	// Updates is the session's dedicated update log handle.
	Updates() repository.UpdateLogHandle
	// Send queues a frame for this connection only. It reports false once the session is closed.
	Send(frame []byte) bool
}

// ContentSink accepts full-text snapshots for asynchronous persistence. Submit must not block.
type ContentSink interface {
	Submit(documentID, content string, version int64)
}

// SyncService routes inbound client frames to the update, awareness and cursor handlers.
type SyncService struct {
	bus        repository.BroadcastBus
	content    ContentSink
	newBackOff func() backoff.BackOff
}

// NewSyncService creates a SyncService. content may be nil to disable write-through.
func NewSyncService(bus repository.BroadcastBus, content ContentSink) *SyncService {
	if bus == nil {
		panic("BroadcastBus cannot be nil for SyncService")
	}
	return &SyncService{
		bus:        bus,
		content:    content,
		newBackOff: defaultAppendBackOff,
	}
}

func defaultAppendBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return b
}

// HandleFrame processes one inbound frame from p. Frames are handled in the order
// the session reads them; nothing here fails the session.
func (s *SyncService) HandleFrame(ctx context.Context, p Peer, frame []byte) {
	msg, err := dto.DecodeInbound(frame)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"document_id": p.DocumentID(),
			"session_id":  p.SessionID(),
			"size":        len(frame),
		}).Debug("Malformed frame")
		p.Send(dto.EncodeError(dto.InvalidJSONMessage))
		return
	}

	switch m := msg.(type) {
	case dto.YjsUpdate:
		s.handleUpdate(ctx, p, m)
	case dto.AwarenessUpdate:
		s.handlePresence(ctx, p, dto.TypeAwarenessUpdate, "awareness", m.Awareness)
	case dto.CursorUpdate:
		s.handlePresence(ctx, p, dto.TypeCursorUpdate, "cursor", m.Cursor)
	default:
		// Unknown types are dropped without a reply.
	}
}

// handleUpdate appends, then broadcasts, then hands off the content snapshot.
func (s *SyncService) handleUpdate(ctx context.Context, p Peer, m dto.YjsUpdate) {
	logCtx := logrus.WithFields(logrus.Fields{
		"document_id": p.DocumentID(),
		"session_id":  p.SessionID(),
		"user_id":     p.Identity().String(),
	})

	// 1. Append, retrying transient store errors
	var pos int64
	appendOnce := func() error {
		n, err := p.Updates().Append(ctx, m.Update)
		if err != nil {
			return err
		}
		pos = n
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), appendMaxRetries), ctx)
	if err := backoff.Retry(appendOnce, policy); err != nil {
		logCtx.WithError(err).Error("Failed to append update, not broadcasting")
		return
	}

	// 2. Broadcast to the rest of the room
	env := dto.Envelope{
		Type:      dto.TypeYjsUpdate,
		SenderID:  p.Identity().String(),
		SessionID: p.SessionID(),
		Seq:       pos,
		Payload:   dto.EncodeYjsUpdate(m.Update),
	}
	if err := s.bus.Publish(ctx, p.DocumentID(), env); err != nil {
		logCtx.WithError(err).WithField("seq", pos).Error("Failed to publish update")
	}

	// 3. Content write-through, decoupled from delivery
	if m.Content != nil && s.content != nil {
		s.content.Submit(p.DocumentID(), *m.Content, pos)
	}
}

// handlePresence tags awareness or cursor state with the sender and broadcasts it. Nothing is stored.
func (s *SyncService) handlePresence(ctx context.Context, p Peer, msgType, key string, payload dto.Fields) {
	userID := p.Identity().String()
	env := dto.Envelope{
		Type:      msgType,
		SenderID:  userID,
		SessionID: p.SessionID(),
		Payload:   dto.EncodePresence(msgType, key, payload, p.Identity().WireID(), p.Color()),
	}
	if err := s.bus.Publish(ctx, p.DocumentID(), env); err != nil {
		logrus.WithFields(logrus.Fields{
			"document_id": p.DocumentID(),
			"session_id":  p.SessionID(),
			"type":        msgType,
		}).WithError(err).Warn("Failed to publish presence")
	}
}

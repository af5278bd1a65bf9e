package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
	"github.com/Owskar/collaborative-code-editor/internal/presence"
	"github.com/Owskar/collaborative-code-editor/internal/repository"
	"github.com/Owskar/collaborative-code-editor/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxMessageSize is the largest inbound frame accepted.
	DefaultMaxMessageSize int64 = 1 << 20

	// sendBuffer is the per-session outbound queue length.
	sendBuffer = 256
)

// Hub prepares sessions and keeps a local registry of them.
// Message routing never goes through the Hub: each session has its own bus
// subscription, so the registry is only used for shutdown and stats.
type Hub struct {
	updateLog      repository.UpdateLog
	bus            repository.BroadcastBus
	sync           *service.SyncService
	maxMessageSize int64

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool

	// running counts session read loops so CloseAll can wait for in-flight frames.
	running sync.WaitGroup
}

// NewHub creates a Hub. maxMessageSize <= 0 uses DefaultMaxMessageSize.
func NewHub(updateLog repository.UpdateLog, bus repository.BroadcastBus, syncService *service.SyncService, maxMessageSize int64) *Hub {
	if updateLog == nil {
		panic("UpdateLog cannot be nil for Hub")
	}
	if bus == nil {
		panic("BroadcastBus cannot be nil for Hub")
	}
	if syncService == nil {
		panic("SyncService cannot be nil for Hub")
	}
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	return &Hub{
		updateLog:      updateLog,
		bus:            bus,
		sync:           syncService,
		maxMessageSize: maxMessageSize,
		clients:        make(map[*Client]struct{}),
	}
}

// Prepare runs the CONNECTING phase: it acquires the session's update log handle
// and a confirmed bus subscription. On error nothing is left open and the caller
// must refuse the handshake. On success the caller must call Activate or Abort.
func (h *Hub) Prepare(ctx context.Context, documentID string, identity domain.Identity) (*Client, error) {
	if documentID == "" {
		return nil, fmt.Errorf("hub: empty document id")
	}
	if identity.UserID == "" {
		identity = domain.AnonymousIdentity()
	}

	c := &Client{
		hub:        h,
		id:         uuid.NewString(),
		documentID: documentID,
		identity:   identity,
		color:      presence.ColorFor(identity.String()),
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
	c.logCtx = logrus.WithFields(logrus.Fields{
		"document_id": documentID,
		"user_id":     identity.String(),
		"session_id":  c.id,
	})

	updates, err := h.updateLog.Open(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("hub: open update log: %w", err)
	}
	sub, err := h.bus.Subscribe(ctx, documentID)
	if err != nil {
		_ = updates.Close()
		return nil, fmt.Errorf("hub: subscribe to room: %w", err)
	}
	c.updates = updates
	c.sub = sub
	c.state.Store(int32(StateConnecting))

	c.logCtx.Debug("Session prepared")
	return c, nil
}

// register adds c to the registry and counts its read loop. It reports false during shutdown.
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.running.Add(1)
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Count returns the number of active sessions in this process.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of active local sessions on documentID.
func (h *Hub) RoomCount(documentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.documentID == documentID {
			n++
		}
	}
	return n
}

// CloseAll closes every session, refuses new ones and waits until no session
// is still handling an inbound frame.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	h.running.Wait()
	logrus.WithField("component", "hub").Infof("Closed %d sessions", len(clients))
}

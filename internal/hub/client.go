package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
	"github.com/Owskar/collaborative-code-editor/internal/dto"
	"github.com/Owskar/collaborative-code-editor/internal/repository"
)

// State is a session lifecycle state.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateActive:
		return "ACTIVE"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Client is one websocket connection editing one document.
// It owns a dedicated update log handle and bus subscription, and runs three
// goroutines once active: read, write and bus forward.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	id         string
	documentID string
	identity   domain.Identity
	color      string

	updates repository.UpdateLogHandle
	sub     repository.Subscription

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc

	// replayedThrough is the last log position delivered by the join replay.
	// Set before the forward pump starts and read only by it.
	replayedThrough int64

	logCtx *logrus.Entry
}

// Activate binds the upgraded connection and moves the session to ACTIVE:
// the log is replayed to this connection only, then user-joined is sent to it,
// then room broadcasts start flowing.
func (c *Client) Activate(conn *websocket.Conn) {
	c.conn = conn
	c.ctx, c.cancel = context.WithCancel(context.Background())

	if !c.hub.register(c) {
		c.logCtx.Warn("Hub is shutting down, rejecting session")
		c.Close()
		return
	}
	c.state.Store(int32(StateActive))
	c.logCtx.Info("Session active")

	go c.writePump()
	go c.run()
}

// Abort releases a prepared session whose handshake did not complete.
func (c *Client) Abort() {
	c.Close()
}

// Close moves the session to CLOSED. It runs once, whichever path gets here first,
// and releases the subscription, the log handle and the transport.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		if c.cancel != nil {
			c.cancel()
		}
		if err := c.sub.Close(); err != nil {
			c.logCtx.WithError(err).Debug("Error closing bus subscription")
		}
		if err := c.updates.Close(); err != nil {
			c.logCtx.WithError(err).Debug("Error closing update log handle")
		}
		if c.conn != nil {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			_ = c.conn.Close()
		}
		c.hub.unregister(c)
		c.logCtx.Info("Session closed")
	})
}

// run performs the join sequence and then becomes the read loop.
func (c *Client) run() {
	defer c.hub.running.Done()
	defer c.Close()

	// 1. Replay the log to this connection only
	if err := c.replay(); err != nil {
		c.logCtx.WithError(err).Error("Failed to replay update log")
	}

	// 2. Join notice, to this connection only
	if !c.Send(dto.EncodeUserJoined(c.identity.WireID(), c.color)) {
		return
	}

	// 3. Live room traffic
	go c.forwardPump()

	// 4. Inbound frames
	c.readPump()
}

func (c *Client) replay() error {
	records, err := c.updates.ReadAll(c.ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if !c.Send(dto.EncodeYjsUpdate(rec)) {
			return nil
		}
	}
	c.replayedThrough = int64(len(records))
	if len(records) > 0 {
		c.logCtx.WithField("count", len(records)).Debug("Update log replayed")
	}
	return nil
}

// readPump hands every text or binary frame to the dispatcher in arrival order.
func (c *Client) readPump() {
	c.conn.SetReadLimit(c.hub.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.logCtx.WithError(err).Debug("WebSocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		c.hub.sync.HandleFrame(c.ctx, c, message)
	}
}

// writePump is the only writer of data frames on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logCtx.WithError(err).Debug("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logCtx.WithError(err).Debug("Failed to send ping message")
				return
			}
		case <-c.done:
			return
		}
	}
}

// forwardPump relays room broadcasts, skipping this session's own messages and
// updates the join replay already delivered.
func (c *Client) forwardPump() {
	deliveries := c.sub.Deliveries()
	for {
		select {
		case env, ok := <-deliveries:
			if !ok {
				c.logCtx.Warn("Bus subscription ended")
				c.Close()
				return
			}
			// Echo suppression is per connection so anonymous users still see each other.
			if env.SessionID == c.id {
				continue
			}
			if env.Type == dto.TypeYjsUpdate && env.Seq > 0 && env.Seq <= c.replayedThrough {
				continue
			}
			if !c.Send(env.Payload) {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send queues frame for this connection. It blocks while the queue is full and
// reports false once the session is closed.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) SessionID() string                   { return c.id }
func (c *Client) DocumentID() string                  { return c.documentID }
func (c *Client) Identity() domain.Identity           { return c.identity }
func (c *Client) Color() string                       { return c.color }
func (c *Client) Updates() repository.UpdateLogHandle { return c.updates }
func (c *Client) State() State                        { return State(c.state.Load()) }

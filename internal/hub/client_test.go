package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
	"github.com/Owskar/collaborative-code-editor/internal/dto"
)

// activate serves one upgrade that hands the connection to c and returns the peer end.
func activate(t *testing.T, c *Client) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			c.Abort()
			return
		}
		c.Activate(conn)
	}))
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) string {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func assertNoFrame(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, msg, err := ws.ReadMessage()
	assert.Error(t, err, "unexpected frame %s", msg)
}

func update(n int) json.RawMessage { return json.RawMessage(strconv.Itoa(n)) }

func liveUpdate(sessionID string, seq int) dto.Envelope {
	return dto.Envelope{
		Type:      dto.TypeYjsUpdate,
		SenderID:  "9",
		SessionID: sessionID,
		Seq:       int64(seq),
		Payload:   dto.EncodeYjsUpdate(update(seq)),
	}
}

func TestActivateReplaysThenJoinsThenForwardsNewerUpdates(t *testing.T) {
	h, handle, sub := newStubHub(nil, nil)
	t.Cleanup(h.CloseAll)
	handle.records = []json.RawMessage{update(1), update(2)}
	// Published while the session was subscribing: seq 2 overlaps the replay.
	sub.out = make(chan dto.Envelope, 4)
	sub.out <- liveUpdate("other-session", 2)
	sub.out <- liveUpdate("other-session", 3)

	c, err := h.Prepare(context.Background(), "doc-1", domain.NewUserIdentity(7))
	require.NoError(t, err)
	ws := activate(t, c)

	assert.Equal(t, string(dto.EncodeYjsUpdate(update(1))), readFrame(t, ws))
	assert.Equal(t, string(dto.EncodeYjsUpdate(update(2))), readFrame(t, ws))
	assert.Equal(t, string(dto.EncodeUserJoined(uint64(7), c.Color())), readFrame(t, ws))
	assert.Equal(t, string(dto.EncodeYjsUpdate(update(3))), readFrame(t, ws))
	assertNoFrame(t, ws)
	assert.Equal(t, StateActive, c.State())
}

func TestForwardSkipsOwnSessionWhateverSeq(t *testing.T) {
	h, _, sub := newStubHub(nil, nil)
	t.Cleanup(h.CloseAll)
	sub.out = make(chan dto.Envelope, 4)

	c, err := h.Prepare(context.Background(), "doc-1", domain.AnonymousIdentity())
	require.NoError(t, err)

	cursor := dto.EncodePresence(dto.TypeCursorUpdate, "cursor", dto.Fields{}, c.Identity().WireID(), c.Color())
	sub.out <- liveUpdate(c.SessionID(), 5)
	sub.out <- dto.Envelope{Type: dto.TypeCursorUpdate, SessionID: c.SessionID(), Payload: cursor}
	// Another anonymous session shares the identity but is still delivered.
	sub.out <- liveUpdate("other-session", 6)

	ws := activate(t, c)

	assert.Equal(t, string(dto.EncodeUserJoined(domain.AnonymousUserID, c.Color())), readFrame(t, ws))
	assert.Equal(t, string(dto.EncodeYjsUpdate(update(6))), readFrame(t, ws))
	assertNoFrame(t, ws)
}

func TestCloseAllWaitsForSessionToFinish(t *testing.T) {
	h, handle, _ := newStubHub(nil, nil)
	entered := make(chan struct{})
	var finished atomic.Bool
	handle.readAll = func(ctx context.Context) ([]json.RawMessage, error) {
		close(entered)
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil, ctx.Err()
	}

	c, err := h.Prepare(context.Background(), "doc-1", domain.AnonymousIdentity())
	require.NoError(t, err)
	activate(t, c)

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("session never started its join")
	}

	h.CloseAll()

	assert.True(t, finished.Load())
	assert.Equal(t, StateClosed, c.State())
	assert.Zero(t, h.Count())
}

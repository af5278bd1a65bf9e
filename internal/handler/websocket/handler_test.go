package websocket

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v4"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Owskar/collaborative-code-editor/internal/hub"
	redisstate "github.com/Owskar/collaborative-code-editor/internal/infra/state/redis"
	"github.com/Owskar/collaborative-code-editor/internal/middleware"
	"github.com/Owskar/collaborative-code-editor/internal/presence"
	"github.com/Owskar/collaborative-code-editor/internal/service"
)

const (
	testSecret = "ws-test-secret"
	logKey     = "collab:yjs_updates:doc-1"
)

type submission struct {
	documentID string
	content    string
	version    int64
}

type recordingSink struct {
	mu   sync.Mutex
	subs []submission
}

func (s *recordingSink) Submit(documentID, content string, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, submission{documentID, content, version})
}

func (s *recordingSink) all() []submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]submission(nil), s.subs...)
}

type relay struct {
	mr   *miniredis.Miniredis
	hub  *hub.Hub
	sink *recordingSink
	url  string
}

func newRelay(t *testing.T) *relay {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	sink := &recordingSink{}
	bus := redisstate.NewRedisBus(client, redisstate.DefaultKeyPrefix)
	syncService := service.NewSyncService(bus, sink)
	h := hub.NewHub(redisstate.NewRedisUpdateLog(client, redisstate.DefaultKeyPrefix), bus, syncService, 0)

	router := gin.New()
	router.GET("/ws/document/:documentId", middleware.OptionalAuth(testSecret), NewWebSocketHandler(h, nil).HandleConnection)
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		h.CloseAll()
		srv.Close()
		_ = client.Close()
	})

	return &relay{
		mr:   mr,
		hub:  h,
		sink: sink,
		url:  "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/document/",
	}
}

func tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

// dial connects to documentID, authenticated as userID when userID > 0.
func (r *relay) dial(t *testing.T, documentID string, userID uint) *gws.Conn {
	t.Helper()
	u := r.url + documentID
	if userID > 0 {
		u += "?token=" + tokenFor(t, userID)
	}
	conn, resp, err := gws.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *gws.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &frame), string(data))
	return frame
}

func readRaw(t *testing.T, conn *gws.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

// expectSilence asserts nothing arrives for a short while. The connection
// must not be read again afterwards.
func expectSilence(t *testing.T, conn *gws.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", string(data))
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected read timeout, got %v", err)
}

func send(t *testing.T, conn *gws.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(frame)))
}

func TestJoinEmptyRoomSendsOnlyUserJoined(t *testing.T) {
	r := newRelay(t)
	conn := r.dial(t, "doc-1", 0)

	frame := readFrame(t, conn)
	assert.Equal(t, map[string]interface{}{
		"type":    "user-joined",
		"user_id": "anonymous",
		"color":   presence.ColorFor("anonymous"),
	}, frame)
	expectSilence(t, conn)
}

func TestJoinReplaysLogInOrderBeforeUserJoined(t *testing.T) {
	r := newRelay(t)
	for _, u := range []string{`[1]`, `[2]`, `{"op":3}`} {
		_, err := r.mr.RPush(logKey, u)
		require.NoError(t, err)
	}

	conn := r.dial(t, "doc-1", 7)
	assert.JSONEq(t, `{"type":"yjs-update","update":[1]}`, readRaw(t, conn))
	assert.JSONEq(t, `{"type":"yjs-update","update":[2]}`, readRaw(t, conn))
	assert.JSONEq(t, `{"type":"yjs-update","update":{"op":3}}`, readRaw(t, conn))

	joined := readFrame(t, conn)
	assert.Equal(t, "user-joined", joined["type"])
	assert.Equal(t, float64(7), joined["user_id"])
	assert.Equal(t, presence.ColorFor("7"), joined["color"])
	expectSilence(t, conn)
}

func TestUpdateIsStoredRelayedAndWrittenThrough(t *testing.T) {
	r := newRelay(t)
	a := r.dial(t, "doc-1", 1)
	readFrame(t, a)
	b := r.dial(t, "doc-1", 2)
	readFrame(t, b)

	send(t, a, `{"type":"yjs-update","update":[1,2,3],"content":"hello"}`)

	assert.JSONEq(t, `{"type":"yjs-update","update":[1,2,3]}`, readRaw(t, b))
	require.Eventually(t, func() bool {
		list, err := r.mr.List(logKey)
		return err == nil && len(list) == 1 && list[0] == `[1,2,3]`
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(r.sink.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, submission{"doc-1", "hello", 1}, r.sink.all()[0])

	expectSilence(t, a)

	// A later joiner gets the stored update during replay.
	c := r.dial(t, "doc-1", 3)
	assert.JSONEq(t, `{"type":"yjs-update","update":[1,2,3]}`, readRaw(t, c))
	assert.Equal(t, "user-joined", readFrame(t, c)["type"])
}

func TestUpdateWithoutContentSkipsWriteThrough(t *testing.T) {
	r := newRelay(t)
	a := r.dial(t, "doc-1", 1)
	readFrame(t, a)
	b := r.dial(t, "doc-1", 2)
	readFrame(t, b)

	send(t, a, `{"type":"yjs-update","update":"AQID"}`)
	assert.JSONEq(t, `{"type":"yjs-update","update":"AQID"}`, readRaw(t, b))
	assert.Empty(t, r.sink.all())
}

func TestNoEchoAcrossThreeSessions(t *testing.T) {
	r := newRelay(t)
	a := r.dial(t, "doc-1", 1)
	readFrame(t, a)
	b := r.dial(t, "doc-1", 2)
	readFrame(t, b)
	c := r.dial(t, "doc-1", 0)
	readFrame(t, c)

	send(t, a, `{"type":"yjs-update","update":[9]}`)
	assert.JSONEq(t, `{"type":"yjs-update","update":[9]}`, readRaw(t, b))
	assert.JSONEq(t, `{"type":"yjs-update","update":[9]}`, readRaw(t, c))
	expectSilence(t, a)
}

func TestPresenceIsTaggedAndNotStored(t *testing.T) {
	r := newRelay(t)
	a := r.dial(t, "doc-1", 7)
	readFrame(t, a)
	b := r.dial(t, "doc-1", 8)
	readFrame(t, b)

	send(t, a, `{"type":"awareness-update","awareness":{"user_id":"spoofed","name":"Ada"}}`)
	frame := readFrame(t, b)
	assert.Equal(t, "awareness-update", frame["type"])
	assert.Equal(t, map[string]interface{}{
		"user_id": float64(7),
		"color":   presence.ColorFor("7"),
		"name":    "Ada",
	}, frame["awareness"])

	send(t, a, `{"type":"cursor-update","cursor":{"line":4,"ch":2}}`)
	frame = readFrame(t, b)
	assert.Equal(t, "cursor-update", frame["type"])
	assert.Equal(t, map[string]interface{}{
		"user_id": float64(7),
		"color":   presence.ColorFor("7"),
		"line":    float64(4),
		"ch":      float64(2),
	}, frame["cursor"])

	assert.False(t, r.mr.Exists(logKey))
}

func TestMalformedFrameGetsErrorAndSessionSurvives(t *testing.T) {
	r := newRelay(t)
	a := r.dial(t, "doc-1", 1)
	readFrame(t, a)
	b := r.dial(t, "doc-1", 2)
	readFrame(t, b)

	send(t, a, `not json`)
	assert.JSONEq(t, `{"type":"error","message":"Invalid JSON"}`, readRaw(t, a))

	// Unknown types are ignored without a reply.
	send(t, a, `{"type":"chat","text":"hi"}`)

	send(t, a, `{"type":"yjs-update","update":[5]}`)
	assert.JSONEq(t, `{"type":"yjs-update","update":[5]}`, readRaw(t, b))
	expectSilence(t, a)
}

func TestRoomsAreIsolated(t *testing.T) {
	r := newRelay(t)
	a := r.dial(t, "doc-1", 1)
	readFrame(t, a)
	other := r.dial(t, "doc-2", 2)
	readFrame(t, other)

	send(t, a, `{"type":"yjs-update","update":[1]}`)
	expectSilence(t, other)
	assert.Equal(t, 1, r.hub.RoomCount("doc-1"))
	assert.Equal(t, 1, r.hub.RoomCount("doc-2"))
}

func TestHandshakeRefusedWhenRedisDown(t *testing.T) {
	r := newRelay(t)
	r.mr.Close()

	_, resp, err := gws.DefaultDialer.Dial(r.url+"doc-1", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, r.hub.Count())
}

func TestDisconnectUnregistersSession(t *testing.T) {
	r := newRelay(t)
	a := r.dial(t, "doc-1", 1)
	readFrame(t, a)
	require.Eventually(t, func() bool { return r.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return r.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCloseAllClosesSessions(t *testing.T) {
	r := newRelay(t)
	a := r.dial(t, "doc-1", 1)
	readFrame(t, a)

	r.hub.CloseAll()

	require.NoError(t, a.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := a.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	assert.False(t, errors.As(err, &netErr) && netErr.Timeout())
	assert.Equal(t, 0, r.hub.Count())

	// New sessions are refused once the hub is closed.
	b := r.dial(t, "doc-1", 2)
	require.NoError(t, b.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = b.ReadMessage()
	assert.Error(t, err)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	req.Header.Del("Origin")
	assert.True(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
	assert.True(t, originChecker(nil)(req))
}

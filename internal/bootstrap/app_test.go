package bootstrap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpHandler "github.com/Owskar/collaborative-code-editor/internal/handler/http"
	wsHandler "github.com/Owskar/collaborative-code-editor/internal/handler/websocket"
	"github.com/Owskar/collaborative-code-editor/internal/hub"
	redisstate "github.com/Owskar/collaborative-code-editor/internal/infra/state/redis"
	"github.com/Owskar/collaborative-code-editor/internal/repository/mocks"
	"github.com/Owskar/collaborative-code-editor/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *test.Hook) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &Config{
		KeyPrefix:         "collab:",
		JWTSecret:         "router-secret",
		CORSAllowedOrigin: "https://app.example",
		RateLimitMax:      100,
		RateLimitWindow:   time.Second,
	}
	log, hook := test.NewNullLogger()

	bus := redisstate.NewRedisBus(client, cfg.KeyPrefix)
	h := hub.NewHub(redisstate.NewRedisUpdateLog(client, cfg.KeyPrefix), bus, service.NewSyncService(bus, nil), 0)
	userRepo := new(mocks.UserRepository)
	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, 1)
	require.NoError(t, err)

	router := NewRouter(cfg, log, client, h,
		httpHandler.NewAuthHandler(authService),
		httpHandler.NewDocumentHandler(service.NewDocumentService(new(mocks.DocumentRepository), userRepo)),
		wsHandler.NewWebSocketHandler(h, cfg.AllowedOrigins()),
	)
	return router, hook
}

func TestRouterPing(t *testing.T) {
	router, hook := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "pong", body["message"])
	assert.Equal(t, float64(0), body["sessions"])

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "/ping", hook.LastEntry().Data["path"])
}

func TestRouterDocumentsRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/documents", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/documents", nil)
	req.Header.Set("Origin", "https://other.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggerMiddlewareOmitsQuery(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(LoggerMiddleware(log))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing?token=abc", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "/missing", entry.Data["path"])
}

func TestNewLogger(t *testing.T) {
	log := NewLogger(&Config{AppEnv: "production", LogLevel: "debug"})
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log = NewLogger(&Config{LogLevel: "info"})
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

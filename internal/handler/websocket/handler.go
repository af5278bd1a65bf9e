package websocket

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Owskar/collaborative-code-editor/internal/hub"
	"github.com/Owskar/collaborative-code-editor/internal/middleware"
)

// WebSocketHandler accepts document sessions on /ws/document/:documentId.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler creates the handler. allowedOrigins lists the accepted
// Origin values; an empty list or "*" accepts any origin.
func NewWebSocketHandler(h *hub.Hub, allowedOrigins []string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}

	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		hub: h,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleConnection prepares the session before upgrading, so a relay that
// cannot reach the store or the bus refuses the handshake instead of accepting
// a connection it cannot serve.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	documentID := c.Param("documentId")
	identity := middleware.IdentityFrom(c)
	logCtx := logrus.WithFields(logrus.Fields{
		"document_id": documentID,
		"user_id":     identity.String(),
	})

	if documentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document ID is required"})
		return
	}

	client, err := h.hub.Prepare(c.Request.Context(), documentID, identity)
	if err != nil {
		logCtx.WithError(err).Error("WS Handler: Failed to prepare session")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Sync service unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		logCtx.WithError(err).Warn("WS Handler: Failed to upgrade connection")
		client.Abort()
		return
	}

	logCtx.WithField("session_id", client.SessionID()).Info("WS Handler: Connection upgraded to WebSocket")
	client.Activate(conn)
}

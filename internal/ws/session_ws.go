package ws

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"leadchat-service/internal/access"
	"leadchat-service/internal/middleware"
	"leadchat-service/internal/models"
	"leadchat-service/internal/observability"
	"leadchat-service/internal/repositories"
)

// SessionWebSocketHandler subscribes dashboard sessions to the event
// stream of one messaging identity.
type SessionWebSocketHandler struct {
	hub      *Hub
	verifier *middleware.TokenVerifier
	users    repositories.UserRepository
	gate     *access.Gate
}

// NewSessionWebSocketHandler constructs a SessionWebSocketHandler.
func NewSessionWebSocketHandler(hub *Hub, verifier *middleware.TokenVerifier, users repositories.UserRepository, gate *access.Gate) *SessionWebSocketHandler {
	return &SessionWebSocketHandler{hub: hub, verifier: verifier, users: users, gate: gate}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, authorizes the requested session scope server
// side, upgrades the connection and registers the client. A requester
// may only subscribe to GLOBAL or to their own personal session key.
func (h *SessionWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("leadchat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	userID, err := h.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := h.users.Get(ctx, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	if err := h.gate.Authorize(user, access.CapViewChat); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "chat access denied"})
		return
	}

	sessionKey := c.DefaultQuery("session", models.SessionKeyGlobal)
	if sessionKey != models.SessionKeyGlobal && sessionKey != strconv.Itoa(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(sessionKey, conn, info)

	scope := ScopeLabel(sessionKey)
	observability.IncWSActive(scope)
	observability.IncWSEvent(scope, "ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.sessions", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"session_key": sessionKey,
				"event":       "ws_connect",
				"conn_id":     info.ConnID,
			},
			"identity": map[string]interface{}{
				"user_id": info.UserID,
				"ip":      info.IP,
			},
		},
	}, observability.BuildHeaders(requestID, traceID))

	// Keep connection alive and clean up on close.
	go func() {
		defer func() {
			h.hub.RemoveClient(sessionKey, conn)
			observability.DecWSActive(scope)
			observability.IncWSEvent(scope, "ws_disconnect")
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(scope, "ws_error")
				}
				return
			}
		}
	}()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && (header[:7] == "Bearer " || header[:7] == "bearer ") {
		return header[7:]
	}
	return c.Query("token")
}

package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"leadchat-service/internal/models"
	"leadchat-service/internal/observability"
)

// Hub maintains active dashboard websocket connections, grouped by the
// messaging session key they are subscribed to. Events for one session
// key are only ever written to that key's room; scoping is enforced
// here, not in the client.
type Hub struct {
	rooms    map[string]map[*websocket.Conn]*roomClient
	connInfo map[string]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// roomClient pairs a connection with its write mutex. The websocket
// library allows at most one concurrent writer per connection, so every
// write must go through write.
type roomClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *roomClient) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*websocket.Conn]*roomClient),
		connInfo: make(map[string]map[*websocket.Conn]ConnInfo),
	}
}

// AddClient registers a websocket connection under a session key.
func (h *Hub) AddClient(sessionKey string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[sessionKey]; !ok {
		h.rooms[sessionKey] = make(map[*websocket.Conn]*roomClient)
	}
	h.rooms[sessionKey][conn] = &roomClient{conn: conn}
	if _, ok := h.connInfo[sessionKey]; !ok {
		h.connInfo[sessionKey] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[sessionKey][conn] = info
}

// RemoveClient removes a websocket connection.
func (h *Hub) RemoveClient(sessionKey string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[sessionKey]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, sessionKey)
		}
	}
	if infos, ok := h.connInfo[sessionKey]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, sessionKey)
		}
	}
}

// Broadcast writes the event to every connection subscribed to the
// event's session key and to no one else. Broadcasts may run
// concurrently; writes to one connection are serialized by its
// roomClient mutex.
func (h *Hub) Broadcast(sessionKey string, event models.WSEvent) {
	event.SessionKey = sessionKey

	h.mu.RLock()
	clients := make([]*roomClient, 0, len(h.rooms[sessionKey]))
	for _, client := range h.rooms[sessionKey] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, client := range clients {
		if err := client.write(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			client.conn.Close()
			h.publishWSError(sessionKey, client.conn, err)
			h.RemoveClient(sessionKey, client.conn)
		}
	}
}

func (h *Hub) publishWSError(sessionKey string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(sessionKey, conn)
	if !ok {
		return
	}

	scope := ScopeLabel(sessionKey)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"session_key": sessionKey,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id": info.UserID,
			"ip":      info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.sessions", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(scope, "ws_error")
}

func (h *Hub) getConnInfo(sessionKey string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[sessionKey]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

// ScopeLabel maps a session key to the metric scope label.
func ScopeLabel(sessionKey string) string {
	if sessionKey == models.SessionKeyGlobal {
		return "global"
	}
	return "personal"
}

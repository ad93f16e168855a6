package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadchat-service/internal/models"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient(models.SessionKeyGlobal, nil, ConnInfo{})
	if len(hub.rooms) != 1 {
		t.Fatalf("expected room to be created")
	}

	hub.RemoveClient(models.SessionKeyGlobal, nil)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected room to be removed")
	}
}

func TestHubRoomsAreScopedBySessionKey(t *testing.T) {
	hub := NewHub()

	hub.AddClient("7", nil, ConnInfo{UserID: 7})
	hub.AddClient("9", nil, ConnInfo{UserID: 9})

	assert.Len(t, hub.rooms, 2)
	assert.NotContains(t, hub.rooms["7"], hub.rooms["9"])
}

// dialPair registers a live websocket connection under the given
// session key and returns the client side.
func dialPair(t *testing.T, hub *Hub, sessionKey string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.AddClient(sessionKey, conn, ConnInfo{ConnID: newConnID(), ConnectedAt: time.Now()})
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestBroadcastCrossSessionIsolation(t *testing.T) {
	hub := NewHub()

	clientA := dialPair(t, hub, "7")
	clientB := dialPair(t, hub, "9")

	hub.Broadcast("7", models.WSEvent{
		Type:    models.WSEventMessage,
		Message: &models.Message{ID: "m1", ChatID: "5514997603870@s.whatsapp.net", Body: "hello"},
	})

	// Subscriber of session 7 receives the event.
	clientA.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := clientA.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"sessionId":"7"`)
	assert.Contains(t, string(payload), "hello")

	// Subscriber of session 9 must not.
	clientB.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err = clientB.ReadMessage()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline"))
}

// Two event sources can broadcast into the same room at once: the
// provider event goroutine and an HTTP send handler. Writes to one
// connection must be serialized or the websocket library panics.
func TestConcurrentBroadcastsToOneRoom(t *testing.T) {
	hub := NewHub()
	client := dialPair(t, hub, models.SessionKeyGlobal)

	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				hub.Broadcast(models.SessionKeyGlobal, models.WSEvent{
					Type:    models.WSEventMessage,
					Message: &models.Message{ID: "m1", ChatID: "5514997603870@s.whatsapp.net", Body: "hello"},
				})
			}
		}()
	}

	for i := 0; i < 2*perWriter; i++ {
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(payload), "hello")
	}
	wg.Wait()
}

func TestBroadcastStampsSessionKey(t *testing.T) {
	hub := NewHub()
	client := dialPair(t, hub, models.SessionKeyGlobal)

	// Even a mislabeled event payload goes out stamped with the room's
	// own session key.
	hub.Broadcast(models.SessionKeyGlobal, models.WSEvent{Type: models.WSEventAck, SessionKey: "9", MsgID: "m2", Ack: models.AckRead})

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"sessionId":"GLOBAL"`)
}

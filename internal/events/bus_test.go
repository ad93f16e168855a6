package events

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"leadchat-service/internal/mocks"
	"leadchat-service/internal/models"
	"leadchat-service/internal/repositories"
	"leadchat-service/internal/whatsapp"
)

type recordingHub struct {
	mu     sync.Mutex
	events []models.WSEvent
	keys   []string
}

func (h *recordingHub) Broadcast(sessionKey string, event models.WSEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys = append(h.keys, sessionKey)
	h.events = append(h.events, event)
}

func (h *recordingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

type stubClient struct {
	connected bool
	nextID    string
}

func (s *stubClient) Connect(ctx context.Context) error                  { s.connected = true; return nil }
func (s *stubClient) Disconnect()                                        { s.connected = false }
func (s *stubClient) Logout(ctx context.Context) error                   { return nil }
func (s *stubClient) IsConnected() bool                                  { return s.connected }
func (s *stubClient) AvatarURL(ctx context.Context, chatID string) (string, error) { return "", nil }

func (s *stubClient) SendText(ctx context.Context, chatID, body string) (string, error) {
	return s.nextID, nil
}

func (s *stubClient) SendMedia(ctx context.Context, chatID string, data []byte, mimeType, caption, messageType string) (string, error) {
	return s.nextID, nil
}

func newBusFixture(t *testing.T) (*Bus, *mocks.MemoryMessageStore, *recordingHub, *stubClient) {
	t.Helper()
	store := mocks.NewMemoryMessageStore()
	hub := &recordingHub{}
	client := &stubClient{nextID: "out-1"}
	manager := whatsapp.NewManager(func(sessionKey string, emit whatsapp.Handler) (whatsapp.Client, error) {
		return client, nil
	})
	bus := NewBus(store, hub, manager)
	require.NoError(t, manager.StartSession(context.Background(), models.SessionKeyGlobal))
	return bus, store, hub, client
}

func TestInboundMessagePersistedThenBroadcast(t *testing.T) {
	bus, store, hub, _ := newBusFixture(t)

	msg := models.Message{ID: "in-1", ChatID: "5514997603870@s.whatsapp.net", Body: "oi", Timestamp: 100, Ack: models.AckDelivered}
	bus.HandleEvent(whatsapp.Event{Kind: whatsapp.EventMessage, SessionKey: models.SessionKeyGlobal, Message: &msg})

	stored, ok := store.Get("in-1")
	require.True(t, ok)
	assert.Equal(t, "oi", stored.Body)

	require.Equal(t, 1, hub.count())
	assert.Equal(t, models.WSEventMessage, hub.events[0].Type)
	assert.Equal(t, models.SessionKeyGlobal, hub.keys[0])
}

func TestPersistenceFailureSuppressesBroadcast(t *testing.T) {
	store := new(mocks.MessageRepositoryMock)
	hub := &recordingHub{}
	manager := whatsapp.NewManager(func(sessionKey string, emit whatsapp.Handler) (whatsapp.Client, error) {
		return &stubClient{}, nil
	})
	bus := NewBus(store, hub, manager)

	store.On("Append", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	msg := models.Message{ID: "in-2", ChatID: "5514997603870@s.whatsapp.net"}
	bus.HandleEvent(whatsapp.Event{Kind: whatsapp.EventMessage, SessionKey: models.SessionKeyGlobal, Message: &msg})

	assert.Equal(t, 0, hub.count())
	store.AssertExpectations(t)
}

func TestAckMonotonicity(t *testing.T) {
	bus, store, _, _ := newBusFixture(t)

	require.NoError(t, store.Append(context.Background(), models.Message{ID: "m1", ChatID: "c"}))

	for _, level := range []int{2, 1, 3, 2} {
		bus.HandleEvent(whatsapp.Event{Kind: whatsapp.EventAck, SessionKey: models.SessionKeyGlobal, AckIDs: []string{"m1"}, AckLevel: level})
	}

	stored, ok := store.Get("m1")
	require.True(t, ok)
	assert.Equal(t, models.AckRead, stored.Ack)
}

func TestSendThenSeeOwnMessage(t *testing.T) {
	bus, store, hub, client := newBusFixture(t)
	client.nextID = "out-42"

	chatID := "5514997603870@s.whatsapp.net"
	sent, err := bus.SendText(context.Background(), models.SessionKeyGlobal, chatID, "hi")
	require.NoError(t, err)
	assert.Equal(t, "out-42", sent.ID)
	assert.True(t, sent.FromMe)
	assert.Equal(t, models.AckQueued, sent.Ack)

	msgs, err := store.ListByChat(context.Background(), chatID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.True(t, msgs[0].FromMe)

	summaries, err := store.ListDistinctChats(context.Background(), repositories.AllChats)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "hi", summaries[0].LastBody)

	// Sender's own viewers got the broadcast too.
	require.Equal(t, 1, hub.count())
	assert.Equal(t, models.WSEventMessage, hub.events[0].Type)
}

func TestSendNotConnectedFailsFast(t *testing.T) {
	bus, _, hub, client := newBusFixture(t)
	client.Disconnect()

	_, err := bus.SendText(context.Background(), models.SessionKeyGlobal, "5514997603870@s.whatsapp.net", "hi")
	assert.ErrorIs(t, err, whatsapp.ErrNotConnected)
	assert.Equal(t, 0, hub.count())
}

func TestStatusAndQRBroadcast(t *testing.T) {
	bus, _, hub, _ := newBusFixture(t)

	bus.HandleEvent(whatsapp.Event{Kind: whatsapp.EventStatus, SessionKey: "7", Status: models.SessionDisconnected})
	bus.HandleEvent(whatsapp.Event{Kind: whatsapp.EventQR, SessionKey: "7", QR: "challenge"})

	require.Equal(t, 2, hub.count())
	assert.Equal(t, models.WSEventStatus, hub.events[0].Type)
	assert.Equal(t, "7", hub.keys[0])
	assert.Equal(t, models.WSEventQR, hub.events[1].Type)
	assert.Equal(t, "challenge", hub.events[1].QR)
}

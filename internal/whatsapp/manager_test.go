package whatsapp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadchat-service/internal/models"
)

var assertAnError = errors.New("connect refused")

type fakeClient struct {
	mu         sync.Mutex
	connected  bool
	connects   int
	connectErr error
	sent       []string
	emit       Handler
}

func (f *fakeClient) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connects++
	if f.connectErr != nil {
		err := f.connectErr
		f.mu.Unlock()
		return err
	}
	f.connected = true
	f.mu.Unlock()
	f.emit(Event{Kind: EventStatus, Status: models.SessionConnected})
	return nil
}

func (f *fakeClient) failConnects(err error) {
	f.mu.Lock()
	f.connectErr = err
	f.mu.Unlock()
}

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.Disconnect()
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) SendText(ctx context.Context, chatID, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, body)
	return "msg-1", nil
}

func (f *fakeClient) SendMedia(ctx context.Context, chatID string, data []byte, mimeType, caption, messageType string) (string, error) {
	return "media-1", nil
}

func (f *fakeClient) AvatarURL(ctx context.Context, chatID string) (string, error) {
	return "", nil
}

func (f *fakeClient) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func newFakeManager(t *testing.T) (*Manager, *fakeClient, *[]Event) {
	t.Helper()
	client := &fakeClient{}
	manager := NewManager(func(sessionKey string, emit Handler) (Client, error) {
		client.emit = emit
		return client, nil
	})

	var mu sync.Mutex
	events := []Event{}
	manager.OnEvent(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	return manager, client, &events
}

func TestStartSessionConnects(t *testing.T) {
	manager, client, _ := newFakeManager(t)

	require.NoError(t, manager.StartSession(context.Background(), models.SessionKeyGlobal))
	assert.True(t, client.IsConnected())
	assert.Equal(t, models.SessionConnected, manager.State(models.SessionKeyGlobal).Status)
}

func TestSendFailsFastWhenNotConnected(t *testing.T) {
	manager, client, _ := newFakeManager(t)
	require.NoError(t, manager.StartSession(context.Background(), models.SessionKeyGlobal))

	client.Disconnect()
	_, err := manager.SendText(context.Background(), models.SessionKeyGlobal, "5514997603870@s.whatsapp.net", "hi")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSendUnknownSessionFailsFast(t *testing.T) {
	manager, _, _ := newFakeManager(t)

	_, err := manager.SendText(context.Background(), "42", "5514997603870@s.whatsapp.net", "hi")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestDisconnectTriggersSingleReconnect(t *testing.T) {
	manager, client, _ := newFakeManager(t)
	require.NoError(t, manager.StartSession(context.Background(), models.SessionKeyGlobal))
	require.Equal(t, 1, client.connectCount())

	// Reconnect attempt runs once even though it keeps failing.
	client.failConnects(assertAnError)
	client.Disconnect()
	client.emit(Event{Kind: EventStatus, Status: models.SessionDisconnected})

	require.Eventually(t, func() bool {
		return client.connectCount() == 2
	}, time.Second, 10*time.Millisecond)

	// Further disconnect events before a successful reconnect must not
	// start more attempts.
	client.emit(Event{Kind: EventStatus, Status: models.SessionDisconnected})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, client.connectCount())
}

func TestQRChallengeTracked(t *testing.T) {
	manager, client, _ := newFakeManager(t)
	require.NoError(t, manager.StartSession(context.Background(), models.SessionKeyGlobal))

	client.emit(Event{Kind: EventQR, QR: "pairing-payload"})

	qr, err := manager.LastQR(models.SessionKeyGlobal)
	require.NoError(t, err)
	assert.Equal(t, "pairing-payload", qr)
	assert.Equal(t, models.SessionAuthenticating, manager.State(models.SessionKeyGlobal).Status)

	// Connecting clears the pending challenge.
	client.emit(Event{Kind: EventStatus, Status: models.SessionConnected})
	_, err = manager.LastQR(models.SessionKeyGlobal)
	assert.Error(t, err)
}

func TestEventsCarrySessionKey(t *testing.T) {
	manager, client, events := newFakeManager(t)
	require.NoError(t, manager.StartSession(context.Background(), "7"), "personal session")

	client.emit(Event{Kind: EventMessage, Message: &models.Message{ID: "m1", ChatID: "5514997603870@s.whatsapp.net"}})

	require.NotEmpty(t, *events)
	last := (*events)[len(*events)-1]
	assert.Equal(t, "7", last.SessionKey)
}

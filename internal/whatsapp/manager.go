package whatsapp

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"leadchat-service/internal/models"
)

const defaultSendTimeout = 15 * time.Second

type session struct {
	key    string
	client Client

	sendMu sync.Mutex

	mu          sync.Mutex
	status      string
	lastQR      string
	reconnected bool
}

// Manager owns one provider client per session key and is the only
// component allowed to invoke send/logout/initialize on them.
type Manager struct {
	factory     ClientFactory
	sendTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*session
	emit     Handler
}

// NewManager builds a Manager around a client factory.
func NewManager(factory ClientFactory) *Manager {
	return &Manager{
		factory:     factory,
		sendTimeout: defaultSendTimeout,
		sessions:    make(map[string]*session),
	}
}

// OnEvent registers the downstream event consumer. Must be called
// before any session starts.
func (m *Manager) OnEvent(h Handler) {
	m.emit = h
}

// StartSession creates and connects the client for a session key. Safe
// to call once per key; a second call for a live key is a no-op.
func (m *Manager) StartSession(ctx context.Context, key string) error {
	m.mu.Lock()
	if _, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return nil
	}
	s := &session{key: key, status: models.SessionDisconnected}
	m.sessions[key] = s
	m.mu.Unlock()

	client, err := m.factory(key, func(ev Event) { m.handleEvent(s, ev) })
	if err != nil {
		m.dropSession(key)
		return err
	}
	s.client = client

	s.mu.Lock()
	s.status = models.SessionAuthenticating
	s.mu.Unlock()

	if err := client.Connect(ctx); err != nil {
		m.dropSession(key)
		return err
	}
	return nil
}

func (m *Manager) dropSession(key string) {
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
}

// handleEvent keeps per-session bookkeeping current, triggers the
// single reconnect attempt on disconnect, then forwards downstream.
func (m *Manager) handleEvent(s *session, ev Event) {
	ev.SessionKey = s.key

	switch ev.Kind {
	case EventStatus:
		s.mu.Lock()
		s.status = ev.Status
		switch ev.Status {
		case models.SessionConnected:
			s.lastQR = ""
			s.reconnected = false
		case models.SessionDisconnected:
			retry := !s.reconnected
			s.reconnected = true
			s.mu.Unlock()
			if retry {
				go m.reconnect(s)
			}
			if m.emit != nil {
				m.emit(ev)
			}
			return
		}
		s.mu.Unlock()
	case EventQR:
		s.mu.Lock()
		s.status = models.SessionAuthenticating
		s.lastQR = ev.QR
		s.mu.Unlock()
	}

	if m.emit != nil {
		m.emit(ev)
	}
}

// reconnect re-initializes the client exactly once per disconnect.
func (m *Manager) reconnect(s *session) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Printf("whatsapp session %s disconnected, attempting one reconnect", s.key)
	if err := s.client.Connect(ctx); err != nil {
		log.Printf("whatsapp session %s reconnect failed: %v", s.key, err)
	}
}

func mapSendErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func (m *Manager) session(key string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s, nil
}

func (m *Manager) readySession(key string) (*session, error) {
	s, err := m.session(key)
	if err != nil {
		return nil, ErrNotConnected
	}
	if s.client == nil || !s.client.IsConnected() {
		return nil, ErrNotConnected
	}
	return s, nil
}

// SendText forwards a text message through the session's client. Calls
// for the same key are serialized; an unresponsive provider surfaces
// ErrTimeout instead of hanging the request.
func (m *Manager) SendText(ctx context.Context, key, chatID, body string) (string, error) {
	s, err := m.readySession(key)
	if err != nil {
		return "", err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	id, err := s.client.SendText(ctx, chatID, body)
	return id, mapSendErr(err)
}

// SendMedia forwards a media message through the session's client.
func (m *Manager) SendMedia(ctx context.Context, key, chatID string, data []byte, mimeType, caption, messageType string) (string, error) {
	s, err := m.readySession(key)
	if err != nil {
		return "", err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	id, err := s.client.SendMedia(ctx, chatID, data, mimeType, caption, messageType)
	return id, mapSendErr(err)
}

// Logout logs the session out of the provider.
func (m *Manager) Logout(ctx context.Context, key string) error {
	s, err := m.session(key)
	if err != nil {
		return err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.client.Logout(ctx)
}

// AvatarURL fetches a chat avatar, preferring the global session and
// falling back to any connected one. Best-effort.
func (m *Manager) AvatarURL(ctx context.Context, chatID string) (string, error) {
	if s, err := m.readySession(models.SessionKeyGlobal); err == nil {
		return s.client.AvatarURL(ctx, chatID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.client != nil && s.client.IsConnected() {
			return s.client.AvatarURL(ctx, chatID)
		}
	}
	return "", ErrNotConnected
}

// State reports the externally visible state of a session.
func (m *Manager) State(key string) models.SessionState {
	s, err := m.session(key)
	if err != nil {
		return models.SessionState{SessionKey: key, Status: models.SessionDisconnected}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionState{SessionKey: key, Status: s.status, QR: s.lastQR}
}

// LastQR returns the pending pairing challenge for a session, if any.
func (m *Manager) LastQR(key string) (string, error) {
	s, err := m.session(key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastQR == "" {
		return "", errors.New("no pending qr challenge")
	}
	return s.lastQR, nil
}

// Package whatsapp owns the messaging provider boundary: a normalized
// event type emitted by client adapters, and a session manager that
// serializes access to the underlying clients per session key.
package whatsapp

import (
	"context"
	"errors"

	"leadchat-service/internal/models"
)

var (
	// ErrNotConnected means the session has no active provider
	// connection. Callers surface it immediately, no retry.
	ErrNotConnected = errors.New("messaging session not connected")
	// ErrTimeout means the provider call exceeded its deadline.
	// Retryable by the caller, never retried automatically.
	ErrTimeout = errors.New("provider call timed out")
	// ErrUnknownSession means no session exists for the key.
	ErrUnknownSession = errors.New("unknown messaging session")
)

// EventKind discriminates normalized provider events.
type EventKind string

const (
	EventMessage EventKind = "message"
	EventAck     EventKind = "ack"
	EventStatus  EventKind = "status"
	EventQR      EventKind = "qr"
)

// Event is the normalized form of a provider callback, scoped to the
// session it originated from.
type Event struct {
	Kind       EventKind
	SessionKey string
	Message    *models.Message
	AckIDs     []string
	AckLevel   int
	Status     string
	QR         string
}

// Handler consumes normalized events.
type Handler func(Event)

// Client is the adapter interface over one provider connection. The
// underlying library is not safe under concurrent invocation; the
// session manager serializes calls.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect()
	Logout(ctx context.Context) error
	IsConnected() bool
	SendText(ctx context.Context, chatID, body string) (string, error)
	SendMedia(ctx context.Context, chatID string, data []byte, mimeType, caption, messageType string) (string, error)
	AvatarURL(ctx context.Context, chatID string) (string, error)
}

// ClientFactory builds a client for a session key, wiring its events
// into the given handler.
type ClientFactory func(sessionKey string, emit Handler) (Client, error)

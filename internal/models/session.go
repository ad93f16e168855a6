package models

// SessionKeyGlobal scopes the shared company WhatsApp number. Personal
// numbers use the owning user id as their session key.
const SessionKeyGlobal = "GLOBAL"

// Messaging session statuses. Process-lifetime state, never persisted.
const (
	SessionDisconnected   = "DISCONNECTED"
	SessionAuthenticating = "AUTHENTICATING"
	SessionConnected      = "CONNECTED"
)

// SessionState is the externally visible state of one messaging session.
type SessionState struct {
	SessionKey string `json:"session_id"`
	Status     string `json:"status"`
	QR         string `json:"qr,omitempty"`
}

// WebSocket event names pushed to dashboard sessions.
const (
	WSEventStatus  = "whatsapp_status"
	WSEventQR      = "whatsapp_qr"
	WSEventMessage = "whatsapp_message"
	WSEventAck     = "whatsapp_ack"
)

// WSEvent is the envelope written to subscribed dashboard sockets. The
// hub only delivers it to connections registered under SessionKey.
type WSEvent struct {
	Type       string   `json:"type"`
	SessionKey string   `json:"sessionId"`
	Status     string   `json:"status,omitempty"`
	QR         string   `json:"qr,omitempty"`
	Message    *Message `json:"message,omitempty"`
	MsgID      string   `json:"msgId,omitempty"`
	Ack        int      `json:"ack,omitempty"`
}

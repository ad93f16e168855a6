package models

// Ack levels as reported by the messaging provider. Updates are
// monotonic: a stored level is never lowered by a late receipt.
const (
	AckQueued    = 0
	AckSent      = 1
	AckDelivered = 2
	AckRead      = 3
)

// Message types understood by the dashboard.
const (
	MessageTypeText     = "text"
	MessageTypeAudio    = "audio-note"
	MessageTypeImage    = "image"
	MessageTypeDocument = "document"
	MessageTypeVideo    = "video"
)

// Message represents one exchanged chat message, keyed by the
// provider-assigned message id.
type Message struct {
	ID          string `db:"id" json:"id"`
	ChatID      string `db:"chat_id" json:"chat_id"`
	FromMe      bool   `db:"from_me" json:"from_me"`
	SenderName  string `db:"sender_name" json:"sender_name"`
	Body        string `db:"body" json:"body"`
	MessageType string `db:"message_type" json:"message_type"`
	Timestamp   int64  `db:"ts" json:"timestamp"`
	Ack         int    `db:"ack" json:"ack"`
}

// ChatSummary is one row of the distinct-chat listing: the chat id plus
// the most recent message in it.
type ChatSummary struct {
	ChatID        string `db:"chat_id" json:"chat_id"`
	LastBody      string `db:"last_body" json:"last_body"`
	LastSender    string `db:"last_sender" json:"last_sender"`
	LastTimestamp int64  `db:"last_ts" json:"last_timestamp"`
}

// Conversation is the derived per-chat view consumed by the dashboard.
// It is recomputed on demand and never persisted.
type Conversation struct {
	ChatID             string  `json:"chat_id"`
	LeadID             *int    `json:"lead_id,omitempty"`
	DisplayName        string  `json:"display_name"`
	LastMessagePreview string  `json:"last_message_preview"`
	LastTimestamp      int64   `json:"last_timestamp"`
	UnreadCount        int     `json:"unread_count"`
	IsRead             bool    `json:"is_read"`
	Avatar             *string `json:"avatar,omitempty"`
}

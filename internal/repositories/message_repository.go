package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"leadchat-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// ChatFilter restricts store reads to a visible set of chat ids. The
// zero value matches nothing; use AllChats for unrestricted access.
type ChatFilter struct {
	All     bool
	ChatIDs []string
}

// AllChats matches every chat in the store.
var AllChats = ChatFilter{All: true}

// Empty reports whether the filter can never match a chat.
func (f ChatFilter) Empty() bool {
	return !f.All && len(f.ChatIDs) == 0
}

// MessageRepository is the persistence boundary for chat messages and
// delivery acknowledgements.
type MessageRepository interface {
	Append(ctx context.Context, msg models.Message) error
	UpdateAck(ctx context.Context, messageID string, ack int) error
	ListByChat(ctx context.Context, chatID string) ([]models.Message, error)
	ListDistinctChats(ctx context.Context, filter ChatFilter) ([]models.ChatSummary, error)
	CountUnreadByChat(ctx context.Context, filter ChatFilter) (map[string]int, error)
	MarkChatRead(ctx context.Context, chatID string) error
	DeleteChat(ctx context.Context, chatID string) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores a message. Redelivered provider ids are ignored so the
// id stays unique across the store.
func (r *MessageRepo) Append(ctx context.Context, msg models.Message) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (id, chat_id, from_me, sender_name, body, message_type, ts, ack)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.ChatID, msg.FromMe, msg.SenderName, msg.Body, msg.MessageType, msg.Timestamp, msg.Ack)
	return err
}

// UpdateAck raises the stored ack level. Receipts arriving out of order
// never lower it: highest-seen value wins.
func (r *MessageRepo) UpdateAck(ctx context.Context, messageID string, ack int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET ack=$2 WHERE id=$1 AND ack < $2`, messageID, ack)
	return err
}

// ListByChat returns the chat's messages ordered by provider timestamp.
func (r *MessageRepo) ListByChat(ctx context.Context, chatID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, chat_id, from_me, sender_name, body, message_type, ts, ack
        FROM messages WHERE chat_id=$1 ORDER BY ts ASC, id ASC`, chatID)
	return msgs, err
}

// ListDistinctChats returns one summary row per chat under the filter,
// most recent message first, ties broken by chat id.
func (r *MessageRepo) ListDistinctChats(ctx context.Context, filter ChatFilter) ([]models.ChatSummary, error) {
	if filter.Empty() {
		return nil, nil
	}
	query := `SELECT chat_id, last_body, last_sender, last_ts FROM (
            SELECT DISTINCT ON (chat_id) chat_id, body AS last_body, sender_name AS last_sender, ts AS last_ts
            FROM messages %s
            ORDER BY chat_id, ts DESC, id DESC
        ) latest ORDER BY last_ts DESC, chat_id ASC`

	var summaries []models.ChatSummary
	var err error
	if filter.All {
		err = r.db.SelectContext(ctx, &summaries, sprintfQuery(query, ""))
	} else {
		err = r.db.SelectContext(ctx, &summaries, sprintfQuery(query, "WHERE chat_id = ANY($1)"), pq.Array(filter.ChatIDs))
	}
	return summaries, err
}

// CountUnreadByChat counts inbound messages below the read threshold,
// grouped by chat.
func (r *MessageRepo) CountUnreadByChat(ctx context.Context, filter ChatFilter) (map[string]int, error) {
	if filter.Empty() {
		return map[string]int{}, nil
	}
	query := `SELECT chat_id, COUNT(*) AS unread FROM messages
        WHERE from_me = FALSE AND ack < $1 %s GROUP BY chat_id`

	type row struct {
		ChatID string `db:"chat_id"`
		Unread int    `db:"unread"`
	}
	var rows []row
	var err error
	if filter.All {
		err = r.db.SelectContext(ctx, &rows, sprintfQuery(query, ""), models.AckRead)
	} else {
		err = r.db.SelectContext(ctx, &rows, sprintfQuery(query, "AND chat_id = ANY($2)"), models.AckRead, pq.Array(filter.ChatIDs))
	}
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.ChatID] = r.Unread
	}
	return counts, nil
}

// MarkChatRead raises every inbound message of the chat to read, so the
// unread count drops to zero immediately.
func (r *MessageRepo) MarkChatRead(ctx context.Context, chatID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET ack=$2 WHERE chat_id=$1 AND from_me=FALSE AND ack < $2`, chatID, models.AckRead)
	return err
}

// DeleteChat removes all messages of the chat.
func (r *MessageRepo) DeleteChat(ctx context.Context, chatID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id=$1`, chatID)
	return err
}

func sprintfQuery(query, clause string) string {
	return fmt.Sprintf(query, clause)
}

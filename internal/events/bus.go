// Package events wires the messaging provider into persistence and the
// dashboard fan-out. Inbound messages are persisted before they are
// broadcast; a failed write suppresses the broadcast, a failed
// broadcast never blocks the write.
package events

import (
	"context"
	"log"
	"time"

	"leadchat-service/internal/models"
	"leadchat-service/internal/observability"
	"leadchat-service/internal/repositories"
	"leadchat-service/internal/whatsapp"
)

// Broadcaster fans events out to subscribed dashboard sessions.
type Broadcaster interface {
	Broadcast(sessionKey string, event models.WSEvent)
}

// Bus is the realtime event pipeline between the provider sessions, the
// message store and the websocket hub.
type Bus struct {
	store    repositories.MessageRepository
	hub      Broadcaster
	sessions *whatsapp.Manager
}

// NewBus builds the bus and registers it as the session manager's event
// consumer.
func NewBus(store repositories.MessageRepository, hub Broadcaster, sessions *whatsapp.Manager) *Bus {
	b := &Bus{store: store, hub: hub, sessions: sessions}
	sessions.OnEvent(b.HandleEvent)
	return b
}

// HandleEvent ingests one normalized provider event.
func (b *Bus) HandleEvent(ev whatsapp.Event) {
	observability.IncProviderEvent(string(ev.Kind))
	ctx := context.Background()

	switch ev.Kind {
	case whatsapp.EventMessage:
		if err := b.persistAndBroadcast(ctx, ev.SessionKey, ev.Message); err != nil {
			log.Printf("message %s not persisted, broadcast suppressed: %v", ev.Message.ID, err)
		}
	case whatsapp.EventAck:
		for _, id := range ev.AckIDs {
			if err := b.store.UpdateAck(ctx, id, ev.AckLevel); err != nil {
				observability.IncPersistFailure()
				log.Printf("ack update for %s failed: %v", id, err)
				continue
			}
			b.hub.Broadcast(ev.SessionKey, models.WSEvent{Type: models.WSEventAck, MsgID: id, Ack: ev.AckLevel})
		}
	case whatsapp.EventStatus:
		b.hub.Broadcast(ev.SessionKey, models.WSEvent{Type: models.WSEventStatus, Status: ev.Status})
	case whatsapp.EventQR:
		b.hub.Broadcast(ev.SessionKey, models.WSEvent{Type: models.WSEventQR, QR: ev.QR})
	}
}

func (b *Bus) persistAndBroadcast(ctx context.Context, sessionKey string, msg *models.Message) error {
	if err := b.store.Append(ctx, *msg); err != nil {
		observability.IncPersistFailure()
		return err
	}
	b.hub.Broadcast(sessionKey, models.WSEvent{Type: models.WSEventMessage, Message: msg})
	return nil
}

// SendText forwards a text message to the provider and runs the
// resulting local message through the same persist-then-broadcast path
// as inbound traffic, so sender and viewers see one timeline.
func (b *Bus) SendText(ctx context.Context, sessionKey, chatID, body string) (models.Message, error) {
	id, err := b.sessions.SendText(ctx, sessionKey, chatID, body)
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:          id,
		ChatID:      chatID,
		FromMe:      true,
		Body:        body,
		MessageType: models.MessageTypeText,
		Timestamp:   time.Now().Unix(),
		Ack:         models.AckQueued,
	}
	observability.IncProviderEvent(string(whatsapp.EventMessage))
	if err := b.persistAndBroadcast(ctx, sessionKey, &msg); err != nil {
		log.Printf("outbound message %s not persisted, broadcast suppressed: %v", msg.ID, err)
		return msg, err
	}
	return msg, nil
}

// SendMedia forwards a media payload, storing a caption or placeholder
// body in the local timeline entry.
func (b *Bus) SendMedia(ctx context.Context, sessionKey, chatID string, data []byte, mimeType, caption, messageType string) (models.Message, error) {
	id, err := b.sessions.SendMedia(ctx, sessionKey, chatID, data, mimeType, caption, messageType)
	if err != nil {
		return models.Message{}, err
	}

	body := caption
	if body == "" {
		body = "[" + messageType + "]"
	}
	msg := models.Message{
		ID:          id,
		ChatID:      chatID,
		FromMe:      true,
		Body:        body,
		MessageType: messageType,
		Timestamp:   time.Now().Unix(),
		Ack:         models.AckQueued,
	}
	observability.IncProviderEvent(string(whatsapp.EventMessage))
	if err := b.persistAndBroadcast(ctx, sessionKey, &msg); err != nil {
		log.Printf("outbound message %s not persisted, broadcast suppressed: %v", msg.ID, err)
		return msg, err
	}
	return msg, nil
}

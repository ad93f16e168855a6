package whatsapp

import (
	"context"
	"fmt"
	"log"
	"strings"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"leadchat-service/internal/models"
)

// MeowClient adapts a whatsmeow client to the Client interface and
// translates its callbacks into normalized events.
type MeowClient struct {
	cli  *whatsmeow.Client
	emit Handler
}

// NewContainer opens the whatsmeow session store on the given Postgres
// DSN.
func NewContainer(ctx context.Context, dsn string) (*sqlstore.Container, error) {
	return sqlstore.New(ctx, "postgres", dsn, waLog.Noop)
}

// NewFactory builds a ClientFactory backed by one sqlstore container.
// The global session reuses the first persisted device; personal
// sessions pair a fresh device.
func NewFactory(container *sqlstore.Container) ClientFactory {
	return func(sessionKey string, emit Handler) (Client, error) {
		ctx := context.Background()

		dev, err := container.GetFirstDevice(ctx)
		if err != nil {
			return nil, fmt.Errorf("load device: %w", err)
		}
		if sessionKey != models.SessionKeyGlobal {
			dev = container.NewDevice()
		}

		mc := &MeowClient{emit: emit}
		mc.cli = whatsmeow.NewClient(dev, waLog.Noop)
		mc.cli.AddEventHandler(mc.handleEvent)
		return mc, nil
	}
}

// Connect opens the provider connection, streaming pairing QR codes as
// events while the device is not yet registered.
func (m *MeowClient) Connect(ctx context.Context) error {
	if m.cli.Store.ID == nil {
		qrChan, err := m.cli.GetQRChannel(ctx)
		if err != nil {
			return err
		}
		go func() {
			for item := range qrChan {
				if item.Event == "code" {
					m.emit(Event{Kind: EventQR, QR: item.Code})
				}
			}
		}()
	}
	return m.cli.Connect()
}

// Disconnect closes the connection without logging out.
func (m *MeowClient) Disconnect() {
	m.cli.Disconnect()
}

// Logout unpairs the device.
func (m *MeowClient) Logout(ctx context.Context) error {
	return m.cli.Logout(ctx)
}

// IsConnected reports whether the provider socket is up.
func (m *MeowClient) IsConnected() bool {
	return m.cli.IsConnected()
}

// SendText sends a plain text message and returns the provider id.
func (m *MeowClient) SendText(ctx context.Context, chatID, body string) (string, error) {
	jid, err := parseChatJID(chatID)
	if err != nil {
		return "", err
	}

	resp, err := m.cli.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(body)})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SendMedia uploads the payload and sends the matching media message.
func (m *MeowClient) SendMedia(ctx context.Context, chatID string, data []byte, mimeType, caption, messageType string) (string, error) {
	jid, err := parseChatJID(chatID)
	if err != nil {
		return "", err
	}

	mediaType := whatsmeow.MediaDocument
	switch messageType {
	case models.MessageTypeImage:
		mediaType = whatsmeow.MediaImage
	case models.MessageTypeAudio:
		mediaType = whatsmeow.MediaAudio
	case models.MessageTypeVideo:
		mediaType = whatsmeow.MediaVideo
	}

	up, err := m.cli.Upload(ctx, data, mediaType)
	if err != nil {
		return "", err
	}

	length := proto.Uint64(uint64(len(data)))
	var msg waE2E.Message
	switch messageType {
	case models.MessageTypeImage:
		msg.ImageMessage = &waE2E.ImageMessage{
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath),
			MediaKey: up.MediaKey, Mimetype: proto.String(mimeType),
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256,
			FileLength: length, Caption: proto.String(caption),
		}
	case models.MessageTypeAudio:
		msg.AudioMessage = &waE2E.AudioMessage{
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath),
			MediaKey: up.MediaKey, Mimetype: proto.String(mimeType),
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256,
			FileLength: length, PTT: proto.Bool(true),
		}
	case models.MessageTypeVideo:
		msg.VideoMessage = &waE2E.VideoMessage{
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath),
			MediaKey: up.MediaKey, Mimetype: proto.String(mimeType),
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256,
			FileLength: length, Caption: proto.String(caption),
		}
	default:
		msg.DocumentMessage = &waE2E.DocumentMessage{
			URL: proto.String(up.URL), DirectPath: proto.String(up.DirectPath),
			MediaKey: up.MediaKey, Mimetype: proto.String(mimeType),
			FileEncSHA256: up.FileEncSHA256, FileSHA256: up.FileSHA256,
			FileLength: length, FileName: proto.String(caption),
		}
	}

	resp, err := m.cli.SendMessage(ctx, jid, &msg)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// AvatarURL fetches the chat's profile picture URL.
func (m *MeowClient) AvatarURL(ctx context.Context, chatID string) (string, error) {
	jid, err := parseChatJID(chatID)
	if err != nil {
		return "", err
	}

	info, err := m.cli.GetProfilePictureInfo(ctx, jid, &whatsmeow.GetProfilePictureParams{Preview: true})
	if err != nil || info == nil {
		return "", err
	}
	return info.URL, nil
}

func (m *MeowClient) handleEvent(raw interface{}) {
	switch evt := raw.(type) {
	case *events.Message:
		m.emit(Event{Kind: EventMessage, Message: normalizeMessage(evt)})
	case *events.Receipt:
		level := models.AckDelivered
		if evt.Type == types.ReceiptTypeRead {
			level = models.AckRead
		}
		ids := make([]string, len(evt.MessageIDs))
		for i, id := range evt.MessageIDs {
			ids[i] = string(id)
		}
		m.emit(Event{Kind: EventAck, AckIDs: ids, AckLevel: level})
	case *events.Connected:
		m.emit(Event{Kind: EventStatus, Status: models.SessionConnected})
	case *events.Disconnected:
		m.emit(Event{Kind: EventStatus, Status: models.SessionDisconnected})
	case *events.LoggedOut:
		log.Printf("whatsapp device logged out: %v", evt.Reason)
		m.emit(Event{Kind: EventStatus, Status: models.SessionDisconnected})
	}
}

func normalizeMessage(evt *events.Message) *models.Message {
	body := evt.Message.GetConversation()
	if body == "" {
		body = evt.Message.GetExtendedTextMessage().GetText()
	}
	messageType := models.MessageTypeText
	switch {
	case evt.Message.GetImageMessage() != nil:
		messageType = models.MessageTypeImage
		body = evt.Message.GetImageMessage().GetCaption()
	case evt.Message.GetAudioMessage() != nil:
		messageType = models.MessageTypeAudio
	case evt.Message.GetVideoMessage() != nil:
		messageType = models.MessageTypeVideo
		body = evt.Message.GetVideoMessage().GetCaption()
	case evt.Message.GetDocumentMessage() != nil:
		messageType = models.MessageTypeDocument
		body = evt.Message.GetDocumentMessage().GetFileName()
	}

	ack := models.AckDelivered
	if evt.Info.IsFromMe {
		ack = models.AckSent
	}

	return &models.Message{
		ID:          evt.Info.ID,
		ChatID:      evt.Info.Chat.String(),
		FromMe:      evt.Info.IsFromMe,
		SenderName:  evt.Info.PushName,
		Body:        body,
		MessageType: messageType,
		Timestamp:   evt.Info.Timestamp.Unix(),
		Ack:         ack,
	}
}

func parseChatJID(chatID string) (types.JID, error) {
	if !strings.ContainsRune(chatID, '@') {
		return types.NewJID(chatID, types.DefaultUserServer), nil
	}

	jid, err := types.ParseJID(chatID)
	if err != nil {
		return types.JID{}, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	// Dashboard-supplied ids may carry the legacy c.us suffix.
	if jid.Server == "c.us" {
		jid.Server = types.DefaultUserServer
	}
	return jid, nil
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vincent-petithory/dataurl"

	"leadchat-service/internal/access"
	"leadchat-service/internal/conversations"
	"leadchat-service/internal/events"
	"leadchat-service/internal/middleware"
	"leadchat-service/internal/models"
	"leadchat-service/internal/repositories"
	"leadchat-service/internal/telemetry"
	"leadchat-service/internal/whatsapp"
)

// ChatHandler serves the conversation and messaging endpoints.
type ChatHandler struct {
	messages   repositories.MessageRepository
	aggregator *conversations.Aggregator
	bus        *events.Bus
	gate       *access.Gate
	audit      *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(messages repositories.MessageRepository, aggregator *conversations.Aggregator, bus *events.Bus, gate *access.Gate, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		messages:   messages,
		aggregator: aggregator,
		bus:        bus,
		gate:       gate,
		audit:      audit,
	}
}

// ListConversations returns the conversations visible to the requester.
// "No visible leads" yields an empty list; missing chat permission is a
// rejection before the aggregator runs.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapViewChat); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "chat access denied"})
		return
	}

	convs, err := h.aggregator.Build(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// GetMessages returns a chat's messages ordered by timestamp.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapViewChat); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "chat access denied"})
		return
	}

	chatID := c.Param("chatId")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing chat id"})
		return
	}

	msgs, err := h.messages.ListByChat(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MarkRead zeroes the chat's unread count.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapViewChat); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "chat access denied"})
		return
	}

	chatID := c.Param("chatId")
	if err := h.messages.MarkChatRead(c.Request.Context(), chatID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark chat read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteChat removes all of the chat's messages.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapDeleteChats); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	chatID := c.Param("chatId")
	if err := h.messages.DeleteChat(c.Request.Context(), chatID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete chat"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "chat deleted: "+chatID, requestIDFromContext(c), userIDFromContext(c))
	c.Status(http.StatusNoContent)
}

type sendCommand struct {
	To        string `json:"to" binding:"required"`
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"sessionId"`
}

// Send forwards a text message over the caller's messaging scope.
func (h *ChatHandler) Send(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapSendMessages); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	var cmd sendCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionKey, ok := resolveSessionKey(cmd.SessionID, user)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		return
	}

	msg, err := h.bus.SendText(c.Request.Context(), sessionKey, cmd.To, cmd.Message)
	if err != nil {
		writeSendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

type sendMediaCommand struct {
	To        string `json:"to" binding:"required"`
	File      string `json:"file" binding:"required"`
	Type      string `json:"type" binding:"required"`
	Caption   string `json:"caption"`
	SessionID string `json:"sessionId"`
}

// SendMedia forwards a base64 data-URL payload as a media message.
func (h *ChatHandler) SendMedia(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapSendMessages); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	var cmd sendMediaCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validMessageType(cmd.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported media type"})
		return
	}

	payload, err := dataurl.DecodeString(cmd.File)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file payload"})
		return
	}

	sessionKey, ok := resolveSessionKey(cmd.SessionID, user)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		return
	}

	msg, err := h.bus.SendMedia(c.Request.Context(), sessionKey, cmd.To, payload.Data, payload.ContentType(), cmd.Caption, cmd.Type)
	if err != nil {
		writeSendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// resolveSessionKey maps an optional requested session id onto a scope
// the requester owns. Empty means GLOBAL.
func resolveSessionKey(requested string, user models.User) (string, bool) {
	if requested == "" || requested == models.SessionKeyGlobal {
		return models.SessionKeyGlobal, true
	}
	if requested == strconv.Itoa(user.ID) {
		return requested, true
	}
	return "", false
}

func validMessageType(messageType string) bool {
	switch messageType {
	case models.MessageTypeImage, models.MessageTypeAudio, models.MessageTypeVideo, models.MessageTypeDocument:
		return true
	}
	return false
}

func writeSendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, whatsapp.ErrNotConnected):
		c.JSON(http.StatusConflict, gin.H{"error": "messaging session not connected"})
	case errors.Is(err, whatsapp.ErrTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "provider timed out, try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
	}
}

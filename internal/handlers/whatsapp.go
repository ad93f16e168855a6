package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"leadchat-service/internal/access"
	"leadchat-service/internal/middleware"
	"leadchat-service/internal/models"
	"leadchat-service/internal/telemetry"
	"leadchat-service/internal/whatsapp"
)

// WhatsAppHandler manages the messaging sessions themselves: pairing,
// status checks and logout.
type WhatsAppHandler struct {
	sessions *whatsapp.Manager
	gate     *access.Gate
	audit    *telemetry.AuditEmitter
}

func NewWhatsAppHandler(sessions *whatsapp.Manager, gate *access.Gate, audit *telemetry.AuditEmitter) *WhatsAppHandler {
	return &WhatsAppHandler{sessions: sessions, gate: gate, audit: audit}
}

// Status reports the connection state of the requested session.
func (h *WhatsAppHandler) Status(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapViewChat); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "chat access denied"})
		return
	}

	sessionKey, ok := resolveSessionKey(c.Query("sessionId"), user)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		return
	}

	state := h.sessions.State(sessionKey)
	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionKey,
		"status":    state.Status,
		"connected": state.Status == models.SessionConnected,
	})
}

// Connect starts (or restarts) the session for the requested scope. The
// QR endpoint is then polled until pairing completes.
func (h *WhatsAppHandler) Connect(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapManageConnection); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	sessionKey, ok := resolveSessionKey(c.Query("sessionId"), user)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		return
	}

	if err := h.sessions.StartSession(c.Request.Context(), sessionKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"sessionId": sessionKey, "status": h.sessions.State(sessionKey).Status})
}

// QR renders the current pairing code as a PNG. 404 while no code is
// pending (already paired, or connect not yet requested).
func (h *WhatsAppHandler) QR(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapManageConnection); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	sessionKey, ok := resolveSessionKey(c.Query("sessionId"), user)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		return
	}

	code, err := h.sessions.LastQR(sessionKey)
	if err != nil || code == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pairing code pending"})
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Logout unpairs the session and drops its stored credentials.
func (h *WhatsAppHandler) Logout(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapManageConnection); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	sessionKey, ok := resolveSessionKey(c.Query("sessionId"), user)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), sessionKey); err != nil {
		if errors.Is(err, whatsapp.ErrUnknownSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such session"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log out"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "messaging session logged out: "+sessionKey, requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"leadchat-service/internal/access"
	"leadchat-service/internal/models"
	"leadchat-service/internal/whatsapp"
)

func newWhatsAppRouter(h *WhatsAppHandler, user models.User) *gin.Engine {
	r := gin.New()
	r.Use(withUser(user))
	r.GET("/whatsapp/status", h.Status)
	r.GET("/whatsapp/qr", h.QR)
	r.POST("/whatsapp/logout", h.Logout)
	return r
}

func idleManager() *whatsapp.Manager {
	return whatsapp.NewManager(func(string, whatsapp.Handler) (whatsapp.Client, error) {
		return nil, assert.AnError
	})
}

func TestStatusReportsDisconnectedForIdleSession(t *testing.T) {
	h := NewWhatsAppHandler(idleManager(), access.NewGate(), nil)
	admin := models.User{ID: 1, Role: models.RoleSuperAdmin}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whatsapp/status", nil)
	newWhatsAppRouter(h, admin).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.SessionDisconnected)
}

func TestQRNotFoundWithoutPendingChallenge(t *testing.T) {
	h := NewWhatsAppHandler(idleManager(), access.NewGate(), nil)
	admin := models.User{ID: 1, Role: models.RoleSuperAdmin}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whatsapp/qr", nil)
	newWhatsAppRouter(h, admin).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQRRequiresConnectionCapability(t *testing.T) {
	h := NewWhatsAppHandler(idleManager(), access.NewGate(), nil)
	seller := models.User{ID: 4, Role: "USER"}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whatsapp/qr", nil)
	newWhatsAppRouter(h, seller).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogoutUnknownSession(t *testing.T) {
	h := NewWhatsAppHandler(idleManager(), access.NewGate(), nil)
	admin := models.User{ID: 1, Role: models.RoleSuperAdmin}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/logout", nil)
	newWhatsAppRouter(h, admin).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusRejectsForeignSession(t *testing.T) {
	h := NewWhatsAppHandler(idleManager(), access.NewGate(), nil)
	seller := models.User{ID: 4, Role: "USER", Permissions: models.PermissionSet{access.CapViewChat: true}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whatsapp/status?sessionId=9", nil)
	newWhatsAppRouter(h, seller).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

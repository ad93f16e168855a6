package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadchat-service/internal/middleware"
	"leadchat-service/internal/observability"
)

// requestIDFromContext returns the inbound request id, minting one when
// the caller did not send an X-Request-Id header.
func requestIDFromContext(c *gin.Context) string {
	if id := observability.RequestIDFromRequest(c.Request); id != "" {
		return id
	}
	return uuid.NewString()
}

// userIDFromContext returns the authenticated user's id, nil when the
// route is unauthenticated.
func userIDFromContext(c *gin.Context) *string {
	if _, ok := c.Get(middleware.ContextUserKey); !ok {
		return nil
	}
	id := strconv.Itoa(middleware.CurrentUser(c).ID)
	return &id
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"leadchat-service/internal/access"
	"leadchat-service/internal/middleware"
	"leadchat-service/internal/places"
)

// PlacesHandler serves prospect discovery via the external places API.
type PlacesHandler struct {
	client *places.Client
	gate   *access.Gate
}

func NewPlacesHandler(client *places.Client, gate *access.Gate) *PlacesHandler {
	return &PlacesHandler{client: client, gate: gate}
}

// Search looks businesses up by free-text query.
func (h *PlacesHandler) Search(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.gate.Authorize(user, access.CapSearchPlaces); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	results, err := h.client.Search(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, places.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "places lookup unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "places lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": results})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/allbin/serialterm/internal/api/types"
	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	terminal Terminal
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(terminal Terminal) *HealthHandler {
	return &HealthHandler{terminal: terminal}
}

// Health handles GET /health. A disconnected port is a normal state, so the
// service reports healthy either way.
func (h *HealthHandler) Health(c *gin.Context) {
	connection := "disconnected"
	if h.terminal.State().Connected {
		connection = "connected"
	}

	c.JSON(http.StatusOK, types.HealthResponse{
		Status:     "healthy",
		Connection: connection,
		Timestamp:  time.Now(),
	})
}

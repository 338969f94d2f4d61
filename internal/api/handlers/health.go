package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jobqueue-service/internal/infrastructure/logger"
)

// Version is the service version reported by the health endpoint
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	logger logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(log logger.Logger) *HealthHandler {
	return &HealthHandler{
		logger: log.With("handler", "health"),
	}
}

// Health returns the health status of the service
func (hh *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// Ready returns the readiness status of the service
func (hh *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

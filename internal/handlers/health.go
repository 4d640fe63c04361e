package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aegisshield/biometric-engine/internal/audit"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	store     *audit.Store
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *audit.Store) *HealthHandler {
	return &HealthHandler{
		store:     store,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers the health route on the engine root.
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"service":        "biometric-engine",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"stored_logs":    h.store.Len(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

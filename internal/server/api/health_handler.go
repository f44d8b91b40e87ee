package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
)

const healthPingTimeout = 2 * time.Second

// Pinger checks a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// GetHealth handles GET /api/health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	code, status, dbState := http.StatusOK, "ok", "ok"
	if err := h.db.Ping(ctx); err != nil {
		appLogger.Error("Health check: database ping failed: %v", err)
		code, status, dbState = http.StatusServiceUnavailable, "degraded", "unavailable"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"database":  dbState,
	})
}

func (h *HealthHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/api/health", h.GetHealth)
}

package api

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/service"
)

type AuditHandler struct {
	clients *service.ClientService
}

func NewAuditHandler(clients *service.ClientService) *AuditHandler {
	return &AuditHandler{clients: clients}
}

// ListAudit handles GET /api/audit?limit=N
func (h *AuditHandler) ListAudit(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, "list audit log", fmt.Errorf("%w: limit must be an integer", service.ErrValidation))
			return
		}
		limit = n
	}

	entries, err := h.clients.AuditLog(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "list audit log", err)
		return
	}
	respondList(c, entries, len(entries))
}

func (h *AuditHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/api/audit", h.ListAudit)
}

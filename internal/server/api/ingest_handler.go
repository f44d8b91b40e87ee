package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/service"
)

const maxReportBytes = 1 << 20

// IngestHandler accepts sealed agent reports.
type IngestHandler struct {
	ingest *service.IngestService
}

func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// PostReport handles POST /api/clients/ingest. The body is the sealed report
// as text, whatever the content type.
func (h *IngestHandler) PostReport(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxReportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, "ingest", fmt.Errorf("%w: body exceeds %d bytes", service.ErrValidation, maxReportBytes))
			return
		}
		respondError(c, "ingest", fmt.Errorf("%w: read body: %v", service.ErrValidation, err))
		return
	}

	device, err := h.ingest.Ingest(c.Request.Context(), string(raw))
	if err != nil {
		respondError(c, "ingest", err)
		return
	}

	appLogger.Info("Received report from client %s (%s)", device.ClientID, device.Hostname)
	respondMessage(c, "data received")
}

// RegisterRoutes mounts the ingest endpoint and the paths older agents post to.
func (h *IngestHandler) RegisterRoutes(router gin.IRouter) {
	clients := router.Group("/api/clients")
	{
		clients.POST("/ingest", h.PostReport)
		clients.POST("/data", h.PostReport)
		clients.POST("/register", h.PostReport)
	}
}

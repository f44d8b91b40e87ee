package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/service"
)

// ClientsHandler serves the operator console's device endpoints.
type ClientsHandler struct {
	clients *service.ClientService
}

func NewClientsHandler(clients *service.ClientService) *ClientsHandler {
	return &ClientsHandler{clients: clients}
}

func withRemoteAccess(d *models.Device) {
	d.RemoteAccessURL = models.RemoteAccessURL(d.ClientID)
}

// ListClients handles GET /api/clients?status=&os=&search=
func (h *ClientsHandler) ListClients(c *gin.Context) {
	filter := models.DeviceFilter{
		Status: c.Query("status"),
		OS:     c.Query("os"),
		Search: c.Query("search"),
	}

	devices, err := h.clients.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "list clients", err)
		return
	}
	for i := range devices {
		withRemoteAccess(&devices[i])
	}
	respondList(c, devices, len(devices))
}

// GetClient handles GET /api/clients/:id
func (h *ClientsHandler) GetClient(c *gin.Context) {
	details, err := h.clients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get client", err)
		return
	}
	withRemoteAccess(&details.Client)
	respondOK(c, details)
}

// GetClientMetrics handles GET /api/clients/:id/metrics?period=hour|day|week|month
func (h *ClientsHandler) GetClientMetrics(c *gin.Context) {
	samples, err := h.clients.Metrics(c.Request.Context(), c.Param("id"), c.DefaultQuery("period", service.PeriodHour))
	if err != nil {
		respondError(c, "get client metrics", err)
		return
	}
	respondList(c, samples, len(samples))
}

// UpdateClient handles PATCH /api/clients/:id. Without a custom_name key the
// device is returned unchanged; "custom_name": null clears the name.
func (h *ClientsHandler) UpdateClient(c *gin.Context) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, "update client", fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}

	raw, ok := body["custom_name"]
	if !ok {
		details, err := h.clients.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, "update client", err)
			return
		}
		withRemoteAccess(&details.Client)
		respondOK(c, details.Client)
		return
	}

	var name *string
	if err := json.Unmarshal(raw, &name); err != nil {
		respondError(c, "update client", fmt.Errorf("%w: custom_name must be a string or null", service.ErrValidation))
		return
	}

	device, err := h.clients.Rename(c.Request.Context(), actorFrom(c), c.Param("id"), name)
	if err != nil {
		respondError(c, "update client", err)
		return
	}
	withRemoteAccess(device)
	respondOK(c, device)
}

// DeleteClient handles DELETE /api/clients/:id. The device is deactivated,
// not removed.
func (h *ClientsHandler) DeleteClient(c *gin.Context) {
	if err := h.clients.Deactivate(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, "delete client", err)
		return
	}
	respondOK(c, gin.H{})
}

// ActivateClient handles POST /api/clients/:id/activate
func (h *ClientsHandler) ActivateClient(c *gin.Context) {
	device, err := h.clients.Activate(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, "activate client", err)
		return
	}
	withRemoteAccess(device)
	respondOK(c, device)
}

func (h *ClientsHandler) RegisterRoutes(router gin.IRouter) {
	clients := router.Group("/api/clients")
	{
		clients.GET("", h.ListClients)
		clients.GET("/:id", h.GetClient)
		clients.GET("/:id/metrics", h.GetClientMetrics)
		clients.PATCH("/:id", h.UpdateClient)
		clients.DELETE("/:id", h.DeleteClient)
		clients.POST("/:id/activate", h.ActivateClient)
	}
}

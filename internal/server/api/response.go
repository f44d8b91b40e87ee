package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/service"
)

var ErrUnauthorized = errors.New("unauthorized")

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondList(c *gin.Context, data interface{}, count int) {
	c.JSON(http.StatusOK, gin.H{"success": true, "count": count, "data": data})
}

func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// respondError logs err against op and renders the failure envelope. Storage
// details are logged but never sent to the caller.
func respondError(c *gin.Context, op string, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		appLogger.Error("%s failed: %v. Client IP: %s", op, err, c.ClientIP())
	} else {
		appLogger.Warn("%s rejected: %v. Client IP: %s", op, err, c.ClientIP())
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, service.ErrNotFound.Error()
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, ErrUnauthorized.Error()
	case errors.Is(err, service.ErrDecryption):
		return http.StatusInternalServerError, service.ErrDecryption.Error()
	case errors.Is(err, service.ErrMalformedPayload):
		return http.StatusInternalServerError, service.ErrMalformedPayload.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

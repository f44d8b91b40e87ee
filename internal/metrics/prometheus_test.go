package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/api/clients/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(TotalRequests.WithLabelValues("GET", "/api/clients/:id", "204"))

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/clients/"+id, nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}

	after := testutil.ToFloat64(TotalRequests.WithLabelValues("GET", "/api/clients/:id", "204"))
	assert.Equal(t, before+2, after)
}

func TestHandlerServesRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", Handler())

	IngestReports.WithLabelValues(IngestResultAccepted).Inc()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fleet_ingest_reports_total")
}

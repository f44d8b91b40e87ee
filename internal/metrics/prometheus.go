package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	IngestResultAccepted  = "accepted"
	IngestResultRejected  = "rejected"
	IngestResultDecrypt   = "decrypt_error"
	IngestResultMalformed = "malformed"
	IngestResultStorage   = "storage_error"
)

var (
	TotalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_http_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	IngestReports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_ingest_reports_total",
			Help: "Telemetry reports received, by outcome",
		},
		[]string{"result"},
	)

	DevicesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_devices_created_total",
			Help: "Devices registered by their first report",
		},
	)

	AuditWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_audit_write_failures_total",
			Help: "Audit entries that could not be persisted",
		},
	)

	MirrorWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_mirror_write_failures_total",
			Help: "Samples that could not be mirrored to InfluxDB",
		},
	)
)

func init() {
	prometheus.MustRegister(TotalRequests)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(IngestReports)
	prometheus.MustRegister(DevicesCreated)
	prometheus.MustRegister(AuditWriteFailures)
	prometheus.MustRegister(MirrorWriteFailures)
}

// Middleware records request count and latency labelled by the matched route
// template, so per-device paths do not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		TotalRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/4Noyis/device-fleet-monitoring/internal/metrics"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/service"
)

// RouterConfig holds the HTTP-facing settings.
type RouterConfig struct {
	AllowedOrigins []string
	JWTSecret      string
	MetricsEnabled bool
}

// Services are the handlers' dependencies.
type Services struct {
	Ingest  *service.IngestService
	Clients *service.ClientService
	DB      Pinger
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	cfg.MaxAge = 12 * time.Hour

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// NewRouter builds the gin engine. Agents reach the ingest paths without an
// operator token; everything else under /api except health requires one.
func NewRouter(cfg RouterConfig, svc Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	if cfg.MetricsEnabled {
		router.Use(metrics.Middleware())
		router.GET("/metrics", metrics.Handler())
	}

	NewHealthHandler(svc.DB).RegisterRoutes(router)
	NewIngestHandler(svc.Ingest).RegisterRoutes(router)

	operator := router.Group("", AuthMiddleware(cfg.JWTSecret))
	NewClientsHandler(svc.Clients).RegisterRoutes(operator)
	NewAuditHandler(svc.Clients).RegisterRoutes(operator)

	return router
}

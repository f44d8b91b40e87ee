// Command testserver runs the full API on an in-memory store and adds a
// POST /api/inspect endpoint that decrypts a report and echoes it back. It is
// meant for checking agents without a database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/api"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/database"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/service"
	"github.com/4Noyis/device-fleet-monitoring/pkg/payloadcrypto"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	secret := flag.String("secret", os.Getenv("TELEMETRY_SHARED_SECRET"), "shared secret agents seal reports with")
	flag.Parse()

	if err := appLogger.Init(appLogger.Config{Debug: true, Console: true}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := appLogger.WithComponent("inspector")

	cipher, err := payloadcrypto.NewFromSecret(*secret)
	if err != nil {
		appLogger.Fatal("Failed to initialize payload cipher: %v", err)
	}

	store := database.NewMemoryStore()
	auditor := service.NewAsyncAuditor(store)
	ingest := service.NewIngestService(store, cipher, nil)

	gin.SetMode(gin.DebugMode)
	router := api.NewRouter(api.RouterConfig{MetricsEnabled: true}, api.Services{
		Ingest:  ingest,
		Clients: service.NewClientService(store, auditor),
		DB:      store,
	})

	router.POST("/api/inspect", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		payload, err := ingest.Decode(string(body))
		if err != nil {
			log.Warn().Err(err).Str("client_ip", c.ClientIP()).Msg("report rejected")
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		pretty, _ := json.MarshalIndent(payload, "", "  ")
		log.Info().Str("client_id", payload.ClientID).Msgf("decoded report:\n%s", pretty)
		c.JSON(http.StatusOK, gin.H{"success": true, "data": payload})
	})

	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, srv, auditor.Close, ingest.Close); err != nil {
		appLogger.Fatal("Could not listen on %s: %v", *addr, err)
	}
	appLogger.Info("Inspection server exiting.")
}

// serve runs srv until ctx is done, shuts it down and then runs drain in order.
func serve(ctx context.Context, srv *http.Server, drain ...func()) error {
	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("Starting inspection server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		appLogger.Info("Shutdown signal received. Stopping inspection server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Server forced to shutdown: %v", err)
		}
	}

	for _, fn := range drain {
		fn()
	}
	return nil
}

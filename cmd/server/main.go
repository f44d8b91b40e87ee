package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/api"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/config"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/database"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/service"
	"github.com/4Noyis/device-fleet-monitoring/pkg/payloadcrypto"
)

func main() {
	issueToken := flag.String("issue-token", "", "print an operator token for this user id and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of a token printed by -issue-token")
	flag.Parse()

	// -------- load config ---------
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err) // logger is not configured yet
		os.Exit(1)
	}

	if *issueToken != "" {
		token, err := api.GenerateToken(cfg.Auth.JWTSecret, *issueToken, *tokenTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	// --------- initialize logger ----------
	if err := appLogger.Init(appLogger.Config{Level: cfg.LogLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cfg.EnableDebugLog {
		appLogger.SetDebug(true)
	}
	appLogger.Info("Server configuration loaded.")
	appLogger.Debug("Full configuration: %s", cfg)

	// --------- database ------------
	if err := database.Migrate(database.DSN(cfg.Database)); err != nil {
		appLogger.Fatal("Failed to migrate database: %v", err)
	}

	ctx := context.Background()
	store, err := database.NewPostgresStore(ctx, cfg.Database)
	if err != nil {
		appLogger.Fatal("Failed to connect to Postgres: %v", err)
	}
	defer store.Close()

	var mirror service.SampleMirror
	if cfg.InfluxDB.Enabled() {
		influx, err := database.NewInfluxMirror(cfg.InfluxDB)
		if err != nil {
			appLogger.Fatal("Failed to initialize InfluxDB mirror: %v", err)
		}
		defer influx.Close()
		mirror = influx
		appLogger.Info("InfluxDB mirror initialized.")
	}

	cipher, err := payloadcrypto.NewFromSecret(cfg.Crypto.SharedSecret)
	if err != nil {
		appLogger.Fatal("Failed to initialize payload cipher: %v", err)
	}

	// ------- services ------------
	auditor := service.NewAsyncAuditor(store)
	ingestService := service.NewIngestService(store, cipher, mirror)
	clientService := service.NewClientService(store, auditor)

	// ------- Initialize Gin ------------
	if !cfg.EnableDebugLog {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := api.NewRouter(api.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
		MetricsEnabled: cfg.MetricsEnabled,
	}, api.Services{
		Ingest:  ingestService,
		Clients: clientService,
		DB:      store,
	})
	appLogger.Info("API routes registered.")

	// ------- Start http Server --------
	srv := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: router,

		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server on %s", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Could not listen on %s: %v", cfg.ListenAddress, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	appLogger.Info("Shutdown signal (%s) received. Shutting down server gracefully...", receivedSignal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown: %v", err)
	}

	auditor.Close()
	ingestService.Close()
	appLogger.Info("Server exiting.")
}

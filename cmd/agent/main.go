package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/4Noyis/device-fleet-monitoring/internal/agent"
	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
	"github.com/4Noyis/device-fleet-monitoring/internal/stats"
	"github.com/4Noyis/device-fleet-monitoring/pkg/exporter"
	"github.com/4Noyis/device-fleet-monitoring/pkg/payloadcrypto"
)

func main() {
	configPath := flag.String("config", agent.DefaultConfigPath, "path to agent.yaml")
	printOnly := flag.Bool("print", false, "collect one reading, print it as JSON and exit")
	once := flag.Bool("once", false, "send a single report and exit")
	flag.Parse()

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	cfg, err := agent.ReadConfig(*configPath, explicit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// stdout is reserved for -print output.
	if err := appLogger.Init(appLogger.Config{Debug: cfg.Debug, Console: true, Output: "stderr"}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	collector := stats.NewCollector(cfg.DiskPath)

	if *printOnly {
		info, err := collector.Collect(context.Background())
		if err != nil {
			appLogger.Fatal("Failed to collect system info: %v", err)
		}
		appLogger.Info("%s", info.Summary())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(info)
		return
	}

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration: %v", err)
	}

	cipher, err := payloadcrypto.NewFromSecret(cfg.SharedSecret)
	if err != nil {
		appLogger.Fatal("Failed to initialize payload cipher: %v", err)
	}

	sender := exporter.New(cfg.ServerURL, cipher, cfg.RequestTimeout)

	a, err := agent.New(cfg, collector, sender)
	if err != nil {
		appLogger.Fatal("Failed to initialize agent: %v", err)
	}
	appLogger.Info("Agent for client %s reporting to %s every %s", a.ClientID(), cfg.ServerURL, cfg.Interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := a.Report(ctx, agent.IngestPath); err != nil {
			appLogger.Fatal("Report failed: %v", err)
		}
		return
	}

	if err := a.Run(ctx); err != nil {
		appLogger.Fatal("Agent stopped: %v", err)
	}
}

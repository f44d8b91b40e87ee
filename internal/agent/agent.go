// Package agent runs the reporting loop on a monitored device.
package agent

import (
	"context"
	"fmt"
	"time"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
	"github.com/4Noyis/device-fleet-monitoring/internal/stats"
)

const (
	RegisterPath = "/api/clients/register"
	IngestPath   = "/api/clients/ingest"
)

// Report is the plaintext the agent seals and sends.
type Report struct {
	ClientID    string            `json:"client_id"`
	CustomName  string            `json:"custom_name,omitempty"`
	SystemInfo  *stats.SystemInfo `json:"system_info"`
	CollectedAt time.Time         `json:"collected_at"`
}

type Collector interface {
	Collect(ctx context.Context) (*stats.SystemInfo, error)
}

type Sender interface {
	Send(ctx context.Context, path string, report interface{}) error
}

// Agent reports the host to the server on a fixed interval.
type Agent struct {
	interval   time.Duration
	clientID   string
	customName string
	collector  Collector
	sender     Sender
}

// New loads the device identity from cfg.StateDir.
func New(cfg Config, collector Collector, sender Sender) (*Agent, error) {
	clientID, err := LoadOrCreateClientID(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	customName, err := LoadCustomName(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	return &Agent{
		interval:   cfg.Interval,
		clientID:   clientID,
		customName: customName,
		collector:  collector,
		sender:     sender,
	}, nil
}

func (a *Agent) ClientID() string { return a.clientID }

// Report collects one reading and sends it to path.
func (a *Agent) Report(ctx context.Context, path string) error {
	info, err := a.collector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	report := Report{
		ClientID:    a.clientID,
		CustomName:  a.customName,
		SystemInfo:  info,
		CollectedAt: info.CollectedAt,
	}
	if err := a.sender.Send(ctx, path, report); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	appLogger.Info("Reported cpu %.2f%% mem %.2f%% disk %.2f%% for client %s",
		info.CPUUsage, info.MemoryUsage, info.DiskUsage, a.clientID)
	return nil
}

// Run registers once, then reports every interval until ctx is done. Failed
// reports are logged and not retried; the next tick sends fresh data.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Report(ctx, RegisterPath); err != nil {
		appLogger.Error("Registration report failed: %v", err)
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.Report(ctx, IngestPath); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				appLogger.Error("Report failed: %v", err)
			}
		case <-ctx.Done():
			appLogger.Info("Stopping agent.")
			return nil
		}
	}
}

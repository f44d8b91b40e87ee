package database

import (
	"context"
	"fmt"
	"time"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/config"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const sampleMeasurement = "system_metrics"

// InfluxMirror copies each stored sample into an InfluxDB bucket so it can be
// charted by existing Grafana/Influx tooling. Postgres stays the source of truth.
type InfluxMirror struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
}

// NewInfluxMirror connects and health-checks the InfluxDB server.
func NewInfluxMirror(cfg config.InfluxDBConfig) (*InfluxMirror, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb health check failed: %w", err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("influxdb not healthy: status %s", health.Status)
	}
	appLogger.Info("Connected to InfluxDB mirror at %s (bucket %s)", cfg.URL, cfg.Bucket)

	return &InfluxMirror{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
	}, nil
}

// samplePoint converts a sample to a point tagged with the device identity.
func samplePoint(device models.Device, sample models.MetricSample) *write.Point {
	tags := map[string]string{
		"client_id": sample.ClientID,
		"hostname":  device.Hostname,
		"os":        device.OS,
	}
	if device.Platform != "" {
		tags["platform"] = device.Platform
	}

	fields := map[string]interface{}{
		"cpu_usage":    sample.CPUUsage,
		"memory_total": sample.MemoryTotal,
		"memory_used":  sample.MemoryUsed,
		"memory_usage": sample.MemoryUsage,
		"disk_total":   sample.DiskTotal,
		"disk_used":    sample.DiskUsed,
		"disk_usage":   sample.DiskUsage,
	}

	return write.NewPoint(sampleMeasurement, tags, fields, sample.CollectedAt)
}

// WriteSample writes one sample point.
func (m *InfluxMirror) WriteSample(ctx context.Context, device models.Device, sample models.MetricSample) error {
	if err := m.writeAPI.WritePoint(ctx, samplePoint(device, sample)); err != nil {
		return fmt.Errorf("influxdb write point for %s: %w", sample.ClientID, err)
	}
	appLogger.Debug("Mirrored sample for client %s at %s to bucket %s", sample.ClientID, sample.CollectedAt, m.bucket)
	return nil
}

// Close ensures the InfluxDB client is closed gracefully.
func (m *InfluxMirror) Close() {
	if m.client != nil {
		m.client.Close()
		appLogger.Info("InfluxDB mirror client closed.")
	}
}

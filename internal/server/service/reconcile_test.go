package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

func TestEffectiveName(t *testing.T) {
	tests := []struct {
		current, agent, want string
	}{
		{"", "", ""},
		{"", "Agent", "Agent"},
		{"Operator", "", "Operator"},
		{"Operator", "Agent", "Operator"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EffectiveName(tt.current, tt.agent), "current=%q agent=%q", tt.current, tt.agent)
	}
}

func TestReconcileDeviceExisting(t *testing.T) {
	first := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &models.Device{
		ClientID:  testClientID,
		Hostname:  "old",
		OS:        "windows",
		FirstSeen: first,
		LastSeen:  first,
		IsActive:  false,
	}
	report := &models.IngestPayload{
		ClientID:   testClientID,
		SystemInfo: &models.SystemInfoPayload{Hostname: "new", OS: "linux", Platform: "debian"},
	}

	got := ReconcileDevice(existing, report, now)

	assert.Equal(t, "new", got.Hostname)
	assert.Equal(t, "linux", got.OS)
	assert.Equal(t, "debian", got.Platform)
	assert.Equal(t, first, got.FirstSeen)
	assert.Equal(t, now, got.LastSeen)
	assert.False(t, got.IsActive)
	assert.Equal(t, "old", existing.Hostname, "input must not be mutated")
}

func TestSampleFromReport(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	report := &models.IngestPayload{
		ClientID: testClientID,
		SystemInfo: &models.SystemInfoPayload{
			CPUUsage: 1, MemoryTotal: 2, MemoryUsed: 3, MemoryUsage: 4,
			DiskTotal: 5, DiskUsed: 6, DiskUsage: 7, CollectedAt: at,
		},
	}

	got := SampleFromReport(report)
	assert.Equal(t, models.MetricSample{
		ClientID: testClientID, CPUUsage: 1, MemoryTotal: 2, MemoryUsed: 3, MemoryUsage: 4,
		DiskTotal: 5, DiskUsed: 6, DiskUsage: 7, CollectedAt: at,
	}, got)
}

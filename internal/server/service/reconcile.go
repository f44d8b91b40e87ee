package service

import (
	"strings"
	"time"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

// NormalizeClientID returns the canonical lowercase form of a device id so
// that one device never maps to two rows.
func NormalizeClientID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// EffectiveName applies the display-name precedence rule: a name already on
// the device (set by an operator or adopted earlier) always wins; an
// agent-supplied name is adopted only while the device has none.
func EffectiveName(current, agentSupplied string) string {
	if current != "" {
		return current
	}
	return agentSupplied
}

// ReconcileDevice returns the device row to persist after a report.
// Reported identity and last_seen are always refreshed. The active flag is
// carried over unchanged, so a deactivated device stays inactive.
func ReconcileDevice(existing *models.Device, report *models.IngestPayload, now time.Time) models.Device {
	info := report.SystemInfo

	if existing == nil {
		return models.Device{
			ClientID:   report.ClientID,
			CustomName: report.CustomName,
			Hostname:   info.Hostname,
			OS:         info.OS,
			Platform:   info.Platform,
			FirstSeen:  now,
			LastSeen:   now,
			IsActive:   true,
		}
	}

	next := *existing
	next.Hostname = info.Hostname
	next.OS = info.OS
	next.Platform = info.Platform
	next.LastSeen = now
	next.CustomName = EffectiveName(existing.CustomName, report.CustomName)
	return next
}

// SampleFromReport builds the metric sample for a report, stamped with the
// agent's collection time.
func SampleFromReport(report *models.IngestPayload) models.MetricSample {
	info := report.SystemInfo
	return models.MetricSample{
		ClientID:    report.ClientID,
		CPUUsage:    info.CPUUsage,
		MemoryTotal: info.MemoryTotal,
		MemoryUsed:  info.MemoryUsed,
		MemoryUsage: info.MemoryUsage,
		DiskTotal:   info.DiskTotal,
		DiskUsed:    info.DiskUsed,
		DiskUsage:   info.DiskUsage,
		CollectedAt: report.SampleTime(),
	}
}

package models

import "time"

// --- These structs mirror what the agent seals and sends ---

// SystemInfoPayload is one telemetry reading. Byte counts are raw bytes.
type SystemInfoPayload struct {
	Hostname    string    `json:"hostname"`
	OS          string    `json:"os"`
	Platform    string    `json:"platform"`
	CPUUsage    float64   `json:"cpu_usage"`
	MemoryTotal int64     `json:"memory_total"`
	MemoryUsed  int64     `json:"memory_used"`
	MemoryUsage float64   `json:"memory_usage"`
	DiskTotal   int64     `json:"disk_total"`
	DiskUsed    int64     `json:"disk_used"`
	DiskUsage   float64   `json:"disk_usage"`
	CollectedAt time.Time `json:"collected_at"` // agent clock, trusted as-is
}

// IngestPayload is the decrypted body of POST /api/clients/ingest.
type IngestPayload struct {
	ClientID    string             `json:"client_id" validate:"required,uuid4"`
	CustomName  string             `json:"custom_name,omitempty" validate:"max=100"`
	SystemInfo  *SystemInfoPayload `json:"system_info" validate:"required"`
	CollectedAt time.Time          `json:"collected_at"`
}

// SampleTime picks the collection timestamp: system_info first, then the
// top-level field older agents send.
func (p *IngestPayload) SampleTime() time.Time {
	if p.SystemInfo != nil && !p.SystemInfo.CollectedAt.IsZero() {
		return p.SystemInfo.CollectedAt
	}
	return p.CollectedAt
}

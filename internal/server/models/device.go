package models

import "time"

// RemoteAccessScheme is the URI scheme the console opens to reach a device.
const RemoteAccessScheme = "rustdesk"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Device is a monitored endpoint, keyed by the UUID its agent generated.
type Device struct {
	ClientID        string    `json:"client_id"`
	CustomName      string    `json:"custom_name"`
	Hostname        string    `json:"hostname"`
	OS              string    `json:"os"`
	Platform        string    `json:"platform"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	RemoteAccessURL string    `json:"remote_access_url,omitempty"` // not persisted
}

// RemoteAccessURL builds the deep link for a device id.
func RemoteAccessURL(clientID string) string {
	return RemoteAccessScheme + "://" + clientID
}

// MetricSample is one immutable CPU/memory/disk reading.
type MetricSample struct {
	ID          int64     `json:"id"`
	ClientID    string    `json:"client_id"`
	CPUUsage    float64   `json:"cpu_usage"`
	MemoryTotal int64     `json:"memory_total"`
	MemoryUsed  int64     `json:"memory_used"`
	MemoryUsage float64   `json:"memory_usage"`
	DiskTotal   int64     `json:"disk_total"`
	DiskUsed    int64     `json:"disk_used"`
	DiskUsage   float64   `json:"disk_usage"`
	CollectedAt time.Time `json:"collected_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeviceFilter narrows GET /api/clients. Empty fields do not filter.
type DeviceFilter struct {
	Status string // active | inactive, anything else is ignored
	OS     string
	Search string
}

// DeviceDetails pairs a device with its most recent sample, if any.
type DeviceDetails struct {
	Client  Device        `json:"client"`
	Metrics *MetricSample `json:"metrics"`
}

package models

import "time"

const (
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"

	EntityTypeClient = "CLIENT"
)

// AuditEntry records one administrative mutation. Append-only.
type AuditEntry struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

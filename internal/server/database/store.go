package database

import (
	"context"
	"errors"
	"time"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrNilPool  = errors.New("database pool is nil")
)

// ReconcileFunc computes the device row to persist for an incoming report.
// existing is nil when the device has never reported.
type ReconcileFunc func(existing *models.Device) models.Device

// DeviceStore persists the device registry.
type DeviceStore interface {
	GetDevice(ctx context.Context, clientID string) (*models.Device, error)
	ListDevices(ctx context.Context, filter models.DeviceFilter) ([]models.Device, error)
	SetCustomName(ctx context.Context, clientID, name string) (*models.Device, error)
	SetActive(ctx context.Context, clientID string, active bool) (*models.Device, error)
}

// MetricStore persists append-only samples.
type MetricStore interface {
	LatestSample(ctx context.Context, clientID string) (*models.MetricSample, error)
	SamplesSince(ctx context.Context, clientID string, since time.Time) ([]models.MetricSample, error)
}

// AuditStore persists audit entries.
type AuditStore interface {
	InsertAudit(ctx context.Context, entry *models.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// Store is everything the server needs from the relational database.
type Store interface {
	DeviceStore
	MetricStore
	AuditStore

	// ApplyReport upserts the device returned by reconcile and appends sample
	// in one transaction. sample.ClientID is set from clientID.
	ApplyReport(ctx context.Context, clientID string, reconcile ReconcileFunc, sample models.MetricSample) (*models.Device, error)

	Ping(ctx context.Context) error
	Close()
}

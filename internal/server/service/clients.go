package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/database"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

const (
	PeriodHour  = "hour"
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"

	maxCustomNameLength = 100

	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// Actor identifies who issued an administrative request.
type Actor struct {
	UserID string
	IP     string
}

// ClientStore is the part of the database the console endpoints use.
type ClientStore interface {
	database.DeviceStore
	database.MetricStore
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// ClientService implements the device query and management operations.
type ClientService struct {
	store   ClientStore
	auditor Auditor
	now     func() time.Time
}

func NewClientService(store ClientStore, auditor Auditor) *ClientService {
	return &ClientService{
		store:   store,
		auditor: auditor,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PeriodStart returns the inclusive lower bound for a metrics window. Unknown
// periods fall back to one hour.
func PeriodStart(period string, now time.Time) time.Time {
	switch period {
	case PeriodDay:
		return now.AddDate(0, 0, -1)
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, -1, 0)
	default:
		return now.Add(-time.Hour)
	}
}

func (s *ClientService) List(ctx context.Context, filter models.DeviceFilter) ([]models.Device, error) {
	devices, err := s.store.ListDevices(ctx, filter)
	if err != nil {
		return nil, storageErr("list clients", err)
	}
	return devices, nil
}

// Get returns the device and its most recent sample (nil when none).
func (s *ClientService) Get(ctx context.Context, clientID string) (*models.DeviceDetails, error) {
	clientID = NormalizeClientID(clientID)
	device, err := s.store.GetDevice(ctx, clientID)
	if err != nil {
		return nil, storageErr("get client "+clientID, err)
	}

	latest, err := s.store.LatestSample(ctx, clientID)
	if err != nil {
		return nil, storageErr("latest sample for "+clientID, err)
	}

	return &models.DeviceDetails{Client: *device, Metrics: latest}, nil
}

// Metrics returns the samples collected since the period cutoff, oldest
// first. Samples stamped in the future by the agent clock are included.
func (s *ClientService) Metrics(ctx context.Context, clientID, period string) ([]models.MetricSample, error) {
	clientID = NormalizeClientID(clientID)
	since := PeriodStart(period, s.now())
	samples, err := s.store.SamplesSince(ctx, clientID, since)
	if err != nil {
		return nil, storageErr("samples for "+clientID, err)
	}
	return samples, nil
}

// Rename sets the display name as given. A nil name clears it, so the
// console falls back to the hostname.
func (s *ClientService) Rename(ctx context.Context, actor Actor, clientID string, name *string) (*models.Device, error) {
	clientID = NormalizeClientID(clientID)

	var newName string
	var detail interface{}
	if name != nil {
		newName = *name
		detail = newName
		if utf8.RuneCountInString(newName) > maxCustomNameLength {
			return nil, fmt.Errorf("%w: custom_name exceeds %d characters", ErrValidation, maxCustomNameLength)
		}
	}

	device, err := s.store.SetCustomName(ctx, clientID, newName)
	if err != nil {
		return nil, storageErr("rename client "+clientID, err)
	}

	s.audit(ctx, actor, models.AuditActionUpdate, clientID, map[string]interface{}{"custom_name": detail})
	return device, nil
}

// Deactivate soft-deletes a device. Its row and samples are kept.
func (s *ClientService) Deactivate(ctx context.Context, actor Actor, clientID string) error {
	clientID = NormalizeClientID(clientID)
	if _, err := s.store.SetActive(ctx, clientID, false); err != nil {
		return storageErr("deactivate client "+clientID, err)
	}
	s.audit(ctx, actor, models.AuditActionDelete, clientID, map[string]interface{}{"is_active": false})
	return nil
}

// Activate reverses Deactivate.
func (s *ClientService) Activate(ctx context.Context, actor Actor, clientID string) (*models.Device, error) {
	clientID = NormalizeClientID(clientID)
	device, err := s.store.SetActive(ctx, clientID, true)
	if err != nil {
		return nil, storageErr("activate client "+clientID, err)
	}
	s.audit(ctx, actor, models.AuditActionUpdate, clientID, map[string]interface{}{"is_active": true})
	return device, nil
}

// AuditLog returns the newest entries first. limit is clamped to
// [1, MaxAuditLimit]; zero or less means DefaultAuditLimit.
func (s *ClientService) AuditLog(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}
	entries, err := s.store.ListAudit(ctx, limit)
	if err != nil {
		return nil, storageErr("list audit log", err)
	}
	return entries, nil
}

func (s *ClientService) audit(ctx context.Context, actor Actor, action, clientID string, details map[string]interface{}) {
	s.auditor.Record(ctx, models.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     actor.UserID,
		Action:     action,
		EntityType: models.EntityTypeClient,
		EntityID:   clientID,
		Details:    details,
		IPAddress:  actor.IP,
		CreatedAt:  s.now(),
	})
}

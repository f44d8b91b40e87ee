package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

// MemoryStore is a process-local Store used by the inspection server and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	devices    map[string]models.Device
	samples    map[string][]models.MetricSample
	audit      []models.AuditEntry
	nextSample int64
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices: make(map[string]models.Device),
		samples: make(map[string][]models.MetricSample),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() {}

func (s *MemoryStore) ApplyReport(ctx context.Context, clientID string, reconcile ReconcileFunc, sample models.MetricSample) (*models.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var next models.Device
	if existing, ok := s.devices[clientID]; ok {
		next = reconcile(&existing)
		next.CreatedAt = existing.CreatedAt
		next.FirstSeen = existing.FirstSeen
	} else {
		next = reconcile(nil)
		next.CreatedAt = now
	}
	next.ClientID = clientID
	next.UpdatedAt = now
	s.devices[clientID] = next

	s.nextSample++
	sample.ID = s.nextSample
	sample.ClientID = clientID
	sample.CreatedAt = now
	s.samples[clientID] = append(s.samples[clientID], sample)

	return &next, nil
}

func (s *MemoryStore) GetDevice(_ context.Context, clientID string) (*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemoryStore) ListDevices(_ context.Context, filter models.DeviceFilter) ([]models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	devices := []models.Device{}
	for _, d := range s.devices {
		switch filter.Status {
		case models.StatusActive:
			if !d.IsActive {
				continue
			}
		case models.StatusInactive:
			if d.IsActive {
				continue
			}
		}
		if filter.OS != "" && d.OS != filter.OS {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(d.CustomName), search) &&
			!strings.Contains(strings.ToLower(d.Hostname), search) {
			continue
		}
		devices = append(devices, d)
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].LastSeen.After(devices[j].LastSeen)
	})
	return devices, nil
}

func (s *MemoryStore) SetCustomName(_ context.Context, clientID, name string) (*models.Device, error) {
	return s.updateDevice(clientID, func(d *models.Device) { d.CustomName = name })
}

func (s *MemoryStore) SetActive(_ context.Context, clientID string, active bool) (*models.Device, error) {
	return s.updateDevice(clientID, func(d *models.Device) { d.IsActive = active })
}

func (s *MemoryStore) updateDevice(clientID string, mutate func(*models.Device)) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	mutate(&d)
	d.UpdatedAt = s.now()
	s.devices[clientID] = d
	return &d, nil
}

// LatestSample returns nil, nil when the device has no samples.
func (s *MemoryStore) LatestSample(_ context.Context, clientID string) (*models.MetricSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.MetricSample
	for i := range s.samples[clientID] {
		m := s.samples[clientID][i]
		if latest == nil || m.CollectedAt.After(latest.CollectedAt) ||
			(m.CollectedAt.Equal(latest.CollectedAt) && m.ID > latest.ID) {
			latest = &m
		}
	}
	return latest, nil
}

func (s *MemoryStore) SamplesSince(_ context.Context, clientID string, since time.Time) ([]models.MetricSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := []models.MetricSample{}
	for _, m := range s.samples[clientID] {
		if !m.CollectedAt.Before(since) {
			samples = append(samples, m)
		}
	}
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].CollectedAt.Equal(samples[j].CollectedAt) {
			return samples[i].ID < samples[j].ID
		}
		return samples[i].CollectedAt.Before(samples[j].CollectedAt)
	})
	return samples, nil
}

func (s *MemoryStore) InsertAudit(ctx context.Context, entry *models.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.audit = append(s.audit, *entry)
	return nil
}

func (s *MemoryStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.AuditEntry, 0, len(s.audit))
	for i := len(s.audit) - 1; i >= 0 && (limit <= 0 || len(entries) < limit); i-- {
		entries = append(entries, s.audit[i])
	}
	return entries, nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/database"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

var testActor = Actor{UserID: "admin", IP: "10.0.0.5"}

type failingAuditWriter struct{ calls int }

func (f *failingAuditWriter) InsertAudit(context.Context, *models.AuditEntry) error {
	f.calls++
	return errors.New("audit table missing")
}

func newClientFixture(t *testing.T) (*ClientService, *database.MemoryStore, *AsyncAuditor) {
	t.Helper()
	store := database.NewMemoryStore()
	auditor := NewAsyncAuditor(store)
	svc := NewClientService(store, auditor)
	svc.now = func() time.Time { return testNow }
	return svc, store, auditor
}

func seedDevice(t *testing.T, store *database.MemoryStore, id string, collectedAt ...time.Time) {
	t.Helper()
	if len(collectedAt) == 0 {
		collectedAt = []time.Time{testNow}
	}
	for i, at := range collectedAt {
		_, err := store.ApplyReport(context.Background(), id, func(existing *models.Device) models.Device {
			if existing != nil {
				return *existing
			}
			return models.Device{Hostname: "pc-01", OS: "linux", IsActive: true, FirstSeen: testNow, LastSeen: testNow}
		}, models.MetricSample{CPUUsage: float64(i), CollectedAt: at})
		require.NoError(t, err)
	}
}

func auditEntries(t *testing.T, store *database.MemoryStore, auditor *AsyncAuditor) []models.AuditEntry {
	t.Helper()
	auditor.Close()
	entries, err := store.ListAudit(context.Background(), 0)
	require.NoError(t, err)
	return entries
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		period string
		want   time.Time
	}{
		{PeriodHour, now.Add(-time.Hour)},
		{PeriodDay, now.Add(-24 * time.Hour)},
		{PeriodWeek, now.Add(-7 * 24 * time.Hour)},
		{PeriodMonth, now.AddDate(0, -1, 0)},
		{"", now.Add(-time.Hour)},
		{"year", now.Add(-time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			assert.Equal(t, tt.want, PeriodStart(tt.period, now))
		})
	}
}

func TestGetReturnsLatestSample(t *testing.T) {
	svc, store, _ := newClientFixture(t)
	seedDevice(t, store, testClientID, testNow.Add(-2*time.Minute), testNow.Add(-time.Minute))

	details, err := svc.Get(context.Background(), testClientID)
	require.NoError(t, err)
	assert.Equal(t, testClientID, details.Client.ClientID)
	require.NotNil(t, details.Metrics)
	assert.Equal(t, testNow.Add(-time.Minute), details.Metrics.CollectedAt)
}

func TestGetUnknownClient(t *testing.T) {
	svc, _, _ := newClientFixture(t)

	_, err := svc.Get(context.Background(), "00000000-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMetricsWeekWindow(t *testing.T) {
	svc, store, _ := newClientFixture(t)
	seedDevice(t, store, testClientID,
		testNow.AddDate(0, 0, -10),
		testNow.AddDate(0, 0, -3),
		testNow.Add(-time.Hour),
	)

	samples, err := svc.Metrics(context.Background(), testClientID, PeriodWeek)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, testNow.AddDate(0, 0, -3), samples[0].CollectedAt)
	assert.Equal(t, testNow.Add(-time.Hour), samples[1].CollectedAt)

	hour, err := svc.Metrics(context.Background(), testClientID, "bogus")
	require.NoError(t, err)
	assert.Len(t, hour, 1)
}

func TestMetricsUnknownClientIsEmpty(t *testing.T) {
	svc, _, _ := newClientFixture(t)

	samples, err := svc.Metrics(context.Background(), "unknown", PeriodDay)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestRenameWritesAudit(t *testing.T) {
	svc, store, auditor := newClientFixture(t)
	seedDevice(t, store, testClientID)

	name := " Reception PC"
	device, err := svc.Rename(context.Background(), testActor, testClientID, &name)
	require.NoError(t, err)
	assert.Equal(t, " Reception PC", device.CustomName)

	entries := auditEntries(t, store, auditor)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, models.AuditActionUpdate, e.Action)
	assert.Equal(t, models.EntityTypeClient, e.EntityType)
	assert.Equal(t, testClientID, e.EntityID)
	assert.Equal(t, "admin", e.UserID)
	assert.Equal(t, "10.0.0.5", e.IPAddress)
	assert.Equal(t, " Reception PC", e.Details["custom_name"])
	assert.NotEmpty(t, e.ID)
}

func TestRenameNilClearsName(t *testing.T) {
	ctx := context.Background()
	svc, store, auditor := newClientFixture(t)
	seedDevice(t, store, testClientID)
	_, err := store.SetCustomName(ctx, testClientID, "Reception PC")
	require.NoError(t, err)

	device, err := svc.Rename(ctx, testActor, testClientID, nil)
	require.NoError(t, err)
	assert.Empty(t, device.CustomName)

	entries := auditEntries(t, store, auditor)
	require.Len(t, entries, 1)
	v, ok := entries[0].Details["custom_name"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestRenameUnknownClientWritesNoAudit(t *testing.T) {
	svc, store, auditor := newClientFixture(t)

	name := "x"
	_, err := svc.Rename(context.Background(), testActor, testClientID, &name)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, auditEntries(t, store, auditor))
}

func TestRenameTooLong(t *testing.T) {
	svc, store, _ := newClientFixture(t)
	seedDevice(t, store, testClientID)

	name := strings.Repeat("a", 101)
	_, err := svc.Rename(context.Background(), testActor, testClientID, &name)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeactivateKeepsDevice(t *testing.T) {
	ctx := context.Background()
	svc, store, auditor := newClientFixture(t)
	seedDevice(t, store, testClientID)

	require.NoError(t, svc.Deactivate(ctx, testActor, testClientID))

	details, err := svc.Get(ctx, testClientID)
	require.NoError(t, err)
	assert.False(t, details.Client.IsActive)
	assert.NotNil(t, details.Metrics)

	inactive, err := svc.List(ctx, models.DeviceFilter{Status: models.StatusInactive})
	require.NoError(t, err)
	assert.Len(t, inactive, 1)

	entries := auditEntries(t, store, auditor)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionDelete, entries[0].Action)
	assert.Equal(t, false, entries[0].Details["is_active"])
}

func TestDeactivateUnknownClient(t *testing.T) {
	svc, store, auditor := newClientFixture(t)

	err := svc.Deactivate(context.Background(), testActor, testClientID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, auditEntries(t, store, auditor))
}

func TestActivate(t *testing.T) {
	ctx := context.Background()
	svc, store, auditor := newClientFixture(t)
	seedDevice(t, store, testClientID)
	require.NoError(t, svc.Deactivate(ctx, testActor, testClientID))
	auditor.Close()

	device, err := svc.Activate(ctx, testActor, testClientID)
	require.NoError(t, err)
	assert.True(t, device.IsActive)

	entries := auditEntries(t, store, auditor)
	require.Len(t, entries, 2)
	assert.Equal(t, models.AuditActionUpdate, entries[0].Action)
	assert.Equal(t, true, entries[0].Details["is_active"])
}

func TestAuditLogClampsLimit(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newClientFixture(t)
	for i := 0; i < MaxAuditLimit+10; i++ {
		require.NoError(t, store.InsertAudit(ctx, &models.AuditEntry{ID: "e"}))
	}

	entries, err := svc.AuditLog(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, DefaultAuditLimit)

	entries, err = svc.AuditLog(ctx, 10_000)
	require.NoError(t, err)
	assert.Len(t, entries, MaxAuditLimit)

	entries, err = svc.AuditLog(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestAuditFailureDoesNotFailMutation(t *testing.T) {
	store := database.NewMemoryStore()
	writer := &failingAuditWriter{}
	auditor := NewAsyncAuditor(writer)
	svc := NewClientService(store, auditor)
	seedDevice(t, store, testClientID)

	require.NoError(t, svc.Deactivate(context.Background(), testActor, testClientID))
	auditor.Close()
	assert.Equal(t, 1, writer.calls)
}

func TestAuditSurvivesCancelledRequest(t *testing.T) {
	store := database.NewMemoryStore()
	auditor := NewAsyncAuditor(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	auditor.Record(ctx, models.AuditEntry{ID: "late"})
	auditor.Close()

	entries, err := store.ListAudit(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "late", entries[0].ID)
}

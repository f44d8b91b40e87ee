package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
	"github.com/4Noyis/device-fleet-monitoring/internal/metrics"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/database"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

// PayloadOpener decrypts a sealed report.
type PayloadOpener interface {
	Open(encoded string) ([]byte, error)
}

// SampleMirror receives a copy of every stored sample.
type SampleMirror interface {
	WriteSample(ctx context.Context, device models.Device, sample models.MetricSample) error
}

// ReportStore is the part of the database ingestion writes to.
type ReportStore interface {
	ApplyReport(ctx context.Context, clientID string, reconcile database.ReconcileFunc, sample models.MetricSample) (*models.Device, error)
}

const mirrorWriteTimeout = 5 * time.Second

// IngestService turns sealed agent reports into registry and metric writes.
type IngestService struct {
	store         ReportStore
	opener        PayloadOpener
	mirror        SampleMirror
	mirrorTimeout time.Duration
	mirrorWG      sync.WaitGroup
	now           func() time.Time
}

// NewIngestService wires the ingestion pipeline. mirror may be nil.
func NewIngestService(store ReportStore, opener PayloadOpener, mirror SampleMirror) *IngestService {
	return &IngestService{
		store:         store,
		opener:        opener,
		mirror:        mirror,
		mirrorTimeout: mirrorWriteTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Decode decrypts, parses and validates a sealed report.
func (s *IngestService) Decode(body string) (*models.IngestPayload, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: empty body", ErrValidation)
	}

	plaintext, err := s.opener.Open(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	var payload models.IngestPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	payload.ClientID = NormalizeClientID(payload.ClientID)

	if err := validateStruct(&payload); err != nil {
		return nil, err
	}
	if payload.SampleTime().IsZero() {
		return nil, fmt.Errorf("%w: collected_at is missing", ErrValidation)
	}
	return &payload, nil
}

// Ingest handles one sealed report end to end and returns the stored device.
// Replays are not detected: each call appends a sample.
func (s *IngestService) Ingest(ctx context.Context, body string) (*models.Device, error) {
	payload, err := s.Decode(body)
	if err != nil {
		metrics.IngestReports.WithLabelValues(ingestResult(err)).Inc()
		return nil, err
	}

	now := s.now()
	created := false
	reconcile := func(existing *models.Device) models.Device {
		created = existing == nil
		return ReconcileDevice(existing, payload, now)
	}

	sample := SampleFromReport(payload)
	device, err := s.store.ApplyReport(ctx, payload.ClientID, reconcile, sample)
	if err != nil {
		metrics.IngestReports.WithLabelValues(metrics.IngestResultStorage).Inc()
		return nil, fmt.Errorf("%w: apply report for %s: %v", ErrStorage, payload.ClientID, err)
	}

	metrics.IngestReports.WithLabelValues(metrics.IngestResultAccepted).Inc()
	if created {
		metrics.DevicesCreated.Inc()
		appLogger.Info("Registered new client %s (hostname %s)", device.ClientID, device.Hostname)
	} else {
		appLogger.Debug("Updated client %s from report collected at %s", device.ClientID, sample.CollectedAt)
	}
	if !device.IsActive {
		appLogger.Debug("Client %s is inactive and still reporting", device.ClientID)
	}

	if s.mirror != nil {
		sample.ClientID = device.ClientID
		s.mirrorSample(ctx, *device, sample)
	}

	return device, nil
}

// mirrorSample copies the sample to the mirror in the background. The write
// outlives the request context but not mirrorTimeout.
func (s *IngestService) mirrorSample(ctx context.Context, device models.Device, sample models.MetricSample) {
	s.mirrorWG.Add(1)
	go func() {
		defer s.mirrorWG.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.mirrorTimeout)
		defer cancel()

		if err := s.mirror.WriteSample(writeCtx, device, sample); err != nil {
			metrics.MirrorWriteFailures.Inc()
			appLogger.Warn("Failed to mirror sample for client %s: %v", device.ClientID, err)
		}
	}()
}

// Close waits for in-flight mirror writes.
func (s *IngestService) Close() {
	s.mirrorWG.Wait()
}

func ingestResult(err error) string {
	switch {
	case errors.Is(err, ErrDecryption):
		return metrics.IngestResultDecrypt
	case errors.Is(err, ErrMalformedPayload):
		return metrics.IngestResultMalformed
	default:
		return metrics.IngestResultRejected
	}
}

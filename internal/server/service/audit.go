package service

import (
	"context"
	"sync"
	"time"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
	"github.com/4Noyis/device-fleet-monitoring/internal/metrics"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

const auditWriteTimeout = 5 * time.Second

// Auditor records administrative mutations. Record never reports failure to
// the caller.
type Auditor interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

type auditWriter interface {
	InsertAudit(ctx context.Context, entry *models.AuditEntry) error
}

// AsyncAuditor writes entries on background goroutines, detached from the
// request context so a client disconnect does not drop the entry.
type AsyncAuditor struct {
	store   auditWriter
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncAuditor(store auditWriter) *AsyncAuditor {
	return &AsyncAuditor{store: store, timeout: auditWriteTimeout}
}

func (a *AsyncAuditor) Record(ctx context.Context, entry models.AuditEntry) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		if err := a.store.InsertAudit(writeCtx, &entry); err != nil {
			metrics.AuditWriteFailures.Inc()
			appLogger.Error("Failed to write audit entry (%s %s %s by %s): %v",
				entry.Action, entry.EntityType, entry.EntityID, entry.UserID, err)
		}
	}()
}

// Close waits for in-flight writes.
func (a *AsyncAuditor) Close() {
	a.wg.Wait()
}

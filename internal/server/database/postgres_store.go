package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/config"
	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

const (
	deviceColumns = `client_id, COALESCE(custom_name, ''), hostname, os, platform,
		first_seen, last_seen, is_active, created_at, updated_at`

	sampleColumns = `id, client_id, cpu_usage, memory_total, memory_used, memory_usage,
		disk_total, disk_used, disk_usage, collected_at, created_at`

	connectTimeout = 5 * time.Second
)

// pgxPool is the subset of *pgxpool.Pool the store uses.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool pgxPool
}

// DSN renders cfg as a postgres:// connection URL.
func DSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Name,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}

	q := u.Query()
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q.Set("sslmode", sslMode)
	q.Set("application_name", "fleet-monitor")
	u.RawQuery = q.Encode()

	return u.String()
}

// NewPostgresStore dials the database and verifies connectivity.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	appLogger.Info("Connected to Postgres at %s:%d/%s", cfg.Host, cfg.Port, cfg.Name)
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return ErrNilPool
	}
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
		appLogger.Info("Postgres pool closed.")
	}
}

func scanDevice(row pgx.Row) (*models.Device, error) {
	var d models.Device
	err := row.Scan(&d.ClientID, &d.CustomName, &d.Hostname, &d.OS, &d.Platform,
		&d.FirstSeen, &d.LastSeen, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanSample(row pgx.Row) (*models.MetricSample, error) {
	var m models.MetricSample
	err := row.Scan(&m.ID, &m.ClientID, &m.CPUUsage, &m.MemoryTotal, &m.MemoryUsed, &m.MemoryUsage,
		&m.DiskTotal, &m.DiskUsed, &m.DiskUsage, &m.CollectedAt, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ApplyReport locks the device row (if any), upserts the reconciled device and
// appends the sample, all in one transaction.
func (s *PostgresStore) ApplyReport(ctx context.Context, clientID string, reconcile ReconcileFunc, sample models.MetricSample) (*models.Device, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	result, err := applyReportTx(ctx, tx, clientID, reconcile, sample)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			appLogger.Error("Rollback of report for client %s failed: %v", clientID, rbErr)
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit report: %w", err)
	}
	return result, nil
}

func applyReportTx(ctx context.Context, tx pgx.Tx, clientID string, reconcile ReconcileFunc, sample models.MetricSample) (*models.Device, error) {
	var result *models.Device

	existing, err := lockDevice(ctx, tx, clientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lock device: %w", err)
	}

	if existing == nil {
		next := reconcile(nil)
		next.ClientID = clientID
		created, err := insertDevice(ctx, tx, next)
		switch {
		case err == nil:
			result = created
		case errors.Is(err, ErrNotFound):
			// Another report created the row first; reconcile against it.
			if existing, err = lockDevice(ctx, tx, clientID); err != nil {
				return nil, fmt.Errorf("relock device: %w", err)
			}
		default:
			return nil, fmt.Errorf("insert device: %w", err)
		}
	}

	if result == nil {
		next := reconcile(existing)
		next.ClientID = clientID
		if result, err = updateDevice(ctx, tx, next); err != nil {
			return nil, fmt.Errorf("update device: %w", err)
		}
	}

	sample.ClientID = clientID
	if err := insertSample(ctx, tx, &sample); err != nil {
		return nil, fmt.Errorf("insert sample: %w", err)
	}
	return result, nil
}

func lockDevice(ctx context.Context, tx pgx.Tx, clientID string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM clients WHERE client_id = $1 FOR UPDATE`
	return scanDevice(tx.QueryRow(ctx, query, clientID))
}

func insertDevice(ctx context.Context, tx pgx.Tx, d models.Device) (*models.Device, error) {
	query := `
		INSERT INTO clients (client_id, custom_name, hostname, os, platform, first_seen, last_seen, is_active)
		VALUES ($1, NULLIF($2::text, ''), $3, $4, $5, $6, $7, $8)
		ON CONFLICT (client_id) DO NOTHING
		RETURNING ` + deviceColumns
	return scanDevice(tx.QueryRow(ctx, query,
		d.ClientID, d.CustomName, d.Hostname, d.OS, d.Platform, d.FirstSeen, d.LastSeen, d.IsActive))
}

func updateDevice(ctx context.Context, tx pgx.Tx, d models.Device) (*models.Device, error) {
	query := `
		UPDATE clients
		SET custom_name = NULLIF($2::text, ''), hostname = $3, os = $4, platform = $5,
			last_seen = $6, is_active = $7, updated_at = now()
		WHERE client_id = $1
		RETURNING ` + deviceColumns
	return scanDevice(tx.QueryRow(ctx, query,
		d.ClientID, d.CustomName, d.Hostname, d.OS, d.Platform, d.LastSeen, d.IsActive))
}

func insertSample(ctx context.Context, tx pgx.Tx, m *models.MetricSample) error {
	query := `
		INSERT INTO system_metrics (client_id, cpu_usage, memory_total, memory_used, memory_usage,
			disk_total, disk_used, disk_usage, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		m.ClientID, m.CPUUsage, m.MemoryTotal, m.MemoryUsed, m.MemoryUsage,
		m.DiskTotal, m.DiskUsed, m.DiskUsage, m.CollectedAt,
	).Scan(&m.ID, &m.CreatedAt)
}

func (s *PostgresStore) GetDevice(ctx context.Context, clientID string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM clients WHERE client_id = $1`
	return scanDevice(s.pool.QueryRow(ctx, query, clientID))
}

func (s *PostgresStore) ListDevices(ctx context.Context, filter models.DeviceFilter) ([]models.Device, error) {
	query, args := buildListQuery(filter)
	appLogger.Debug("ListDevices query: %s args=%v", query, args)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}

func (s *PostgresStore) SetCustomName(ctx context.Context, clientID, name string) (*models.Device, error) {
	query := `
		UPDATE clients SET custom_name = NULLIF($2::text, ''), updated_at = now()
		WHERE client_id = $1
		RETURNING ` + deviceColumns
	return scanDevice(s.pool.QueryRow(ctx, query, clientID, name))
}

func (s *PostgresStore) SetActive(ctx context.Context, clientID string, active bool) (*models.Device, error) {
	query := `
		UPDATE clients SET is_active = $2, updated_at = now()
		WHERE client_id = $1
		RETURNING ` + deviceColumns
	return scanDevice(s.pool.QueryRow(ctx, query, clientID, active))
}

// LatestSample returns nil, nil when the device has no samples.
func (s *PostgresStore) LatestSample(ctx context.Context, clientID string) (*models.MetricSample, error) {
	query := `SELECT ` + sampleColumns + ` FROM system_metrics
		WHERE client_id = $1 ORDER BY collected_at DESC, id DESC LIMIT 1`
	m, err := scanSample(s.pool.QueryRow(ctx, query, clientID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return m, err
}

func (s *PostgresStore) SamplesSince(ctx context.Context, clientID string, since time.Time) ([]models.MetricSample, error) {
	query := `SELECT ` + sampleColumns + ` FROM system_metrics
		WHERE client_id = $1 AND collected_at >= $2
		ORDER BY collected_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, clientID, since)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := []models.MetricSample{}
	for rows.Next() {
		m, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

func (s *PostgresStore) InsertAudit(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var details []byte
	if entry.Details != nil {
		var err error
		if details, err = json.Marshal(entry.Details); err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query, entry.ID, entry.UserID, entry.Action, entry.EntityType,
		entry.EntityID, details, entry.IPAddress, entry.CreatedAt)
	return err
}

func (s *PostgresStore) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	query := `
		SELECT id::text, user_id, action, entity_type, entity_id, details, COALESCE(ip_address, ''), created_at
		FROM audit_logs ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID,
			&details, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details for %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return entries, nil
}

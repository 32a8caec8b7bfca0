package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
	"sentinel/pkg/apperror"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS monitors (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL UNIQUE,
	kind                 TEXT NOT NULL,
	target               TEXT NOT NULL,
	interval_sec         INTEGER NOT NULL,
	timeout_sec          INTEGER NOT NULL,
	expected_status      INTEGER NOT NULL DEFAULT 0,
	failure_threshold    INTEGER NOT NULL,
	recovery_threshold   INTEGER NOT NULL,
	degraded_threshold   INTEGER NOT NULL DEFAULT 0,
	latency_threshold_ms INTEGER NOT NULL DEFAULT 0,
	alert_on_degraded    INTEGER NOT NULL DEFAULT 0,
	enabled              INTEGER NOT NULL DEFAULT 1,
	created_at           INTEGER NOT NULL,
	updated_at           INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS check_results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	monitor_id  TEXT NOT NULL,
	checked_at  INTEGER NOT NULL,
	success     INTEGER NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0,
	latency_ms  INTEGER NOT NULL,
	reason      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_check_results_monitor_time
	ON check_results (monitor_id, checked_at DESC);
`

// sqliteStore keeps timestamps as unix milliseconds, so range queries stay
// plain integer comparisons.
type sqliteStore struct {
	db *sql.DB
}

func openSQLite(ctx context.Context, url string, logger *zerolog.Logger) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", url)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info().Str("path", url).Msg("sqlite store initialized")
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) CreateMonitor(ctx context.Context, m monitor.Monitor) error {
	const op = "storage.sqlite.create_monitor"
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monitors (
			id, name, kind, target, interval_sec, timeout_sec, expected_status,
			failure_threshold, recovery_threshold, degraded_threshold,
			latency_threshold_ms, alert_on_degraded, enabled, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID.String(), m.Name, string(m.Kind), m.Target, m.IntervalSec, m.TimeoutSec, m.ExpectedStatus,
		m.Policy.FailureThreshold, m.Policy.RecoveryThreshold, m.Policy.DegradedThreshold,
		m.Policy.LatencyThresholdMs, m.Policy.AlertOnDegraded, m.Enabled,
		m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.New(apperror.AlreadyExists, op, err).
				WithMessage("a monitor with this name already exists")
		}
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc surfaces constraint failures in the error text
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

const sqliteMonitorColumns = `id, name, kind, target, interval_sec, timeout_sec, expected_status,
	failure_threshold, recovery_threshold, degraded_threshold,
	latency_threshold_ms, alert_on_degraded, enabled, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMonitor(row rowScanner) (monitor.Monitor, error) {
	var m monitor.Monitor
	var id, kind string
	var createdAt, updatedAt int64
	err := row.Scan(
		&id, &m.Name, &kind, &m.Target, &m.IntervalSec, &m.TimeoutSec, &m.ExpectedStatus,
		&m.Policy.FailureThreshold, &m.Policy.RecoveryThreshold, &m.Policy.DegradedThreshold,
		&m.Policy.LatencyThresholdMs, &m.Policy.AlertOnDegraded, &m.Enabled, &createdAt, &updatedAt,
	)
	if err != nil {
		return monitor.Monitor{}, err
	}
	m.ID, err = uuid.Parse(id)
	if err != nil {
		return monitor.Monitor{}, err
	}
	m.Kind = probe.Kind(kind)
	m.CreatedAt = time.UnixMilli(createdAt)
	m.UpdatedAt = time.UnixMilli(updatedAt)
	return m, nil
}

func (s *sqliteStore) GetMonitor(ctx context.Context, id uuid.UUID) (monitor.Monitor, error) {
	const op = "storage.sqlite.get_monitor"
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteMonitorColumns+` FROM monitors WHERE id = ?`, id.String())
	m, err := scanSQLiteMonitor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return monitor.Monitor{}, apperror.New(apperror.NotFound, op, err).
				WithMessage("monitor not found")
		}
		return monitor.Monitor{}, apperror.New(apperror.DatabaseErr, op, err)
	}
	return m, nil
}

func (s *sqliteStore) ListMonitors(ctx context.Context) ([]monitor.Monitor, error) {
	const op = "storage.sqlite.list_monitors"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteMonitorColumns+` FROM monitors ORDER BY created_at`)
	if err != nil {
		return nil, apperror.New(apperror.DatabaseErr, op, err)
	}
	defer rows.Close()

	var monitors []monitor.Monitor
	for rows.Next() {
		m, err := scanSQLiteMonitor(rows)
		if err != nil {
			return nil, apperror.New(apperror.DatabaseErr, op, err)
		}
		monitors = append(monitors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.New(apperror.DatabaseErr, op, err)
	}
	return monitors, nil
}

func (s *sqliteStore) UpdateMonitor(ctx context.Context, m monitor.Monitor) error {
	const op = "storage.sqlite.update_monitor"
	res, err := s.db.ExecContext(ctx, `
		UPDATE monitors SET
			name = ?, kind = ?, target = ?, interval_sec = ?, timeout_sec = ?,
			expected_status = ?, failure_threshold = ?, recovery_threshold = ?,
			degraded_threshold = ?, latency_threshold_ms = ?, alert_on_degraded = ?,
			enabled = ?, updated_at = ?
		WHERE id = ?`,
		m.Name, string(m.Kind), m.Target, m.IntervalSec, m.TimeoutSec,
		m.ExpectedStatus, m.Policy.FailureThreshold, m.Policy.RecoveryThreshold,
		m.Policy.DegradedThreshold, m.Policy.LatencyThresholdMs, m.Policy.AlertOnDegraded,
		m.Enabled, m.UpdatedAt.UnixMilli(), m.ID.String(),
	)
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	return checkAffected(res, op)
}

func (s *sqliteStore) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	const op = "storage.sqlite.set_enabled"
	res, err := s.db.ExecContext(ctx,
		`UPDATE monitors SET enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, time.Now().UnixMilli(), id.String())
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	return checkAffected(res, op)
}

func (s *sqliteStore) DeleteMonitor(ctx context.Context, id uuid.UUID) error {
	const op = "storage.sqlite.delete_monitor"
	res, err := s.db.ExecContext(ctx, `DELETE FROM monitors WHERE id = ?`, id.String())
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	if err := checkAffected(res, op); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM check_results WHERE monitor_id = ?`, id.String())
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	return nil
}

func checkAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	if n == 0 {
		return apperror.New(apperror.NotFound, op, sql.ErrNoRows).
			WithMessage("monitor not found")
	}
	return nil
}

func (s *sqliteStore) AppendResult(ctx context.Context, r probe.Result) error {
	const op = "storage.sqlite.append_result"
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO check_results (monitor_id, checked_at, success, status_code, latency_ms, reason)
		VALUES (?,?,?,?,?,?)`,
		r.MonitorID.String(), r.CheckedAt.UnixMilli(), r.Success, r.StatusCode, r.LatencyMs, string(r.Reason),
	)
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	return nil
}

func (s *sqliteStore) History(ctx context.Context, id uuid.UUID, limit int) ([]probe.Result, error) {
	const op = "storage.sqlite.history"
	rows, err := s.db.QueryContext(ctx, `
		SELECT monitor_id, checked_at, success, status_code, latency_ms, reason
		FROM check_results
		WHERE monitor_id = ?
		ORDER BY checked_at DESC
		LIMIT ?`, id.String(), limit)
	if err != nil {
		return nil, apperror.New(apperror.DatabaseErr, op, err)
	}
	defer rows.Close()

	var results []probe.Result
	for rows.Next() {
		var r probe.Result
		var mid, reason string
		var checkedAt int64
		if err := rows.Scan(&mid, &checkedAt, &r.Success, &r.StatusCode, &r.LatencyMs, &reason); err != nil {
			return nil, apperror.New(apperror.DatabaseErr, op, err)
		}
		r.MonitorID, err = uuid.Parse(mid)
		if err != nil {
			return nil, apperror.New(apperror.DatabaseErr, op, err)
		}
		r.CheckedAt = time.UnixMilli(checkedAt)
		r.Reason = probe.Reason(reason)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.New(apperror.DatabaseErr, op, err)
	}
	return results, nil
}

func (s *sqliteStore) Stats(ctx context.Context, id uuid.UUID, since time.Time) (monitor.Stats, error) {
	const op = "storage.sqlite.stats"
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(success), 0),
			COALESCE(AVG(CASE WHEN success THEN latency_ms END), 0),
			COALESCE(MIN(CASE WHEN success THEN latency_ms END), 0),
			COALESCE(MAX(CASE WHEN success THEN latency_ms END), 0)
		FROM check_results
		WHERE monitor_id = ? AND checked_at >= ?`, id.String(), since.UnixMilli())

	stats := monitor.Stats{MonitorID: id, WindowStart: since, WindowEnd: time.Now()}
	err := row.Scan(&stats.TotalChecks, &stats.SuccessCount,
		&stats.AvgLatencyMs, &stats.MinLatencyMs, &stats.MaxLatencyMs)
	if err != nil {
		return monitor.Stats{}, apperror.New(apperror.DatabaseErr, op, err)
	}
	if stats.TotalChecks > 0 {
		stats.UptimePct = float64(stats.SuccessCount) / float64(stats.TotalChecks) * 100
	}
	return stats, nil
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteStore) Close() {
	s.db.Close()
}

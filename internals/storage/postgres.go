package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"sentinel/config"
	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
	"sentinel/pkg/apperror"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS monitors (
	id                   UUID PRIMARY KEY,
	name                 TEXT NOT NULL UNIQUE,
	kind                 TEXT NOT NULL,
	target               TEXT NOT NULL,
	interval_sec         INT NOT NULL,
	timeout_sec          INT NOT NULL,
	expected_status      INT NOT NULL DEFAULT 0,
	failure_threshold    INT NOT NULL,
	recovery_threshold   INT NOT NULL,
	degraded_threshold   INT NOT NULL DEFAULT 0,
	latency_threshold_ms BIGINT NOT NULL DEFAULT 0,
	alert_on_degraded    BOOLEAN NOT NULL DEFAULT FALSE,
	enabled              BOOLEAN NOT NULL DEFAULT TRUE,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS check_results (
	id          BIGSERIAL PRIMARY KEY,
	monitor_id  UUID NOT NULL,
	checked_at  TIMESTAMPTZ NOT NULL,
	success     BOOLEAN NOT NULL,
	status_code INT NOT NULL DEFAULT 0,
	latency_ms  BIGINT NOT NULL,
	reason      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_check_results_monitor_time
	ON check_results (monitor_id, checked_at DESC);
`

type postgresStore struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, cfg *config.DBConfig, logger *zerolog.Logger) (*postgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxOpenConns
	poolCfg.MinConns = cfg.MinIdleConns
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		logger.Debug().Msg("db connection established")
		return nil
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}

	healthCtx, cancel := context.WithTimeout(ctx, cfg.HealthTimeout)
	defer cancel()
	if err := pool.Ping(healthCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info().Msg("database connection pool initialized successfully")
	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) CreateMonitor(ctx context.Context, m monitor.Monitor) error {
	const op = "storage.postgres.create_monitor"
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monitors (
			id, name, kind, target, interval_sec, timeout_sec, expected_status,
			failure_threshold, recovery_threshold, degraded_threshold,
			latency_threshold_ms, alert_on_degraded, enabled, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		m.ID, m.Name, string(m.Kind), m.Target, m.IntervalSec, m.TimeoutSec, m.ExpectedStatus,
		m.Policy.FailureThreshold, m.Policy.RecoveryThreshold, m.Policy.DegradedThreshold,
		m.Policy.LatencyThresholdMs, m.Policy.AlertOnDegraded, m.Enabled, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.New(apperror.AlreadyExists, op, err).
				WithMessage("a monitor with this name already exists")
		}
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	return nil
}

const monitorColumns = `id, name, kind, target, interval_sec, timeout_sec, expected_status,
	failure_threshold, recovery_threshold, degraded_threshold,
	latency_threshold_ms, alert_on_degraded, enabled, created_at, updated_at`

func scanMonitor(row pgx.Row) (monitor.Monitor, error) {
	var m monitor.Monitor
	var kind string
	err := row.Scan(
		&m.ID, &m.Name, &kind, &m.Target, &m.IntervalSec, &m.TimeoutSec, &m.ExpectedStatus,
		&m.Policy.FailureThreshold, &m.Policy.RecoveryThreshold, &m.Policy.DegradedThreshold,
		&m.Policy.LatencyThresholdMs, &m.Policy.AlertOnDegraded, &m.Enabled, &m.CreatedAt, &m.UpdatedAt,
	)
	m.Kind = probe.Kind(kind)
	return m, err
}

func (s *postgresStore) GetMonitor(ctx context.Context, id uuid.UUID) (monitor.Monitor, error) {
	const op = "storage.postgres.get_monitor"
	row := s.pool.QueryRow(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE id = $1`, id)
	m, err := scanMonitor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return monitor.Monitor{}, apperror.New(apperror.NotFound, op, err).
				WithMessage("monitor not found")
		}
		return monitor.Monitor{}, apperror.New(apperror.DatabaseErr, op, err)
	}
	return m, nil
}

func (s *postgresStore) ListMonitors(ctx context.Context) ([]monitor.Monitor, error) {
	const op = "storage.postgres.list_monitors"
	rows, err := s.pool.Query(ctx, `SELECT `+monitorColumns+` FROM monitors ORDER BY created_at`)
	if err != nil {
		return nil, apperror.New(apperror.DatabaseErr, op, err)
	}
	defer rows.Close()

	var monitors []monitor.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
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

func (s *postgresStore) UpdateMonitor(ctx context.Context, m monitor.Monitor) error {
	const op = "storage.postgres.update_monitor"
	tag, err := s.pool.Exec(ctx, `
		UPDATE monitors SET
			name = $2, kind = $3, target = $4, interval_sec = $5, timeout_sec = $6,
			expected_status = $7, failure_threshold = $8, recovery_threshold = $9,
			degraded_threshold = $10, latency_threshold_ms = $11, alert_on_degraded = $12,
			enabled = $13, updated_at = $14
		WHERE id = $1`,
		m.ID, m.Name, string(m.Kind), m.Target, m.IntervalSec, m.TimeoutSec,
		m.ExpectedStatus, m.Policy.FailureThreshold, m.Policy.RecoveryThreshold,
		m.Policy.DegradedThreshold, m.Policy.LatencyThresholdMs, m.Policy.AlertOnDegraded,
		m.Enabled, m.UpdatedAt,
	)
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.New(apperror.NotFound, op, pgx.ErrNoRows).
			WithMessage("monitor not found")
	}
	return nil
}

func (s *postgresStore) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	const op = "storage.postgres.set_enabled"
	tag, err := s.pool.Exec(ctx,
		`UPDATE monitors SET enabled = $2, updated_at = now() WHERE id = $1`, id, enabled)
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.New(apperror.NotFound, op, pgx.ErrNoRows).
			WithMessage("monitor not found")
	}
	return nil
}

func (s *postgresStore) DeleteMonitor(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.delete_monitor"
	tag, err := s.pool.Exec(ctx, `DELETE FROM monitors WHERE id = $1`, id)
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.New(apperror.NotFound, op, pgx.ErrNoRows).
			WithMessage("monitor not found")
	}
	_, err = s.pool.Exec(ctx, `DELETE FROM check_results WHERE monitor_id = $1`, id)
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	return nil
}

func (s *postgresStore) AppendResult(ctx context.Context, r probe.Result) error {
	const op = "storage.postgres.append_result"
	_, err := s.pool.Exec(ctx, `
		INSERT INTO check_results (monitor_id, checked_at, success, status_code, latency_ms, reason)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		r.MonitorID, r.CheckedAt, r.Success, r.StatusCode, r.LatencyMs, string(r.Reason),
	)
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	return nil
}

func (s *postgresStore) History(ctx context.Context, id uuid.UUID, limit int) ([]probe.Result, error) {
	const op = "storage.postgres.history"
	rows, err := s.pool.Query(ctx, `
		SELECT monitor_id, checked_at, success, status_code, latency_ms, reason
		FROM check_results
		WHERE monitor_id = $1
		ORDER BY checked_at DESC
		LIMIT $2`, id, limit)
	if err != nil {
		return nil, apperror.New(apperror.DatabaseErr, op, err)
	}
	defer rows.Close()

	var results []probe.Result
	for rows.Next() {
		var r probe.Result
		var reason string
		if err := rows.Scan(&r.MonitorID, &r.CheckedAt, &r.Success, &r.StatusCode, &r.LatencyMs, &reason); err != nil {
			return nil, apperror.New(apperror.DatabaseErr, op, err)
		}
		r.Reason = probe.Reason(reason)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.New(apperror.DatabaseErr, op, err)
	}
	return results, nil
}

func (s *postgresStore) Stats(ctx context.Context, id uuid.UUID, since time.Time) (monitor.Stats, error) {
	const op = "storage.postgres.stats"
	row := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE success),
			COALESCE(AVG(latency_ms) FILTER (WHERE success), 0),
			COALESCE(MIN(latency_ms) FILTER (WHERE success), 0),
			COALESCE(MAX(latency_ms) FILTER (WHERE success), 0)
		FROM check_results
		WHERE monitor_id = $1 AND checked_at >= $2`, id, since)

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

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *postgresStore) Close() {
	s.pool.Close()
}

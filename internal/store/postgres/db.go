// Package postgres provides PostgreSQL-based implementations of the store
// interfaces.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pulsemetrics/internal/config"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, cfg *config.PostgresConfig) (*DB, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.SSLMode,
		cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxOpenConns
	poolConfig.MinConns = cfg.MaxIdleConns
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// RunMigrations creates the required database tables.
func (db *DB) RunMigrations(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS campaign_metrics (
			campaign_id VARCHAR(36) PRIMARY KEY,
			tenant_id VARCHAR(36) NOT NULL,
			sent_total BIGINT NOT NULL DEFAULT 0,
			delivered_total BIGINT NOT NULL DEFAULT 0,
			failed_total BIGINT NOT NULL DEFAULT 0,
			open_total BIGINT NOT NULL DEFAULT 0,
			click_total BIGINT NOT NULL DEFAULT 0,
			sms_sent BIGINT NOT NULL DEFAULT 0,
			sms_delivered BIGINT NOT NULL DEFAULT 0,
			sms_failed BIGINT NOT NULL DEFAULT 0,
			kakao_sent BIGINT NOT NULL DEFAULT 0,
			kakao_delivered BIGINT NOT NULL DEFAULT 0,
			kakao_failed BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_campaign_metrics_tenant ON campaign_metrics(tenant_id);

		CREATE TABLE IF NOT EXISTS campaign_metrics_minute (
			campaign_id VARCHAR(36) NOT NULL,
			tenant_id VARCHAR(36) NOT NULL,
			bucket_minute TIMESTAMP WITH TIME ZONE NOT NULL,
			attempted BIGINT NOT NULL DEFAULT 0,
			delivered BIGINT NOT NULL DEFAULT 0,
			failed BIGINT NOT NULL DEFAULT 0,
			open BIGINT NOT NULL DEFAULT 0,
			click BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (campaign_id, bucket_minute)
		);

		CREATE INDEX IF NOT EXISTS idx_campaign_metrics_minute_bucket ON campaign_metrics_minute(bucket_minute);

		CREATE TABLE IF NOT EXISTS alert_policies (
			id VARCHAR(36) PRIMARY KEY,
			tenant_id VARCHAR(36) NOT NULL,
			campaign_id VARCHAR(36),
			failure_rate_threshold DOUBLE PRECISION NOT NULL,
			min_consecutive_buckets INTEGER NOT NULL,
			evaluation_window_seconds INTEGER NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_alert_policies_campaign
			ON alert_policies(campaign_id) WHERE campaign_id IS NOT NULL;
		CREATE UNIQUE INDEX IF NOT EXISTS idx_alert_policies_tenant_default
			ON alert_policies(tenant_id) WHERE campaign_id IS NULL;

		CREATE TABLE IF NOT EXISTS alert_states (
			campaign_id VARCHAR(36) PRIMARY KEY,
			tenant_id VARCHAR(36) NOT NULL,
			triggered BOOLEAN NOT NULL DEFAULT FALSE,
			consecutive_breaches INTEGER NOT NULL DEFAULT 0,
			last_failure_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_triggered_at TIMESTAMP WITH TIME ZONE,
			last_cleared_at TIMESTAMP WITH TIME ZONE,
			last_evaluated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT to_timestamp(0)
		);
	`

	_, err := db.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

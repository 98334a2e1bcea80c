package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pulsemetrics/internal/domain"
)

// AlertRepository implements store.AlertRepository using PostgreSQL.
// Policy rows are owned by the configuration surface outside this core's
// write path; this repository only reads them. Alert state rows are owned
// and written exclusively by the alert evaluator.
type AlertRepository struct {
	db            *DB
	defaultPolicy *domain.AlertPolicy
}

// NewAlertRepository creates a new PostgreSQL-backed alert repository. The
// given policy is the system default returned when neither a
// campaign-specific nor a tenant-default row exists.
func NewAlertRepository(db *DB, defaultPolicy *domain.AlertPolicy) *AlertRepository {
	if defaultPolicy == nil {
		defaultPolicy = domain.DefaultAlertPolicy()
	}
	return &AlertRepository{db: db, defaultPolicy: defaultPolicy}
}

// ResolvePolicy returns the policy governing a campaign with precedence
// campaign-specific, then tenant-default, then system default.
func (r *AlertRepository) ResolvePolicy(ctx context.Context, tenantID, campaignID string) (*domain.AlertPolicy, error) {
	query := `
		SELECT failure_rate_threshold, min_consecutive_buckets, evaluation_window_seconds
		FROM alert_policies
		WHERE campaign_id = $1
	`

	policy, err := r.scanPolicy(ctx, query, campaignID)
	if err == nil {
		return policy, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to resolve campaign policy: %w", err)
	}

	query = `
		SELECT failure_rate_threshold, min_consecutive_buckets, evaluation_window_seconds
		FROM alert_policies
		WHERE tenant_id = $1 AND campaign_id IS NULL
	`

	policy, err = r.scanPolicy(ctx, query, tenantID)
	if err == nil {
		return policy, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to resolve tenant policy: %w", err)
	}

	fallback := *r.defaultPolicy
	return &fallback, nil
}

// scanPolicy runs a single-row policy query.
func (r *AlertRepository) scanPolicy(ctx context.Context, query string, arg string) (*domain.AlertPolicy, error) {
	var p domain.AlertPolicy
	err := r.db.pool.QueryRow(ctx, query, arg).Scan(
		&p.FailureRateThreshold,
		&p.MinConsecutiveBuckets,
		&p.EvaluationWindowSeconds,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrCreateState returns the campaign's alert state, inserting the
// initial untriggered row on first evaluation. The insert tolerates a
// concurrent creation by another consumer process.
func (r *AlertRepository) GetOrCreateState(ctx context.Context, tenantID, campaignID string) (*domain.AlertState, error) {
	insert := `
		INSERT INTO alert_states (campaign_id, tenant_id)
		VALUES ($1, $2)
		ON CONFLICT (campaign_id) DO NOTHING
	`
	if _, err := r.db.pool.Exec(ctx, insert, campaignID, tenantID); err != nil {
		return nil, fmt.Errorf("failed to create alert state: %w", err)
	}

	query := `
		SELECT campaign_id, tenant_id, triggered, consecutive_breaches,
			   last_failure_rate, last_triggered_at, last_cleared_at, last_evaluated_at
		FROM alert_states
		WHERE campaign_id = $1
	`

	var s domain.AlertState
	err := r.db.pool.QueryRow(ctx, query, campaignID).Scan(
		&s.CampaignID,
		&s.TenantID,
		&s.Triggered,
		&s.ConsecutiveBreaches,
		&s.LastFailureRate,
		&s.LastTriggeredAt,
		&s.LastClearedAt,
		&s.LastEvaluatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert state: %w", err)
	}

	return &s, nil
}

// SaveState persists the state produced by an evaluation.
func (r *AlertRepository) SaveState(ctx context.Context, state *domain.AlertState) error {
	query := `
		UPDATE alert_states SET
			triggered = $2,
			consecutive_breaches = $3,
			last_failure_rate = $4,
			last_triggered_at = $5,
			last_cleared_at = $6,
			last_evaluated_at = $7
		WHERE campaign_id = $1
	`

	result, err := r.db.pool.Exec(ctx, query,
		state.CampaignID,
		state.Triggered,
		state.ConsecutiveBreaches,
		state.LastFailureRate,
		state.LastTriggeredAt,
		state.LastClearedAt,
		state.LastEvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert state: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("alert state for campaign %s does not exist", state.CampaignID)
	}

	return nil
}

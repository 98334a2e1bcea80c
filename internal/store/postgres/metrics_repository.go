package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pulsemetrics/internal/domain"
)

// MetricsRepository implements store.MetricsRepository using PostgreSQL.
//
// All writes go through INSERT ... ON CONFLICT ... DO UPDATE statements
// where every counter column is set to the stored value plus the delta, so
// the database itself serializes concurrent increments from multiple
// consumer processes.
type MetricsRepository struct {
	db *DB
}

// NewMetricsRepository creates a new PostgreSQL-backed metrics repository.
func NewMetricsRepository(db *DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// UpsertLifetime applies one additive upsert per campaign into the
// lifetime table. Callers pass deltas already collapsed per campaign.
func (r *MetricsRepository) UpsertLifetime(ctx context.Context, deltas []*domain.MetricsDelta) error {
	query := `
		INSERT INTO campaign_metrics (
			campaign_id, tenant_id,
			sent_total, delivered_total, failed_total, open_total, click_total,
			sms_sent, sms_delivered, sms_failed,
			kakao_sent, kakao_delivered, kakao_failed,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		ON CONFLICT (campaign_id) DO UPDATE SET
			sent_total      = campaign_metrics.sent_total + EXCLUDED.sent_total,
			delivered_total = campaign_metrics.delivered_total + EXCLUDED.delivered_total,
			failed_total    = campaign_metrics.failed_total + EXCLUDED.failed_total,
			open_total      = campaign_metrics.open_total + EXCLUDED.open_total,
			click_total     = campaign_metrics.click_total + EXCLUDED.click_total,
			sms_sent        = campaign_metrics.sms_sent + EXCLUDED.sms_sent,
			sms_delivered   = campaign_metrics.sms_delivered + EXCLUDED.sms_delivered,
			sms_failed      = campaign_metrics.sms_failed + EXCLUDED.sms_failed,
			kakao_sent      = campaign_metrics.kakao_sent + EXCLUDED.kakao_sent,
			kakao_delivered = campaign_metrics.kakao_delivered + EXCLUDED.kakao_delivered,
			kakao_failed    = campaign_metrics.kakao_failed + EXCLUDED.kakao_failed,
			updated_at      = NOW()
	`

	for _, d := range deltas {
		_, err := r.db.pool.Exec(ctx, query,
			d.CampaignID,
			d.TenantID,
			d.Sent,
			d.Delivered,
			d.Failed,
			d.Open,
			d.Click,
			d.SmsSent,
			d.SmsDelivered,
			d.SmsFailed,
			d.KakaoSent,
			d.KakaoDelivered,
			d.KakaoFailed,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert lifetime metrics for campaign %s: %w", d.CampaignID, err)
		}
	}

	return nil
}

// UpsertMinute applies one additive upsert per (campaign, bucket) into the
// per-minute table.
func (r *MetricsRepository) UpsertMinute(ctx context.Context, deltas []*domain.MetricsDelta) error {
	query := `
		INSERT INTO campaign_metrics_minute (
			campaign_id, tenant_id, bucket_minute,
			attempted, delivered, failed, open, click,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (campaign_id, bucket_minute) DO UPDATE SET
			attempted  = campaign_metrics_minute.attempted + EXCLUDED.attempted,
			delivered  = campaign_metrics_minute.delivered + EXCLUDED.delivered,
			failed     = campaign_metrics_minute.failed + EXCLUDED.failed,
			open       = campaign_metrics_minute.open + EXCLUDED.open,
			click      = campaign_metrics_minute.click + EXCLUDED.click,
			updated_at = NOW()
	`

	for _, d := range deltas {
		_, err := r.db.pool.Exec(ctx, query,
			d.CampaignID,
			d.TenantID,
			d.Bucket,
			d.Sent,
			d.Delivered,
			d.Failed,
			d.Open,
			d.Click,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert minute metrics for campaign %s: %w", d.CampaignID, err)
		}
	}

	return nil
}

// GetCampaign retrieves the lifetime counter row for a campaign.
func (r *MetricsRepository) GetCampaign(ctx context.Context, campaignID string) (*domain.CampaignMetrics, error) {
	query := `
		SELECT campaign_id, tenant_id,
			   sent_total, delivered_total, failed_total, open_total, click_total,
			   sms_sent, sms_delivered, sms_failed,
			   kakao_sent, kakao_delivered, kakao_failed,
			   created_at, updated_at
		FROM campaign_metrics
		WHERE campaign_id = $1
	`

	var m domain.CampaignMetrics
	err := r.db.pool.QueryRow(ctx, query, campaignID).Scan(
		&m.CampaignID,
		&m.TenantID,
		&m.SentTotal,
		&m.DeliveredTotal,
		&m.FailedTotal,
		&m.OpenTotal,
		&m.ClickTotal,
		&m.SmsSent,
		&m.SmsDelivered,
		&m.SmsFailed,
		&m.KakaoSent,
		&m.KakaoDelivered,
		&m.KakaoFailed,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign metrics: %w", err)
	}

	return &m, nil
}

// WindowMetrics sums attempted/delivered/failed over per-minute rows from
// the given time onward.
func (r *MetricsRepository) WindowMetrics(ctx context.Context, campaignID string, since time.Time) (domain.WindowMetrics, error) {
	query := `
		SELECT COALESCE(SUM(attempted), 0),
			   COALESCE(SUM(delivered), 0),
			   COALESCE(SUM(failed), 0)
		FROM campaign_metrics_minute
		WHERE campaign_id = $1 AND bucket_minute >= $2
	`

	var w domain.WindowMetrics
	err := r.db.pool.QueryRow(ctx, query, campaignID, since).Scan(
		&w.Attempted,
		&w.Delivered,
		&w.Failed,
	)
	if err != nil {
		return domain.WindowMetrics{}, fmt.Errorf("failed to sum window metrics: %w", err)
	}

	return w, nil
}

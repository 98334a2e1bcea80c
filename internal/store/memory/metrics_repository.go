// Package memory provides in-memory implementations of the store
// interfaces. These are useful for testing and development without a
// PostgreSQL instance.
package memory

import (
	"context"
	"sync"
	"time"

	"pulsemetrics/internal/domain"
)

// MetricsRepository is an in-memory implementation of
// store.MetricsRepository. Each upsert holds the lock for the whole
// read-add-write, giving the same lost-update safety the SQL additive
// upsert provides.
type MetricsRepository struct {
	mu sync.Mutex

	lifetime map[string]*domain.CampaignMetrics
	minutes  map[minuteKey]*domain.MinuteMetrics
}

// minuteKey identifies one per-minute row.
type minuteKey struct {
	campaignID string
	bucket     time.Time
}

// NewMetricsRepository creates an empty in-memory metrics repository.
func NewMetricsRepository() *MetricsRepository {
	return &MetricsRepository{
		lifetime: make(map[string]*domain.CampaignMetrics),
		minutes:  make(map[minuteKey]*domain.MinuteMetrics),
	}
}

// UpsertLifetime adds each delta onto the campaign's lifetime row,
// creating the row on first write.
func (r *MetricsRepository) UpsertLifetime(ctx context.Context, deltas []*domain.MetricsDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, d := range deltas {
		row, ok := r.lifetime[d.CampaignID]
		if !ok {
			row = &domain.CampaignMetrics{
				CampaignID: d.CampaignID,
				TenantID:   d.TenantID,
				CreatedAt:  now,
			}
			r.lifetime[d.CampaignID] = row
		}

		row.SentTotal += d.Sent
		row.DeliveredTotal += d.Delivered
		row.FailedTotal += d.Failed
		row.OpenTotal += d.Open
		row.ClickTotal += d.Click
		row.SmsSent += d.SmsSent
		row.SmsDelivered += d.SmsDelivered
		row.SmsFailed += d.SmsFailed
		row.KakaoSent += d.KakaoSent
		row.KakaoDelivered += d.KakaoDelivered
		row.KakaoFailed += d.KakaoFailed
		row.UpdatedAt = now
	}

	return nil
}

// UpsertMinute adds each delta onto its (campaign, bucket) row, creating
// the row on first write.
func (r *MetricsRepository) UpsertMinute(ctx context.Context, deltas []*domain.MetricsDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, d := range deltas {
		key := minuteKey{campaignID: d.CampaignID, bucket: d.Bucket}
		row, ok := r.minutes[key]
		if !ok {
			row = &domain.MinuteMetrics{
				CampaignID:   d.CampaignID,
				TenantID:     d.TenantID,
				BucketMinute: d.Bucket,
			}
			r.minutes[key] = row
		}

		row.Attempted += d.Sent
		row.Delivered += d.Delivered
		row.Failed += d.Failed
		row.Open += d.Open
		row.Click += d.Click
		row.UpdatedAt = now
	}

	return nil
}

// GetCampaign retrieves the lifetime counter row for a campaign.
func (r *MetricsRepository) GetCampaign(ctx context.Context, campaignID string) (*domain.CampaignMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.lifetime[campaignID]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}

	// Return a copy to prevent external modification
	result := *row
	return &result, nil
}

// WindowMetrics sums attempted/delivered/failed over per-minute rows from
// the given time onward.
func (r *MetricsRepository) WindowMetrics(ctx context.Context, campaignID string, since time.Time) (domain.WindowMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var w domain.WindowMetrics
	for key, row := range r.minutes {
		if key.campaignID != campaignID || key.bucket.Before(since) {
			continue
		}
		w.Attempted += row.Attempted
		w.Delivered += row.Delivered
		w.Failed += row.Failed
	}

	return w, nil
}

// MinuteRowCount returns the number of per-minute rows stored for a
// campaign. Used by tests.
func (r *MetricsRepository) MinuteRowCount(campaignID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for key := range r.minutes {
		if key.campaignID == campaignID {
			count++
		}
	}
	return count
}

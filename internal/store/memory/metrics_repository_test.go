package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pulsemetrics/internal/domain"
)

func delta(campaignID string, bucket time.Time, sent, delivered, failed int64) *domain.MetricsDelta {
	return &domain.MetricsDelta{
		CampaignID: campaignID,
		TenantID:   "tenant-1",
		Bucket:     bucket,
		Sent:       sent,
		Delivered:  delivered,
		Failed:     failed,
		SmsSent:    sent,
	}
}

func TestMetricsRepository_UpsertLifetime_Additive(t *testing.T) {
	repo := NewMetricsRepository()
	ctx := context.Background()
	bucket := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)

	if err := repo.UpsertLifetime(ctx, []*domain.MetricsDelta{delta("c1", bucket, 10, 8, 2)}); err != nil {
		t.Fatalf("UpsertLifetime error: %v", err)
	}
	if err := repo.UpsertLifetime(ctx, []*domain.MetricsDelta{delta("c1", bucket, 5, 4, 1)}); err != nil {
		t.Fatalf("UpsertLifetime error: %v", err)
	}

	row, err := repo.GetCampaign(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCampaign error: %v", err)
	}

	if row.SentTotal != 15 || row.DeliveredTotal != 12 || row.FailedTotal != 3 {
		t.Errorf("lifetime row = sent %d, delivered %d, failed %d, want 15/12/3",
			row.SentTotal, row.DeliveredTotal, row.FailedTotal)
	}
	if row.SmsSent != 15 {
		t.Errorf("SmsSent = %d, want 15", row.SmsSent)
	}
	if row.TenantID != "tenant-1" {
		t.Errorf("TenantID = %v, want tenant-1", row.TenantID)
	}
}

func TestMetricsRepository_GetCampaign_NotFound(t *testing.T) {
	repo := NewMetricsRepository()

	_, err := repo.GetCampaign(context.Background(), "missing")
	if !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Errorf("error = %v, want ErrCampaignNotFound", err)
	}
}

func TestMetricsRepository_GetCampaign_ReturnsCopy(t *testing.T) {
	repo := NewMetricsRepository()
	ctx := context.Background()
	bucket := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)

	repo.UpsertLifetime(ctx, []*domain.MetricsDelta{delta("c1", bucket, 10, 8, 2)})

	row, _ := repo.GetCampaign(ctx, "c1")
	row.SentTotal = 999

	fresh, _ := repo.GetCampaign(ctx, "c1")
	if fresh.SentTotal != 10 {
		t.Errorf("SentTotal = %d, caller mutation leaked into the store", fresh.SentTotal)
	}
}

func TestMetricsRepository_UpsertMinute_BucketsSeparately(t *testing.T) {
	repo := NewMetricsRepository()
	ctx := context.Background()

	b1 := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)
	b2 := b1.Add(time.Minute)

	deltas := []*domain.MetricsDelta{
		delta("c1", b1, 10, 9, 1),
		delta("c1", b2, 20, 18, 2),
		delta("c1", b1, 5, 5, 0),
	}
	if err := repo.UpsertMinute(ctx, deltas); err != nil {
		t.Fatalf("UpsertMinute error: %v", err)
	}

	if repo.MinuteRowCount("c1") != 2 {
		t.Errorf("MinuteRowCount = %d, want 2", repo.MinuteRowCount("c1"))
	}

	w, err := repo.WindowMetrics(ctx, "c1", b1)
	if err != nil {
		t.Fatalf("WindowMetrics error: %v", err)
	}
	if w.Attempted != 35 || w.Delivered != 32 || w.Failed != 3 {
		t.Errorf("window = %+v, want attempted 35, delivered 32, failed 3", w)
	}
}

func TestMetricsRepository_WindowMetrics_ExcludesOldBuckets(t *testing.T) {
	repo := NewMetricsRepository()
	ctx := context.Background()

	old := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)

	repo.UpsertMinute(ctx, []*domain.MetricsDelta{
		delta("c1", old, 100, 50, 50),
		delta("c1", recent, 10, 9, 1),
		delta("c2", recent, 7, 7, 0),
	})

	w, err := repo.WindowMetrics(ctx, "c1", recent.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("WindowMetrics error: %v", err)
	}
	if w.Attempted != 10 || w.Failed != 1 {
		t.Errorf("window = %+v, want only the recent c1 bucket", w)
	}
}

func TestMetricsRepository_WindowMetrics_EmptyCampaign(t *testing.T) {
	repo := NewMetricsRepository()

	w, err := repo.WindowMetrics(context.Background(), "missing", time.Now())
	if err != nil {
		t.Fatalf("WindowMetrics error: %v", err)
	}
	if w != (domain.WindowMetrics{}) {
		t.Errorf("window = %+v, want zero value", w)
	}
}

// Concurrent upserts must not lose increments.
func TestMetricsRepository_ConcurrentUpserts(t *testing.T) {
	repo := NewMetricsRepository()
	ctx := context.Background()
	bucket := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)

	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_ = repo.UpsertLifetime(ctx, []*domain.MetricsDelta{delta("c1", bucket, 1, 0, 0)})
				_ = repo.UpsertMinute(ctx, []*domain.MetricsDelta{delta("c1", bucket, 1, 0, 0)})
			}
		}()
	}
	wg.Wait()

	row, err := repo.GetCampaign(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCampaign error: %v", err)
	}
	if row.SentTotal != workers*perWorker {
		t.Errorf("SentTotal = %d, want %d", row.SentTotal, workers*perWorker)
	}

	w, _ := repo.WindowMetrics(ctx, "c1", bucket)
	if w.Attempted != workers*perWorker {
		t.Errorf("window Attempted = %d, want %d", w.Attempted, workers*perWorker)
	}
}

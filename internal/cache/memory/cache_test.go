package memory

import (
	"context"
	"testing"
	"time"

	"pulsemetrics/internal/cache"
	"pulsemetrics/internal/domain"
)

func TestHotCache_CampaignMetricsRoundTrip(t *testing.T) {
	c := NewHotCache()
	ctx := context.Background()

	m := &domain.CampaignMetrics{
		CampaignID: "c1",
		TenantID:   "tenant-1",
		SentTotal:  42,
	}
	if err := c.SetCampaignMetrics(ctx, m); err != nil {
		t.Fatalf("SetCampaignMetrics error: %v", err)
	}

	got, err := c.GetCampaignMetrics(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCampaignMetrics error: %v", err)
	}
	if got == nil || got.SentTotal != 42 {
		t.Errorf("cached metrics = %+v, want SentTotal 42", got)
	}

	// Mutating the stored value must not affect the cache.
	m.SentTotal = 0
	got, _ = c.GetCampaignMetrics(ctx, "c1")
	if got.SentTotal != 42 {
		t.Errorf("SentTotal = %d, caller mutation leaked into the cache", got.SentTotal)
	}
}

func TestHotCache_MissReturnsNil(t *testing.T) {
	c := NewHotCache()
	ctx := context.Background()

	m, err := c.GetCampaignMetrics(ctx, "missing")
	if err != nil || m != nil {
		t.Errorf("GetCampaignMetrics = %v, %v, want nil, nil on miss", m, err)
	}

	status, err := c.GetAlertStatus(ctx, "missing")
	if err != nil || status != nil {
		t.Errorf("GetAlertStatus = %v, %v, want nil, nil on miss", status, err)
	}
}

func TestHotCache_AlertStatusRoundTrip(t *testing.T) {
	c := NewHotCache()
	ctx := context.Background()

	now := time.Now().UTC()
	status := &cache.AlertStatus{
		Triggered:           true,
		FailureRate:         0.12,
		Threshold:           0.05,
		WindowSeconds:       300,
		LastTriggeredAt:     &now,
		LastEvaluatedAt:     now,
		ConsecutiveBreaches: 3,
	}
	if err := c.SetAlertStatus(ctx, "c1", status); err != nil {
		t.Fatalf("SetAlertStatus error: %v", err)
	}

	got, err := c.GetAlertStatus(ctx, "c1")
	if err != nil {
		t.Fatalf("GetAlertStatus error: %v", err)
	}
	if got == nil || !got.Triggered || got.FailureRate != 0.12 {
		t.Errorf("cached status = %+v, want triggered at rate 0.12", got)
	}
}

func TestHotCache_OverwriteReplacesEntry(t *testing.T) {
	c := NewHotCache()
	ctx := context.Background()

	c.SetAlertStatus(ctx, "c1", &cache.AlertStatus{Triggered: true})
	c.SetAlertStatus(ctx, "c1", &cache.AlertStatus{Triggered: false, FailureRate: 0.01})

	got, _ := c.GetAlertStatus(ctx, "c1")
	if got == nil || got.Triggered {
		t.Errorf("cached status = %+v, want the overwritten value", got)
	}
}

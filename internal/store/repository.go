// Package store defines the persistence interfaces for campaign metrics
// and alert policy/state. Implementations live in subpackages: postgres for
// production and memory for testing and development.
package store

import (
	"context"
	"time"

	"pulsemetrics/internal/domain"
)

// MetricsRepository persists the lifetime and per-minute counter tables.
//
// Both upserts must be additive: the store computes each new counter as the
// existing stored value plus this batch's delta in a single atomic
// statement. This is what makes overlapping batches from multiple
// consumer-group members compose without client-side locking.
type MetricsRepository interface {
	// UpsertLifetime applies one additive upsert per campaign into the
	// lifetime table. Deltas must already be collapsed per campaign.
	UpsertLifetime(ctx context.Context, deltas []*domain.MetricsDelta) error

	// UpsertMinute applies one additive upsert per (campaign, bucket) into
	// the per-minute table.
	UpsertMinute(ctx context.Context, deltas []*domain.MetricsDelta) error

	// GetCampaign returns the lifetime counter row for a campaign, or
	// domain.ErrCampaignNotFound if no events were ever aggregated for it.
	GetCampaign(ctx context.Context, campaignID string) (*domain.CampaignMetrics, error)

	// WindowMetrics sums attempted/delivered/failed over per-minute rows
	// with bucket_minute >= since.
	WindowMetrics(ctx context.Context, campaignID string, since time.Time) (domain.WindowMetrics, error)
}

// AlertRepository persists alert policies and per-campaign alert state.
type AlertRepository interface {
	// ResolvePolicy returns the policy governing a campaign, preferring a
	// campaign-specific row, then the tenant default, then the system
	// default. It never fails to produce a policy on a healthy store.
	ResolvePolicy(ctx context.Context, tenantID, campaignID string) (*domain.AlertPolicy, error)

	// GetOrCreateState returns the campaign's alert state, lazily creating
	// the initial untriggered state on first evaluation.
	GetOrCreateState(ctx context.Context, tenantID, campaignID string) (*domain.AlertState, error)

	// SaveState persists the state after an evaluation, transition or not.
	SaveState(ctx context.Context, state *domain.AlertState) error
}

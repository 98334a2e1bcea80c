// Package cache defines the hot read cache for lifetime campaign metrics
// and alert status. External readers hit this cache instead of the metrics
// tables; entries carry short TTLs and are republished on every flush.
package cache

import (
	"context"
	"time"

	"pulsemetrics/internal/domain"
)

// TTLs for the two hot cache entry kinds.
const (
	MetricsTTL = time.Hour
	AlertTTL   = 30 * time.Second
)

// AlertStatus is the JSON payload published under campaign:alert:{id}.
type AlertStatus struct {
	Triggered           bool       `json:"triggered"`
	FailureRate         float64    `json:"failureRate"`
	Threshold           float64    `json:"threshold"`
	WindowSeconds       int        `json:"windowSeconds"`
	LastTriggeredAt     *time.Time `json:"lastTriggeredAt,omitempty"`
	LastClearedAt       *time.Time `json:"lastClearedAt,omitempty"`
	LastEvaluatedAt     time.Time  `json:"lastEvaluatedAt"`
	ConsecutiveBreaches int        `json:"consecutiveBreaches"`
}

// NewAlertStatus builds the cache payload from an evaluated state and the
// policy it was evaluated against.
func NewAlertStatus(state *domain.AlertState, policy *domain.AlertPolicy) *AlertStatus {
	return &AlertStatus{
		Triggered:           state.Triggered,
		FailureRate:         state.LastFailureRate,
		Threshold:           policy.FailureRateThreshold,
		WindowSeconds:       policy.EvaluationWindowSeconds,
		LastTriggeredAt:     state.LastTriggeredAt,
		LastClearedAt:       state.LastClearedAt,
		LastEvaluatedAt:     state.LastEvaluatedAt,
		ConsecutiveBreaches: state.ConsecutiveBreaches,
	}
}

// HotCache republishes campaign metrics and alert status for low-latency
// external reads.
type HotCache interface {
	// SetCampaignMetrics caches the lifetime totals under
	// campaign:metrics:{campaignId} with MetricsTTL.
	SetCampaignMetrics(ctx context.Context, metrics *domain.CampaignMetrics) error

	// GetCampaignMetrics returns the cached lifetime totals, or nil when
	// the key is absent or expired.
	GetCampaignMetrics(ctx context.Context, campaignID string) (*domain.CampaignMetrics, error)

	// SetAlertStatus caches the alert status under
	// campaign:alert:{campaignId} with AlertTTL.
	SetAlertStatus(ctx context.Context, campaignID string, status *AlertStatus) error

	// GetAlertStatus returns the cached alert status, or nil when the key
	// is absent or expired.
	GetAlertStatus(ctx context.Context, campaignID string) (*AlertStatus, error)

	// Close releases the underlying connection.
	Close() error
}

// Package memory provides an in-memory hot cache implementation with lazy
// TTL expiration, for testing and development without a Redis instance.
package memory

import (
	"context"
	"sync"
	"time"

	"pulsemetrics/internal/cache"
	"pulsemetrics/internal/domain"
)

// entry wraps a cached value with expiration tracking.
type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// HotCache is an in-memory implementation of cache.HotCache.
// TTL expiration is checked on access (lazy expiration).
type HotCache struct {
	mu sync.RWMutex

	metrics map[string]entry[*domain.CampaignMetrics]
	alerts  map[string]entry[*cache.AlertStatus]
}

// NewHotCache creates an empty in-memory hot cache.
func NewHotCache() *HotCache {
	return &HotCache{
		metrics: make(map[string]entry[*domain.CampaignMetrics]),
		alerts:  make(map[string]entry[*cache.AlertStatus]),
	}
}

// SetCampaignMetrics caches the lifetime totals with cache.MetricsTTL.
func (c *HotCache) SetCampaignMetrics(ctx context.Context, metrics *domain.CampaignMetrics) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	metricsCopy := *metrics
	c.metrics[metrics.CampaignID] = entry[*domain.CampaignMetrics]{
		value:     &metricsCopy,
		expiresAt: time.Now().Add(cache.MetricsTTL),
	}
	return nil
}

// GetCampaignMetrics returns the cached lifetime totals, or nil when the
// entry is absent or expired.
func (c *HotCache) GetCampaignMetrics(ctx context.Context, campaignID string) (*domain.CampaignMetrics, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.metrics[campaignID]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, nil
	}

	result := *e.value
	return &result, nil
}

// SetAlertStatus caches the alert status with cache.AlertTTL.
func (c *HotCache) SetAlertStatus(ctx context.Context, campaignID string, status *cache.AlertStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	statusCopy := *status
	c.alerts[campaignID] = entry[*cache.AlertStatus]{
		value:     &statusCopy,
		expiresAt: time.Now().Add(cache.AlertTTL),
	}
	return nil
}

// GetAlertStatus returns the cached alert status, or nil when the entry is
// absent or expired.
func (c *HotCache) GetAlertStatus(ctx context.Context, campaignID string) (*cache.AlertStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.alerts[campaignID]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, nil
	}

	result := *e.value
	return &result, nil
}

// Close is a no-op for the in-memory cache.
func (c *HotCache) Close() error {
	return nil
}

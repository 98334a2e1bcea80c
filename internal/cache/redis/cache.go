// Package redis provides the Redis-backed hot cache implementation.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pulsemetrics/internal/cache"
	"pulsemetrics/internal/config"
	"pulsemetrics/internal/domain"
)

// Key prefixes for the hot cache entries.
const (
	prefixMetrics = "campaign:metrics:"
	prefixAlert   = "campaign:alert:"
)

// HotCache implements cache.HotCache using Redis string keys with TTLs.
type HotCache struct {
	client *redis.Client
}

// NewHotCache creates a new Redis-backed hot cache.
func NewHotCache(cfg *config.RedisConfig) (*HotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &HotCache{client: client}, nil
}

// metricsKey generates the cache key for a campaign's lifetime totals.
func metricsKey(campaignID string) string {
	return prefixMetrics + campaignID
}

// alertKey generates the cache key for a campaign's alert status.
func alertKey(campaignID string) string {
	return prefixAlert + campaignID
}

// SetCampaignMetrics caches the lifetime totals with a one hour TTL.
func (c *HotCache) SetCampaignMetrics(ctx context.Context, metrics *domain.CampaignMetrics) error {
	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign metrics: %w", err)
	}

	if err := c.client.Set(ctx, metricsKey(metrics.CampaignID), data, cache.MetricsTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache campaign metrics: %w", err)
	}

	return nil
}

// GetCampaignMetrics returns the cached lifetime totals, or nil on a miss.
func (c *HotCache) GetCampaignMetrics(ctx context.Context, campaignID string) (*domain.CampaignMetrics, error) {
	data, err := c.client.Get(ctx, metricsKey(campaignID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached campaign metrics: %w", err)
	}

	var metrics domain.CampaignMetrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal campaign metrics: %w", err)
	}

	return &metrics, nil
}

// SetAlertStatus caches the alert status with a 30 second TTL.
func (c *HotCache) SetAlertStatus(ctx context.Context, campaignID string, status *cache.AlertStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal alert status: %w", err)
	}

	if err := c.client.Set(ctx, alertKey(campaignID), data, cache.AlertTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache alert status: %w", err)
	}

	return nil
}

// GetAlertStatus returns the cached alert status, or nil on a miss.
func (c *HotCache) GetAlertStatus(ctx context.Context, campaignID string) (*cache.AlertStatus, error) {
	data, err := c.client.Get(ctx, alertKey(campaignID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached alert status: %w", err)
	}

	var status cache.AlertStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert status: %w", err)
	}

	return &status, nil
}

// Close closes the Redis client connection.
func (c *HotCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

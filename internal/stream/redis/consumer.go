// Package redis provides the Redis Streams implementation of the stream
// consumer-group abstraction.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"pulsemetrics/internal/config"
	"pulsemetrics/internal/stream"
)

// Consumer reads delivery events from a Redis Stream via XREADGROUP under
// a durable consumer group.
type Consumer struct {
	client    *redis.Client
	streamKey string
	group     string
	name      string
	block     time.Duration

	// backlog is true while this consumer still drains entries that were
	// delivered to it before a restart but never acknowledged. Once a
	// backlog read comes back empty, reads switch to new entries only.
	backlog bool
}

// NewConsumer creates a consumer-group reader over the configured stream.
func NewConsumer(redisCfg *config.RedisConfig, consumerCfg *config.ConsumerConfig) (*Consumer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.RedisAddr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Consumer{
		client:    client,
		streamKey: consumerCfg.StreamKey,
		group:     consumerCfg.Group,
		name:      consumerCfg.Name,
		block:     consumerCfg.PollInterval,
		backlog:   true,
	}, nil
}

// Setup creates the consumer group at the start of the stream, creating
// the stream itself if it does not exist yet. A group that already exists
// is fine; any other error aborts startup.
func (c *Consumer) Setup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.streamKey, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %q on %q: %w", c.group, c.streamKey, err)
	}
	return nil
}

// Read fetches up to count entries for this consumer identity. Backlog
// entries (previously claimed, never acked) are drained before new ones.
func (c *Consumer) Read(ctx context.Context, count int64) ([]stream.Entry, error) {
	id := ">"
	block := c.block
	if c.backlog {
		id = "0"
		// Backlog reads return immediately; blocking only makes sense
		// when waiting for new entries.
		block = -1
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  []string{c.streamKey, id},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			// Block timeout with nothing to read.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var entries []stream.Entry
	for _, s := range streams {
		for _, msg := range s.Messages {
			entries = append(entries, stream.Entry{
				ID:     msg.ID,
				Fields: stringFields(msg.Values),
			})
		}
	}

	if c.backlog && len(entries) == 0 {
		c.backlog = false
	}

	return entries, nil
}

// Ack acknowledges the given entry IDs in the consumer group.
func (c *Consumer) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, c.streamKey, c.group, ids...).Err(); err != nil {
		return fmt.Errorf("failed to ack entries: %w", err)
	}
	return nil
}

// GroupInfo reports pending counts and per-consumer idle times via
// XPENDING and XINFO CONSUMERS.
func (c *Consumer) GroupInfo(ctx context.Context) (*stream.GroupInfo, error) {
	pending, err := c.client.XPending(ctx, c.streamKey, c.group).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to inspect pending entries: %w", err)
	}

	info := &stream.GroupInfo{
		Stream:  c.streamKey,
		Group:   c.group,
		Pending: pending.Count,
	}

	consumers, err := c.client.XInfoConsumers(ctx, c.streamKey, c.group).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to inspect consumers: %w", err)
	}

	for _, ci := range consumers {
		info.Consumers = append(info.Consumers, stream.ConsumerInfo{
			Name:    ci.Name,
			Pending: ci.Pending,
			Idle:    ci.Idle,
		})
	}

	return info, nil
}

// Close closes the Redis client connection.
func (c *Consumer) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// stringFields converts raw stream entry values to string fields. Redis
// stream values are strings on the wire; anything else is stringified.
func stringFields(values map[string]interface{}) map[string]string {
	fields := make(map[string]string, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok {
			fields[k] = s
			continue
		}
		fields[k] = fmt.Sprint(v)
	}
	return fields
}

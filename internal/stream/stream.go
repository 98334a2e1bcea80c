// Package stream defines the consumer-group abstraction over the
// append-only delivery event log. Implementations live in subpackages:
// redis (Redis Streams) for production and memory for tests/development.
package stream

import (
	"context"
	"time"
)

// Entry is one raw log entry: a stream-assigned ID plus named string
// fields. Parsing into a typed event happens in the pipeline, not here.
type Entry struct {
	ID     string
	Fields map[string]string
}

// Consumer reads entries from the log under a durable consumer-group
// cursor. Reads claim both new entries and entries previously delivered to
// this consumer identity but never acknowledged.
type Consumer interface {
	// Setup creates or verifies the consumer group. A pre-existing group
	// is not an error; any other failure is fatal at startup.
	Setup(ctx context.Context) error

	// Read returns up to count entries. It first drains this consumer's
	// previously claimed-but-unacknowledged entries, then claims new ones.
	// A read with no entries available blocks for at most the configured
	// poll interval and returns an empty slice.
	Read(ctx context.Context, count int64) ([]Entry, error)

	// Ack acknowledges entries so the group never redelivers them.
	Ack(ctx context.Context, ids ...string) error

	// GroupInfo reports the group's pending entry count and per-consumer
	// idle times for operational alerting on the pipeline itself.
	GroupInfo(ctx context.Context) (*GroupInfo, error)

	// Close releases the underlying connection.
	Close() error
}

// GroupInfo describes the state of the consumer group.
type GroupInfo struct {
	Stream    string         `json:"stream"`
	Group     string         `json:"group"`
	Pending   int64          `json:"pending"`
	Consumers []ConsumerInfo `json:"consumers"`
}

// ConsumerInfo describes one member of the consumer group.
type ConsumerInfo struct {
	Name    string        `json:"name"`
	Pending int64         `json:"pending"`
	Idle    time.Duration `json:"idle"`
}

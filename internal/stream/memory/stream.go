// Package memory provides an in-memory implementation of the stream
// consumer-group abstraction, useful for testing and development without a
// Redis instance.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pulsemetrics/internal/stream"
)

// Stream is an in-memory append-only log with single-group consumer
// semantics: appended entries are delivered once, stay pending until
// acknowledged, and are redelivered ahead of new entries after Reset.
type Stream struct {
	mu sync.Mutex

	entries []stream.Entry
	cursor  int
	pending map[string]stream.Entry
	nextSeq int64

	pollInterval time.Duration
}

// NewStream creates an empty in-memory stream.
func NewStream(pollInterval time.Duration) *Stream {
	return &Stream{
		pending:      make(map[string]stream.Entry),
		pollInterval: pollInterval,
	}
}

// Append adds an entry with a generated monotonic ID and returns the ID.
func (s *Stream) Append(fields map[string]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	id := fmt.Sprintf("%d-0", s.nextSeq)
	s.entries = append(s.entries, stream.Entry{ID: id, Fields: fields})
	return id
}

// Setup is a no-op for the in-memory stream.
func (s *Stream) Setup(ctx context.Context) error {
	return nil
}

// Read returns up to count undelivered entries, marking them pending. When
// nothing is available it waits for the poll interval and returns empty,
// mirroring a blocked stream read.
func (s *Stream) Read(ctx context.Context, count int64) ([]stream.Entry, error) {
	s.mu.Lock()

	var out []stream.Entry
	for s.cursor < len(s.entries) && int64(len(out)) < count {
		e := s.entries[s.cursor]
		s.cursor++
		s.pending[e.ID] = e
		out = append(out, e)
	}
	s.mu.Unlock()

	if len(out) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}

	return out, nil
}

// Ack removes entries from the pending set.
func (s *Stream) Ack(ctx context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.pending, id)
	}
	return nil
}

// Reset rewinds delivery so that unacknowledged entries are delivered
// again, simulating a consumer restart picking up its backlog.
func (s *Stream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if _, ok := s.pending[e.ID]; ok {
			s.cursor = i
			return
		}
	}
}

// GroupInfo reports the pending entry count.
func (s *Stream) GroupInfo(ctx context.Context) (*stream.GroupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &stream.GroupInfo{
		Stream:  "memory",
		Group:   "memory",
		Pending: int64(len(s.pending)),
		Consumers: []stream.ConsumerInfo{
			{Name: "memory", Pending: int64(len(s.pending))},
		},
	}, nil
}

// PendingCount returns the number of delivered-but-unacked entries.
func (s *Stream) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close is a no-op for the in-memory stream.
func (s *Stream) Close() error {
	return nil
}

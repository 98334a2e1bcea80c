package pipeline

import (
	"sync"
	"time"
)

// Stats tracks process-local pipeline counters. It is owned by the
// Service instance rather than package-global state so that tests and
// multiple pipelines never share counters.
type Stats struct {
	mu sync.Mutex

	startedAt        time.Time
	eventsProcessed  uint64
	eventsFailed     uint64
	eventsDeduped    uint64
	batchesProcessed uint64
	batchesFailed    uint64
	lastProcessed    time.Time
}

// NewStats creates a stats tracker anchored at the current time.
func NewStats() *Stats {
	return &Stats{startedAt: time.Now().UTC()}
}

// recordBuffered counts events successfully folded into a flushed batch.
func (s *Stats) recordBuffered(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eventsProcessed += uint64(n)
	s.lastProcessed = time.Now().UTC()
}

// recordFailed counts events lost to parse errors or failed batch writes.
func (s *Stats) recordFailed(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eventsFailed += uint64(n)
}

// recordDuplicate counts redelivered events dropped by the dedup guard.
func (s *Stats) recordDuplicate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eventsDeduped++
}

// recordBatch counts one successfully flushed batch.
func (s *Stats) recordBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batchesProcessed++
}

// recordBatchFailure counts one failed batch flush.
func (s *Stats) recordBatchFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batchesFailed++
}

// Snapshot is the externally visible health/observability contract.
type Snapshot struct {
	EventsProcessed   uint64     `json:"eventsProcessed"`
	EventsFailed      uint64     `json:"eventsFailed"`
	EventsDeduped     uint64     `json:"eventsDeduped"`
	BatchesProcessed  uint64     `json:"batchesProcessed"`
	BatchesFailed     uint64     `json:"batchesFailed"`
	LastProcessedTime *time.Time `json:"lastProcessedTime,omitempty"`
	UptimeSeconds     float64    `json:"uptimeSeconds"`
	EventsPerSecond   float64    `json:"eventsPerSecond"`
	SuccessRate       float64    `json:"successRate"`
	InMemoryDedupSize int        `json:"inMemoryDedupSize"`
}

// snapshot captures the current counters. The dedup size is filled in by
// the Service, which owns the cache.
func (s *Stats) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		EventsProcessed:  s.eventsProcessed,
		EventsFailed:     s.eventsFailed,
		EventsDeduped:    s.eventsDeduped,
		BatchesProcessed: s.batchesProcessed,
		BatchesFailed:    s.batchesFailed,
		UptimeSeconds:    time.Since(s.startedAt).Seconds(),
	}

	if !s.lastProcessed.IsZero() {
		t := s.lastProcessed
		snap.LastProcessedTime = &t
	}

	if snap.UptimeSeconds > 0 {
		snap.EventsPerSecond = float64(s.eventsProcessed) / snap.UptimeSeconds
	}

	total := s.eventsProcessed + s.eventsFailed
	if total == 0 {
		snap.SuccessRate = 1
	} else {
		snap.SuccessRate = float64(s.eventsProcessed) / float64(total)
	}

	return snap
}

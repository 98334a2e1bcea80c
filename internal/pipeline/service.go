// Package pipeline implements the streaming aggregation core: a single
// consumption loop that claims delivery events from the consumer group,
// drops redelivered duplicates, folds the rest into per-(campaign, minute)
// deltas, and flushes them through the metrics store, the hot cache, and
// the alert evaluator.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pulsemetrics/internal/cache"
	"pulsemetrics/internal/config"
	"pulsemetrics/internal/dedup"
	"pulsemetrics/internal/domain"
	"pulsemetrics/internal/metrics"
	"pulsemetrics/internal/notification"
	"pulsemetrics/internal/store"
	"pulsemetrics/internal/stream"
)

// retryBackoff is the fixed delay before retrying the loop after a
// transient read or write failure.
const retryBackoff = 2 * time.Second

// shutdownFlushTimeout bounds the final flush performed after the run
// context is cancelled.
const shutdownFlushTimeout = 10 * time.Second

// Service is the aggregation pipeline for one consumer process.
// It is responsible for:
// - Claiming new and previously unacknowledged stream entries
// - Parsing entries into typed events and acking them (at-least-once)
// - Suppressing redelivered duplicates within the dedup window
// - Folding buffered events into per-(campaign, bucket) deltas
// - Flushing deltas on batch size or batch timeout, whichever first
// - Driving per-campaign alert evaluation after each flush
type Service struct {
	consumer    stream.Consumer
	guard       *dedup.Cache
	metricsRepo store.MetricsRepository
	alertRepo   store.AlertRepository
	hotCache    cache.HotCache
	notifier    notification.Notifier
	cfg         *config.ConsumerConfig
	logger      *slog.Logger
	stats       *Stats

	// flushMu serializes the two flush trigger paths (size reached inline,
	// timeout based) and the final flush on shutdown.
	flushMu   sync.Mutex
	batch     []*domain.DeliveryEvent
	lastFlush time.Time
}

// NewService creates a new pipeline service.
func NewService(
	consumer stream.Consumer,
	guard *dedup.Cache,
	metricsRepo store.MetricsRepository,
	alertRepo store.AlertRepository,
	hotCache cache.HotCache,
	notifier notification.Notifier,
	cfg *config.ConsumerConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		consumer:    consumer,
		guard:       guard,
		metricsRepo: metricsRepo,
		alertRepo:   alertRepo,
		hotCache:    hotCache,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger,
		stats:       NewStats(),
	}
}

// Run consumes and aggregates until the context is cancelled. It is a
// blocking call; the loop is single-threaded, so event ordering within
// this process is simply arrival order. On cancellation the in-flight
// batch is flushed before returning.
func (s *Service) Run(ctx context.Context) error {
	if err := s.consumer.Setup(ctx); err != nil {
		// Fatal: without the group the process would silently consume nothing.
		return fmt.Errorf("consumer group setup failed: %w", err)
	}

	s.logger.Info("pipeline started",
		"stream", s.cfg.StreamKey,
		"group", s.cfg.Group,
		"consumer", s.cfg.Name,
		"batchSize", s.cfg.BatchSize,
		"batchTimeout", s.cfg.BatchTimeout,
	)

	s.lastFlush = time.Now()
	readFailures := 0

	for {
		select {
		case <-ctx.Done():
			return s.shutdown()
		default:
		}

		readStart := time.Now()
		entries, err := s.consumer.Read(ctx, int64(s.cfg.BatchSize-len(s.batch)))
		metrics.StreamReadLatency.Observe(time.Since(readStart).Seconds())

		if err != nil {
			if ctx.Err() != nil {
				return s.shutdown()
			}

			readFailures++
			s.logger.Error("stream read failed", "error", err, "failures", readFailures)
			if s.cfg.MaxRetries > 0 && readFailures > s.cfg.MaxRetries {
				return fmt.Errorf("giving up after %d consecutive read failures: %w", readFailures, err)
			}

			sleepCtx(ctx, retryBackoff)
			continue
		}
		readFailures = 0

		s.ingest(ctx, entries)

		if s.shouldFlush() {
			if err := s.flush(ctx); err != nil {
				// The batch is already dropped and counted; the loop
				// backs off and keeps consuming.
				s.logger.Error("batch flush failed", "error", err)
				sleepCtx(ctx, retryBackoff)
			}
		}
	}
}

// ingest parses, deduplicates, buffers, and acknowledges one read's worth
// of entries. Every entry is acked regardless of outcome: malformed
// entries would otherwise be redelivered forever, and duplicates are
// already accounted for.
func (s *Service) ingest(ctx context.Context, entries []stream.Entry) {
	if len(entries) == 0 {
		return
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)

		event, err := domain.ParseDeliveryEvent(entry.ID, entry.Fields)
		if err != nil {
			s.logger.Warn("dropping malformed stream entry", "entryId", entry.ID, "error", err)
			metrics.EventsProcessedTotal.WithLabelValues("parse_error").Inc()
			s.stats.recordFailed(1)
			continue
		}

		if s.guard.Contains(event.EventID) {
			metrics.EventsProcessedTotal.WithLabelValues("duplicate").Inc()
			s.stats.recordDuplicate()
			continue
		}
		s.guard.Mark(event.EventID)

		s.batch = append(s.batch, event)
		metrics.EventsProcessedTotal.WithLabelValues("buffered").Inc()
	}

	metrics.DedupCacheSize.Set(float64(s.guard.Len()))

	if err := s.consumer.Ack(ctx, ids...); err != nil {
		// The entries stay pending and will be redelivered; the dedup
		// guard keeps the redelivery from double counting.
		s.logger.Error("failed to ack entries", "error", err, "count", len(ids))
	}
}

// shouldFlush reports whether either flush trigger has fired. Checked
// every loop iteration rather than from a separate timer goroutine.
func (s *Service) shouldFlush() bool {
	if len(s.batch) >= s.cfg.BatchSize {
		return true
	}
	return len(s.batch) > 0 && time.Since(s.lastFlush) >= s.cfg.BatchTimeout
}

// flush aggregates the buffered batch and hands it to the metrics store,
// the hot cache, and the alert evaluator, in that order. The batch buffer
// is cleared up front: on a write failure the whole batch is counted as
// failed and lost, since its entries were already acknowledged.
func (s *Service) flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		return nil
	}

	batch := s.batch
	s.batch = nil

	flushStart := time.Now()
	deltas := domain.NewDeltaMap()
	for _, event := range batch {
		deltas.Fold(event)
	}

	if err := s.metricsRepo.UpsertLifetime(ctx, deltas.Collapse()); err != nil {
		return s.failBatch(len(batch), fmt.Errorf("lifetime upsert: %w", err))
	}
	if err := s.metricsRepo.UpsertMinute(ctx, deltas.Deltas()); err != nil {
		return s.failBatch(len(batch), fmt.Errorf("minute upsert: %w", err))
	}

	if err := s.refreshHotCache(ctx, deltas); err != nil {
		return s.failBatch(len(batch), fmt.Errorf("hot cache refresh: %w", err))
	}

	s.evaluateAlerts(ctx, deltas.Campaigns())

	s.stats.recordBuffered(len(batch))
	s.stats.recordBatch()
	metrics.BatchesFlushedTotal.WithLabelValues("success").Inc()
	metrics.BatchSize.Observe(float64(len(batch)))
	metrics.BatchFlushLatency.Observe(time.Since(flushStart).Seconds())

	s.logger.Debug("batch flushed",
		"events", len(batch),
		"campaigns", len(deltas.Campaigns()),
		"buckets", len(deltas),
	)

	return nil
}

// failBatch records a lost batch. The constituent events were already
// acknowledged, so they are permanently absent from the aggregates.
func (s *Service) failBatch(events int, err error) error {
	s.stats.recordFailed(events)
	s.stats.recordBatchFailure()
	metrics.BatchesFlushedTotal.WithLabelValues("failure").Inc()
	return err
}

// refreshHotCache republishes the lifetime totals of every campaign
// touched by the batch.
func (s *Service) refreshHotCache(ctx context.Context, deltas domain.DeltaMap) error {
	for _, delta := range deltas.Collapse() {
		m, err := s.metricsRepo.GetCampaign(ctx, delta.CampaignID)
		if err != nil {
			return fmt.Errorf("read lifetime row for %s: %w", delta.CampaignID, err)
		}
		if err := s.hotCache.SetCampaignMetrics(ctx, m); err != nil {
			return fmt.Errorf("cache lifetime row for %s: %w", delta.CampaignID, err)
		}
	}
	return nil
}

// shutdown flushes the in-flight batch before the loop exits. The run
// context is already cancelled, so the final writes get their own bounded
// context.
func (s *Service) shutdown() error {
	s.logger.Info("pipeline stopping, flushing in-flight batch", "buffered", len(s.batch))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()

	if err := s.flush(ctx); err != nil {
		s.logger.Error("final flush failed", "error", err)
	}
	return nil
}

// Stats returns the externally visible pipeline counters.
func (s *Service) Stats() Snapshot {
	snap := s.stats.snapshot()
	snap.InMemoryDedupSize = s.guard.Len()
	return snap
}

// GroupInfo exposes the consumer group inspection surface for the API.
func (s *Service) GroupInfo(ctx context.Context) (*stream.GroupInfo, error) {
	return s.consumer.GroupInfo(ctx)
}

// Close closes the stream consumer.
func (s *Service) Close() error {
	return s.consumer.Close()
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

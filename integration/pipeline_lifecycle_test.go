package integration

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	cachemem "pulsemetrics/internal/cache/memory"
	"pulsemetrics/internal/config"
	"pulsemetrics/internal/dedup"
	"pulsemetrics/internal/domain"
	"pulsemetrics/internal/notification"
	"pulsemetrics/internal/pipeline"
	storemem "pulsemetrics/internal/store/memory"
	streammem "pulsemetrics/internal/stream/memory"
)

// stack holds one fully wired in-memory pipeline under test.
type stack struct {
	stream      *streammem.Stream
	metricsRepo *storemem.MetricsRepository
	alertRepo   *storemem.AlertRepository
	hotCache    *cachemem.HotCache
	service     *pipeline.Service

	cancel context.CancelFunc
	done   chan error
}

func startStack(policy *domain.AlertPolicy) *stack {
	s := &stack{
		stream:      streammem.NewStream(10 * time.Millisecond),
		metricsRepo: storemem.NewMetricsRepository(),
		alertRepo:   storemem.NewAlertRepository(policy),
		hotCache:    cachemem.NewHotCache(),
		done:        make(chan error, 1),
	}

	guard, err := dedup.NewCache(10000)
	Expect(err).NotTo(HaveOccurred())

	cfg := &config.ConsumerConfig{
		StreamKey:    "events:delivery",
		Group:        "metrics-aggregator",
		Name:         "integration-consumer",
		BatchSize:    100,
		BatchTimeout: 50 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		MaxRetries:   3,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.service = pipeline.NewService(
		s.stream,
		guard,
		s.metricsRepo,
		s.alertRepo,
		s.hotCache,
		notification.NewStubNotifier(logger),
		cfg,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() { s.done <- s.service.Run(ctx) }()

	return s
}

func (s *stack) stop() {
	s.cancel()
	Eventually(s.done, 5*time.Second).Should(Receive(BeNil()))
}

func (s *stack) publish(campaignID string, eventType domain.EventType, at time.Time) string {
	return s.stream.Append(map[string]string{
		domain.FieldTenantID:   "tenant-1",
		domain.FieldCampaignID: campaignID,
		domain.FieldChannel:    string(domain.ChannelSms),
		domain.FieldEventType:  string(eventType),
		domain.FieldOccurredAt: at.Format(time.RFC3339),
	})
}

// publishBatch emits failures first so that however the consumer splits
// the batch across flushes, the rolling window's failure rate only falls
// as the remaining sends drain.
func (s *stack) publishBatch(campaignID string, sent, delivered, failed int) {
	at := time.Now().UTC()
	for i := 0; i < failed; i++ {
		s.publish(campaignID, domain.EventFailed, at)
	}
	for i := 0; i < delivered; i++ {
		s.publish(campaignID, domain.EventDelivered, at)
	}
	for i := 0; i < sent; i++ {
		s.publish(campaignID, domain.EventSent, at)
	}
}

func (s *stack) lifetimeSent(campaignID string) int64 {
	row, err := s.metricsRepo.GetCampaign(context.Background(), campaignID)
	if err != nil {
		return 0
	}
	return row.SentTotal
}

var _ = Describe("Pipeline Lifecycle", func() {
	Context("when delivery events arrive on the stream", func() {
		It("aggregates them into lifetime and per-minute counters", func() {
			s := startStack(nil)
			defer s.stop()

			s.publishBatch("campaign-agg", 100, 90, 10)

			Eventually(func() int64 {
				return s.lifetimeSent("campaign-agg")
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(int64(100)))

			row, err := s.metricsRepo.GetCampaign(context.Background(), "campaign-agg")
			Expect(err).NotTo(HaveOccurred())
			Expect(row.DeliveredTotal).To(Equal(int64(90)))
			Expect(row.FailedTotal).To(Equal(int64(10)))
			Expect(row.SmsSent).To(Equal(int64(100)))

			window, err := s.metricsRepo.WindowMetrics(context.Background(), "campaign-agg",
				time.Now().UTC().Add(-5*time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(window.Attempted).To(Equal(int64(100)))
			Expect(window.Failed).To(Equal(int64(10)))

			// Lifetime totals are published to the hot cache on flush.
			Eventually(func() *domain.CampaignMetrics {
				cached, _ := s.hotCache.GetCampaignMetrics(context.Background(), "campaign-agg")
				return cached
			}, 5*time.Second, 20*time.Millisecond).ShouldNot(BeNil())

			// All stream entries are acknowledged.
			Eventually(s.stream.PendingCount, 5*time.Second, 20*time.Millisecond).Should(BeZero())
		})

		It("counts redelivered entries exactly once", func() {
			s := startStack(nil)
			defer s.stop()

			s.publishBatch("campaign-dedup", 10, 0, 0)

			Eventually(func() int64 {
				return s.lifetimeSent("campaign-dedup")
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(int64(10)))

			// Rewinding the stream redelivers nothing: everything was acked.
			s.stream.Reset()

			Consistently(func() int64 {
				return s.lifetimeSent("campaign-dedup")
			}, 300*time.Millisecond, 50*time.Millisecond).Should(Equal(int64(10)))
		})

		It("acks malformed entries without stalling the pipeline", func() {
			s := startStack(nil)
			defer s.stop()

			s.stream.Append(map[string]string{"not": "an-event"})
			s.publishBatch("campaign-poison", 5, 0, 0)

			Eventually(func() int64 {
				return s.lifetimeSent("campaign-poison")
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(int64(5)))

			Eventually(s.stream.PendingCount, 5*time.Second, 20*time.Millisecond).Should(BeZero())

			snap := s.service.Stats()
			Expect(snap.EventsFailed).To(Equal(uint64(1)))
		})
	})

	Context("when a campaign's failure rate breaches the threshold", func() {
		policy := &domain.AlertPolicy{
			FailureRateThreshold:    0.05,
			MinConsecutiveBuckets:   2,
			EvaluationWindowSeconds: 300,
		}

		It("triggers after consecutive breaches and clears below the hysteresis band", func() {
			s := startStack(policy)
			defer s.stop()

			triggered := func() bool {
				status, _ := s.hotCache.GetAlertStatus(context.Background(), "campaign-alert")
				return status != nil && status.Triggered
			}

			// First breaching batch: rate 0.10.
			s.publishBatch("campaign-alert", 100, 90, 10)
			Eventually(func() int64 {
				return s.lifetimeSent("campaign-alert")
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(int64(100)))

			// Second breaching batch pushes past MinConsecutiveBuckets.
			s.publishBatch("campaign-alert", 100, 90, 10)
			Eventually(triggered, 5*time.Second, 20*time.Millisecond).Should(BeTrue())

			state, err := s.alertRepo.GetOrCreateState(context.Background(), "tenant-1", "campaign-alert")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Triggered).To(BeTrue())
			Expect(state.LastTriggeredAt).NotTo(BeNil())

			// A healthy batch drags the window rate to 20/1000 = 0.02,
			// below the 0.04 clear line.
			s.publishBatch("campaign-alert", 800, 800, 0)
			Eventually(triggered, 5*time.Second, 20*time.Millisecond).Should(BeFalse())

			state, err = s.alertRepo.GetOrCreateState(context.Background(), "tenant-1", "campaign-alert")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Triggered).To(BeFalse())
			Expect(state.LastClearedAt).NotTo(BeNil())
			Expect(state.ConsecutiveBreaches).To(BeZero())
		})

		It("holds a triggered alert inside the hysteresis band", func() {
			s := startStack(policy)
			defer s.stop()

			triggered := func() bool {
				status, _ := s.hotCache.GetAlertStatus(context.Background(), "campaign-band")
				return status != nil && status.Triggered
			}

			s.publishBatch("campaign-band", 100, 90, 10)
			Eventually(func() int64 {
				return s.lifetimeSent("campaign-band")
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(int64(100)))

			s.publishBatch("campaign-band", 100, 90, 10)
			Eventually(triggered, 5*time.Second, 20*time.Millisecond).Should(BeTrue())

			// 45/1000 = 0.045: below threshold, inside the band. Must hold.
			s.publishBatch("campaign-band", 800, 775, 25)
			Consistently(triggered, 300*time.Millisecond, 50*time.Millisecond).Should(BeTrue())
		})
	})
})

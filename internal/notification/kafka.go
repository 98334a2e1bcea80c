package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"pulsemetrics/internal/config"
	"pulsemetrics/internal/metrics"
)

// KafkaNotifier publishes alert transitions to a Kafka topic. Messages are
// keyed by campaign ID so that all transitions for one campaign land on
// the same partition in order.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaNotifier creates a Kafka-backed transition publisher.
func NewKafkaNotifier(cfg *config.KafkaConfig, logger *slog.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // Use key-based partitioning
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaNotifier{
		writer: writer,
		logger: logger,
	}
}

// NotifyTransition publishes one transition event. Publish failures are
// logged and counted but never propagate: the alert state is already
// persisted, and dropping a notification must not fail the evaluation.
func (n *KafkaNotifier) NotifyTransition(ctx context.Context, event *TransitionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to serialize transition event", "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.CampaignID),
		Value: payload,
	}

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		n.logger.Error("failed to publish transition event",
			"error", err,
			"campaignId", event.CampaignID,
			"transition", event.Transition,
		)
		metrics.NotificationsPublishedTotal.WithLabelValues("failure").Inc()
		return
	}

	metrics.NotificationsPublishedTotal.WithLabelValues("success").Inc()
}

// Close closes the Kafka writer.
func (n *KafkaNotifier) Close() error {
	if n.writer != nil {
		return n.writer.Close()
	}
	return nil
}

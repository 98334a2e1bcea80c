// Package notification publishes alert transition events for downstream
// notifiers (on-call paging, dashboards). The pipeline itself only raises
// and clears alert state; delivery of human-facing notifications happens
// outside this service.
package notification

import (
	"context"
	"log/slog"
	"time"

	"pulsemetrics/internal/domain"
)

// TransitionEvent is the payload published when an alert triggers or
// clears.
type TransitionEvent struct {
	TenantID            string    `json:"tenantId"`
	CampaignID          string    `json:"campaignId"`
	Transition          string    `json:"transition"` // "triggered" or "cleared"
	FailureRate         float64   `json:"failureRate"`
	Threshold           float64   `json:"threshold"`
	ConsecutiveBreaches int       `json:"consecutiveBreaches"`
	OccurredAt          time.Time `json:"occurredAt"`
}

// NewTransitionEvent builds the payload from an evaluated state.
func NewTransitionEvent(state *domain.AlertState, policy *domain.AlertPolicy, transition domain.Transition) *TransitionEvent {
	return &TransitionEvent{
		TenantID:            state.TenantID,
		CampaignID:          state.CampaignID,
		Transition:          transition.String(),
		FailureRate:         state.LastFailureRate,
		Threshold:           policy.FailureRateThreshold,
		ConsecutiveBreaches: state.ConsecutiveBreaches,
		OccurredAt:          state.LastEvaluatedAt,
	}
}

// Notifier publishes alert transitions.
type Notifier interface {
	// NotifyTransition publishes one transition. Failures are logged by
	// the implementation and never fail the evaluation that produced them.
	NotifyTransition(ctx context.Context, event *TransitionEvent)

	// Close releases the underlying connection.
	Close() error
}

// StubNotifier logs transitions instead of publishing them. Used in
// memory mode and when the Kafka topic is disabled.
type StubNotifier struct {
	logger *slog.Logger
}

// NewStubNotifier creates a new stub notifier.
func NewStubNotifier(logger *slog.Logger) *StubNotifier {
	return &StubNotifier{logger: logger}
}

// NotifyTransition logs the transition.
func (n *StubNotifier) NotifyTransition(ctx context.Context, event *TransitionEvent) {
	n.logger.Info("alert transition",
		"campaignId", event.CampaignID,
		"tenantId", event.TenantID,
		"transition", event.Transition,
		"failureRate", event.FailureRate,
		"threshold", event.Threshold,
	)
}

// Close is a no-op for the stub notifier.
func (n *StubNotifier) Close() error {
	return nil
}

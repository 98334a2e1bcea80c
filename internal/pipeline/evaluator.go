package pipeline

import (
	"context"
	"fmt"
	"time"

	"pulsemetrics/internal/cache"
	"pulsemetrics/internal/domain"
	"pulsemetrics/internal/metrics"
	"pulsemetrics/internal/notification"
)

// evaluateAlerts runs the failure-rate state machine for every campaign
// touched by a flushed batch. A failure evaluating one campaign never
// blocks evaluation of the others.
func (s *Service) evaluateAlerts(ctx context.Context, campaigns []domain.CampaignRef) {
	for _, ref := range campaigns {
		if err := s.evaluateCampaign(ctx, ref); err != nil {
			s.logger.Error("alert evaluation failed",
				"campaignId", ref.CampaignID,
				"tenantId", ref.TenantID,
				"error", err,
			)
			metrics.AlertEvaluationsTotal.WithLabelValues("failure").Inc()
			continue
		}
		metrics.AlertEvaluationsTotal.WithLabelValues("success").Inc()
	}
}

// evaluateCampaign performs one evaluation: resolve the policy, load the
// state, sum the rolling window from the per-minute table, apply the
// hysteresis state machine, and persist the result to both the alert
// store and the hot cache. State is written on every evaluation, with or
// without a transition.
func (s *Service) evaluateCampaign(ctx context.Context, ref domain.CampaignRef) error {
	policy, err := s.alertRepo.ResolvePolicy(ctx, ref.TenantID, ref.CampaignID)
	if err != nil {
		return fmt.Errorf("resolve policy: %w", err)
	}

	state, err := s.alertRepo.GetOrCreateState(ctx, ref.TenantID, ref.CampaignID)
	if err != nil {
		return fmt.Errorf("load alert state: %w", err)
	}

	now := time.Now().UTC()
	window, err := s.metricsRepo.WindowMetrics(ctx, ref.CampaignID, now.Add(-policy.Window()))
	if err != nil {
		return fmt.Errorf("sum window metrics: %w", err)
	}

	transition := state.Evaluate(policy, window, now)

	if err := s.alertRepo.SaveState(ctx, state); err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}

	if err := s.hotCache.SetAlertStatus(ctx, ref.CampaignID, cache.NewAlertStatus(state, policy)); err != nil {
		return fmt.Errorf("cache alert status: %w", err)
	}

	if transition != domain.TransitionNone {
		s.logger.Info("alert state transition",
			"campaignId", ref.CampaignID,
			"transition", transition.String(),
			"failureRate", state.LastFailureRate,
			"threshold", policy.FailureRateThreshold,
			"consecutiveBreaches", state.ConsecutiveBreaches,
		)
		metrics.AlertTransitionsTotal.WithLabelValues(transition.String()).Inc()
		s.notifier.NotifyTransition(ctx, notification.NewTransitionEvent(state, policy, transition))
	}

	return nil
}

package domain

import "time"

// HysteresisBuffer is the fixed margin below the trigger threshold that the
// failure rate must also clear before a triggered alert is cancelled. It
// prevents rapid trigger/clear oscillation when the rate hovers around the
// threshold.
const HysteresisBuffer = 0.01

// Default alert policy values, used when neither a campaign-specific nor a
// tenant-default policy row exists.
const (
	DefaultFailureRateThreshold    = 0.05
	DefaultMinConsecutiveBuckets   = 3
	DefaultEvaluationWindowSeconds = 300
)

// AlertPolicy is the resolved threshold configuration governing one
// campaign's alert evaluation. Resolution precedence is campaign-specific,
// then tenant-default, then the system default. A policy is immutable
// during one evaluation.
type AlertPolicy struct {
	// FailureRateThreshold is the failure rate (0..1) at or above which an
	// evaluation counts as a breach.
	FailureRateThreshold float64 `json:"failureRateThreshold"`

	// MinConsecutiveBuckets is how many consecutive breached evaluations
	// are required before the alert triggers.
	MinConsecutiveBuckets int `json:"minConsecutiveBuckets"`

	// EvaluationWindowSeconds is the width of the rolling window summed
	// from the per-minute table.
	EvaluationWindowSeconds int `json:"evaluationWindowSeconds"`
}

// DefaultAlertPolicy returns the system-default policy.
func DefaultAlertPolicy() *AlertPolicy {
	return &AlertPolicy{
		FailureRateThreshold:    DefaultFailureRateThreshold,
		MinConsecutiveBuckets:   DefaultMinConsecutiveBuckets,
		EvaluationWindowSeconds: DefaultEvaluationWindowSeconds,
	}
}

// Window returns the evaluation window as a duration.
func (p *AlertPolicy) Window() time.Duration {
	return time.Duration(p.EvaluationWindowSeconds) * time.Second
}

// Transition is the outcome of one alert evaluation.
type Transition int

const (
	// TransitionNone means the alert state did not change.
	TransitionNone Transition = iota
	// TransitionTriggered means the alert went from clear to triggered.
	TransitionTriggered
	// TransitionCleared means the alert went from triggered to clear.
	TransitionCleared
)

// String returns the transition name for logs and notification payloads.
func (t Transition) String() string {
	switch t {
	case TransitionTriggered:
		return "triggered"
	case TransitionCleared:
		return "cleared"
	default:
		return "none"
	}
}

// AlertState is the persisted failure-rate alert state for one campaign,
// lazily created on first evaluation and mutated solely by Evaluate.
type AlertState struct {
	TenantID   string `json:"tenantId"`
	CampaignID string `json:"campaignId"`

	// Triggered is the current state of the two-state machine.
	Triggered bool `json:"triggered"`

	// ConsecutiveBreaches counts evaluations in a row where the failure
	// rate met the threshold, regardless of the current state.
	ConsecutiveBreaches int `json:"consecutiveBreaches"`

	// LastFailureRate is the failure rate observed by the last evaluation.
	LastFailureRate float64 `json:"lastFailureRate"`

	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty"`
	LastClearedAt   *time.Time `json:"lastClearedAt,omitempty"`
	LastEvaluatedAt time.Time  `json:"lastEvaluatedAt"`
}

// NewAlertState creates the initial, untriggered state for a campaign.
func NewAlertState(tenantID, campaignID string) *AlertState {
	return &AlertState{
		TenantID:   tenantID,
		CampaignID: campaignID,
	}
}

// Evaluate applies one evaluation of the hysteresis state machine.
//
// The breach counter increments on every breached evaluation and resets to
// zero on every non-breached one. The alert triggers only from the clear
// state, once the counter reaches the policy minimum. A triggered alert
// clears only when the failure rate drops below the threshold minus the
// hysteresis buffer; clearing resets the breach counter. State, failure
// rate, and evaluation time are updated on every call regardless of
// transition.
func (s *AlertState) Evaluate(policy *AlertPolicy, window WindowMetrics, now time.Time) Transition {
	rate := window.FailureRate()
	breached := rate >= policy.FailureRateThreshold

	if breached {
		s.ConsecutiveBreaches++
	} else {
		s.ConsecutiveBreaches = 0
	}

	transition := TransitionNone
	switch {
	case !s.Triggered && breached && s.ConsecutiveBreaches >= policy.MinConsecutiveBuckets:
		s.Triggered = true
		s.LastTriggeredAt = &now
		transition = TransitionTriggered
	case s.Triggered && rate < policy.FailureRateThreshold-HysteresisBuffer:
		s.Triggered = false
		s.LastClearedAt = &now
		s.ConsecutiveBreaches = 0
		transition = TransitionCleared
	}

	s.LastFailureRate = rate
	s.LastEvaluatedAt = now
	return transition
}

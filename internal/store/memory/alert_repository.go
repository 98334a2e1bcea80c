package memory

import (
	"context"
	"sync"

	"pulsemetrics/internal/domain"
)

// AlertRepository is an in-memory implementation of store.AlertRepository.
type AlertRepository struct {
	mu sync.RWMutex

	// campaignPolicies holds campaign-specific policies keyed by campaign ID.
	campaignPolicies map[string]*domain.AlertPolicy

	// tenantPolicies holds tenant-default policies keyed by tenant ID.
	tenantPolicies map[string]*domain.AlertPolicy

	// states holds alert states keyed by campaign ID.
	states map[string]*domain.AlertState

	defaultPolicy *domain.AlertPolicy
}

// NewAlertRepository creates an empty in-memory alert repository with the
// given system-default policy.
func NewAlertRepository(defaultPolicy *domain.AlertPolicy) *AlertRepository {
	if defaultPolicy == nil {
		defaultPolicy = domain.DefaultAlertPolicy()
	}
	return &AlertRepository{
		campaignPolicies: make(map[string]*domain.AlertPolicy),
		tenantPolicies:   make(map[string]*domain.AlertPolicy),
		states:           make(map[string]*domain.AlertState),
		defaultPolicy:    defaultPolicy,
	}
}

// SetCampaignPolicy configures a campaign-specific policy.
func (r *AlertRepository) SetCampaignPolicy(campaignID string, policy *domain.AlertPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	policyCopy := *policy
	r.campaignPolicies[campaignID] = &policyCopy
}

// SetTenantPolicy configures a tenant-default policy.
func (r *AlertRepository) SetTenantPolicy(tenantID string, policy *domain.AlertPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	policyCopy := *policy
	r.tenantPolicies[tenantID] = &policyCopy
}

// ResolvePolicy returns the policy governing a campaign with precedence
// campaign-specific, then tenant-default, then system default.
func (r *AlertRepository) ResolvePolicy(ctx context.Context, tenantID, campaignID string) (*domain.AlertPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if policy, ok := r.campaignPolicies[campaignID]; ok {
		result := *policy
		return &result, nil
	}
	if policy, ok := r.tenantPolicies[tenantID]; ok {
		result := *policy
		return &result, nil
	}

	result := *r.defaultPolicy
	return &result, nil
}

// GetOrCreateState returns the campaign's alert state, lazily creating the
// initial untriggered state.
func (r *AlertRepository) GetOrCreateState(ctx context.Context, tenantID, campaignID string) (*domain.AlertState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[campaignID]
	if !ok {
		state = domain.NewAlertState(tenantID, campaignID)
		r.states[campaignID] = state
	}

	// Return a copy to prevent external modification
	result := *state
	return &result, nil
}

// SaveState persists the state produced by an evaluation.
func (r *AlertRepository) SaveState(ctx context.Context, state *domain.AlertState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stateCopy := *state
	r.states[state.CampaignID] = &stateCopy
	return nil
}

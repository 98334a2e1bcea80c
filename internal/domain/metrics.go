package domain

import (
	"errors"
	"time"
)

// ErrCampaignNotFound is returned when no metrics row exists for a campaign.
var ErrCampaignNotFound = errors.New("campaign metrics not found")

// CampaignMetrics is the persisted lifetime counter row for one campaign.
// Rows are only ever incremented via additive upserts, never overwritten,
// so every counter is monotonically non-decreasing.
type CampaignMetrics struct {
	CampaignID string `json:"campaignId"`
	TenantID   string `json:"tenantId"`

	SentTotal      int64 `json:"sentTotal"`
	DeliveredTotal int64 `json:"deliveredTotal"`
	FailedTotal    int64 `json:"failedTotal"`
	OpenTotal      int64 `json:"openTotal"`
	ClickTotal     int64 `json:"clickTotal"`

	SmsSent        int64 `json:"smsSent"`
	SmsDelivered   int64 `json:"smsDelivered"`
	SmsFailed      int64 `json:"smsFailed"`
	KakaoSent      int64 `json:"kakaoSent"`
	KakaoDelivered int64 `json:"kakaoDelivered"`
	KakaoFailed    int64 `json:"kakaoFailed"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MinuteMetrics is the persisted per-minute counter row for one
// (campaign, bucket_minute) pair. It follows the same additive discipline
// as CampaignMetrics and is the source of truth for rolling-window
// failure-rate computation.
type MinuteMetrics struct {
	CampaignID   string    `json:"campaignId"`
	TenantID     string    `json:"tenantId"`
	BucketMinute time.Time `json:"bucketMinute"`

	Attempted int64 `json:"attempted"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Open      int64 `json:"open"`
	Click     int64 `json:"click"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// WindowMetrics is the sum of per-minute counters over a rolling
// evaluation window, the input to failure-rate computation.
type WindowMetrics struct {
	Attempted int64
	Delivered int64
	Failed    int64
}

// FailureRate returns failed/attempted with an explicit zero-division
// guard: an empty window never breaches a threshold.
func (w WindowMetrics) FailureRate() float64 {
	if w.Attempted == 0 {
		return 0
	}
	return float64(w.Failed) / float64(w.Attempted)
}

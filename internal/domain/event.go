// Package domain contains the core entities of the campaign delivery
// metrics pipeline: delivery events, metric deltas, persisted counter rows,
// and the alert policy/state model.
package domain

import (
	"errors"
	"time"
)

// Channel identifies the delivery channel a message was sent over.
type Channel string

const (
	ChannelSms   Channel = "sms"
	ChannelKakao Channel = "kakao"
	ChannelEmail Channel = "email"
)

// IsValid returns true if the channel is a known valid value.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelSms, ChannelKakao, ChannelEmail:
		return true
	default:
		return false
	}
}

// EventType identifies the delivery outcome observed for a message attempt.
type EventType string

const (
	EventSent      EventType = "sent"
	EventDelivered EventType = "delivered"
	EventFailed    EventType = "failed"
	EventOpen      EventType = "open"
	EventClick     EventType = "click"
)

// IsValid returns true if the event type is a known valid value.
func (t EventType) IsValid() bool {
	switch t {
	case EventSent, EventDelivered, EventFailed, EventOpen, EventClick:
		return true
	default:
		return false
	}
}

// DeliveryEvent is one observed outcome for one outbound message attempt,
// parsed from a stream entry. The stream-assigned EventID is the
// idempotency key for deduplication.
type DeliveryEvent struct {
	// EventID is the stream-native entry ID, globally unique per event.
	EventID string

	// TenantID identifies the tenant the campaign belongs to.
	TenantID string

	// CampaignID identifies the campaign the message was sent for.
	CampaignID string

	// Channel is the delivery channel, decided once at parse time.
	Channel Channel

	// Type is the delivery outcome, decided once at parse time.
	Type EventType

	// OccurredAt is when the outcome was observed upstream.
	OccurredAt time.Time
}

// Stream entry field names for delivery events.
const (
	FieldTenantID   = "tenant_id"
	FieldCampaignID = "campaign_id"
	FieldChannel    = "channel"
	FieldEventType  = "event_type"
	FieldOccurredAt = "occurred_at"
)

// Validation errors for stream entry parsing.
var (
	ErrEmptyEventID    = errors.New("event id is required")
	ErrEmptyTenantID   = errors.New("tenant_id is required")
	ErrEmptyCampaignID = errors.New("campaign_id is required")
	ErrInvalidChannel  = errors.New("channel must be 'sms', 'kakao', or 'email'")
	ErrInvalidType     = errors.New("event_type must be 'sent', 'delivered', 'failed', 'open', or 'click'")
	ErrInvalidTime     = errors.New("occurred_at must be an RFC3339 timestamp")
)

// ParseDeliveryEvent builds a typed delivery event from a stream entry.
// The channel and event type enums are decided here exactly once; all
// downstream routing switches on the typed values.
func ParseDeliveryEvent(eventID string, fields map[string]string) (*DeliveryEvent, error) {
	if eventID == "" {
		return nil, ErrEmptyEventID
	}

	tenantID := fields[FieldTenantID]
	if tenantID == "" {
		return nil, ErrEmptyTenantID
	}

	campaignID := fields[FieldCampaignID]
	if campaignID == "" {
		return nil, ErrEmptyCampaignID
	}

	channel := Channel(fields[FieldChannel])
	if !channel.IsValid() {
		return nil, ErrInvalidChannel
	}

	eventType := EventType(fields[FieldEventType])
	if !eventType.IsValid() {
		return nil, ErrInvalidType
	}

	occurredAt, err := time.Parse(time.RFC3339, fields[FieldOccurredAt])
	if err != nil || occurredAt.IsZero() {
		return nil, ErrInvalidTime
	}

	return &DeliveryEvent{
		EventID:    eventID,
		TenantID:   tenantID,
		CampaignID: campaignID,
		Channel:    channel,
		Type:       eventType,
		OccurredAt: occurredAt.UTC(),
	}, nil
}

// BucketMinute returns the event timestamp truncated to minute granularity,
// the time-series aggregation key.
func (e *DeliveryEvent) BucketMinute() time.Time {
	return e.OccurredAt.UTC().Truncate(time.Minute)
}

package domain

import (
	"errors"
	"testing"
	"time"
)

func validFields() map[string]string {
	return map[string]string{
		FieldTenantID:   "tenant-1",
		FieldCampaignID: "campaign-1",
		FieldChannel:    "sms",
		FieldEventType:  "sent",
		FieldOccurredAt: "2026-08-30T10:15:42Z",
	}
}

func TestParseDeliveryEvent(t *testing.T) {
	event, err := ParseDeliveryEvent("1700000000000-0", validFields())
	if err != nil {
		t.Fatalf("ParseDeliveryEvent error: %v", err)
	}

	if event.EventID != "1700000000000-0" {
		t.Errorf("EventID = %v, want 1700000000000-0", event.EventID)
	}
	if event.TenantID != "tenant-1" {
		t.Errorf("TenantID = %v, want tenant-1", event.TenantID)
	}
	if event.CampaignID != "campaign-1" {
		t.Errorf("CampaignID = %v, want campaign-1", event.CampaignID)
	}
	if event.Channel != ChannelSms {
		t.Errorf("Channel = %v, want sms", event.Channel)
	}
	if event.Type != EventSent {
		t.Errorf("Type = %v, want sent", event.Type)
	}

	want := time.Date(2026, 8, 30, 10, 15, 42, 0, time.UTC)
	if !event.OccurredAt.Equal(want) {
		t.Errorf("OccurredAt = %v, want %v", event.OccurredAt, want)
	}
}

func TestParseDeliveryEvent_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		eventID string
		mutate  func(map[string]string)
		wantErr error
	}{
		{"empty event id", "", func(f map[string]string) {}, ErrEmptyEventID},
		{"missing tenant", "1-0", func(f map[string]string) { delete(f, FieldTenantID) }, ErrEmptyTenantID},
		{"missing campaign", "1-0", func(f map[string]string) { delete(f, FieldCampaignID) }, ErrEmptyCampaignID},
		{"bad channel", "1-0", func(f map[string]string) { f[FieldChannel] = "fax" }, ErrInvalidChannel},
		{"bad event type", "1-0", func(f map[string]string) { f[FieldEventType] = "bounced" }, ErrInvalidType},
		{"bad timestamp", "1-0", func(f map[string]string) { f[FieldOccurredAt] = "yesterday" }, ErrInvalidTime},
		{"missing timestamp", "1-0", func(f map[string]string) { delete(f, FieldOccurredAt) }, ErrInvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validFields()
			tt.mutate(fields)

			_, err := ParseDeliveryEvent(tt.eventID, fields)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChannel_IsValid(t *testing.T) {
	for _, c := range []Channel{ChannelSms, ChannelKakao, ChannelEmail} {
		if !c.IsValid() {
			t.Errorf("IsValid() should return true for %v", c)
		}
	}
	if Channel("push").IsValid() {
		t.Error("IsValid() should return false for unknown channel")
	}
}

func TestEventType_IsValid(t *testing.T) {
	for _, et := range []EventType{EventSent, EventDelivered, EventFailed, EventOpen, EventClick} {
		if !et.IsValid() {
			t.Errorf("IsValid() should return true for %v", et)
		}
	}
	if EventType("queued").IsValid() {
		t.Error("IsValid() should return false for unknown event type")
	}
}

func TestDeliveryEvent_BucketMinute(t *testing.T) {
	event := &DeliveryEvent{
		OccurredAt: time.Date(2026, 8, 30, 10, 15, 42, 123456789, time.UTC),
	}

	want := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)
	if !event.BucketMinute().Equal(want) {
		t.Errorf("BucketMinute() = %v, want %v", event.BucketMinute(), want)
	}
}

package domain

import "time"

// DeltaKey identifies one accumulator within a batch: all events for the
// same campaign and minute bucket fold into the same delta.
type DeltaKey struct {
	CampaignID string
	Bucket     time.Time
}

// MetricsDelta accumulates counter increments for one (campaign, bucket)
// pair during a single aggregation cycle. It is built fresh per batch,
// handed to the store writer as a delta, and discarded after flush; it is
// never persisted directly.
type MetricsDelta struct {
	CampaignID string
	TenantID   string
	Bucket     time.Time

	Sent      int64
	Delivered int64
	Failed    int64
	Open      int64
	Click     int64

	SmsSent        int64
	SmsDelivered   int64
	SmsFailed      int64
	KakaoSent      int64
	KakaoDelivered int64
	KakaoFailed    int64
}

// apply routes a single event into exactly one lifetime counter plus, for
// sms and kakao, the matching channel-specific counter. The switches are
// exhaustive over the closed enums decided at parse time.
func (d *MetricsDelta) apply(e *DeliveryEvent) {
	switch e.Type {
	case EventSent:
		d.Sent++
	case EventDelivered:
		d.Delivered++
	case EventFailed:
		d.Failed++
	case EventOpen:
		d.Open++
	case EventClick:
		d.Click++
	}

	switch e.Channel {
	case ChannelSms:
		switch e.Type {
		case EventSent:
			d.SmsSent++
		case EventDelivered:
			d.SmsDelivered++
		case EventFailed:
			d.SmsFailed++
		}
	case ChannelKakao:
		switch e.Type {
		case EventSent:
			d.KakaoSent++
		case EventDelivered:
			d.KakaoDelivered++
		case EventFailed:
			d.KakaoFailed++
		}
	}
}

// add merges another delta into this one. Used when collapsing buckets
// into per-campaign lifetime deltas.
func (d *MetricsDelta) add(o *MetricsDelta) {
	d.Sent += o.Sent
	d.Delivered += o.Delivered
	d.Failed += o.Failed
	d.Open += o.Open
	d.Click += o.Click
	d.SmsSent += o.SmsSent
	d.SmsDelivered += o.SmsDelivered
	d.SmsFailed += o.SmsFailed
	d.KakaoSent += o.KakaoSent
	d.KakaoDelivered += o.KakaoDelivered
	d.KakaoFailed += o.KakaoFailed
}

// DeltaMap holds the per-(campaign, bucket) accumulators for one batch.
type DeltaMap map[DeltaKey]*MetricsDelta

// NewDeltaMap creates an empty delta map for a new aggregation cycle.
func NewDeltaMap() DeltaMap {
	return make(DeltaMap)
}

// Fold routes an event into the accumulator for its campaign and minute
// bucket, creating the accumulator on first sight.
func (m DeltaMap) Fold(e *DeliveryEvent) {
	key := DeltaKey{CampaignID: e.CampaignID, Bucket: e.BucketMinute()}

	delta, ok := m[key]
	if !ok {
		delta = &MetricsDelta{
			CampaignID: e.CampaignID,
			TenantID:   e.TenantID,
			Bucket:     key.Bucket,
		}
		m[key] = delta
	}

	delta.apply(e)
}

// Collapse sums the per-bucket deltas into one delta per campaign, for the
// lifetime-table upsert. The returned deltas carry a zero bucket.
func (m DeltaMap) Collapse() []*MetricsDelta {
	byCampaign := make(map[string]*MetricsDelta)

	for _, delta := range m {
		total, ok := byCampaign[delta.CampaignID]
		if !ok {
			total = &MetricsDelta{
				CampaignID: delta.CampaignID,
				TenantID:   delta.TenantID,
			}
			byCampaign[delta.CampaignID] = total
		}
		total.add(delta)
	}

	result := make([]*MetricsDelta, 0, len(byCampaign))
	for _, total := range byCampaign {
		result = append(result, total)
	}
	return result
}

// Deltas returns all per-bucket deltas, for the minute-table upsert.
func (m DeltaMap) Deltas() []*MetricsDelta {
	result := make([]*MetricsDelta, 0, len(m))
	for _, delta := range m {
		result = append(result, delta)
	}
	return result
}

// Campaigns returns the distinct (tenant, campaign) pairs touched by this
// batch, the set of campaigns due for alert evaluation.
func (m DeltaMap) Campaigns() []CampaignRef {
	seen := make(map[string]struct{})
	var refs []CampaignRef

	for _, delta := range m {
		if _, ok := seen[delta.CampaignID]; ok {
			continue
		}
		seen[delta.CampaignID] = struct{}{}
		refs = append(refs, CampaignRef{TenantID: delta.TenantID, CampaignID: delta.CampaignID})
	}
	return refs
}

// CampaignRef identifies one campaign within its tenant.
type CampaignRef struct {
	TenantID   string
	CampaignID string
}

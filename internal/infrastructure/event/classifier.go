package event

import "encoding/json"

// HeaderEventType is the transport header carrying the explicit event type
// discriminator. It is preferred over anything embedded in the payload.
const HeaderEventType = "event-type"

// Classify determines the event type of an untyped message. Resolution
// order: explicit transport header, embedded type-discriminator field,
// generic eventType field, then the coarser aggregateType field. Returns
// false when nothing matches; callers skip and acknowledge such messages,
// since a shared topic legitimately carries types they do not handle.
func Classify(headers map[string]string, payload []byte) (string, bool) {
	if t, ok := headers[HeaderEventType]; ok && t != "" {
		return t, true
	}

	var probe struct {
		EventType     string `json:"event_type"`
		Type          string `json:"type"`
		AggregateType string `json:"aggregate_type"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return "", false
	}

	switch {
	case probe.EventType != "":
		return probe.EventType, true
	case probe.Type != "":
		return probe.Type, true
	case probe.AggregateType != "":
		return probe.AggregateType, true
	}
	return "", false
}

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_HeaderWinsOverPayload(t *testing.T) {
	headers := map[string]string{HeaderEventType: "StockItemCreated"}
	payload := []byte(`{"event_type":"SomethingElse"}`)

	eventType, ok := Classify(headers, payload)

	assert.True(t, ok)
	assert.Equal(t, "StockItemCreated", eventType)
}

func TestClassify_PayloadFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"event_type field", `{"event_type":"LocationAssigned"}`, "LocationAssigned"},
		{"embedded type field", `{"type":"StockAllocated"}`, "StockAllocated"},
		{"aggregate_type fallback", `{"aggregate_type":"StockItem"}`, "StockItem"},
		{"event_type preferred over type", `{"event_type":"A","type":"B"}`, "A"},
		{"type preferred over aggregate_type", `{"type":"B","aggregate_type":"C"}`, "B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eventType, ok := Classify(nil, []byte(tt.payload))
			assert.True(t, ok)
			assert.Equal(t, tt.want, eventType)
		})
	}
}

func TestClassify_NoDiscriminator(t *testing.T) {
	_, ok := Classify(nil, []byte(`{"payload":{"sku":"X"}}`))
	assert.False(t, ok)
}

func TestClassify_InvalidJSON(t *testing.T) {
	_, ok := Classify(nil, []byte(`not json at all`))
	assert.False(t, ok)
}

func TestClassify_EmptyHeaderIgnored(t *testing.T) {
	headers := map[string]string{HeaderEventType: ""}

	eventType, ok := Classify(headers, []byte(`{"event_type":"LocationVacated"}`))

	assert.True(t, ok)
	assert.Equal(t, "LocationVacated", eventType)
}

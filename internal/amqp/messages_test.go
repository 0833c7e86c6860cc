package amqp

import (
	"strings"
	"testing"
)

func TestOverrideEventRoundTrip(t *testing.T) {
	event := NewOverrideEvent(7, "2024-03", -123450, 3)

	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	// The period travels under the same key the HTTP layer uses.
	if !strings.Contains(string(data), `"month":"2024-03"`) {
		t.Errorf("payload missing month field: %s", data)
	}

	got, err := OverrideEventFromJSON(data)
	if err != nil {
		t.Fatalf("OverrideEventFromJSON() error = %v", err)
	}
	if got.LineNumber != 7 || got.Period != "2024-03" || got.ValueCents != -123450 || got.Version != 3 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(event.Timestamp) {
		t.Errorf("timestamp changed: %v != %v", got.Timestamp, event.Timestamp)
	}
}

func TestOverrideEventFromJSONInvalid(t *testing.T) {
	if _, err := OverrideEventFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for garbage payload")
	}
	if _, err := OverrideEventFromJSON([]byte(`{"line_number":"seven"}`)); err == nil {
		t.Error("expected error for mistyped field")
	}
}

func TestDataClearedEventRoundTrip(t *testing.T) {
	event := NewDataClearedEvent()

	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	got, err := DataClearedEventFromJSON(data)
	if err != nil {
		t.Fatalf("DataClearedEventFromJSON() error = %v", err)
	}
	if !got.Timestamp.Equal(event.Timestamp) {
		t.Errorf("timestamp changed: %v != %v", got.Timestamp, event.Timestamp)
	}

	if _, err := DataClearedEventFromJSON([]byte("{")); err == nil {
		t.Error("expected error for truncated payload")
	}
}

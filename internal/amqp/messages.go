package amqp

import (
	"encoding/json"
	"time"
)

// Message type values carried in the AMQP Type property.
const (
	TypeOverride    = "override"
	TypeDataCleared = "data_cleared"
)

// OverrideEvent announces one accepted cell override. It carries the full
// override payload so the audit worker can record it without reading the
// database back.
type OverrideEvent struct {
	LineNumber int       `json:"line_number"`
	Period     string    `json:"month"`
	ValueCents int64     `json:"value_cents"`
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
}

// DataClearedEvent announces that all underlying data was purged.
type DataClearedEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func NewOverrideEvent(lineNumber int, period string, valueCents, version int64) *OverrideEvent {
	return &OverrideEvent{
		LineNumber: lineNumber,
		Period:     period,
		ValueCents: valueCents,
		Version:    version,
		Timestamp:  time.Now(),
	}
}

func (m *OverrideEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func OverrideEventFromJSON(data []byte) (*OverrideEvent, error) {
	var msg OverrideEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func NewDataClearedEvent() *DataClearedEvent {
	return &DataClearedEvent{Timestamp: time.Now()}
}

func (m *DataClearedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DataClearedEventFromJSON(data []byte) (*DataClearedEvent, error) {
	var msg DataClearedEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

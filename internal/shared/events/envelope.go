package events

import (
	"encoding/json"
	"time"
)

// Envelope is the canonical event shape used across Polaris processes.
// Data stays raw so consumers decode only the payloads they understand.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	SourceService string          `json:"source_service"`
	OccurredAtUTC time.Time       `json:"occurred_at_utc"`
	PartitionKey  string          `json:"partition_key"`
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

package dto

import "time"

// PublishedEvent is the wire envelope for events carried over the
// in-process bus.
type PublishedEvent struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

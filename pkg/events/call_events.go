package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeSuggestionUpdated = "SUGGESTION_UPDATED"
	TypeManualIngested    = "MANUAL_INGESTED"
	TypeSessionEnded      = "SESSION_ENDED"
)

func NewSuggestionUpdated(sessionId uuid.UUID, productId string, degraded bool) Event {
	return BaseEvent{
		Type: TypeSuggestionUpdated,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"product_id": productId,
			"degraded":   degraded,
		},
		OccurredAt: time.Now(),
	}
}

func NewManualIngested(productId string, chunkCount int) Event {
	return BaseEvent{
		Type: TypeManualIngested,
		Data: map[string]interface{}{
			"product_id":  productId,
			"chunk_count": chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionEnded(sessionId uuid.UUID, productId string, missingFields []string) Event {
	return BaseEvent{
		Type: TypeSessionEnded,
		Data: map[string]interface{}{
			"session_id":     sessionId,
			"product_id":     productId,
			"missing_fields": missingFields,
		},
		OccurredAt: time.Now(),
	}
}

package dto

import (
	"time"

	"sales-copilot-be/internal/entity"

	"github.com/google/uuid"
)

type StartSessionRequest struct {
	ProductId      *string `json:"product_id"`
	LeadIdentifier *string `json:"lead_identifier"`
}

type StartSessionResponse struct {
	SessionId uuid.UUID `json:"session_id"`
}

type IngestUtteranceRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
	Speaker   string    `json:"speaker" validate:"required"`
	Text      string    `json:"text" validate:"required"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// SessionStateResponse is the read-only projection callers poll. It
// reflects the most recently completed merge; no stronger ordering is
// promised.
type SessionStateResponse struct {
	ProductId       *string             `json:"product_id"`
	Transcript      []entity.Utterance  `json:"transcript"`
	ExtractedFields map[string]string   `json:"extracted_fields"`
	LastSuggestion  *entity.Suggestion  `json:"last_suggestion"`
	Summary         *entity.CallSummary `json:"summary"`
	EndedAt         *time.Time          `json:"ended_at"`
}

type EndSessionRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
}

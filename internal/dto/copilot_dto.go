package dto

import "github.com/google/uuid"

type UpdateCopilotRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
}

package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/model"

	"gorm.io/datatypes"
)

// CallSessionMapper converts between the JSONB-backed GORM model and the
// typed domain entity. Unlike the column mappers, this one can fail:
// stored JSON that no longer matches the entity shape is a data bug we
// want surfaced, not zeroed out.
type CallSessionMapper struct{}

func NewCallSessionMapper() *CallSessionMapper {
	return &CallSessionMapper{}
}

func (m *CallSessionMapper) ToEntity(s *model.CallSession) (*entity.CallSession, error) {
	if s == nil {
		return nil, nil
	}

	transcript := []entity.Utterance{}
	if len(s.Transcript) > 0 {
		if err := json.Unmarshal(s.Transcript, &transcript); err != nil {
			return nil, fmt.Errorf("decode transcript for session %s: %w", s.Id, err)
		}
	}

	fields := map[string]string{}
	if len(s.ExtractedFields) > 0 {
		if err := json.Unmarshal(s.ExtractedFields, &fields); err != nil {
			return nil, fmt.Errorf("decode extracted fields for session %s: %w", s.Id, err)
		}
	}

	var suggestion *entity.Suggestion
	if len(s.LastSuggestion) > 0 {
		suggestion = &entity.Suggestion{}
		if err := json.Unmarshal(s.LastSuggestion, suggestion); err != nil {
			return nil, fmt.Errorf("decode last suggestion for session %s: %w", s.Id, err)
		}
	}

	var summary *entity.CallSummary
	if len(s.Summary) > 0 {
		summary = &entity.CallSummary{}
		if err := json.Unmarshal(s.Summary, summary); err != nil {
			return nil, fmt.Errorf("decode summary for session %s: %w", s.Id, err)
		}
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.CallSession{
		Id:              s.Id,
		ProductId:       s.ProductId,
		LeadIdentifier:  s.LeadIdentifier,
		Transcript:      transcript,
		ExtractedFields: fields,
		LastSuggestion:  suggestion,
		Summary:         summary,
		EndedAt:         s.EndedAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       updatedAt,
	}, nil
}

func (m *CallSessionMapper) ToModel(e *entity.CallSession) (*model.CallSession, error) {
	if e == nil {
		return nil, nil
	}

	transcript := e.Transcript
	if transcript == nil {
		transcript = []entity.Utterance{}
	}
	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}

	fields := e.ExtractedFields
	if fields == nil {
		fields = map[string]string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode extracted fields: %w", err)
	}

	m2 := &model.CallSession{
		Id:              e.Id,
		ProductId:       e.ProductId,
		LeadIdentifier:  e.LeadIdentifier,
		Transcript:      datatypes.JSON(transcriptJSON),
		ExtractedFields: datatypes.JSON(fieldsJSON),
		EndedAt:         e.EndedAt,
		CreatedAt:       e.CreatedAt,
	}

	if e.LastSuggestion != nil {
		suggestionJSON, err := json.Marshal(e.LastSuggestion)
		if err != nil {
			return nil, fmt.Errorf("encode last suggestion: %w", err)
		}
		m2.LastSuggestion = datatypes.JSON(suggestionJSON)
	}

	if e.Summary != nil {
		summaryJSON, err := json.Marshal(e.Summary)
		if err != nil {
			return nil, fmt.Errorf("encode summary: %w", err)
		}
		m2.Summary = datatypes.JSON(summaryJSON)
	}

	if e.UpdatedAt != nil {
		m2.UpdatedAt = *e.UpdatedAt
	}

	return m2, nil
}

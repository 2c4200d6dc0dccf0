package copilot

import (
	"encoding/json"
	"fmt"
	"strconv"

	"sales-copilot-be/internal/entity"
)

// loosePayload is the untyped intermediate shape of a reasoning-service
// response. The service is prompted for a strict structure but drifts:
// questions arrive as bare strings or objects, lists go missing, field
// values come back as numbers. Everything is coerced here so the rest of
// the system only ever sees a strict Suggestion.
type loosePayload struct {
	SuggestedQuestions     []json.RawMessage          `json:"suggested_questions"`
	ExtractedFieldsUpdates map[string]json.RawMessage `json:"extracted_fields_updates"`
	MissingRequiredFields  *[]string                  `json:"missing_required_fields"`
	AnswerSuggestions      []entity.AnswerSuggestion  `json:"answer_suggestions"`
	AgentActions           []entity.AgentAction       `json:"agent_actions"`
}

type looseQuestion struct {
	Field    string `json:"field"`
	Question string `json:"question"`
}

// Normalize validates and coerces a raw reasoning-service response into
// the strict Suggestion shape, and returns the field map that results
// from union-merging the response's updates into the current fields
// (incoming wins per key). An unparsable body is an error; the caller
// treats it as a failed turn.
func Normalize(raw []byte, product *entity.ProductConfig, extractedFields map[string]string) (*entity.Suggestion, map[string]string, error) {
	var payload loosePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("decode suggestion payload: %w", err)
	}

	updates := map[string]string{}
	for key, rawValue := range payload.ExtractedFieldsUpdates {
		value, ok := coerceString(rawValue)
		if !ok || value == "" {
			continue
		}
		updates[key] = value
	}

	merged := make(map[string]string, len(extractedFields)+len(updates))
	for k, v := range extractedFields {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}

	// The service's own missing list wins when it supplied one (even an
	// empty one); otherwise recompute against the merged map.
	var missing []string
	if payload.MissingRequiredFields != nil {
		missing = *payload.MissingRequiredFields
	} else {
		missing = product.MissingRequiredFields(merged)
	}

	questions := parseQuestions(payload.SuggestedQuestions)
	if len(questions) == 0 && len(missing) > 0 {
		questions = FallbackQuestions(product, missing)
	}
	kept := []entity.SuggestedQuestion{}
	for _, q := range questions {
		if q.Question != "" {
			kept = append(kept, q)
		}
	}

	answers := payload.AnswerSuggestions
	if answers == nil {
		answers = []entity.AnswerSuggestion{}
	}
	actions := payload.AgentActions
	if actions == nil {
		actions = []entity.AgentAction{}
	}

	return &entity.Suggestion{
		SuggestedQuestions:     kept,
		ExtractedFieldsUpdates: updates,
		MissingRequiredFields:  missing,
		AnswerSuggestions:      answers,
		AgentActions:           actions,
	}, merged, nil
}

// FallbackQuestions synthesizes up to three next questions straight from
// product config, in required-field declaration order, for the fields
// still missing.
func FallbackQuestions(product *entity.ProductConfig, missing []string) []entity.SuggestedQuestion {
	missingSet := make(map[string]bool, len(missing))
	for _, key := range missing {
		missingSet[key] = true
	}

	questions := []entity.SuggestedQuestion{}
	for _, f := range product.RequiredFields {
		if !missingSet[f.Key] {
			continue
		}
		questions = append(questions, entity.SuggestedQuestion{Field: f.Key, Question: f.Question})
		if len(questions) == 3 {
			break
		}
	}
	return questions
}

// DegradedSuggestion builds the local-only fallback payload used when the
// reasoning service is rate limited: synthesized questions for still
// missing fields, no extraction, no actions, flagged as degraded.
func DegradedSuggestion(product *entity.ProductConfig, extractedFields map[string]string) *entity.Suggestion {
	missing := product.MissingRequiredFields(extractedFields)
	return &entity.Suggestion{
		SuggestedQuestions:     FallbackQuestions(product, missing),
		ExtractedFieldsUpdates: map[string]string{},
		MissingRequiredFields:  missing,
		AnswerSuggestions:      []entity.AnswerSuggestion{},
		AgentActions:           []entity.AgentAction{},
		Degraded:               true,
	}
}

func parseQuestions(raw []json.RawMessage) []entity.SuggestedQuestion {
	questions := make([]entity.SuggestedQuestion, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			questions = append(questions, entity.SuggestedQuestion{Field: "", Question: s})
			continue
		}
		var q looseQuestion
		if err := json.Unmarshal(item, &q); err == nil {
			questions = append(questions, entity.SuggestedQuestion{Field: q.Field, Question: q.Question})
		}
	}
	return questions
}

func coerceString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), true
	}
	return "", false
}

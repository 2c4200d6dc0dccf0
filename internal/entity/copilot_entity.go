package entity

// SuggestedQuestion is a next question the agent should ask, tied to the
// product required field it would fill (field may be empty for free-form
// questions).
type SuggestedQuestion struct {
	Field    string `json:"field"`
	Question string `json:"question"`
}

// AnswerSuggestion is a manual-grounded answer to a product question the
// lead raised, with the source refs of the chunks it cites.
type AnswerSuggestion struct {
	Topic     string   `json:"topic"`
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

type AgentAction struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Suggestion is the per-turn copilot output. Degraded marks payloads
// synthesized locally without the reasoning service.
type Suggestion struct {
	SuggestedQuestions     []SuggestedQuestion `json:"suggested_questions"`
	ExtractedFieldsUpdates map[string]string   `json:"extracted_fields_updates"`
	MissingRequiredFields  []string            `json:"missing_required_fields"`
	AnswerSuggestions      []AnswerSuggestion  `json:"answer_suggestions"`
	AgentActions           []AgentAction       `json:"agent_actions"`
	Degraded               bool                `json:"degraded,omitempty"`
}

// EmptySuggestion is returned for turns that have nothing to work with
// (empty transcript).
func EmptySuggestion() *Suggestion {
	return &Suggestion{
		SuggestedQuestions:     []SuggestedQuestion{},
		ExtractedFieldsUpdates: map[string]string{},
		MissingRequiredFields:  []string{},
		AnswerSuggestions:      []AnswerSuggestion{},
		AgentActions:           []AgentAction{},
	}
}

// CallSummary is the end-of-call output, persisted verbatim on the session.
type CallSummary struct {
	ProductId            string            `json:"product_id"`
	LeadSummary          string            `json:"lead_summary"`
	CollectedFields      map[string]string `json:"collected_fields"`
	MissingFields        []string          `json:"missing_fields"`
	RecommendedNextSteps []string          `json:"recommended_next_steps"`
}

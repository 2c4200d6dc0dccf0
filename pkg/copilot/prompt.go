package copilot

import (
	"encoding/json"
	"fmt"
	"strings"

	"sales-copilot-be/internal/entity"
)

// Passage is a retrieved manual excerpt handed to the reasoning service,
// tagged with the reference callers can cite.
type Passage struct {
	Text      string
	SourceRef string
}

const suggestionSystemPrompt = `You are a call copilot for a sales/loan agent. You help qualify leads and answer product questions.
Return ONLY valid JSON. No markdown, no commentary.
- Use manual excerpts to answer product questions. If the manual doesn't contain the answer, set answer_suggestions with: "I don't see that in the manual excerpts. Ask clarifying questions or check the policy."
- Do not provide binding commitments, approval, or final pricing.
- Provide ranges/conditions only if the manual explicitly states them.`

const summarySystemPrompt = `Return only valid JSON with keys: lead_summary (short), recommended_next_steps (array of strings).`

// BuildSuggestionPrompts assembles the system and user prompts for one
// suggestion turn from the recent transcript window, the product config,
// the fields collected so far and the retrieved passages.
func BuildSuggestionPrompts(
	transcript []entity.Utterance,
	product *entity.ProductConfig,
	extractedFields map[string]string,
	passages []Passage,
) (string, string, error) {
	lines := make([]string, len(transcript))
	for i, u := range transcript {
		lines[i] = fmt.Sprintf("[%s]: %s", u.Speaker.Label(), u.Text)
	}

	refs := make([]string, len(passages))
	for i, p := range passages {
		ref := p.SourceRef
		if ref == "" {
			ref = "manual"
		}
		refs[i] = fmt.Sprintf("[%s]: %s", ref, p.Text)
	}
	manualContext := strings.Join(refs, "\n\n")
	if manualContext == "" {
		manualContext = "(no manual chunks retrieved)"
	}

	productJSON, err := json.MarshalIndent(product, "", "  ")
	if err != nil {
		return "", "", err
	}
	if extractedFields == nil {
		extractedFields = map[string]string{}
	}
	fieldsJSON, err := json.Marshal(extractedFields)
	if err != nil {
		return "", "", err
	}

	userPrompt := fmt.Sprintf(`## Recent transcript
%s

## Product
%s

## Extracted fields so far
%s

## Manual excerpts (use only these for answers)
%s

Return JSON with this exact structure:
{
  "suggested_questions": [{ "field": "field_key", "question": "Question to ask?" }],
  "extracted_fields_updates": {},
  "missing_required_fields": [],
  "answer_suggestions": [],
  "agent_actions": []
}

ALWAYS include 1-3 suggested_questions. Base them on missing_required_fields: for each missing field, use the product's required_fields to get the question. Prioritize the most relevant next question for the conversation.`,
		strings.Join(lines, "\n"), productJSON, fieldsJSON, manualContext)

	return suggestionSystemPrompt, userPrompt, nil
}

// BuildSummaryPrompts assembles the end-of-call summary prompts over the
// whole transcript (not a window).
func BuildSummaryPrompts(
	transcript []entity.Utterance,
	collectedFields map[string]string,
	missingFields []string,
) (string, string, error) {
	lines := make([]string, len(transcript))
	for i, u := range transcript {
		lines[i] = fmt.Sprintf("[%s]: %s", u.Speaker, u.Text)
	}

	if collectedFields == nil {
		collectedFields = map[string]string{}
	}
	collectedJSON, err := json.Marshal(collectedFields)
	if err != nil {
		return "", "", err
	}

	userPrompt := fmt.Sprintf("Transcript:\n%s\n\nCollected: %s\nMissing: %s\n\nGenerate lead_summary and recommended_next_steps.",
		strings.Join(lines, "\n"), collectedJSON, strings.Join(missingFields, ", "))

	return summarySystemPrompt, userPrompt, nil
}

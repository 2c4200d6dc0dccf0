package copilot

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SummaryResult is the parsed end-of-call summary output.
type SummaryResult struct {
	LeadSummary          string   `json:"lead_summary"`
	RecommendedNextSteps []string `json:"recommended_next_steps"`
}

const fallbackLeadSummary = "No summary generated."

// ParseSummary decodes a summary response. An empty or unparsable body
// returns an error so the caller can substitute FallbackSummary.
func ParseSummary(raw []byte) (*SummaryResult, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, fmt.Errorf("empty summary response")
	}
	var result SummaryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode summary payload: %w", err)
	}
	if result.RecommendedNextSteps == nil {
		result.RecommendedNextSteps = []string{}
	}
	return &result, nil
}

// FallbackSummary is the deterministic substitute used when the reasoning
// service produced nothing usable: one follow-up step per missing field,
// in the order given.
func FallbackSummary(missingFields []string) *SummaryResult {
	steps := make([]string, len(missingFields))
	for i, f := range missingFields {
		steps[i] = fmt.Sprintf("Follow up to obtain %s.", f)
	}
	return &SummaryResult{
		LeadSummary:          fallbackLeadSummary,
		RecommendedNextSteps: steps,
	}
}

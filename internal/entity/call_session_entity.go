package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Speaker identifies which side of the call an utterance came from.
// Transcription providers label channels with numeric codes ("0"/"1");
// those are resolved to a Speaker once at the API boundary.
type Speaker string

const (
	SpeakerLead  Speaker = "lead"
	SpeakerAgent Speaker = "agent"
)

func ParseSpeaker(raw string) (Speaker, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0", "lead":
		return SpeakerLead, nil
	case "1", "agent":
		return SpeakerAgent, nil
	default:
		return "", fmt.Errorf("unknown speaker %q", raw)
	}
}

// Label returns the uppercase form used in prompts.
func (s Speaker) Label() string {
	return strings.ToUpper(string(s))
}

// Utterance is a single transcribed line. Immutable once appended.
type Utterance struct {
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp string  `json:"timestamp"`
}

type CallSession struct {
	Id              uuid.UUID
	ProductId       *string
	LeadIdentifier  *string
	Transcript      []Utterance
	ExtractedFields map[string]string
	LastSuggestion  *Suggestion
	Summary         *CallSummary
	EndedAt         *time.Time
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// Ended reports whether the session is terminal. A terminal session
// rejects all further transcript and field mutation.
func (s *CallSession) Ended() bool {
	return s.EndedAt != nil
}

package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpeaker(t *testing.T) {
	tests := []struct {
		raw     string
		want    Speaker
		wantErr bool
	}{
		{raw: "0", want: SpeakerLead},
		{raw: "1", want: SpeakerAgent},
		{raw: "lead", want: SpeakerLead},
		{raw: "agent", want: SpeakerAgent},
		{raw: "LEAD", want: SpeakerLead},
		{raw: " Agent ", want: SpeakerAgent},
		{raw: "2", wantErr: true},
		{raw: "customer", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSpeaker(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpeakerLabel(t *testing.T) {
	assert.Equal(t, "LEAD", SpeakerLead.Label())
	assert.Equal(t, "AGENT", SpeakerAgent.Label())
}

func TestCallSessionEnded(t *testing.T) {
	session := &CallSession{}
	assert.False(t, session.Ended())

	now := time.Now()
	session.EndedAt = &now
	assert.True(t, session.Ended())
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CallSession struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductId       *string        `gorm:"type:text;index"`
	LeadIdentifier  *string        `gorm:"type:text"`
	Transcript      datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	ExtractedFields datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	LastSuggestion  datatypes.JSON `gorm:"type:jsonb"`
	Summary         datatypes.JSON `gorm:"type:jsonb"`
	EndedAt         *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (CallSession) TableName() string {
	return "call_sessions"
}

package model

import (
	"time"

	"rfp-answer-engine/internal/entity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Answer keeps one row per question; regeneration and overrides replace it in place.
type Answer struct {
	Id                   uuid.UUID                                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	QuestionId           uuid.UUID                                      `gorm:"type:uuid;not null;uniqueIndex"`
	ProjectId            uuid.UUID                                      `gorm:"type:uuid;not null;index"`
	Text                 string                                         `gorm:"type:text;not null"`
	Sources              datatypes.JSONSlice[entity.AnswerSource]       `gorm:"type:jsonb"`
	Confidence           float64                                        `gorm:"not null"`
	ConfidenceBand       string                                         `gorm:"type:varchar(10);not null"`
	ConfidenceBreakdown  datatypes.JSONType[entity.ConfidenceBreakdown] `gorm:"type:jsonb"`
	ClonedFromQuestionId *uuid.UUID                                     `gorm:"type:uuid;index"`
	IsManualOverride     bool                                           `gorm:"default:false"`
	CreatedAt            time.Time                                      `gorm:"autoCreateTime"`
	UpdatedAt            time.Time                                      `gorm:"autoUpdateTime"`
}

func (Answer) TableName() string {
	return "rfp_answers"
}

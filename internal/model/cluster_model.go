package model

import (
	"time"

	"rfp-answer-engine/internal/entity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type QuestionCluster struct {
	Id                 uuid.UUID                                 `gorm:"type:uuid;primaryKey"`
	ProjectId          uuid.UUID                                 `gorm:"type:uuid;not null;index"`
	OpportunityId      *uuid.UUID                                `gorm:"type:uuid"`
	MasterQuestionId   uuid.UUID                                 `gorm:"type:uuid;not null;uniqueIndex"`
	MasterQuestionText string                                    `gorm:"type:text"`
	Members            datatypes.JSONSlice[entity.ClusterMember] `gorm:"type:jsonb"`
	QuestionCount      int                                       `gorm:"not null"`
	AvgSimilarity      float64                                   `gorm:"default:0"`
	CreatedAt          time.Time                                 `gorm:"autoCreateTime"`
	UpdatedAt          time.Time                                 `gorm:"autoUpdateTime"`
}

func (QuestionCluster) TableName() string {
	return "question_clusters"
}

// SimilarQuestionLink persists a "similar but not clustered" pair from the latest clustering.
type SimilarQuestionLink struct {
	Id                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectId         uuid.UUID `gorm:"type:uuid;not null;index"`
	QuestionId        uuid.UUID `gorm:"type:uuid;not null"`
	QuestionText      string    `gorm:"type:text"`
	SimilarQuestionId uuid.UUID `gorm:"type:uuid;not null"`
	SimilarText       string    `gorm:"type:text"`
	Similarity        float64   `gorm:"not null"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (SimilarQuestionLink) TableName() string {
	return "similar_question_links"
}

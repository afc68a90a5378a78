package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Question embeddings are stored without a fixed dimension so the embedding model can be
// swapped per deployment.
type Question struct {
	Id                 uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectId          uuid.UUID        `gorm:"type:uuid;not null;index:idx_rfp_questions_project_created,priority:1"`
	OrgId              uuid.UUID        `gorm:"type:uuid;not null;index"`
	Text               string           `gorm:"type:text;not null"`
	SectionId          *string          `gorm:"type:varchar(100)"`
	SectionTitle       string           `gorm:"type:varchar(255)"`
	Embedding          *pgvector.Vector `gorm:"type:vector"`
	ClusterId          *uuid.UUID       `gorm:"type:uuid;index"`
	IsClusterMaster    bool             `gorm:"default:false"`
	MasterQuestionId   *uuid.UUID       `gorm:"type:uuid"`
	SimilarityToMaster float64          `gorm:"default:0"`
	IsArchived         bool             `gorm:"default:false;index"`
	CreatedAt          time.Time        `gorm:"autoCreateTime;index:idx_rfp_questions_project_created,priority:2"`
	UpdatedAt          time.Time        `gorm:"autoUpdateTime"`
	DeletedAt          gorm.DeletedAt   `gorm:"index"`
}

func (Question) TableName() string {
	return "rfp_questions"
}

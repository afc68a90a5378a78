package model

import (
	"time"

	"rfp-answer-engine/internal/entity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PipelineRun struct {
	Id                 uuid.UUID                                  `gorm:"type:uuid;primaryKey"`
	ProjectId          uuid.UUID                                  `gorm:"type:uuid;not null;index:idx_pipeline_runs_project_started,priority:1"`
	OrgId              uuid.UUID                                  `gorm:"type:uuid;not null"`
	KnowledgeBaseIds   datatypes.JSONSlice[uuid.UUID]             `gorm:"type:jsonb"`
	Stage              string                                     `gorm:"type:varchar(20);not null;index"`
	QuestionsTotal     int                                        `gorm:"default:0"`
	QuestionsProcessed int                                        `gorm:"default:0"`
	ClustersCreated    int                                        `gorm:"default:0"`
	AnswersGenerated   int                                        `gorm:"default:0"`
	AnswersPropagated  int                                        `gorm:"default:0"`
	QuestionsAnswered  int                                        `gorm:"default:0"`
	FailedQuestions    datatypes.JSONSlice[entity.FailedQuestion] `gorm:"type:jsonb"`
	ErrorMessage       string                                     `gorm:"type:text"`
	StartedAt          time.Time                                  `gorm:"not null;index:idx_pipeline_runs_project_started,priority:2"`
	CompletedAt        *time.Time
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

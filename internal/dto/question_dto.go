package dto

import (
	"time"

	"github.com/google/uuid"
)

type ImportQuestionItem struct {
	Text         string  `json:"text" validate:"required,max=4000"`
	SectionId    *string `json:"section_id"`
	SectionTitle string  `json:"section_title" validate:"max=500"`
}

type ImportQuestionsRequest struct {
	ProjectId uuid.UUID
	OrgId     uuid.UUID
	Questions []ImportQuestionItem `json:"questions" validate:"required,min=1,max=2000,dive"`
}

type ImportQuestionsResponse struct {
	Created     int         `json:"created"`
	Embedded    int         `json:"embedded"`
	QuestionIds []uuid.UUID `json:"question_ids"`
}

type AnswerResponse struct {
	QuestionId           uuid.UUID  `json:"question_id"`
	Text                 string     `json:"text"`
	Confidence           float64    `json:"confidence"`
	ConfidenceBand       string     `json:"confidence_band"`
	ClonedFromQuestionId *uuid.UUID `json:"cloned_from_question_id,omitempty"`
	IsManualOverride     bool       `json:"is_manual_override"`
}

type QuestionResponse struct {
	Id                 uuid.UUID       `json:"id"`
	Text               string          `json:"text"`
	SectionId          *string         `json:"section_id,omitempty"`
	SectionTitle       string          `json:"section_title,omitempty"`
	ClusterId          *uuid.UUID      `json:"cluster_id,omitempty"`
	IsClusterMaster    bool            `json:"is_cluster_master"`
	MasterQuestionId   *uuid.UUID      `json:"master_question_id,omitempty"`
	SimilarityToMaster float64         `json:"similarity_to_master"`
	Answer             *AnswerResponse `json:"answer,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

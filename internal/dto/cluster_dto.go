package dto

import (
	"time"

	"rfp-answer-engine/internal/entity"

	"github.com/google/uuid"
)

type ClusterQuestionsRequest struct {
	ProjectId      uuid.UUID
	OrgId          uuid.UUID
	OpportunityId  *uuid.UUID `json:"opportunity_id"`
	ForceRecluster bool       `json:"force_recluster"`
}

type ClusterResponse struct {
	Id                 uuid.UUID              `json:"id"`
	MasterQuestionId   uuid.UUID              `json:"master_question_id"`
	MasterQuestionText string                 `json:"master_question_text"`
	QuestionCount      int                    `json:"question_count"`
	AvgSimilarity      float64                `json:"avg_similarity"`
	Members            []entity.ClusterMember `json:"members"`
	CreatedAt          time.Time              `json:"created_at"`
}

type ClusterQuestionsResponse struct {
	ClustersCreated    int                      `json:"clusters_created"`
	QuestionsProcessed int                      `json:"questions_processed"`
	Reused             bool                     `json:"reused"`
	Clusters           []*ClusterResponse       `json:"clusters"`
	Suggestions        []entity.SimilarQuestion `json:"suggestions"`
	FailedQuestions    []entity.FailedQuestion  `json:"failed_questions,omitempty"`
}

type GetClustersResponse struct {
	Clusters      []*ClusterResponse `json:"clusters"`
	TotalClusters int                `json:"total_clusters"`
}

type FindSimilarQuestionsRequest struct {
	ProjectId  uuid.UUID
	OrgId      uuid.UUID
	QuestionId uuid.UUID
	Threshold  *float64 `query:"threshold" validate:"omitempty,gte=0,lte=1"`
	Limit      int      `query:"limit" validate:"omitempty,min=1,max=50"`
}

type SimilarQuestionResponse struct {
	QuestionId   uuid.UUID  `json:"question_id"`
	QuestionText string     `json:"question_text"`
	SectionTitle string     `json:"section_title,omitempty"`
	ClusterId    *uuid.UUID `json:"cluster_id,omitempty"`
	Similarity   float64    `json:"similarity"`
}

type FindSimilarQuestionsResponse struct {
	QuestionId       uuid.UUID                  `json:"question_id"`
	QuestionText     string                     `json:"question_text"`
	Threshold        float64                    `json:"threshold"`
	SimilarQuestions []*SimilarQuestionResponse `json:"similar_questions"`
}

type ApplyClusterAnswerRequest struct {
	ProjectId         uuid.UUID
	SourceQuestionId  uuid.UUID   `json:"source_question_id" validate:"required"`
	TargetQuestionIds []uuid.UUID `json:"target_question_ids" validate:"required,min=1,max=500"`
	CustomText        *string     `json:"custom_text" validate:"omitempty,min=1"`
}

type FailedTargetResponse struct {
	QuestionId uuid.UUID `json:"question_id"`
	Reason     string    `json:"reason"`
}

type ApplyClusterAnswerResponse struct {
	Applied []uuid.UUID            `json:"applied"`
	Failed  []FailedTargetResponse `json:"failed"`
}

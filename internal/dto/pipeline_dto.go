package dto

import (
	"time"

	"rfp-answer-engine/internal/entity"

	"github.com/google/uuid"
)

type RunAnswerGenerationRequest struct {
	ProjectId        uuid.UUID
	OrgId            uuid.UUID
	KnowledgeBaseIds []uuid.UUID `json:"knowledge_base_ids" validate:"omitempty,max=20"`
}

type PipelineRunResponse struct {
	Id                 uuid.UUID               `json:"id"`
	ProjectId          uuid.UUID               `json:"project_id"`
	KnowledgeBaseIds   []uuid.UUID             `json:"knowledge_base_ids"`
	Stage              string                  `json:"stage"`
	QuestionsTotal     int                     `json:"questions_total"`
	QuestionsProcessed int                     `json:"questions_processed"`
	ClustersCreated    int                     `json:"clusters_created"`
	AnswersGenerated   int                     `json:"answers_generated"`
	AnswersPropagated  int                     `json:"answers_propagated"`
	QuestionsAnswered  int                     `json:"questions_answered"`
	FailedQuestions    []entity.FailedQuestion `json:"failed_questions"`
	ErrorMessage       string                  `json:"error_message,omitempty"`
	Summary            string                  `json:"summary"`
	StartedAt          time.Time               `json:"started_at"`
	CompletedAt        *time.Time              `json:"completed_at,omitempty"`
}

// PublishRunPipelineMessage is the payload that hands a created run to the background consumer.
type PublishRunPipelineMessage struct {
	RunId     uuid.UUID `json:"run_id"`
	ProjectId uuid.UUID `json:"project_id"`
	LockToken string    `json:"lock_token"`
}

// PipelineProgressMessage is pushed to websocket watchers of the project.
type PipelineProgressMessage struct {
	Type string               `json:"type"`
	Data *PipelineRunResponse `json:"data"`
}

func NewPipelineRunResponse(run *entity.PipelineRun) *PipelineRunResponse {
	failed := run.FailedQuestions
	if failed == nil {
		failed = []entity.FailedQuestion{}
	}
	kbIds := run.KnowledgeBaseIds
	if kbIds == nil {
		kbIds = []uuid.UUID{}
	}
	return &PipelineRunResponse{
		Id:                 run.Id,
		ProjectId:          run.ProjectId,
		KnowledgeBaseIds:   kbIds,
		Stage:              run.Stage,
		QuestionsTotal:     run.QuestionsTotal,
		QuestionsProcessed: run.QuestionsProcessed,
		ClustersCreated:    run.ClustersCreated,
		AnswersGenerated:   run.AnswersGenerated,
		AnswersPropagated:  run.AnswersPropagated,
		QuestionsAnswered:  run.QuestionsAnswered,
		FailedQuestions:    failed,
		ErrorMessage:       run.ErrorMessage,
		Summary:            run.Summary(),
		StartedAt:          run.StartedAt,
		CompletedAt:        run.CompletedAt,
	}
}

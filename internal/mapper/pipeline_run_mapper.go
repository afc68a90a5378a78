package mapper

import (
	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PipelineRunMapper struct{}

func NewPipelineRunMapper() *PipelineRunMapper {
	return &PipelineRunMapper{}
}

func (m *PipelineRunMapper) ToEntity(r *model.PipelineRun) *entity.PipelineRun {
	if r == nil {
		return nil
	}
	return &entity.PipelineRun{
		Id:                 r.Id,
		ProjectId:          r.ProjectId,
		OrgId:              r.OrgId,
		KnowledgeBaseIds:   []uuid.UUID(r.KnowledgeBaseIds),
		Stage:              r.Stage,
		QuestionsTotal:     r.QuestionsTotal,
		QuestionsProcessed: r.QuestionsProcessed,
		ClustersCreated:    r.ClustersCreated,
		AnswersGenerated:   r.AnswersGenerated,
		AnswersPropagated:  r.AnswersPropagated,
		QuestionsAnswered:  r.QuestionsAnswered,
		FailedQuestions:    []entity.FailedQuestion(r.FailedQuestions),
		ErrorMessage:       r.ErrorMessage,
		StartedAt:          r.StartedAt,
		CompletedAt:        r.CompletedAt,
	}
}

func (m *PipelineRunMapper) ToModel(r *entity.PipelineRun) *model.PipelineRun {
	if r == nil {
		return nil
	}
	return &model.PipelineRun{
		Id:                 r.Id,
		ProjectId:          r.ProjectId,
		OrgId:              r.OrgId,
		KnowledgeBaseIds:   datatypes.JSONSlice[uuid.UUID](r.KnowledgeBaseIds),
		Stage:              r.Stage,
		QuestionsTotal:     r.QuestionsTotal,
		QuestionsProcessed: r.QuestionsProcessed,
		ClustersCreated:    r.ClustersCreated,
		AnswersGenerated:   r.AnswersGenerated,
		AnswersPropagated:  r.AnswersPropagated,
		QuestionsAnswered:  r.QuestionsAnswered,
		FailedQuestions:    datatypes.JSONSlice[entity.FailedQuestion](r.FailedQuestions),
		ErrorMessage:       r.ErrorMessage,
		StartedAt:          r.StartedAt,
		CompletedAt:        r.CompletedAt,
	}
}

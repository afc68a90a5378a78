package mapper

import (
	"time"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/model"

	"github.com/pgvector/pgvector-go"
)

type QuestionMapper struct{}

func NewQuestionMapper() *QuestionMapper {
	return &QuestionMapper{}
}

func (m *QuestionMapper) ToEntity(q *model.Question) *entity.Question {
	if q == nil {
		return nil
	}

	var embedding []float32
	if q.Embedding != nil {
		embedding = q.Embedding.Slice()
	}

	var updatedAt *time.Time
	if !q.UpdatedAt.IsZero() {
		t := q.UpdatedAt
		updatedAt = &t
	}

	return &entity.Question{
		Id:                 q.Id,
		ProjectId:          q.ProjectId,
		OrgId:              q.OrgId,
		Text:               q.Text,
		SectionId:          q.SectionId,
		SectionTitle:       q.SectionTitle,
		Embedding:          embedding,
		ClusterId:          q.ClusterId,
		IsClusterMaster:    q.IsClusterMaster,
		MasterQuestionId:   q.MasterQuestionId,
		SimilarityToMaster: q.SimilarityToMaster,
		IsArchived:         q.IsArchived,
		CreatedAt:          q.CreatedAt,
		UpdatedAt:          updatedAt,
	}
}

func (m *QuestionMapper) ToModel(q *entity.Question) *model.Question {
	if q == nil {
		return nil
	}

	var embedding *pgvector.Vector
	if len(q.Embedding) > 0 {
		v := pgvector.NewVector(q.Embedding)
		embedding = &v
	}

	var updatedAt time.Time
	if q.UpdatedAt != nil {
		updatedAt = *q.UpdatedAt
	}

	return &model.Question{
		Id:                 q.Id,
		ProjectId:          q.ProjectId,
		OrgId:              q.OrgId,
		Text:               q.Text,
		SectionId:          q.SectionId,
		SectionTitle:       q.SectionTitle,
		Embedding:          embedding,
		ClusterId:          q.ClusterId,
		IsClusterMaster:    q.IsClusterMaster,
		MasterQuestionId:   q.MasterQuestionId,
		SimilarityToMaster: q.SimilarityToMaster,
		IsArchived:         q.IsArchived,
		CreatedAt:          q.CreatedAt,
		UpdatedAt:          updatedAt,
	}
}

func (m *QuestionMapper) ToEntities(questions []*model.Question) []*entity.Question {
	entities := make([]*entity.Question, len(questions))
	for i, q := range questions {
		entities[i] = m.ToEntity(q)
	}
	return entities
}

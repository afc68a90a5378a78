package mapper

import (
	"time"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/model"

	"gorm.io/datatypes"
)

type ClusterMapper struct{}

func NewClusterMapper() *ClusterMapper {
	return &ClusterMapper{}
}

func (m *ClusterMapper) ToEntity(c *model.QuestionCluster) *entity.QuestionCluster {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.QuestionCluster{
		Id:                 c.Id,
		ProjectId:          c.ProjectId,
		OpportunityId:      c.OpportunityId,
		MasterQuestionId:   c.MasterQuestionId,
		MasterQuestionText: c.MasterQuestionText,
		Members:            []entity.ClusterMember(c.Members),
		QuestionCount:      c.QuestionCount,
		AvgSimilarity:      c.AvgSimilarity,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          updatedAt,
	}
}

func (m *ClusterMapper) ToModel(c *entity.QuestionCluster) *model.QuestionCluster {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.QuestionCluster{
		Id:                 c.Id,
		ProjectId:          c.ProjectId,
		OpportunityId:      c.OpportunityId,
		MasterQuestionId:   c.MasterQuestionId,
		MasterQuestionText: c.MasterQuestionText,
		Members:            datatypes.JSONSlice[entity.ClusterMember](c.Members),
		QuestionCount:      c.QuestionCount,
		AvgSimilarity:      c.AvgSimilarity,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          updatedAt,
	}
}

func (m *ClusterMapper) SimilarToModel(s entity.SimilarQuestion, c *model.SimilarQuestionLink) {
	c.QuestionId = s.QuestionId
	c.QuestionText = s.QuestionText
	c.SimilarQuestionId = s.SimilarQuestionId
	c.SimilarText = s.SimilarText
	c.Similarity = s.Similarity
}

func (m *ClusterMapper) SimilarToEntity(c *model.SimilarQuestionLink) entity.SimilarQuestion {
	return entity.SimilarQuestion{
		QuestionId:        c.QuestionId,
		QuestionText:      c.QuestionText,
		SimilarQuestionId: c.SimilarQuestionId,
		SimilarText:       c.SimilarText,
		Similarity:        c.Similarity,
	}
}

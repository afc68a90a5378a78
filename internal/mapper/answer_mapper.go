package mapper

import (
	"time"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/model"

	"gorm.io/datatypes"
)

type AnswerMapper struct{}

func NewAnswerMapper() *AnswerMapper {
	return &AnswerMapper{}
}

func (m *AnswerMapper) ToEntity(a *model.Answer) *entity.Answer {
	if a == nil {
		return nil
	}

	var updatedAt *time.Time
	if !a.UpdatedAt.IsZero() && !a.UpdatedAt.Equal(a.CreatedAt) {
		t := a.UpdatedAt
		updatedAt = &t
	}

	return &entity.Answer{
		Id:                   a.Id,
		QuestionId:           a.QuestionId,
		ProjectId:            a.ProjectId,
		Text:                 a.Text,
		Sources:              []entity.AnswerSource(a.Sources),
		Confidence:           a.Confidence,
		ConfidenceBand:       a.ConfidenceBand,
		ConfidenceBreakdown:  a.ConfidenceBreakdown.Data(),
		ClonedFromQuestionId: a.ClonedFromQuestionId,
		IsManualOverride:     a.IsManualOverride,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            updatedAt,
	}
}

func (m *AnswerMapper) ToModel(a *entity.Answer) *model.Answer {
	if a == nil {
		return nil
	}

	var updatedAt time.Time
	if a.UpdatedAt != nil {
		updatedAt = *a.UpdatedAt
	}

	return &model.Answer{
		Id:                   a.Id,
		QuestionId:           a.QuestionId,
		ProjectId:            a.ProjectId,
		Text:                 a.Text,
		Sources:              datatypes.JSONSlice[entity.AnswerSource](a.Sources),
		Confidence:           a.Confidence,
		ConfidenceBand:       a.ConfidenceBand,
		ConfidenceBreakdown:  datatypes.NewJSONType(a.ConfidenceBreakdown),
		ClonedFromQuestionId: a.ClonedFromQuestionId,
		IsManualOverride:     a.IsManualOverride,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            updatedAt,
	}
}

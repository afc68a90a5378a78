package implementation

import (
	"context"
	"errors"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/mapper"
	"rfp-answer-engine/internal/model"
	"rfp-answer-engine/internal/repository/contract"
	"rfp-answer-engine/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AnswerMapper
}

func NewAnswerRepository(db *gorm.DB) contract.AnswerRepository {
	return &AnswerRepositoryImpl{
		db:     db,
		mapper: mapper.NewAnswerMapper(),
	}
}

func (r *AnswerRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AnswerRepositoryImpl) Upsert(ctx context.Context, answer *entity.Answer) error {
	if answer.Id == uuid.Nil {
		answer.Id = uuid.New()
	}
	m := r.mapper.ToModel(answer)

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"text", "sources", "confidence", "confidence_band", "confidence_breakdown",
			"cloned_from_question_id", "is_manual_override", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}

	// on conflict the stored row keeps its own id and created_at
	var stored model.Answer
	if err := r.db.WithContext(ctx).Where("question_id = ?", m.QuestionId).First(&stored).Error; err != nil {
		return err
	}
	*answer = *r.mapper.ToEntity(&stored)
	return nil
}

func (r *AnswerRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Answer, error) {
	var m model.Answer
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AnswerRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Answer, error) {
	var models []*model.Answer
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Answer, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *AnswerRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Answer{}).Count(&count).Error
	return count, err
}

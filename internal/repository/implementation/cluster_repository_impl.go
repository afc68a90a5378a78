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
)

type QuestionClusterRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ClusterMapper
}

func NewQuestionClusterRepository(db *gorm.DB) contract.QuestionClusterRepository {
	return &QuestionClusterRepositoryImpl{
		db:     db,
		mapper: mapper.NewClusterMapper(),
	}
}

func (r *QuestionClusterRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *QuestionClusterRepositoryImpl) CreateBulk(ctx context.Context, clusters []*entity.QuestionCluster) error {
	if len(clusters) == 0 {
		return nil
	}
	models := make([]*model.QuestionCluster, len(clusters))
	for i, c := range clusters {
		models[i] = r.mapper.ToModel(c)
	}
	if err := r.db.WithContext(ctx).CreateInBatches(models, 200).Error; err != nil {
		return err
	}
	for i, m := range models {
		*clusters[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *QuestionClusterRepositoryImpl) Update(ctx context.Context, cluster *entity.QuestionCluster) error {
	m := r.mapper.ToModel(cluster)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*cluster = *r.mapper.ToEntity(m)
	return nil
}

func (r *QuestionClusterRepositoryImpl) DeleteByProjectId(ctx context.Context, projectId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectId).Delete(&model.QuestionCluster{}).Error
}

func (r *QuestionClusterRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.QuestionCluster, error) {
	var m model.QuestionCluster
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *QuestionClusterRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.QuestionCluster, error) {
	var models []*model.QuestionCluster
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.QuestionCluster, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *QuestionClusterRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.QuestionCluster{}).Count(&count).Error
	return count, err
}

func (r *QuestionClusterRepositoryImpl) ReplaceSuggestions(ctx context.Context, projectId uuid.UUID, suggestions []entity.SimilarQuestion) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("project_id = ?", projectId).Delete(&model.SimilarQuestionLink{}).Error; err != nil {
		return err
	}
	if len(suggestions) == 0 {
		return nil
	}

	links := make([]*model.SimilarQuestionLink, len(suggestions))
	for i, s := range suggestions {
		links[i] = &model.SimilarQuestionLink{Id: uuid.New(), ProjectId: projectId}
		r.mapper.SimilarToModel(s, links[i])
	}
	return db.CreateInBatches(links, 500).Error
}

func (r *QuestionClusterRepositoryImpl) FindSuggestions(ctx context.Context, projectId uuid.UUID) ([]entity.SimilarQuestion, error) {
	var links []*model.SimilarQuestionLink
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectId).
		Order("similarity DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	out := make([]entity.SimilarQuestion, len(links))
	for i, l := range links {
		out[i] = r.mapper.SimilarToEntity(l)
	}
	return out, nil
}

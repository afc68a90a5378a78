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
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type QuestionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.QuestionMapper
}

func NewQuestionRepository(db *gorm.DB) contract.QuestionRepository {
	return &QuestionRepositoryImpl{
		db:     db,
		mapper: mapper.NewQuestionMapper(),
	}
}

func (r *QuestionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *QuestionRepositoryImpl) CreateBulk(ctx context.Context, questions []*entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	models := make([]*model.Question, len(questions))
	for i, q := range questions {
		models[i] = r.mapper.ToModel(q)
	}

	if err := r.db.WithContext(ctx).CreateInBatches(models, 200).Error; err != nil {
		return err
	}

	for i, m := range models {
		*questions[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *QuestionRepositoryImpl) Update(ctx context.Context, question *entity.Question) error {
	m := r.mapper.ToModel(question)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*question = *r.mapper.ToEntity(m)
	return nil
}

func (r *QuestionRepositoryImpl) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	return r.db.WithContext(ctx).
		Model(&model.Question{}).
		Where("id = ?", id).
		Update("embedding", pgvector.NewVector(embedding)).Error
}

func (r *QuestionRepositoryImpl) ApplyAssignments(ctx context.Context, projectId uuid.UUID, questions []*entity.Question) error {
	db := r.db.WithContext(ctx)
	for _, q := range questions {
		// map form so false and zero values are written too
		err := db.Model(&model.Question{}).
			Where("id = ? AND project_id = ?", q.Id, projectId).
			Updates(map[string]interface{}{
				"cluster_id":           q.ClusterId,
				"is_cluster_master":    q.IsClusterMaster,
				"master_question_id":   q.MasterQuestionId,
				"similarity_to_master": q.SimilarityToMaster,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *QuestionRepositoryImpl) ClearAssignments(ctx context.Context, projectId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Question{}).
		Where("project_id = ?", projectId).
		Updates(map[string]interface{}{
			"cluster_id":           nil,
			"is_cluster_master":    false,
			"master_question_id":   nil,
			"similarity_to_master": 0,
		}).Error
}

func (r *QuestionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Question, error) {
	var m model.Question
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *QuestionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Question, error) {
	var models []*model.Question
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *QuestionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Question{}).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore ranks the project's other questions by cosine similarity.
// pgvector's <=> is cosine distance, so similarity is 1 - distance.
func (r *QuestionRepositoryImpl) SearchSimilarWithScore(ctx context.Context, projectId, excludeId uuid.UUID, embedding []float32, limit int, threshold float64) ([]*contract.ScoredQuestion, error) {
	if limit <= 0 {
		limit = 10
	}

	type result struct {
		model.Question
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("rfp_questions").
		Select("rfp_questions.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("project_id = ?", projectId).
		Where("id <> ?", excludeId).
		Where("deleted_at IS NULL").
		Where("is_archived = ?", false).
		Where("embedding IS NOT NULL").
		Where("1 - (embedding <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredQuestion, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredQuestion{
			Question:   r.mapper.ToEntity(&res.Question),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

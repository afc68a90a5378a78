package service

import (
	"context"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/repository/specification"
	"rfp-answer-engine/internal/repository/unitofwork"
	"rfp-answer-engine/pkg/pipeline"
	"rfp-answer-engine/pkg/propagation"

	"github.com/google/uuid"
)

// rfpStore adapts the unit of work to the narrow store interfaces of the propagator and the
// orchestrator. Every call is its own short unit of work; nothing here spans a transaction.
type rfpStore struct {
	uowFactory unitofwork.RepositoryFactory
}

var (
	_ propagation.Store       = &rfpStore{}
	_ pipeline.RunStore       = &rfpStore{}
	_ pipeline.QuestionSource = &rfpStore{}
	_ pipeline.AnswerSink     = &rfpStore{}
)

func newRFPStore(uowFactory unitofwork.RepositoryFactory) *rfpStore {
	return &rfpStore{uowFactory: uowFactory}
}

func (s *rfpStore) ListClusters(ctx context.Context, projectId uuid.UUID) ([]*entity.QuestionCluster, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.QuestionClusterRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.OrderBy{Field: "created_at"},
		specification.OrderBy{Field: "id"},
	)
}

func (s *rfpStore) FindQuestions(ctx context.Context, projectId uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*entity.Question, error) {
	out := make(map[uuid.UUID]*entity.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	questions, err := uow.QuestionRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.ByIDs{IDs: ids},
	)
	if err != nil {
		return nil, err
	}
	for _, q := range questions {
		out[q.Id] = q
	}
	return out, nil
}

func (s *rfpStore) FindAnswers(ctx context.Context, projectId uuid.UUID, questionIds []uuid.UUID) (map[uuid.UUID]*entity.Answer, error) {
	out := make(map[uuid.UUID]*entity.Answer, len(questionIds))
	if len(questionIds) == 0 {
		return out, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	answers, err := uow.AnswerRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.ByQuestionIDs{QuestionIDs: questionIds},
	)
	if err != nil {
		return nil, err
	}
	for _, a := range answers {
		out[a.QuestionId] = a
	}
	return out, nil
}

func (s *rfpStore) SaveAnswer(ctx context.Context, answer *entity.Answer) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.AnswerRepository().Upsert(ctx, answer)
}

func (s *rfpStore) SaveCluster(ctx context.Context, cluster *entity.QuestionCluster) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.QuestionClusterRepository().Update(ctx, cluster)
}

func (s *rfpStore) SaveRun(ctx context.Context, run *entity.PipelineRun) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.PipelineRunRepository().Save(ctx, run)
}

func (s *rfpStore) FindQuestion(ctx context.Context, projectId, questionId uuid.UUID) (*entity.Question, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	q, err := uow.QuestionRepository().FindOne(ctx,
		specification.ByID{ID: questionId},
		specification.ByProjectID{ProjectID: projectId},
	)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrQuestionNotFound
	}
	return q, nil
}

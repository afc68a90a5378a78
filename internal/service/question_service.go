package service

import (
	"context"
	"strings"
	"time"

	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/internal/repository/specification"
	"rfp-answer-engine/internal/repository/unitofwork"
	"rfp-answer-engine/pkg/embedding"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type IQuestionService interface {
	ImportQuestions(ctx context.Context, req *dto.ImportQuestionsRequest) (*dto.ImportQuestionsResponse, error)
	ListQuestions(ctx context.Context, projectId, orgId uuid.UUID) ([]*dto.QuestionResponse, error)
	// AuthorizeProject returns ErrProjectNotFound when the project belongs to another organization.
	AuthorizeProject(ctx context.Context, projectId, orgId uuid.UUID) error
}

type questionService struct {
	uowFactory unitofwork.RepositoryFactory
	store      *rfpStore
	embedder   embedding.EmbeddingProvider
	logger     logger.ILogger
}

func NewQuestionService(uowFactory unitofwork.RepositoryFactory, embedder embedding.EmbeddingProvider, log logger.ILogger) IQuestionService {
	return &questionService{
		uowFactory: uowFactory,
		store:      newRFPStore(uowFactory),
		embedder:   embedder,
		logger:     log,
	}
}

// ImportQuestions stores the questions in request order and embeds them eagerly. Embedding
// failures are not fatal: clustering retries any question still missing a vector.
func (s *questionService) ImportQuestions(ctx context.Context, req *dto.ImportQuestionsRequest) (*dto.ImportQuestionsResponse, error) {
	if len(req.Questions) == 0 {
		return nil, ErrNoQuestionsGiven
	}
	if err := authorizeProject(ctx, s.uowFactory, req.ProjectId, req.OrgId); err != nil {
		return nil, err
	}

	// strictly increasing timestamps keep the import order as the clustering order
	base := time.Now()
	questions := make([]*entity.Question, 0, len(req.Questions))
	for i, item := range req.Questions {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		questions = append(questions, &entity.Question{
			Id:           uuid.New(),
			ProjectId:    req.ProjectId,
			OrgId:        req.OrgId,
			Text:         text,
			SectionId:    item.SectionId,
			SectionTitle: item.SectionTitle,
			CreatedAt:    base.Add(time.Duration(i) * time.Microsecond),
		})
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestionsGiven
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.QuestionRepository().CreateBulk(ctx, questions); err != nil {
		return nil, err
	}

	embedded := s.embedAll(ctx, questions)

	ids := make([]uuid.UUID, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.Id)
	}
	s.logger.Info("QuestionService", "Questions imported", map[string]interface{}{
		"project_id": req.ProjectId,
		"created":    len(questions),
		"embedded":   embedded,
	})
	return &dto.ImportQuestionsResponse{
		Created:     len(questions),
		Embedded:    embedded,
		QuestionIds: ids,
	}, nil
}

func (s *questionService) embedAll(ctx context.Context, questions []*entity.Question) int {
	results := make([]bool, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, q := range questions {
		i, q := i, q
		g.Go(func() error {
			res, err := s.embedder.Generate(gctx, q.Text, embedding.TaskSemanticSimilarity)
			if err != nil || len(res.Embedding.Values) == 0 {
				return nil
			}
			uow := s.uowFactory.NewUnitOfWork(gctx)
			if err := uow.QuestionRepository().UpdateEmbedding(gctx, q.Id, res.Embedding.Values); err != nil {
				s.logger.Warn("QuestionService", "Failed to store embedding", map[string]interface{}{
					"question_id": q.Id,
					"error":       err.Error(),
				})
				return nil
			}
			q.Embedding = res.Embedding.Values
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n
}

func (s *questionService) ListQuestions(ctx context.Context, projectId, orgId uuid.UUID) ([]*dto.QuestionResponse, error) {
	if err := authorizeProject(ctx, s.uowFactory, projectId, orgId); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	questions, err := uow.QuestionRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.ActiveQuestions{},
		specification.CreationOrder{},
	)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.Id)
	}
	answers, err := s.store.FindAnswers(ctx, projectId, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		res := &dto.QuestionResponse{
			Id:                 q.Id,
			Text:               q.Text,
			SectionId:          q.SectionId,
			SectionTitle:       q.SectionTitle,
			ClusterId:          q.ClusterId,
			IsClusterMaster:    q.IsClusterMaster,
			MasterQuestionId:   q.MasterQuestionId,
			SimilarityToMaster: q.SimilarityToMaster,
			CreatedAt:          q.CreatedAt,
		}
		if a, ok := answers[q.Id]; ok {
			res.Answer = &dto.AnswerResponse{
				QuestionId:           a.QuestionId,
				Text:                 a.Text,
				Confidence:           a.Confidence,
				ConfidenceBand:       a.ConfidenceBand,
				ClonedFromQuestionId: a.ClonedFromQuestionId,
				IsManualOverride:     a.IsManualOverride,
			}
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *questionService) AuthorizeProject(ctx context.Context, projectId, orgId uuid.UUID) error {
	return authorizeProject(ctx, s.uowFactory, projectId, orgId)
}

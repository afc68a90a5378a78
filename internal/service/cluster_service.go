package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/internal/repository/contract"
	"rfp-answer-engine/internal/repository/specification"
	"rfp-answer-engine/internal/repository/unitofwork"
	"rfp-answer-engine/pkg/clustering"
	"rfp-answer-engine/pkg/embedding"
	"rfp-answer-engine/pkg/pipeline"
	"rfp-answer-engine/pkg/propagation"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSimilarLimit = 10
	maxSimilarLimit     = 50
	embedConcurrency    = 4
	clusterLockTTL      = 5 * time.Minute
)

var ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

type IClusterService interface {
	ClusterQuestions(ctx context.Context, req *dto.ClusterQuestionsRequest) (*dto.ClusterQuestionsResponse, error)
	GetClusters(ctx context.Context, projectId, orgId uuid.UUID) (*dto.GetClustersResponse, error)
	FindSimilarQuestions(ctx context.Context, req *dto.FindSimilarQuestionsRequest) (*dto.FindSimilarQuestionsResponse, error)
	ApplyClusterAnswer(ctx context.Context, req *dto.ApplyClusterAnswerRequest, orgId uuid.UUID) (*dto.ApplyClusterAnswerResponse, error)
	// Prepare is the pipeline's PREPARING stage: a fresh clustering of every active question.
	Prepare(ctx context.Context, projectId, orgId uuid.UUID) (*pipeline.Preparation, error)
}

type clusterService struct {
	uowFactory unitofwork.RepositoryFactory
	store      *rfpStore
	engine     *clustering.Engine
	embedder   embedding.EmbeddingProvider
	settings   ISettingsService
	propagator *propagation.Propagator
	locks      contract.RunLockRepository
	logger     logger.ILogger
}

func NewClusterService(
	uowFactory unitofwork.RepositoryFactory,
	engine *clustering.Engine,
	embedder embedding.EmbeddingProvider,
	settings ISettingsService,
	locks contract.RunLockRepository,
	log logger.ILogger,
) IClusterService {
	store := newRFPStore(uowFactory)
	return &clusterService{
		uowFactory: uowFactory,
		store:      store,
		engine:     engine,
		embedder:   embedder,
		settings:   settings,
		propagator: propagation.NewPropagator(store, log),
		locks:      locks,
		logger:     log,
	}
}

// clusteringOutcome is what a persisted re-clustering produced.
type clusteringOutcome struct {
	result    *clustering.Result
	questions []*entity.Question
	failures  []entity.FailedQuestion
}

func (s *clusterService) ClusterQuestions(ctx context.Context, req *dto.ClusterQuestionsRequest) (*dto.ClusterQuestionsResponse, error) {
	if err := authorizeProject(ctx, s.uowFactory, req.ProjectId, req.OrgId); err != nil {
		return nil, err
	}

	questions, err := s.activeQuestions(ctx, req.ProjectId)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, clustering.ErrEmptyInput
	}

	if !req.ForceRecluster {
		existing, err := s.existingClustering(ctx, req.ProjectId, questions)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	// a running pipeline owns the project's cluster assignment
	token := uuid.NewString()
	ok, err := s.locks.Acquire(ctx, runLockKey(req.ProjectId), token, clusterLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire project lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), runLockKey(req.ProjectId), token); err != nil {
			s.logger.Warn("ClusterService", "Failed to release project lock", map[string]interface{}{
				"project_id": req.ProjectId,
				"error":      err.Error(),
			})
		}
	}()

	out, err := s.recluster(ctx, req.ProjectId, req.OrgId, req.OpportunityId, questions)
	if err != nil {
		return nil, err
	}

	clusters := make([]*dto.ClusterResponse, 0, len(out.result.Clusters))
	for _, c := range out.result.Clusters {
		clusters = append(clusters, toClusterResponse(c))
	}
	return &dto.ClusterQuestionsResponse{
		ClustersCreated:    len(out.result.Clusters),
		QuestionsProcessed: len(out.questions),
		Clusters:           clusters,
		Suggestions:        nonNilSuggestions(out.result.Suggestions),
		FailedQuestions:    out.failures,
	}, nil
}

func (s *clusterService) Prepare(ctx context.Context, projectId, orgId uuid.UUID) (*pipeline.Preparation, error) {
	questions, err := s.activeQuestions(ctx, projectId)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, pipeline.ErrNoQuestions
	}

	out, err := s.recluster(ctx, projectId, orgId, nil, questions)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(out.questions))
	for _, q := range out.questions {
		ids = append(ids, q.Id)
	}
	return &pipeline.Preparation{
		QuestionIds:     ids,
		ClustersCreated: len(out.result.Clusters),
		Failures:        out.failures,
	}, nil
}

func (s *clusterService) GetClusters(ctx context.Context, projectId, orgId uuid.UUID) (*dto.GetClustersResponse, error) {
	if err := authorizeProject(ctx, s.uowFactory, projectId, orgId); err != nil {
		return nil, err
	}

	clusters, err := s.store.ListClusters(ctx, projectId)
	if err != nil {
		return nil, err
	}

	res := &dto.GetClustersResponse{
		Clusters:      make([]*dto.ClusterResponse, 0, len(clusters)),
		TotalClusters: len(clusters),
	}
	for _, c := range clusters {
		res.Clusters = append(res.Clusters, toClusterResponse(c))
	}
	return res, nil
}

func (s *clusterService) FindSimilarQuestions(ctx context.Context, req *dto.FindSimilarQuestionsRequest) (*dto.FindSimilarQuestionsResponse, error) {
	if err := authorizeProject(ctx, s.uowFactory, req.ProjectId, req.OrgId); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultSimilarLimit
	}
	if limit < 0 || limit > maxSimilarLimit {
		return nil, ErrInvalidLimit
	}

	var threshold float64
	if req.Threshold != nil {
		threshold = *req.Threshold
		if threshold < 0 || threshold > 1 {
			return nil, fmt.Errorf("%w: threshold %.4f outside [0,1]", clustering.ErrInvalidThresholds, threshold)
		}
	} else {
		th, err := s.settings.Thresholds(ctx, req.OrgId)
		if err != nil {
			return nil, err
		}
		threshold = th.Similar
	}

	question, err := s.store.FindQuestion(ctx, req.ProjectId, req.QuestionId)
	if err != nil {
		return nil, err
	}
	if !question.HasEmbedding() {
		if err := s.embedQuestion(ctx, question); err != nil {
			return nil, err
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.QuestionRepository().SearchSimilarWithScore(ctx, req.ProjectId, question.Id, question.Embedding, limit, threshold)
	if err != nil {
		return nil, err
	}

	res := &dto.FindSimilarQuestionsResponse{
		QuestionId:       question.Id,
		QuestionText:     question.Text,
		Threshold:        threshold,
		SimilarQuestions: make([]*dto.SimilarQuestionResponse, 0, len(scored)),
	}
	for _, sq := range scored {
		res.SimilarQuestions = append(res.SimilarQuestions, &dto.SimilarQuestionResponse{
			QuestionId:   sq.Question.Id,
			QuestionText: sq.Question.Text,
			SectionTitle: sq.Question.SectionTitle,
			ClusterId:    sq.Question.ClusterId,
			Similarity:   sq.Similarity,
		})
	}
	return res, nil
}

func (s *clusterService) ApplyClusterAnswer(ctx context.Context, req *dto.ApplyClusterAnswerRequest, orgId uuid.UUID) (*dto.ApplyClusterAnswerResponse, error) {
	if err := authorizeProject(ctx, s.uowFactory, req.ProjectId, orgId); err != nil {
		return nil, err
	}

	result, err := s.propagator.ApplyAnswer(ctx, req.ProjectId, req.SourceQuestionId, req.TargetQuestionIds, req.CustomText)
	if err != nil {
		return nil, err
	}

	res := &dto.ApplyClusterAnswerResponse{
		Applied: result.Applied,
		Failed:  make([]dto.FailedTargetResponse, 0, len(result.Failed)),
	}
	if res.Applied == nil {
		res.Applied = []uuid.UUID{}
	}
	for _, f := range result.Failed {
		res.Failed = append(res.Failed, dto.FailedTargetResponse{QuestionId: f.QuestionId, Reason: f.Reason})
	}
	return res, nil
}

func (s *clusterService) activeQuestions(ctx context.Context, projectId uuid.UUID) ([]*entity.Question, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.QuestionRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.ActiveQuestions{},
		specification.CreationOrder{},
	)
}

// existingClustering returns the persisted clustering when it still covers every active
// question, nil when a re-cluster is needed.
func (s *clusterService) existingClustering(ctx context.Context, projectId uuid.UUID, questions []*entity.Question) (*dto.ClusterQuestionsResponse, error) {
	clusters, err := s.store.ListClusters(ctx, projectId)
	if err != nil {
		return nil, err
	}
	if len(clusters) == 0 {
		return nil, nil
	}

	known := make(map[uuid.UUID]struct{}, len(clusters))
	covered := 0
	for _, c := range clusters {
		known[c.Id] = struct{}{}
		covered += len(c.Members)
	}
	for _, q := range questions {
		if q.ClusterId == nil {
			return nil, nil
		}
		if _, ok := known[*q.ClusterId]; !ok {
			return nil, nil
		}
	}
	// archived questions still listed as members
	if covered != len(questions) {
		return nil, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	suggestions, err := uow.QuestionClusterRepository().FindSuggestions(ctx, projectId)
	if err != nil {
		return nil, err
	}

	res := &dto.ClusterQuestionsResponse{
		ClustersCreated:    0,
		QuestionsProcessed: len(questions),
		Reused:             true,
		Clusters:           make([]*dto.ClusterResponse, 0, len(clusters)),
		Suggestions:        nonNilSuggestions(suggestions),
	}
	for _, c := range clusters {
		res.Clusters = append(res.Clusters, toClusterResponse(c))
	}
	return res, nil
}

// recluster embeds what is missing, runs the engine and persists assignments, clusters and
// suggestions in one transaction.
func (s *clusterService) recluster(ctx context.Context, projectId, orgId uuid.UUID, opportunityId *uuid.UUID, questions []*entity.Question) (*clusteringOutcome, error) {
	failures := s.embedMissing(ctx, questions)

	embedded := 0
	for _, q := range questions {
		if q.HasEmbedding() {
			embedded++
		}
	}
	if embedded == 0 {
		return nil, ErrEmbeddingUnavailable
	}

	th, err := s.settings.Thresholds(ctx, orgId)
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}

	result, err := s.engine.Cluster(projectId, opportunityId, questions, th)
	if err != nil {
		return nil, err
	}
	applyAssignments(questions, result.Assignments)

	if err := s.markAnswered(ctx, projectId, questions, result.Clusters); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, projectId, questions, result); err != nil {
		return nil, err
	}

	s.logger.Info("Clustering", "Project clustered", map[string]interface{}{
		"project_id":  projectId,
		"strategy":    string(s.engine.Strategy()),
		"questions":   len(questions),
		"clusters":    len(result.Clusters),
		"suggestions": len(result.Suggestions),
		"failures":    len(failures),
		"threshold":   th.Cluster,
	})

	return &clusteringOutcome{result: result, questions: questions, failures: failures}, nil
}

// embedMissing fills in absent vectors concurrently. A failed question keeps no vector and
// ends up as a singleton master; the failure is reported, not returned.
func (s *clusterService) embedMissing(ctx context.Context, questions []*entity.Question) []entity.FailedQuestion {
	var (
		mu       sync.Mutex
		failures []entity.FailedQuestion
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for _, q := range questions {
		q := q
		if q.HasEmbedding() {
			continue
		}
		g.Go(func() error {
			if err := s.embedQuestion(gctx, q); err != nil {
				s.logger.Warn("Clustering", "Question embedding failed", map[string]interface{}{
					"question_id": q.Id,
					"error":       err.Error(),
				})
				mu.Lock()
				failures = append(failures, entity.FailedQuestion{QuestionId: q.Id, Reason: "embedding: " + err.Error()})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}

func (s *clusterService) embedQuestion(ctx context.Context, q *entity.Question) error {
	res, err := s.embedder.Generate(ctx, q.Text, embedding.TaskSemanticSimilarity)
	if err != nil {
		return err
	}
	if len(res.Embedding.Values) == 0 {
		return errors.New("embedding service returned an empty vector")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.QuestionRepository().UpdateEmbedding(ctx, q.Id, res.Embedding.Values); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	q.Embedding = res.Embedding.Values
	return nil
}

func (s *clusterService) markAnswered(ctx context.Context, projectId uuid.UUID, questions []*entity.Question, clusters []*entity.QuestionCluster) error {
	ids := make([]uuid.UUID, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.Id)
	}
	answers, err := s.store.FindAnswers(ctx, projectId, ids)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	for _, c := range clusters {
		for i := range c.Members {
			if a, ok := answers[c.Members[i].QuestionId]; ok {
				c.Members[i].HasAnswer = true
				c.Members[i].AnswerPreview = a.Preview(propagation.PreviewRunes)
			}
		}
	}
	return nil
}

func (s *clusterService) persist(ctx context.Context, projectId uuid.UUID, questions []*entity.Question, result *clustering.Result) (err error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = uow.Rollback()
		}
	}()

	if err = uow.QuestionRepository().ClearAssignments(ctx, projectId); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	if err = uow.QuestionRepository().ApplyAssignments(ctx, projectId, questions); err != nil {
		return fmt.Errorf("apply assignments: %w", err)
	}
	if err = uow.QuestionClusterRepository().DeleteByProjectId(ctx, projectId); err != nil {
		return fmt.Errorf("delete clusters: %w", err)
	}
	if err = uow.QuestionClusterRepository().CreateBulk(ctx, result.Clusters); err != nil {
		return fmt.Errorf("create clusters: %w", err)
	}
	if err = uow.QuestionClusterRepository().ReplaceSuggestions(ctx, projectId, result.Suggestions); err != nil {
		return fmt.Errorf("replace suggestions: %w", err)
	}
	return uow.Commit()
}

func applyAssignments(questions []*entity.Question, assignments []clustering.Assignment) {
	byId := make(map[uuid.UUID]clustering.Assignment, len(assignments))
	for _, a := range assignments {
		byId[a.QuestionId] = a
	}
	for _, q := range questions {
		a, ok := byId[q.Id]
		if !ok {
			continue
		}
		clusterId, masterId := a.ClusterId, a.MasterQuestionId
		q.ClusterId = &clusterId
		q.IsClusterMaster = a.IsMaster
		q.MasterQuestionId = &masterId
		q.SimilarityToMaster = a.SimilarityToMaster
	}
}

// authorizeProject rejects access to a project whose questions belong to another organization.
// A project without questions is treated as empty, not missing.
func authorizeProject(ctx context.Context, uowFactory unitofwork.RepositoryFactory, projectId, orgId uuid.UUID) error {
	uow := uowFactory.NewUnitOfWork(ctx)
	q, err := uow.QuestionRepository().FindOne(ctx, specification.ByProjectID{ProjectID: projectId})
	if err != nil {
		return err
	}
	if q != nil && q.OrgId != orgId {
		return ErrProjectNotFound
	}
	return nil
}

func toClusterResponse(c *entity.QuestionCluster) *dto.ClusterResponse {
	members := c.Members
	if members == nil {
		members = []entity.ClusterMember{}
	}
	return &dto.ClusterResponse{
		Id:                 c.Id,
		MasterQuestionId:   c.MasterQuestionId,
		MasterQuestionText: c.MasterQuestionText,
		QuestionCount:      c.QuestionCount,
		AvgSimilarity:      c.AvgSimilarity,
		Members:            members,
		CreatedAt:          c.CreatedAt,
	}
}

func nonNilSuggestions(s []entity.SimilarQuestion) []entity.SimilarQuestion {
	if s == nil {
		return []entity.SimilarQuestion{}
	}
	return s
}

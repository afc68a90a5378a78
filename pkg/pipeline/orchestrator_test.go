package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/pkg/answer"
	"rfp-answer-engine/pkg/clustering"
	"rfp-answer-engine/pkg/embedding"
	"rfp-answer-engine/pkg/llm"
	"rfp-answer-engine/pkg/propagation"
	"rfp-answer-engine/pkg/vectorindex"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore backs every store interface the orchestrator and propagator need.
type memStore struct {
	mu        sync.Mutex
	questions map[uuid.UUID]*entity.Question
	order     []uuid.UUID
	clusters  []*entity.QuestionCluster
	answers   map[uuid.UUID]*entity.Answer
	stages    []string
	lastRun   *entity.PipelineRun
}

func newMemStore() *memStore {
	return &memStore{questions: map[uuid.UUID]*entity.Question{}, answers: map[uuid.UUID]*entity.Answer{}}
}

func (s *memStore) addQuestion(projectId uuid.UUID, text string, vec ...float32) *entity.Question {
	q := &entity.Question{Id: uuid.New(), ProjectId: projectId, Text: text, Embedding: vec}
	s.questions[q.Id] = q
	s.order = append(s.order, q.Id)
	return q
}

func (s *memStore) SaveRun(ctx context.Context, run *entity.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stages) == 0 || s.stages[len(s.stages)-1] != run.Stage {
		s.stages = append(s.stages, run.Stage)
	}
	s.lastRun = run
	return nil
}

func (s *memStore) FindQuestion(ctx context.Context, projectId, id uuid.UUID) (*entity.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *q
	return &cp, nil
}

func (s *memStore) SaveAnswer(ctx context.Context, a *entity.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[a.QuestionId] = a
	return nil
}

func (s *memStore) ListClusters(ctx context.Context, projectId uuid.UUID) ([]*entity.QuestionCluster, error) {
	return s.clusters, nil
}

func (s *memStore) FindQuestions(ctx context.Context, projectId uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*entity.Question, error) {
	out := map[uuid.UUID]*entity.Question{}
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (s *memStore) FindAnswers(ctx context.Context, projectId uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*entity.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]*entity.Answer{}
	for _, id := range ids {
		if a, ok := s.answers[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (s *memStore) SaveCluster(ctx context.Context, c *entity.QuestionCluster) error {
	return nil
}

// Prepare clusters the stored questions and writes the assignment back, like the service does.
func (s *memStore) Prepare(ctx context.Context, projectId, orgId uuid.UUID) (*Preparation, error) {
	var qs []*entity.Question
	for _, id := range s.order {
		qs = append(qs, s.questions[id])
	}
	res, err := clustering.NewEngine(clustering.StrategyGreedy).Cluster(projectId, nil, qs, clustering.DefaultThresholds())
	if err != nil {
		return nil, err
	}
	for _, a := range res.Assignments {
		q := s.questions[a.QuestionId]
		clusterId, masterId := a.ClusterId, a.MasterQuestionId
		q.ClusterId, q.MasterQuestionId, q.IsClusterMaster = &clusterId, &masterId, a.IsMaster
	}
	s.clusters = res.Clusters
	return &Preparation{QuestionIds: s.order, ClustersCreated: len(res.Clusters)}, nil
}

type failingPreparer struct{}

func (failingPreparer) Prepare(ctx context.Context, projectId, orgId uuid.UUID) (*Preparation, error) {
	return nil, errors.New("embedding service unreachable")
}

type scriptedLLM struct {
	calls atomic.Int32
}

func (l *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	l.calls.Add(1)
	if strings.Contains(history[len(history)-1].Content, "FAIL") {
		return "", llm.ErrRateLimited
	}
	return "Answer text.\nCONFIDENCE: 80", nil
}

func (l *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return l.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

type nopEmbedder struct{}

func (nopEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0, 0}}}, nil
}

type countingNotifier struct {
	n atomic.Int32
}

func (c *countingNotifier) Notify(ctx context.Context, run *entity.PipelineRun) {
	c.n.Add(1)
}

func newTestOrchestrator(store *memStore, gen Generator, cfg Config, notifiers ...Notifier) *Orchestrator {
	log := logger.NewNopLogger()
	return NewOrchestrator(Deps{
		Runs:       store,
		Preparer:   store,
		Questions:  store,
		Generator:  gen,
		Answers:    store,
		Propagator: propagation.NewPropagator(store, log),
		Notifiers:  notifiers,
	}, cfg, log)
}

func newRun(projectId uuid.UUID) *entity.PipelineRun {
	return &entity.PipelineRun{Id: uuid.New(), ProjectId: projectId, OrgId: uuid.New(), Stage: entity.PipelineStagePreparing}
}

func TestExecuteGeneratesOncePerClusterAndPropagates(t *testing.T) {
	projectId := uuid.New()
	store := newMemStore()
	a1 := store.addQuestion(projectId, "Do you encrypt data at rest?", 1, 0, 0)
	a2 := store.addQuestion(projectId, "Is data encrypted at rest?", 0.99, 0.14, 0)
	a3 := store.addQuestion(projectId, "Describe encryption at rest.", 0.98, 0, 0.2)
	b1 := store.addQuestion(projectId, "What is your uptime SLA?", 0, 1, 0)
	c1 := store.addQuestion(projectId, "Where are your data centers?", 0, 0, 1)

	provider := &scriptedLLM{}
	gen := answer.NewGenerator(nopEmbedder{}, vectorindex.NewMemoryIndex(), provider, answer.DefaultConfig(), logger.NewNopLogger())
	notifier := &countingNotifier{}
	run, err := newTestOrchestrator(store, gen, Config{Concurrency: 2}, notifier).Execute(context.Background(), newRun(projectId))
	require.NoError(t, err)

	assert.Equal(t, entity.PipelineStageDone, run.Stage)
	assert.Equal(t, []string{entity.PipelineStagePreparing, entity.PipelineStageGenerating, entity.PipelineStagePropagating, entity.PipelineStageDone}, store.stages)
	assert.Equal(t, 3, run.ClustersCreated)
	assert.Equal(t, 5, run.QuestionsTotal)
	assert.Equal(t, 5, run.QuestionsProcessed)
	assert.Equal(t, 3, run.AnswersGenerated)
	assert.Equal(t, int32(3), provider.calls.Load())
	assert.Equal(t, 2, run.AnswersPropagated)
	assert.Equal(t, 5, run.QuestionsAnswered)
	assert.Empty(t, run.FailedQuestions)
	assert.NotNil(t, run.CompletedAt)
	assert.Equal(t, "5 of 5 questions answered", run.Summary())
	assert.Greater(t, notifier.n.Load(), int32(4))

	for _, q := range []*entity.Question{a2, a3} {
		require.Contains(t, store.answers, q.Id)
		assert.Equal(t, a1.Id, *store.answers[q.Id].ClonedFromQuestionId)
	}
	for _, q := range []*entity.Question{a1, b1, c1} {
		assert.Nil(t, store.answers[q.Id].ClonedFromQuestionId)
	}
}

func TestExecuteAbsorbsMasterFailure(t *testing.T) {
	projectId := uuid.New()
	store := newMemStore()
	store.addQuestion(projectId, "Do you encrypt data at rest?", 1, 0, 0)
	store.addQuestion(projectId, "Is data encrypted at rest?", 0.99, 0.14, 0)
	failing := store.addQuestion(projectId, "FAIL: what is your uptime SLA?", 0, 1, 0)
	member := store.addQuestion(projectId, "FAIL: state the uptime SLA.", 0.1, 0.99, 0)

	gen := answer.NewGenerator(nopEmbedder{}, vectorindex.NewMemoryIndex(), &scriptedLLM{}, answer.DefaultConfig(), logger.NewNopLogger())
	run, err := newTestOrchestrator(store, gen, DefaultConfig()).Execute(context.Background(), newRun(projectId))
	require.NoError(t, err)

	assert.Equal(t, entity.PipelineStageDone, run.Stage)
	require.Len(t, run.FailedQuestions, 1)
	assert.Equal(t, failing.Id, run.FailedQuestions[0].QuestionId)
	assert.Contains(t, run.FailedQuestions[0].Reason, "rate limited")
	assert.NotContains(t, store.answers, failing.Id)
	assert.NotContains(t, store.answers, member.Id)
	assert.Equal(t, "2 of 4 questions answered", run.Summary())
}

type blockingGenerator struct {
	fast      uuid.UUID
	active    atomic.Int32
	maxActive atomic.Int32
}

func (g *blockingGenerator) GenerateAnswer(ctx context.Context, q *entity.Question, opts ...answer.Option) (*answer.Result, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		m := g.maxActive.Load()
		if n <= m || g.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if q.Id == g.fast {
		return &answer.Result{Status: answer.StatusGenerated, Answer: &entity.Answer{Id: uuid.New(), QuestionId: q.Id, ProjectId: q.ProjectId, Text: "done"}}, nil
	}
	<-ctx.Done()
	return nil, &answer.ItemError{QuestionId: q.Id, Stage: answer.StageGeneration, Err: ctx.Err()}
}

func TestExecuteBudgetExhaustionKeepsPartialAnswers(t *testing.T) {
	projectId := uuid.New()
	store := newMemStore()
	first := store.addQuestion(projectId, "q1", 1, 0, 0)
	store.addQuestion(projectId, "q2", 0, 1, 0)
	store.addQuestion(projectId, "q3", 0, 0, 1)

	gen := &blockingGenerator{fast: first.Id}
	run, err := newTestOrchestrator(store, gen, Config{Concurrency: 1, RunTimeout: 100 * time.Millisecond, UnitTimeout: time.Minute}).
		Execute(context.Background(), newRun(projectId))

	require.ErrorIs(t, err, ErrBudgetExhausted)
	assert.Equal(t, entity.PipelineStageFailed, run.Stage)
	assert.Equal(t, entity.PipelineStageFailed, store.lastRun.Stage)
	assert.Contains(t, store.answers, first.Id)
	assert.Equal(t, 1, run.AnswersGenerated)
	assert.Equal(t, 1, run.QuestionsAnswered)
	assert.NotContains(t, store.stages, entity.PipelineStagePropagating)
}

func TestExecuteUnitTimeoutIsPerItem(t *testing.T) {
	projectId := uuid.New()
	store := newMemStore()
	first := store.addQuestion(projectId, "q1", 1, 0, 0)
	slow := store.addQuestion(projectId, "q2", 0, 1, 0)

	gen := &blockingGenerator{fast: first.Id}
	run, err := newTestOrchestrator(store, gen, Config{Concurrency: 2, RunTimeout: time.Minute, UnitTimeout: 50 * time.Millisecond}).
		Execute(context.Background(), newRun(projectId))

	require.NoError(t, err)
	assert.Equal(t, entity.PipelineStageDone, run.Stage)
	require.Len(t, run.FailedQuestions, 1)
	assert.Equal(t, slow.Id, run.FailedQuestions[0].QuestionId)
}

func TestExecuteRespectsConcurrencyLimit(t *testing.T) {
	projectId := uuid.New()
	store := newMemStore()
	for i := 0; i < 8; i++ {
		vec := make([]float32, 8)
		vec[i] = 1
		store.addQuestion(projectId, "q", vec...)
	}

	gen := &blockingGenerator{}
	_, err := newTestOrchestrator(store, gen, Config{Concurrency: 3, UnitTimeout: 30 * time.Millisecond}).
		Execute(context.Background(), newRun(projectId))
	require.NoError(t, err)
	assert.LessOrEqual(t, gen.maxActive.Load(), int32(3))
	assert.Equal(t, int32(3), gen.maxActive.Load())
}

func TestExecutePreparationFailureSkipsGeneration(t *testing.T) {
	store := newMemStore()
	gen := &blockingGenerator{}
	log := logger.NewNopLogger()
	o := NewOrchestrator(Deps{
		Runs:       store,
		Preparer:   failingPreparer{},
		Questions:  store,
		Generator:  gen,
		Answers:    store,
		Propagator: propagation.NewPropagator(store, log),
	}, DefaultConfig(), log)

	run, err := o.Execute(context.Background(), newRun(uuid.New()))
	require.Error(t, err)
	assert.Equal(t, entity.PipelineStageFailed, run.Stage)
	assert.Contains(t, run.ErrorMessage, "embedding service unreachable")
	assert.Equal(t, []string{entity.PipelineStagePreparing, entity.PipelineStageFailed}, store.stages)
	assert.Zero(t, gen.maxActive.Load())
}

func TestExecuteRejectsTerminalRun(t *testing.T) {
	store := newMemStore()
	run := newRun(uuid.New())
	run.Stage = entity.PipelineStageDone

	_, err := newTestOrchestrator(store, &blockingGenerator{}, DefaultConfig()).Execute(context.Background(), run)
	assert.ErrorIs(t, err, ErrRunAlreadyFinal)
	assert.Empty(t, store.stages)
}

func TestMergeFailuresDropsRecoveredPreparationFailures(t *testing.T) {
	recovered, still, unitFailed := uuid.New(), uuid.New(), uuid.New()
	tr := &tracker{run: &entity.PipelineRun{}}
	tr.mergeFailures(
		[]entity.FailedQuestion{{QuestionId: recovered, Reason: "embedding"}, {QuestionId: still, Reason: "embedding"}},
		[]unitResult{
			{questionId: recovered, outcome: outcomeGenerated},
			{questionId: unitFailed, outcome: outcomeFailed, err: errors.New("boom")},
		},
	)
	assert.Equal(t, []entity.FailedQuestion{
		{QuestionId: still, Reason: "embedding"},
		{QuestionId: unitFailed, Reason: "boom"},
	}, tr.run.FailedQuestions)
}

// slowFirstNotifier stalls on its first snapshot so a later unit completion can race it.
type slowFirstNotifier struct {
	mu        sync.Mutex
	entered   chan struct{}
	calls     int
	processed []int
}

func (n *slowFirstNotifier) Notify(ctx context.Context, run *entity.PipelineRun) {
	n.mu.Lock()
	n.calls++
	first := n.calls == 1
	n.mu.Unlock()

	if first {
		close(n.entered)
		time.Sleep(50 * time.Millisecond)
	}

	n.mu.Lock()
	n.processed = append(n.processed, run.QuestionsProcessed)
	n.mu.Unlock()
}

func TestTrackerProgressNeverGoesBackwards(t *testing.T) {
	store := newMemStore()
	notifier := &slowFirstNotifier{entered: make(chan struct{})}
	o := newTestOrchestrator(store, &blockingGenerator{}, DefaultConfig(), notifier)
	tr := &tracker{o: o, run: newRun(uuid.New())}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tr.unitDone(context.Background(), unitResult{questionId: uuid.New(), outcome: outcomeGenerated})
	}()
	<-notifier.entered
	go func() {
		defer wg.Done()
		tr.unitDone(context.Background(), unitResult{questionId: uuid.New(), outcome: outcomeGenerated})
	}()
	wg.Wait()

	assert.Equal(t, []int{1, 2}, notifier.processed)
	assert.Equal(t, 2, store.lastRun.QuestionsProcessed)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/internal/repository/contract"
	"rfp-answer-engine/internal/repository/memory"
	"rfp-answer-engine/internal/repository/specification"
	"rfp-answer-engine/internal/repository/unitofwork"
	"rfp-answer-engine/pkg/clustering"
	"rfp-answer-engine/pkg/embedding"

	"github.com/google/uuid"
)

// fakeDB is an in-memory stand-in for the gorm unit of work. Specifications are interpreted by
// type; ordering specs are ignored because rows are kept in insertion order.
type fakeDB struct {
	mu          sync.Mutex
	questions   []*entity.Question
	clusters    []*entity.QuestionCluster
	suggestions map[uuid.UUID][]entity.SimilarQuestion
	answers     map[uuid.UUID]*entity.Answer
	runs        map[uuid.UUID]*entity.PipelineRun
	settings    map[uuid.UUID]*entity.TenantSettings
	chunks      []*entity.KnowledgeChunk

	failClusterCreate bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		suggestions: map[uuid.UUID][]entity.SimilarQuestion{},
		answers:     map[uuid.UUID]*entity.Answer{},
		runs:        map[uuid.UUID]*entity.PipelineRun{},
		settings:    map[uuid.UUID]*entity.TenantSettings{},
	}
}

func (db *fakeDB) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUoW{db: db}
}

func (db *fakeDB) addQuestion(projectId, orgId uuid.UUID, text string) *entity.Question {
	db.mu.Lock()
	defer db.mu.Unlock()
	q := &entity.Question{
		Id:        uuid.New(),
		ProjectId: projectId,
		OrgId:     orgId,
		Text:      text,
		CreatedAt: time.Now().Add(time.Duration(len(db.questions)) * time.Millisecond),
	}
	db.questions = append(db.questions, q)
	c := *q
	return &c
}

func (db *fakeDB) question(id uuid.UUID) *entity.Question {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, q := range db.questions {
		if q.Id == id {
			c := *q
			return &c
		}
	}
	return nil
}

func (db *fakeDB) answer(questionId uuid.UUID) *entity.Answer {
	db.mu.Lock()
	defer db.mu.Unlock()
	if a, ok := db.answers[questionId]; ok {
		c := *a
		return &c
	}
	return nil
}

type fakeUoW struct {
	db *fakeDB
}

func (u *fakeUoW) Begin(ctx context.Context) error { return nil }
func (u *fakeUoW) Commit() error                   { return nil }
func (u *fakeUoW) Rollback() error                 { return nil }

func (u *fakeUoW) QuestionRepository() contract.QuestionRepository {
	return &fakeQuestionRepo{db: u.db}
}
func (u *fakeUoW) QuestionClusterRepository() contract.QuestionClusterRepository {
	return &fakeClusterRepo{db: u.db}
}
func (u *fakeUoW) AnswerRepository() contract.AnswerRepository {
	return &fakeAnswerRepo{db: u.db}
}
func (u *fakeUoW) PipelineRunRepository() contract.PipelineRunRepository {
	return &fakeRunRepo{db: u.db}
}
func (u *fakeUoW) KnowledgeChunkRepository() contract.KnowledgeChunkRepository {
	return &fakeChunkRepo{db: u.db}
}
func (u *fakeUoW) TenantSettingsRepository() contract.TenantSettingsRepository {
	return &fakeSettingsRepo{db: u.db}
}

func containsId(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func questionMatches(q *entity.Question, specs []specification.Specification) bool {
	for _, s := range specs {
		switch v := s.(type) {
		case specification.ByProjectID:
			if q.ProjectId != v.ProjectID {
				return false
			}
		case specification.ByOrgID:
			if q.OrgId != v.OrgID {
				return false
			}
		case specification.ByID:
			if q.Id != v.ID {
				return false
			}
		case specification.ByIDs:
			if !containsId(v.IDs, q.Id) {
				return false
			}
		case specification.ActiveQuestions:
			if q.IsArchived {
				return false
			}
		case specification.ClusterMasters:
			if !q.IsClusterMaster {
				return false
			}
		case specification.Unclustered:
			if q.ClusterId != nil {
				return false
			}
		}
	}
	return true
}

type fakeQuestionRepo struct{ db *fakeDB }

func (r *fakeQuestionRepo) CreateBulk(ctx context.Context, questions []*entity.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, q := range questions {
		c := *q
		r.db.questions = append(r.db.questions, &c)
	}
	return nil
}

func (r *fakeQuestionRepo) Update(ctx context.Context, question *entity.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, q := range r.db.questions {
		if q.Id == question.Id {
			c := *question
			r.db.questions[i] = &c
			return nil
		}
	}
	return errors.New("question not found")
}

func (r *fakeQuestionRepo) UpdateEmbedding(ctx context.Context, id uuid.UUID, emb []float32) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, q := range r.db.questions {
		if q.Id == id {
			q.Embedding = append([]float32(nil), emb...)
		}
	}
	return nil
}

func (r *fakeQuestionRepo) ApplyAssignments(ctx context.Context, projectId uuid.UUID, questions []*entity.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, in := range questions {
		for _, q := range r.db.questions {
			if q.Id == in.Id && q.ProjectId == projectId {
				q.ClusterId = in.ClusterId
				q.IsClusterMaster = in.IsClusterMaster
				q.MasterQuestionId = in.MasterQuestionId
				q.SimilarityToMaster = in.SimilarityToMaster
			}
		}
	}
	return nil
}

func (r *fakeQuestionRepo) ClearAssignments(ctx context.Context, projectId uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, q := range r.db.questions {
		if q.ProjectId == projectId {
			q.ClusterId, q.MasterQuestionId = nil, nil
			q.IsClusterMaster, q.SimilarityToMaster = false, 0
		}
	}
	return nil
}

func (r *fakeQuestionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Question, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeQuestionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Question
	for _, q := range r.db.questions {
		if questionMatches(q, specs) {
			c := *q
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeQuestionRepo) SearchSimilarWithScore(ctx context.Context, projectId, excludeId uuid.UUID, emb []float32, limit int, threshold float64) ([]*contract.ScoredQuestion, error) {
	all, _ := r.FindAll(ctx, specification.ByProjectID{ProjectID: projectId}, specification.ActiveQuestions{})
	var out []*contract.ScoredQuestion
	for _, q := range all {
		if q.Id == excludeId || !q.HasEmbedding() {
			continue
		}
		if sim := clustering.CosineSimilarity(emb, q.Embedding); sim >= threshold {
			out = append(out, &contract.ScoredQuestion{Question: q, Similarity: sim})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneCluster(c *entity.QuestionCluster) *entity.QuestionCluster {
	cc := *c
	cc.Members = append([]entity.ClusterMember(nil), c.Members...)
	return &cc
}

type fakeClusterRepo struct{ db *fakeDB }

func (r *fakeClusterRepo) CreateBulk(ctx context.Context, clusters []*entity.QuestionCluster) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failClusterCreate {
		return errors.New("insert failed")
	}
	for _, c := range clusters {
		r.db.clusters = append(r.db.clusters, cloneCluster(c))
	}
	return nil
}

func (r *fakeClusterRepo) Update(ctx context.Context, cluster *entity.QuestionCluster) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, c := range r.db.clusters {
		if c.Id == cluster.Id {
			r.db.clusters[i] = cloneCluster(cluster)
			return nil
		}
	}
	return errors.New("cluster not found")
}

func (r *fakeClusterRepo) DeleteByProjectId(ctx context.Context, projectId uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	kept := r.db.clusters[:0]
	for _, c := range r.db.clusters {
		if c.ProjectId != projectId {
			kept = append(kept, c)
		}
	}
	r.db.clusters = kept
	return nil
}

func (r *fakeClusterRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.QuestionCluster, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeClusterRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.QuestionCluster, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.QuestionCluster
	for _, c := range r.db.clusters {
		ok := true
		for _, s := range specs {
			switch v := s.(type) {
			case specification.ByProjectID:
				ok = ok && c.ProjectId == v.ProjectID
			case specification.ByID:
				ok = ok && c.Id == v.ID
			}
		}
		if ok {
			out = append(out, cloneCluster(c))
		}
	}
	return out, nil
}

func (r *fakeClusterRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeClusterRepo) ReplaceSuggestions(ctx context.Context, projectId uuid.UUID, suggestions []entity.SimilarQuestion) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.suggestions[projectId] = append([]entity.SimilarQuestion(nil), suggestions...)
	return nil
}

func (r *fakeClusterRepo) FindSuggestions(ctx context.Context, projectId uuid.UUID) ([]entity.SimilarQuestion, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]entity.SimilarQuestion(nil), r.db.suggestions[projectId]...), nil
}

type fakeAnswerRepo struct{ db *fakeDB }

func (r *fakeAnswerRepo) Upsert(ctx context.Context, answer *entity.Answer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *answer
	if existing, ok := r.db.answers[answer.QuestionId]; ok {
		c.Id = existing.Id
	}
	if c.Id == uuid.Nil {
		c.Id = uuid.New()
	}
	r.db.answers[answer.QuestionId] = &c
	*answer = c
	return nil
}

func (r *fakeAnswerRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Answer, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeAnswerRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Answer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Answer
	for _, a := range r.db.answers {
		ok := true
		for _, s := range specs {
			switch v := s.(type) {
			case specification.ByProjectID:
				ok = ok && a.ProjectId == v.ProjectID
			case specification.ByQuestionID:
				ok = ok && a.QuestionId == v.QuestionID
			case specification.ByQuestionIDs:
				ok = ok && containsId(v.QuestionIDs, a.QuestionId)
			}
		}
		if ok {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeAnswerRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type fakeRunRepo struct{ db *fakeDB }

func (r *fakeRunRepo) Save(ctx context.Context, run *entity.PipelineRun) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *run
	c.FailedQuestions = append([]entity.FailedQuestion(nil), run.FailedQuestions...)
	r.db.runs[run.Id] = &c
	return nil
}

func (r *fakeRunRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PipelineRun, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range specs {
		if v, ok := s.(specification.ByID); ok {
			if run, ok := r.db.runs[v.ID]; ok {
				c := *run
				return &c, nil
			}
			return nil, nil
		}
	}
	return nil, nil
}

func (r *fakeRunRepo) FindLatestByProjectId(ctx context.Context, projectId uuid.UUID) (*entity.PipelineRun, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var latest *entity.PipelineRun
	for _, run := range r.db.runs {
		if run.ProjectId == projectId && (latest == nil || run.StartedAt.After(latest.StartedAt)) {
			latest = run
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

type fakeChunkRepo struct{ db *fakeDB }

func (r *fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range chunks {
		cc := *c
		r.db.chunks = append(r.db.chunks, &cc)
	}
	return nil
}

func (r *fakeChunkRepo) DeleteByDocumentId(ctx context.Context, orgId, documentId uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	kept := r.db.chunks[:0]
	for _, c := range r.db.chunks {
		if c.OrgId != orgId || c.DocumentId != documentId {
			kept = append(kept, c)
		}
	}
	r.db.chunks = kept
	return nil
}

func (r *fakeChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.chunks)), nil
}

func (r *fakeChunkRepo) SearchSimilarWithScore(ctx context.Context, orgId uuid.UUID, kbIds []uuid.UUID, emb []float32, limit int, threshold float64) ([]*contract.ScoredKnowledgeChunk, error) {
	return nil, nil
}

type fakeSettingsRepo struct{ db *fakeDB }

func (r *fakeSettingsRepo) FindByOrgId(ctx context.Context, orgId uuid.UUID) (*entity.TenantSettings, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.settings[orgId]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (r *fakeSettingsRepo) Upsert(ctx context.Context, settings *entity.TenantSettings) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *settings
	r.db.settings[settings.OrgId] = &c
	return nil
}

// vectorEmbedder returns fixed vectors by text and fails for texts containing "FAIL".
type vectorEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
}

func (e *vectorEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if strings.Contains(text, "FAIL") {
		return nil, fmt.Errorf("embedding service unavailable")
	}
	v, ok := e.vectors[text]
	if !ok {
		v = []float32{0, 0, 1}
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: v}}, nil
}

// recordingBroadcaster captures progress messages per project.
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages map[uuid.UUID][][]byte
}

func (b *recordingBroadcaster) Publish(ctx context.Context, projectId uuid.UUID, message []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.messages == nil {
		b.messages = map[uuid.UUID][][]byte{}
	}
	b.messages[projectId] = append(b.messages[projectId], message)
}

func (b *recordingBroadcaster) count(projectId uuid.UUID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages[projectId])
}

type testEnv struct {
	db       *fakeDB
	embedder *vectorEmbedder
	locks    *memory.RunLockRepository
	settings ISettingsService
	clusters IClusterService
	log      logger.ILogger
}

func newTestEnv() *testEnv {
	db := newFakeDB()
	embedder := &vectorEmbedder{vectors: map[string][]float32{}}
	locks := memory.NewRunLockRepository()
	log := logger.NewNopLogger()
	settings := NewSettingsService(db, clustering.DefaultThresholds())
	return &testEnv{
		db:       db,
		embedder: embedder,
		locks:    locks,
		settings: settings,
		clusters: NewClusterService(db, clustering.NewEngine(clustering.StrategyGreedy), embedder, settings, locks, log),
		log:      log,
	}
}

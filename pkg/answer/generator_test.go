package answer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/pkg/embedding"
	"rfp-answer-engine/pkg/llm"
	"rfp-answer-engine/pkg/vectorindex"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply    string
	err      error
	calls    int
	lastUser string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.calls++
	f.lastUser = history[len(history)-1].Content
	return f.reply, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0}}}, nil
}

type failingIndex struct{}

func (failingIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, filter *vectorindex.Filter) ([]vectorindex.Match, error) {
	return nil, errors.New("index unavailable")
}

func masterQuestion(orgId uuid.UUID) *entity.Question {
	return &entity.Question{
		Id:              uuid.New(),
		ProjectId:       uuid.New(),
		OrgId:           orgId,
		Text:            "What is your data retention period?",
		SectionTitle:    "Security",
		Embedding:       []float32{1, 0},
		IsClusterMaster: true,
	}
}

func seededIndex(t *testing.T, orgId uuid.UUID, kb uuid.UUID) *vectorindex.MemoryIndex {
	t.Helper()
	updated := time.Now().Add(-30 * 24 * time.Hour)
	idx := vectorindex.NewMemoryIndex()
	require.NoError(t, idx.Upsert(orgId.String(),
		vectorindex.Record{Id: "c1", Vector: []float32{1, 0}, Metadata: vectorindex.Metadata{
			KnowledgeBaseId: kb.String(), DocumentTitle: "Security Policy", Authority: entity.AuthorityOfficial,
			Content: "Customer data retention period is 90 days after contract termination.", SourceUpdatedAt: &updated,
		}},
		vectorindex.Record{Id: "c2", Vector: []float32{0.95, 0.31}, Metadata: vectorindex.Metadata{
			KnowledgeBaseId: kb.String(), DocumentTitle: "DPA", Authority: entity.AuthorityApproved,
			Content: "Data retention: backups are purged within 90 days.", SourceUpdatedAt: &updated,
		}},
	))
	return idx
}

func TestGenerateAnswerSkipsNonMasters(t *testing.T) {
	provider := &fakeLLM{reply: "unused"}
	gen := NewGenerator(&fakeEmbedder{}, vectorindex.NewMemoryIndex(), provider, DefaultConfig(), logger.NewNopLogger())

	q := masterQuestion(uuid.New())
	q.IsClusterMaster = false
	res, err := gen.GenerateAnswer(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Nil(t, res.Answer)
	assert.Equal(t, 0, provider.calls)
}

func TestGenerateAnswerProducesScoredAnswer(t *testing.T) {
	orgId, kb := uuid.New(), uuid.New()
	provider := &fakeLLM{reply: "Our data retention period is 90 days after contract termination.\nCONFIDENCE: 95"}
	gen := NewGenerator(&fakeEmbedder{}, seededIndex(t, orgId, kb), provider, DefaultConfig(), logger.NewNopLogger())

	q := masterQuestion(orgId)
	res, err := gen.GenerateAnswer(context.Background(), q, WithKnowledgeBases(kb))
	require.NoError(t, err)
	require.Equal(t, StatusGenerated, res.Status)

	a := res.Answer
	assert.Equal(t, q.Id, a.QuestionId)
	assert.Equal(t, q.ProjectId, a.ProjectId)
	assert.Equal(t, "Our data retention period is 90 days after contract termination.", a.Text)
	assert.Nil(t, a.ClonedFromQuestionId)
	require.Len(t, a.Sources, 2)
	assert.Equal(t, "c1", a.Sources[0].ChunkId)
	assert.GreaterOrEqual(t, a.Confidence, 0.0)
	assert.LessOrEqual(t, a.Confidence, 1.0)
	assert.Equal(t, Band(a.Confidence), a.ConfidenceBand)
	assert.Greater(t, a.ConfidenceBreakdown.ContextRelevance, 90.0)
	assert.Equal(t, 100.0, a.ConfidenceBreakdown.SourceRecency)
	assert.Equal(t, 1, provider.calls)
	assert.Contains(t, provider.lastUser, "Security Policy")
	assert.Contains(t, provider.lastUser, "Section: Security")
}

func TestGenerateAnswerWithoutPassagesIsNotFatal(t *testing.T) {
	provider := &fakeLLM{reply: "[INSUFFICIENT_CONTEXT]\nWe follow industry practice."}
	gen := NewGenerator(&fakeEmbedder{}, vectorindex.NewMemoryIndex(), provider, DefaultConfig(), logger.NewNopLogger())

	res, err := gen.GenerateAnswer(context.Background(), masterQuestion(uuid.New()))
	require.NoError(t, err)
	require.Equal(t, StatusGenerated, res.Status)
	assert.Equal(t, 0.0, res.Answer.ConfidenceBreakdown.ContextRelevance)
	assert.Empty(t, res.Answer.Sources)
	assert.Equal(t, entity.ConfidenceBandLow, res.Answer.ConfidenceBand)
	assert.Equal(t, "We follow industry practice.", res.Answer.Text)
}

func TestGenerateAnswerReportsGenerationFailureWithQuestionId(t *testing.T) {
	provider := &fakeLLM{err: fmt.Errorf("backend: %w", llm.ErrRateLimited)}
	gen := NewGenerator(&fakeEmbedder{}, vectorindex.NewMemoryIndex(), provider, DefaultConfig(), logger.NewNopLogger())

	q := masterQuestion(uuid.New())
	_, err := gen.GenerateAnswer(context.Background(), q)
	require.Error(t, err)

	var itemErr *ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, q.Id, itemErr.QuestionId)
	assert.Equal(t, StageGeneration, itemErr.Stage)
	assert.ErrorIs(t, err, llm.ErrRateLimited)
}

func TestGenerateAnswerRejectsMalformedOutput(t *testing.T) {
	provider := &fakeLLM{reply: "CONFIDENCE: 40"}
	gen := NewGenerator(&fakeEmbedder{}, vectorindex.NewMemoryIndex(), provider, DefaultConfig(), logger.NewNopLogger())

	_, err := gen.GenerateAnswer(context.Background(), masterQuestion(uuid.New()))
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestGenerateAnswerEmbedsWhenVectorMissing(t *testing.T) {
	embedder := &fakeEmbedder{}
	gen := NewGenerator(embedder, vectorindex.NewMemoryIndex(), &fakeLLM{reply: "ok answer"}, DefaultConfig(), logger.NewNopLogger())

	q := masterQuestion(uuid.New())
	q.Embedding = nil
	_, err := gen.GenerateAnswer(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)

	embedder.err = errors.New("embedding down")
	_, err = gen.GenerateAnswer(context.Background(), q)
	var itemErr *ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, StageEmbedding, itemErr.Stage)
}

func TestGenerateAnswerReportsRetrievalFailure(t *testing.T) {
	gen := NewGenerator(&fakeEmbedder{}, failingIndex{}, &fakeLLM{reply: "x"}, DefaultConfig(), logger.NewNopLogger())

	_, err := gen.GenerateAnswer(context.Background(), masterQuestion(uuid.New()))
	var itemErr *ItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, StageRetrieval, itemErr.Stage)
}

func TestPromptBuilderRespectsContextBudget(t *testing.T) {
	passages := []vectorindex.Match{
		{Id: "1", Metadata: vectorindex.Metadata{DocumentTitle: "A", Content: string(make([]byte, 300))}},
		{Id: "2", Metadata: vectorindex.Metadata{DocumentTitle: "B", Content: "second"}},
	}
	q := &entity.Question{Text: "Q?"}

	prompt, used := NewPromptBuilder(q, passages, 100).Build()
	assert.Len(t, used, 1)
	assert.NotContains(t, prompt, "[Source 2]")
	assert.Contains(t, prompt, "<question>\nQ?\n</question>")
}

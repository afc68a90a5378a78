package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/pkg/embedding"
	"rfp-answer-engine/pkg/llm"
	"rfp-answer-engine/pkg/vectorindex"

	"github.com/google/uuid"
)

const (
	StageEmbedding  = "embedding"
	StageRetrieval  = "retrieval"
	StageGeneration = "generation"
)

var (
	ErrMalformedOutput = errors.New("model output has no answer text")
	ErrNilQuestion     = errors.New("question is nil")
)

// ItemError is a per-question failure. It never aborts a batch.
type ItemError struct {
	QuestionId uuid.UUID
	Stage      string
	Err        error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("question %s: %s failed: %v", e.QuestionId, e.Stage, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

type Status string

const (
	StatusGenerated Status = "generated"
	StatusSkipped   Status = "skipped"
)

type Result struct {
	Status Status
	Answer *entity.Answer
}

type Config struct {
	TopK            int
	MaxContextChars int
	MaxTokens       int
	Temperature     float64
	MinRelevance    float64
	CallTimeout     time.Duration
	ExcerptChars    int
}

func DefaultConfig() Config {
	return Config{
		TopK:            8,
		MaxContextChars: 12000,
		MaxTokens:       800,
		Temperature:     0.2,
		MinRelevance:    0.3,
		CallTimeout:     2 * time.Minute,
		ExcerptChars:    280,
	}
}

type options struct {
	knowledgeBaseIds []uuid.UUID
}

type Option func(*options)

// WithKnowledgeBases restricts retrieval to a subset of the tenant's knowledge bases.
func WithKnowledgeBases(ids ...uuid.UUID) Option {
	return func(o *options) {
		o.knowledgeBaseIds = ids
	}
}

type Generator struct {
	embedder embedding.EmbeddingProvider
	index    vectorindex.Index
	llm      llm.LLMProvider
	scorer   *Scorer
	cfg      Config
	logger   logger.ILogger
}

func NewGenerator(embedder embedding.EmbeddingProvider, index vectorindex.Index, provider llm.LLMProvider, cfg Config, log logger.ILogger) *Generator {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = def.ExcerptChars
	}
	return &Generator{
		embedder: embedder,
		index:    index,
		llm:      provider,
		scorer:   NewScorer(),
		cfg:      cfg,
		logger:   log,
	}
}

// GenerateAnswer answers a cluster master. Non-masters return a skipped result without doing
// any work, which is what keeps generation at one call per cluster.
func (g *Generator) GenerateAnswer(ctx context.Context, q *entity.Question, opts ...Option) (*Result, error) {
	if q == nil {
		return nil, ErrNilQuestion
	}
	if !q.IsClusterMaster {
		return &Result{Status: StatusSkipped}, nil
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	passages, err := g.retrieve(ctx, q, o)
	if err != nil {
		return nil, err
	}

	builder := NewPromptBuilder(q, passages, g.cfg.MaxContextChars)
	userPrompt, used := builder.Build()

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()
	raw, err := llm.Complete(callCtx, g.llm, builder.System(), userPrompt, g.cfg.MaxTokens, g.cfg.Temperature)
	if err != nil {
		return nil, &ItemError{QuestionId: q.Id, Stage: StageGeneration, Err: err}
	}

	out := parseOutput(raw)
	if out.Text == "" {
		return nil, &ItemError{QuestionId: q.Id, Stage: StageGeneration, Err: ErrMalformedOutput}
	}

	breakdown := g.scorer.Score(q.Text, out, used)
	confidence := Overall(breakdown)

	if len(used) == 0 {
		g.logger.Warn("AnswerGenerator", "No supporting passages retrieved", map[string]interface{}{
			"question_id": q.Id,
		})
	}

	return &Result{
		Status: StatusGenerated,
		Answer: &entity.Answer{
			Id:                  uuid.New(),
			QuestionId:          q.Id,
			ProjectId:           q.ProjectId,
			Text:                out.Text,
			Sources:             g.toSources(used),
			Confidence:          confidence,
			ConfidenceBand:      Band(confidence),
			ConfidenceBreakdown: breakdown,
			CreatedAt:           time.Now(),
		},
	}, nil
}

func (g *Generator) retrieve(ctx context.Context, q *entity.Question, o *options) ([]vectorindex.Match, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	vector := q.Embedding
	if len(vector) == 0 {
		res, err := g.embedder.Generate(callCtx, q.Text, embedding.TaskRetrievalQuery)
		if err != nil {
			return nil, &ItemError{QuestionId: q.Id, Stage: StageEmbedding, Err: err}
		}
		vector = res.Embedding.Values
	}

	matches, err := g.index.Query(callCtx, q.OrgId.String(), vector, g.cfg.TopK, &vectorindex.Filter{
		KnowledgeBaseIds: o.knowledgeBaseIds,
		MinScore:         g.cfg.MinRelevance,
	})
	if err != nil {
		return nil, &ItemError{QuestionId: q.Id, Stage: StageRetrieval, Err: err}
	}
	return matches, nil
}

func (g *Generator) toSources(passages []vectorindex.Match) []entity.AnswerSource {
	sources := make([]entity.AnswerSource, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, entity.AnswerSource{
			ChunkId:         p.Id,
			DocumentId:      p.Metadata.DocumentId,
			DocumentTitle:   p.Metadata.DocumentTitle,
			Excerpt:         truncateRunes(p.Metadata.Content, g.cfg.ExcerptChars),
			Score:           p.Score,
			Authority:       p.Metadata.Authority,
			SourceUpdatedAt: p.Metadata.SourceUpdatedAt,
		})
	}
	return sources
}

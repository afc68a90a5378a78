package vectorindex

import (
	"context"
	"testing"

	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexQueryRanksAndScopes(t *testing.T) {
	kbA, kbB := uuid.New(), uuid.New()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Upsert("org-1",
		Record{Id: "a", Vector: []float32{1, 0}, Metadata: Metadata{KnowledgeBaseId: kbA.String(), Content: "exact"}},
		Record{Id: "b", Vector: []float32{0.7, 0.7}, Metadata: Metadata{KnowledgeBaseId: kbB.String(), Content: "partial"}},
		Record{Id: "c", Vector: []float32{0, 1}, Metadata: Metadata{KnowledgeBaseId: kbA.String(), Content: "orthogonal"}},
	))
	require.NoError(t, idx.Upsert("org-2", Record{Id: "x", Vector: []float32{1, 0}}))

	matches, err := idx.Query(context.Background(), "org-1", []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Id)
	assert.Equal(t, "b", matches[1].Id)

	matches, err = idx.Query(context.Background(), "org-1", []float32{1, 0}, 10, &Filter{KnowledgeBaseIds: []uuid.UUID{kbA}, MinScore: 0.1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "exact", matches[0].Metadata.Content)
}

func TestMemoryIndexUpsertReplacesAndValidates(t *testing.T) {
	idx := NewMemoryIndex()
	require.NoError(t, idx.Upsert("ns", Record{Id: "a", Vector: []float32{1, 0}, Metadata: Metadata{Content: "old"}}))
	require.NoError(t, idx.Upsert("ns", Record{Id: "a", Vector: []float32{1, 0}, Metadata: Metadata{Content: "new"}}))
	assert.Error(t, idx.Upsert("ns", Record{Id: "b", Vector: []float32{1, 0, 0}}))

	matches, err := idx.Query(context.Background(), "ns", []float32{1, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Metadata.Content)
}

func TestMemoryIndexEmptyNamespace(t *testing.T) {
	matches, err := NewMemoryIndex().Query(context.Background(), "none", []float32{1}, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

type fakeSearcher struct {
	orgId uuid.UUID
	kbIds []uuid.UUID
	min   float64
	out   []*contract.ScoredKnowledgeChunk
}

func (f *fakeSearcher) SearchSimilarWithScore(ctx context.Context, orgId uuid.UUID, kbIds []uuid.UUID, embedding []float32, limit int, threshold float64) ([]*contract.ScoredKnowledgeChunk, error) {
	f.orgId, f.kbIds, f.min = orgId, kbIds, threshold
	return f.out, nil
}

func TestPgIndexMapsChunks(t *testing.T) {
	orgId, kb := uuid.New(), uuid.New()
	chunk := &entity.KnowledgeChunk{Id: uuid.New(), KnowledgeBaseId: kb, DocumentId: uuid.New(), DocumentTitle: "SOC2", Content: "text", Authority: entity.AuthorityOfficial}
	searcher := &fakeSearcher{out: []*contract.ScoredKnowledgeChunk{{Chunk: chunk, Similarity: 0.8}}}

	matches, err := NewPgIndex(searcher).Query(context.Background(), orgId.String(), []float32{1}, 3, &Filter{KnowledgeBaseIds: []uuid.UUID{kb}, MinScore: 0.4})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, chunk.Id.String(), matches[0].Id)
	assert.Equal(t, 0.8, matches[0].Score)
	assert.Equal(t, "SOC2", matches[0].Metadata.DocumentTitle)
	assert.Equal(t, kb.String(), matches[0].Metadata.KnowledgeBaseId)
	assert.Equal(t, orgId, searcher.orgId)
	assert.Equal(t, 0.4, searcher.min)

	_, err = NewPgIndex(searcher).Query(context.Background(), "not-a-uuid", []float32{1}, 3, nil)
	assert.Error(t, err)
}

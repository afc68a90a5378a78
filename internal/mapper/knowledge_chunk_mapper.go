package mapper

import (
	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/model"

	"github.com/pgvector/pgvector-go"
)

type KnowledgeChunkMapper struct{}

func NewKnowledgeChunkMapper() *KnowledgeChunkMapper {
	return &KnowledgeChunkMapper{}
}

func (m *KnowledgeChunkMapper) ToEntity(c *model.KnowledgeChunk) *entity.KnowledgeChunk {
	if c == nil {
		return nil
	}
	return &entity.KnowledgeChunk{
		Id:              c.Id,
		OrgId:           c.OrgId,
		KnowledgeBaseId: c.KnowledgeBaseId,
		DocumentId:      c.DocumentId,
		DocumentTitle:   c.DocumentTitle,
		Content:         c.Content,
		Embedding:       c.EmbeddingValue.Slice(),
		Authority:       c.Authority,
		ChunkIndex:      c.ChunkIndex,
		SourceUpdatedAt: c.SourceUpdatedAt,
		CreatedAt:       c.CreatedAt,
	}
}

func (m *KnowledgeChunkMapper) ToModel(c *entity.KnowledgeChunk) *model.KnowledgeChunk {
	if c == nil {
		return nil
	}
	return &model.KnowledgeChunk{
		Id:              c.Id,
		OrgId:           c.OrgId,
		KnowledgeBaseId: c.KnowledgeBaseId,
		DocumentId:      c.DocumentId,
		DocumentTitle:   c.DocumentTitle,
		Content:         c.Content,
		EmbeddingValue:  pgvector.NewVector(c.Embedding),
		Authority:       c.Authority,
		ChunkIndex:      c.ChunkIndex,
		SourceUpdatedAt: c.SourceUpdatedAt,
		CreatedAt:       c.CreatedAt,
	}
}

func (m *KnowledgeChunkMapper) ToModels(chunks []*entity.KnowledgeChunk) []*model.KnowledgeChunk {
	models := make([]*model.KnowledgeChunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}

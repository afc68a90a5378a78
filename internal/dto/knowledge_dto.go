package dto

import (
	"time"

	"github.com/google/uuid"
)

type IngestDocumentRequest struct {
	OrgId           uuid.UUID
	KnowledgeBaseId uuid.UUID  `json:"knowledge_base_id" validate:"required"`
	DocumentId      *uuid.UUID `json:"document_id"`
	Title           string     `json:"title" validate:"required,max=500"`
	Content         string     `json:"content" validate:"required"`
	Authority       string     `json:"authority" validate:"omitempty,oneof=official approved reference unverified"`
	SourceUpdatedAt *time.Time `json:"source_updated_at"`
}

type IngestDocumentResponse struct {
	DocumentId    uuid.UUID `json:"document_id"`
	ChunksCreated int       `json:"chunks_created"`
	ChunksFailed  int       `json:"chunks_failed"`
}

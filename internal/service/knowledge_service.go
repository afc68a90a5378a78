package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"rfp-answer-engine/internal/dto"
	"rfp-answer-engine/internal/entity"
	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/internal/repository/unitofwork"
	"rfp-answer-engine/pkg/embedding"
	"rfp-answer-engine/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	chunkSize    = 1500
	chunkOverlap = 200
)

type IKnowledgeService interface {
	IngestDocument(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error)
}

type knowledgeService struct {
	uowFactory unitofwork.RepositoryFactory
	embedder   embedding.EmbeddingProvider
	logger     logger.ILogger
}

func NewKnowledgeService(uowFactory unitofwork.RepositoryFactory, embedder embedding.EmbeddingProvider, log logger.ILogger) IKnowledgeService {
	return &knowledgeService{uowFactory: uowFactory, embedder: embedder, logger: log}
}

// IngestDocument replaces every chunk of the document with a freshly split and embedded set.
// Chunks whose embedding fails are dropped and counted; the document is rejected only when
// none could be embedded.
func (s *knowledgeService) IngestDocument(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	parts := utils.SplitText(req.Content, chunkSize, chunkOverlap)
	if len(parts) == 0 {
		return nil, ErrEmptyDocument
	}

	documentId := uuid.New()
	if req.DocumentId != nil && *req.DocumentId != uuid.Nil {
		documentId = *req.DocumentId
	}
	authority := req.Authority
	if authority == "" {
		authority = entity.AuthorityUnverified
	}

	vectors := make([][]float32, len(parts))
	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, part := range parts {
		i, part := i, part
		g.Go(func() error {
			// the title gives short chunks the context they lose when split out
			res, err := s.embedder.Generate(gctx, req.Title+"\n\n"+part, embedding.TaskRetrievalDocument)
			if err != nil || len(res.Embedding.Values) == 0 {
				mu.Lock()
				failed++
				mu.Unlock()
				if err != nil {
					s.logger.Warn("Knowledge", "Chunk embedding failed", map[string]interface{}{
						"document_id": documentId,
						"chunk":       i,
						"error":       err.Error(),
					})
				}
				return nil
			}
			vectors[i] = res.Embedding.Values
			return nil
		})
	}
	_ = g.Wait()

	if failed == len(parts) {
		return nil, fmt.Errorf("%w: document %s", ErrEmbeddingUnavailable, documentId)
	}

	now := time.Now()
	chunks := make([]*entity.KnowledgeChunk, 0, len(parts)-failed)
	for i, part := range parts {
		if vectors[i] == nil {
			continue
		}
		chunks = append(chunks, &entity.KnowledgeChunk{
			Id:              uuid.New(),
			OrgId:           req.OrgId,
			KnowledgeBaseId: req.KnowledgeBaseId,
			DocumentId:      documentId,
			DocumentTitle:   strings.TrimSpace(req.Title),
			Content:         part,
			Embedding:       vectors[i],
			Authority:       authority,
			ChunkIndex:      i,
			SourceUpdatedAt: req.SourceUpdatedAt,
			CreatedAt:       now,
		})
	}

	if err := s.replaceChunks(ctx, req.OrgId, documentId, chunks); err != nil {
		return nil, err
	}

	s.logger.Info("Knowledge", "Document ingested", map[string]interface{}{
		"document_id": documentId,
		"chunks":      len(chunks),
		"failed":      failed,
	})
	return &dto.IngestDocumentResponse{
		DocumentId:    documentId,
		ChunksCreated: len(chunks),
		ChunksFailed:  failed,
	}, nil
}

func (s *knowledgeService) replaceChunks(ctx context.Context, orgId, documentId uuid.UUID, chunks []*entity.KnowledgeChunk) (err error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = uow.Rollback()
		}
	}()

	if err = uow.KnowledgeChunkRepository().DeleteByDocumentId(ctx, orgId, documentId); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err = uow.KnowledgeChunkRepository().CreateBulk(ctx, chunks); err != nil {
		return fmt.Errorf("create chunks: %w", err)
	}
	return uow.Commit()
}

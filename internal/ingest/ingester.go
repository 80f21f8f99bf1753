package ingest

import (
	"context"
	"crypto/md5"
	"fmt"
	"time"

	"compliance-rag/internal/models"
	"compliance-rag/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DocumentStore interface {
	Upsert(ctx context.Context, doc *models.Document) (uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, chunkCount int) error
}

type ChunkWriter interface {
	DeleteByDocument(ctx context.Context, docID string) error
	CreateBatch(ctx context.Context, docID string, chunks []*models.DocumentChunk) error
}

// Ingester turns a source document into embedded, retrievable chunks. A
// document only becomes ready once all of its chunks are stored.
type Ingester struct {
	docs     DocumentStore
	chunks   ChunkWriter
	embedder service.Embedder
	chunker  *Chunker
	logger   *zap.Logger
}

func NewIngester(docs DocumentStore, chunks ChunkWriter, embedder service.Embedder, chunker *Chunker, logger *zap.Logger) *Ingester {
	if chunker == nil {
		chunker = NewChunker(0, 0)
	}
	return &Ingester{
		docs:     docs,
		chunks:   chunks,
		embedder: embedder,
		chunker:  chunker,
		logger:   logger,
	}
}

// ContentHash is the MD5 of the document text.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", md5.Sum(content))
}

// Ingest stores the document, replacing any previous chunks for the same
// source path, and returns the number of chunks written.
func (i *Ingester) Ingest(ctx context.Context, sourcePath, title string, content []byte) (int, error) {
	now := time.Now()
	docID, err := i.docs.Upsert(ctx, &models.Document{
		ID:          uuid.New(),
		Title:       title,
		SourcePath:  sourcePath,
		ContentHash: ContentHash(content),
		Status:      models.DocumentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert document: %w", err)
	}

	count, err := i.writeChunks(ctx, docID.String(), string(content))
	if err != nil {
		if statusErr := i.docs.UpdateStatus(ctx, docID, models.DocumentStatusFailed, 0); statusErr != nil {
			i.logger.Warn("Failed to mark document as failed", zap.Error(statusErr))
		}
		return 0, err
	}

	if err := i.docs.UpdateStatus(ctx, docID, models.DocumentStatusReady, count); err != nil {
		return 0, fmt.Errorf("failed to mark document ready: %w", err)
	}

	i.logger.Info("Document ingested",
		zap.String("source", sourcePath),
		zap.String("doc_id", docID.String()),
		zap.Int("chunks", count),
	)
	return count, nil
}

func (i *Ingester) writeChunks(ctx context.Context, docID, content string) (int, error) {
	sections := i.chunker.Split(content)
	if len(sections) == 0 {
		return 0, fmt.Errorf("document has no text")
	}

	chunks := make([]*models.DocumentChunk, 0, len(sections))
	for _, section := range sections {
		embedding, err := i.embedder.Embed(ctx, section.Content, service.TaskDocument)
		if err != nil {
			return 0, err
		}

		chunk := &models.DocumentChunk{
			DocID:     docID,
			Content:   section.Content,
			Embedding: embedding,
		}
		if section.Path != "" {
			path := section.Path
			chunk.SectionPath = &path
		}
		chunks = append(chunks, chunk)
	}

	if err := i.chunks.DeleteByDocument(ctx, docID); err != nil {
		return 0, fmt.Errorf("failed to delete old chunks: %w", err)
	}
	if err := i.chunks.CreateBatch(ctx, docID, chunks); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}
	return len(chunks), nil
}

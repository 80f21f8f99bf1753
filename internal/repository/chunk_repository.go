package repository

import (
	"context"
	"fmt"

	"compliance-rag/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

type ChunkRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewChunkRepository(db *pgxpool.Pool, logger *zap.Logger) *ChunkRepository {
	return &ChunkRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts the chunks of one document in a single statement.
func (r *ChunkRepository) CreateBatch(ctx context.Context, docID string, chunks []*models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	builder := squirrel.Insert("document_chunks").
		Columns("document_id", "chunk_index", "section_path", "content", "embedding").
		PlaceholderFormat(squirrel.Dollar)

	for i, chunk := range chunks {
		builder = builder.Values(docID, i, chunk.SectionPath, chunk.Content, pgvector.NewVector(chunk.Embedding))
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// DeleteByDocument removes all chunks of a document before re-ingestion.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, docID string) error {
	sql, args, err := squirrel.Delete("document_chunks").
		Where(squirrel.Eq{"document_id": docID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// MatchChunks returns up to matchCount chunks of ready documents whose cosine
// similarity to the query is at least matchThreshold, most similar first.
func (r *ChunkRepository) MatchChunks(ctx context.Context, embedding []float32, matchThreshold float64, matchCount int) ([]*models.DocumentChunk, error) {
	sql, args, err := matchChunksQuery(embedding, matchThreshold, matchCount).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	return scanChunks(rows, true)
}

func matchChunksQuery(embedding []float32, matchThreshold float64, matchCount int) squirrel.SelectBuilder {
	vec := pgvector.NewVector(embedding)

	return squirrel.Select("c.id", "c.document_id::text", "d.title", "c.section_path", "c.content").
		Column(squirrel.Expr("1 - (c.embedding <=> ?) AS similarity", vec)).
		From("document_chunks c").
		Join("documents d ON d.id = c.document_id").
		Where(squirrel.Eq{"d.status": models.DocumentStatusReady}).
		Where(squirrel.Expr("1 - (c.embedding <=> ?) >= ?", vec, matchThreshold)).
		OrderByClause("c.embedding <=> ?", vec).
		Limit(uint64(matchCount)).
		PlaceholderFormat(squirrel.Dollar)
}

// RecentReadyChunks is the unranked scan used when similarity search fails.
func (r *ChunkRepository) RecentReadyChunks(ctx context.Context, limit int) ([]*models.DocumentChunk, error) {
	query := squirrel.Select("c.id", "c.document_id::text", "d.title", "c.section_path", "c.content").
		From("document_chunks c").
		Join("documents d ON d.id = c.document_id").
		Where(squirrel.Eq{"d.status": models.DocumentStatusReady}).
		OrderBy("c.created_at DESC", "c.id ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("recent chunk scan: %w", err)
	}

	return scanChunks(rows, false)
}

func scanChunks(rows pgx.Rows, withSimilarity bool) ([]*models.DocumentChunk, error) {
	defer rows.Close()

	var chunks []*models.DocumentChunk
	for rows.Next() {
		var chunk models.DocumentChunk
		dest := []any{&chunk.ChunkID, &chunk.DocID, &chunk.DocTitle, &chunk.SectionPath, &chunk.Content}
		if withSimilarity {
			dest = append(dest, &chunk.Similarity)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		chunks = append(chunks, &chunk)
	}

	return chunks, rows.Err()
}

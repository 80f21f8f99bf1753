package repository

import (
	"context"
	"errors"

	"compliance-rag/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("not found")

type DocumentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDocumentRepository(db *pgxpool.Pool, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the document or, when the source path is already known,
// resets it to pending with the new hash.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *models.Document) (uuid.UUID, error) {
	query := squirrel.Insert("documents").
		Columns("id", "title", "source_path", "content_hash", "status", "chunk_count", "created_at", "updated_at").
		Values(doc.ID, doc.Title, doc.SourcePath, doc.ContentHash, doc.Status, doc.ChunkCount, doc.CreatedAt, doc.UpdatedAt).
		Suffix(`ON CONFLICT (source_path) DO UPDATE SET
			title = EXCLUDED.title,
			content_hash = EXCLUDED.content_hash,
			status = EXCLUDED.status,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = EXCLUDED.updated_at
		RETURNING id`).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *DocumentRepository) GetBySourcePath(ctx context.Context, sourcePath string) (*models.Document, error) {
	query := squirrel.Select("id", "title", "source_path", "content_hash", "status", "chunk_count", "created_at", "updated_at").
		From("documents").
		Where(squirrel.Eq{"source_path": sourcePath}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var doc models.Document
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&doc.ID, &doc.Title, &doc.SourcePath, &doc.ContentHash, &doc.Status, &doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DocumentStatus, chunkCount int) error {
	query := squirrel.Update("documents").
		Set("status", status).
		Set("chunk_count", chunkCount).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

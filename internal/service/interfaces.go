package service

import (
	"context"

	"compliance-rag/internal/models"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskDocument TaskType = "document"
	TaskQuery    TaskType = "query"
)

// Embedder turns text into a unit-length vector of fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string, task TaskType) ([]float32, error)
}

// ChatModel is a single-turn text generation backend.
type ChatModel interface {
	Chat(ctx context.Context, systemInstruction, userPrompt string) (string, error)
	Name() string
}

type ChunkStore interface {
	MatchChunks(ctx context.Context, embedding []float32, matchThreshold float64, matchCount int) ([]*models.DocumentChunk, error)
	RecentReadyChunks(ctx context.Context, limit int) ([]*models.DocumentChunk, error)
}

type ReportStore interface {
	Upsert(ctx context.Context, report *models.ComplianceReport) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ComplianceReport, error)
}

// RosterSource loads the worker roster from the HR system using the
// caller-supplied API token.
type RosterSource interface {
	FetchRoster(ctx context.Context, token string) (*models.Roster, error)
}

// EmbeddingCache is an optional read-through cache in front of the embedder.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, key string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, key string, embedding []float32) error
}

package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusPending DocumentStatus = "pending"
	DocumentStatusReady   DocumentStatus = "ready"
	DocumentStatusFailed  DocumentStatus = "failed"
)

// Document is an ingested compliance source (statute excerpt, policy, handbook).
// Only documents in the ready state take part in retrieval.
type Document struct {
	ID          uuid.UUID      `db:"id"`
	Title       string         `db:"title"`
	SourcePath  string         `db:"source_path"`
	ContentHash string         `db:"content_hash"`
	Status      DocumentStatus `db:"status"`
	ChunkCount  int            `db:"chunk_count"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// DocumentChunk is a retrievable span of a document. Similarity is only
// populated on retrieval and never stored.
type DocumentChunk struct {
	ChunkID     int64     `db:"id" json:"chunk_id"`
	DocID       string    `db:"document_id" json:"doc_id"`
	DocTitle    *string   `db:"doc_title" json:"doc_title"`
	SectionPath *string   `db:"section_path" json:"section_path"`
	Content     string    `db:"content" json:"content"`
	Embedding   []float32 `db:"embedding" json:"-"`
	Similarity  float64   `db:"-" json:"similarity"`
}

// Title returns the document title, falling back to the document id.
func (c *DocumentChunk) Title() string {
	if c.DocTitle != nil && *c.DocTitle != "" {
		return *c.DocTitle
	}
	return c.DocID
}

// Section returns the section path or "General" when unknown.
func (c *DocumentChunk) Section() string {
	if c.SectionPath != nil && *c.SectionPath != "" {
		return *c.SectionPath
	}
	return "General"
}

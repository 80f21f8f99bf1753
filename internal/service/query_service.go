package service

import (
	"context"
	"strings"

	"compliance-rag/internal/metrics"
	"compliance-rag/internal/models"
	"compliance-rag/pkg/config"

	"go.uber.org/zap"
)

type QueryResult struct {
	Answer      string          `json:"answer"`
	Sources     []models.Source `json:"sources"`
	UsedRAG     bool            `json:"usedRAG"`
	Regenerated bool            `json:"regenerated"`
}

// QueryService answers free-text questions over the document corpus.
type QueryService struct {
	embedder   Embedder
	rag        *RAGService
	completion *CompletionService
	cfg        config.RAGConfig
	logger     *zap.Logger
}

func NewQueryService(embedder Embedder, rag *RAGService, completion *CompletionService, cfg config.RAGConfig, logger *zap.Logger) *QueryService {
	return &QueryService{
		embedder:   embedder,
		rag:        rag,
		completion: completion,
		cfg:        cfg,
		logger:     logger,
	}
}

// Answer retrieves context for the question, generates a cited answer and,
// if the answer leans on the sources too heavily, regenerates it once with a
// paraphrase instruction.
func (s *QueryService) Answer(ctx context.Context, question string) (*QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	result, err := s.answer(ctx, question)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.QueriesTotal.WithLabelValues("success").Inc()
	return result, nil
}

func (s *QueryService) answer(ctx context.Context, question string) (*QueryResult, error) {
	embedding, err := s.embedder.Embed(ctx, question, TaskQuery)
	if err != nil {
		return nil, err
	}

	retrieved := s.rag.Retrieve(ctx, embedding, s.cfg.TopK, s.cfg.SimilarityThreshold)
	selected := SelectContext(retrieved, question, SelectOptionsFromConfig(&s.cfg))

	system := chatSystemInstruction()
	text, err := s.completion.Complete(ctx, question, selected, system)
	if err != nil {
		return nil, err
	}

	audit := AuditCitations(text, selected, PolicyChat, s.cfg.MaxSources)
	regenerated := false
	if audit.OverCitation {
		metrics.OverCitationRegenerations.Inc()
		s.logger.Info("Over-citation detected, regenerating once")

		rewritten, err := s.completion.Complete(ctx, question, selected, system+paraphraseInstruction)
		if err != nil {
			return nil, err
		}
		text = rewritten
		audit = AuditCitations(text, selected, PolicyChat, s.cfg.MaxSources)
		regenerated = true
	}

	return &QueryResult{
		Answer:      sanitizeUTF8(strings.TrimSpace(text)),
		Sources:     audit.Sources,
		UsedRAG:     len(selected) > 0,
		Regenerated: regenerated,
	}, nil
}

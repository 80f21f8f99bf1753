package service

import (
	"context"
	"math"
	"time"
	"unicode/utf8"

	"compliance-rag/internal/metrics"
	"compliance-rag/internal/models"
	"compliance-rag/pkg/config"

	"go.uber.org/zap"
)

const (
	// similarity assigned to chunks returned by the recency fallback scan
	fallbackSimilarity = 0.5

	minInputBudget       = 512
	promptSafetyTokens   = 256
	perChunkBufferTokens = 8
	maxContextChunks     = 12
)

// SelectOptions bounds the context injected into one generation call.
type SelectOptions struct {
	MaxPerDoc             int
	MaxChunks             int
	ContextWindowTokens   int
	ReasoningReserveRatio float64
}

func (o SelectOptions) withDefaults() SelectOptions {
	if o.MaxPerDoc <= 0 {
		o.MaxPerDoc = 2
	}
	if o.MaxChunks <= 0 || o.MaxChunks > maxContextChunks {
		o.MaxChunks = maxContextChunks
	}
	if o.ContextWindowTokens <= 0 {
		o.ContextWindowTokens = 8192
	}
	if o.ReasoningReserveRatio < 0 || o.ReasoningReserveRatio >= 1 {
		o.ReasoningReserveRatio = 0.3
	}
	return o
}

func SelectOptionsFromConfig(cfg *config.RAGConfig) SelectOptions {
	return SelectOptions{
		MaxPerDoc:             cfg.MaxPerDoc,
		MaxChunks:             cfg.MaxChunks,
		ContextWindowTokens:   cfg.ContextWindowTokens,
		ReasoningReserveRatio: cfg.ReasoningReserveRatio,
	}.withDefaults()
}

type RAGService struct {
	chunks ChunkStore
	logger *zap.Logger
}

func NewRAGService(chunks ChunkStore, logger *zap.Logger) *RAGService {
	return &RAGService{
		chunks: chunks,
		logger: logger,
	}
}

// Retrieve returns up to k chunks of ready documents with similarity at or
// above threshold, most similar first. If the similarity search fails it
// degrades to the most recent ready chunks at a nominal similarity instead of
// failing the caller.
func (s *RAGService) Retrieve(ctx context.Context, queryEmbedding []float32, k int, threshold float64) []*models.DocumentChunk {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	}()

	results, err := s.chunks.MatchChunks(ctx, queryEmbedding, threshold, k)
	if err == nil {
		s.logger.Info("Similarity search completed",
			zap.Int("results", len(results)),
			zap.Float64("threshold", threshold),
		)
		return results
	}

	metrics.RetrievalFallbacks.Inc()
	s.logger.Warn("Similarity search failed, using recency scan", zap.Error(err))

	results, err = s.chunks.RecentReadyChunks(ctx, k)
	if err != nil {
		s.logger.Error("Recency scan failed, continuing without context", zap.Error(err))
		return nil
	}
	for _, chunk := range results {
		chunk.Similarity = fallbackSimilarity
	}
	return results
}

// SelectContext diversifies the similarity-ordered chunks (at most MaxPerDoc
// per document, MaxChunks overall) and then keeps the longest prefix that fits
// the input-token budget. Relative order is preserved.
func SelectContext(chunks []*models.DocumentChunk, promptText string, opts SelectOptions) []*models.DocumentChunk {
	opts = opts.withDefaults()

	diversified := Diversify(chunks, opts.MaxPerDoc, opts.MaxChunks)

	budget := ContextBudget(promptText, opts)
	used := 0.0
	selected := make([]*models.DocumentChunk, 0, len(diversified))
	for i, chunk := range diversified {
		cost := ChunkCost(i+1, chunk)
		if used+cost > budget {
			break
		}
		used += cost
		selected = append(selected, chunk)
	}

	metrics.RetrievedChunks.Observe(float64(len(selected)))
	return selected
}

// Diversify walks chunks in order, keeping at most maxPerDoc per document and
// stopping once maxChunks have been kept.
func Diversify(chunks []*models.DocumentChunk, maxPerDoc, maxChunks int) []*models.DocumentChunk {
	perDoc := make(map[string]int)
	out := make([]*models.DocumentChunk, 0, maxChunks)
	for _, chunk := range chunks {
		if len(out) >= maxChunks {
			break
		}
		if perDoc[chunk.DocID] >= maxPerDoc {
			continue
		}
		perDoc[chunk.DocID]++
		out = append(out, chunk)
	}
	return out
}

// EstimateTokens is a rough 4-characters-per-token estimate with 20% headroom.
func EstimateTokens(text string) float64 {
	return math.Ceil(float64(utf8.RuneCountInString(text))/4) * 1.2
}

// ContextBudget is the number of input tokens the context block may use.
func ContextBudget(promptText string, opts SelectOptions) float64 {
	opts = opts.withDefaults()
	available := math.Floor(float64(opts.ContextWindowTokens)*(1-opts.ReasoningReserveRatio)) -
		EstimateTokens(promptText) - promptSafetyTokens
	return math.Max(minInputBudget, available)
}

// ChunkCost is the budget charged for including a chunk at the given citation index.
func ChunkCost(index int, chunk *models.DocumentChunk) float64 {
	return EstimateTokens(FormatContextChunk(index, chunk)) + perChunkBufferTokens
}

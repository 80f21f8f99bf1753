package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"compliance-rag/internal/metrics"
	"compliance-rag/pkg/config"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// EmbeddingService calls an OpenAI-compatible embeddings endpoint and returns
// L2-normalised vectors.
type EmbeddingService struct {
	client         *openai.Client
	model          string
	dimensions     int
	queryPrefix    string
	documentPrefix string
	cache          EmbeddingCache
	logger         *zap.Logger
}

// NewEmbeddingService fails with ErrConfiguration when no API key is set.
// cache may be nil.
func NewEmbeddingService(cfg *config.LLMConfig, cache EmbeddingCache, logger *zap.Logger) (*EmbeddingService, error) {
	if cfg.EmbeddingAPIKey == "" {
		return nil, fmt.Errorf("%w: embedding API key is not set", ErrConfiguration)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be positive", ErrConfiguration)
	}

	clientCfg := openai.DefaultConfig(cfg.EmbeddingAPIKey)
	if cfg.EmbeddingURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.EmbeddingURL, "/")
	}

	return &EmbeddingService{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.EmbeddingModel,
		dimensions:     cfg.Dimensions,
		queryPrefix:    cfg.QueryPrefix,
		documentPrefix: cfg.DocumentPrefix,
		cache:          cache,
		logger:         logger,
	}, nil
}

func (s *EmbeddingService) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty input", ErrEmbedding)
	}

	input := text
	switch task {
	case TaskQuery:
		input = s.queryPrefix + text
	case TaskDocument:
		input = s.documentPrefix + text
	}

	key := s.cacheKey(task, input)
	if s.cache != nil {
		if cached, ok, err := s.cache.GetEmbedding(ctx, key); err != nil {
			s.logger.Warn("Embedding cache read failed", zap.Error(err))
		} else if ok && len(cached) == s.dimensions {
			metrics.CacheHits.WithLabelValues("embedding").Inc()
			return cached, nil
		}
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{input},
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no vector returned", ErrEmbedding)
	}

	raw := resp.Data[0].Embedding
	if len(raw) != s.dimensions {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", ErrEmbedding, s.dimensions, len(raw))
	}

	vec, err := NormalizeVector(raw)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetEmbedding(ctx, key, vec); err != nil {
			s.logger.Warn("Embedding cache write failed", zap.Error(err))
		}
	}

	s.logger.Debug("Embedding generated",
		zap.String("task", string(task)),
		zap.Int("input_length", len(input)),
	)

	return vec, nil
}

func (s *EmbeddingService) cacheKey(task TaskType, input string) string {
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%s:%s:%d:%s", task, s.model, s.dimensions, hex.EncodeToString(sum[:]))
}

// NormalizeVector scales v to unit L2 norm. A zero vector is rejected.
func NormalizeVector(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("%w: vector has no usable norm", ErrEmbedding)
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

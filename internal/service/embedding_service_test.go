package service

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"compliance-rag/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type embeddingServer struct {
	mu      sync.Mutex
	vector  []float32
	inputs  []string
	dims    []int
	status  int
	reqPath string
}

func (s *embeddingServer) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqPath = r.URL.Path

	var req struct {
		Input      []string `json:"input"`
		Dimensions int      `json:"dimensions"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.inputs = append(s.inputs, req.Input...)
	s.dims = append(s.dims, req.Dimensions)

	if s.status != 0 {
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"rate_limit"}}`))
		return
	}

	data := []map[string]any{}
	if s.vector != nil {
		data = append(data, map[string]any{"object": "embedding", "index": 0, "embedding": s.vector})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"model":  "test-embedding",
		"data":   data,
		"usage":  map[string]int{"prompt_tokens": 3, "total_tokens": 3},
	})
}

type memoryCache struct {
	items map[string][]float32
}

func (c *memoryCache) GetEmbedding(ctx context.Context, key string) ([]float32, bool, error) {
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *memoryCache) SetEmbedding(ctx context.Context, key string, embedding []float32) error {
	c.items[key] = embedding
	return nil
}

func newTestEmbedder(t *testing.T, srv *embeddingServer, dims int, cache EmbeddingCache) *EmbeddingService {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	t.Cleanup(ts.Close)

	svc, err := NewEmbeddingService(&config.LLMConfig{
		EmbeddingAPIKey: "test-key",
		EmbeddingURL:    ts.URL + "/",
		EmbeddingModel:  "test-embedding",
		Dimensions:      dims,
		QueryPrefix:     "query: ",
		DocumentPrefix:  "passage: ",
	}, cache, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestEmbed_NormalizesVector(t *testing.T) {
	srv := &embeddingServer{vector: []float32{3, 4}}
	svc := newTestEmbedder(t, srv, 2, nil)

	vec, err := svc.Embed(context.Background(), "  minimum wage  ", TaskQuery)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
	assert.Equal(t, "/embeddings", srv.reqPath)
	assert.Equal(t, []string{"query: minimum wage"}, srv.inputs)
	assert.Equal(t, []int{2}, srv.dims)
}

func TestEmbed_DocumentPrefix(t *testing.T) {
	srv := &embeddingServer{vector: []float32{1, 1, 1}}
	svc := newTestEmbedder(t, srv, 3, nil)

	vec, err := svc.Embed(context.Background(), "chunk text", TaskDocument)
	require.NoError(t, err)

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
	assert.Equal(t, []string{"passage: chunk text"}, srv.inputs)
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	srv := &embeddingServer{vector: []float32{1, 2, 3}}
	svc := newTestEmbedder(t, srv, 2, nil)

	_, err := svc.Embed(context.Background(), "text", TaskQuery)
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.Contains(t, err.Error(), "expected 2 dimensions, got 3")
}

func TestEmbed_EmptyResponse(t *testing.T) {
	srv := &embeddingServer{}
	svc := newTestEmbedder(t, srv, 2, nil)

	_, err := svc.Embed(context.Background(), "text", TaskQuery)
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestEmbed_UpstreamError(t *testing.T) {
	srv := &embeddingServer{status: http.StatusTooManyRequests}
	svc := newTestEmbedder(t, srv, 2, nil)

	_, err := svc.Embed(context.Background(), "text", TaskQuery)
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestEmbed_EmptyInput(t *testing.T) {
	srv := &embeddingServer{vector: []float32{1, 0}}
	svc := newTestEmbedder(t, srv, 2, nil)

	_, err := svc.Embed(context.Background(), " \n ", TaskQuery)
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.Empty(t, srv.inputs, "no request for empty input")
}

func TestEmbed_CacheHit(t *testing.T) {
	srv := &embeddingServer{vector: []float32{0, 2}}
	cache := &memoryCache{items: make(map[string][]float32)}
	svc := newTestEmbedder(t, srv, 2, cache)

	first, err := svc.Embed(context.Background(), "overtime", TaskQuery)
	require.NoError(t, err)
	second, err := svc.Embed(context.Background(), "overtime", TaskQuery)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, srv.inputs, 1, "second call served from cache")

	_, err = svc.Embed(context.Background(), "overtime", TaskDocument)
	require.NoError(t, err)
	assert.Len(t, srv.inputs, 2, "task is part of the cache key")
}

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(&config.LLMConfig{Dimensions: 768}, nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNormalizeVector_Zero(t *testing.T) {
	_, err := NormalizeVector([]float32{0, 0, 0})
	assert.ErrorIs(t, err, ErrEmbedding)
}

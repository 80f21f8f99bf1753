package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"compliance-rag/internal/cache"
	"compliance-rag/internal/ingest"
	"compliance-rag/internal/repository"
	"compliance-rag/internal/service"
	"compliance-rag/pkg/config"
	"compliance-rag/pkg/logger"
	"compliance-rag/pkg/postgres"

	"go.uber.org/zap"
)

func main() {
	seedDir := flag.String("dir", filepath.Join("cmd", "seed", "corpus"), "Directory of .md, .txt and .pdf compliance documents")
	force := flag.Bool("force", false, "Re-ingest files even if unchanged")
	chunkSize := flag.Int("chunk-size", 1200, "Maximum characters per chunk")
	chunkOverlap := flag.Int("chunk-overlap", 150, "Characters carried over between chunks")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	// Connect to database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	var embeddingCache service.EmbeddingCache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, &cfg.Redis, appLogger)
		if err != nil {
			appLogger.Warn("Redis unavailable, embeddings will not be cached", zap.Error(err))
		} else {
			defer redisCache.Close()
			embeddingCache = redisCache
		}
	}

	embedder, err := service.NewEmbeddingService(&cfg.LLM, embeddingCache, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize embedding service", zap.Error(err))
	}

	ingester := ingest.NewIngester(
		repository.NewDocumentRepository(db, appLogger),
		repository.NewChunkRepository(db, appLogger),
		embedder,
		ingest.NewChunker(*chunkSize, *chunkOverlap),
		appLogger,
	)

	appLogger.Info("Starting corpus ingestion...", zap.String("dir", *seedDir))

	manifestPath := filepath.Join(*seedDir, ".seed_manifest.json")
	if err := seedCorpus(ctx, *seedDir, manifestPath, &cfg.LLM, *force, ingester, appLogger); err != nil {
		appLogger.Fatal("Failed to ingest corpus", zap.Error(err))
	}

	appLogger.Info("Corpus ingestion completed successfully!")
}

// manifestEntry records the last successful ingestion of one corpus file.
type manifestEntry struct {
	Hash       string    `json:"hash"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}

// ingestManifest is the on-disk record of ingested files, keyed by path.
// Embedding settings are part of it: a change of model or dimensions
// invalidates every entry.
type ingestManifest struct {
	EmbeddingModel string                   `json:"embedding_model"`
	Dimensions     int                      `json:"dimensions"`
	Files          map[string]manifestEntry `json:"files"`
}

func newManifest(model string, dimensions int) *ingestManifest {
	return &ingestManifest{
		EmbeddingModel: model,
		Dimensions:     dimensions,
		Files:          make(map[string]manifestEntry),
	}
}

// readManifest returns an empty manifest when the file is missing, empty, or
// was written for different embedding settings.
func readManifest(path, model string, dimensions int) (*ingestManifest, error) {
	fresh := newManifest(model, dimensions)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return fresh, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m ingestManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.EmbeddingModel != model || m.Dimensions != dimensions || m.Files == nil {
		return fresh, nil
	}
	return &m, nil
}

// write replaces the manifest file atomically.
func (m *ingestManifest) write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// corpusFiles lists the markdown, text and PDF files under dir, sorted by path.
func corpusFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ingest.SupportedExtension(filepath.Ext(path)) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// seedCorpus ingests every changed document under seedDir
func seedCorpus(
	ctx context.Context,
	seedDir string,
	manifestPath string,
	embedding *config.LLMConfig,
	force bool,
	ingester *ingest.Ingester,
	logger *zap.Logger,
) error {
	manifest, err := readManifest(manifestPath, embedding.EmbeddingModel, embedding.Dimensions)
	if err != nil {
		logger.Warn("Unreadable manifest, ingesting every file", zap.Error(err))
		manifest = newManifest(embedding.EmbeddingModel, embedding.Dimensions)
	}

	files, err := corpusFiles(seedDir)
	if err != nil {
		return fmt.Errorf("failed to list corpus: %w", err)
	}

	ingested, failed := 0, 0
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Error("Failed to read file", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}

		fileHash := ingest.ContentHash(content)
		if cached, exists := manifest.Files[path]; exists && !force {
			if cached.Hash == fileHash {
				logger.Info("File already ingested, skipping",
					zap.String("path", path),
					zap.Time("ingested_at", cached.IngestedAt),
				)
				continue
			}
			logger.Info("File changed, re-ingesting",
				zap.String("path", path),
				zap.String("old_hash", cached.Hash),
				zap.String("new_hash", fileHash),
			)
		}

		rel, err := filepath.Rel(seedDir, path)
		if err != nil {
			rel = path
		}

		text, err := ingest.ExtractText(path, logger)
		if err != nil {
			logger.Error("Failed to extract text", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}

		chunks, err := ingester.Ingest(ctx, rel, titleFromFilename(path, []byte(text)), []byte(text))
		if err != nil {
			logger.Error("Failed to ingest file", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}
		ingested++

		manifest.Files[path] = manifestEntry{
			Hash:       fileHash,
			Chunks:     chunks,
			IngestedAt: time.Now(),
		}
	}

	if err := manifest.write(manifestPath); err != nil {
		logger.Warn("Failed to save manifest", zap.Error(err))
	}

	logger.Info("Ingestion summary",
		zap.Int("files", len(files)),
		zap.Int("ingested", ingested),
		zap.Int("failed", failed),
	)

	return nil
}

// titleFromFilename uses the first level-one heading when present, otherwise
// a human-readable form of the filename.
func titleFromFilename(path string, content []byte) string {
	for _, line := range strings.SplitN(string(content), "\n", 20) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)

	words := strings.Fields(name)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(string(word[0])) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}

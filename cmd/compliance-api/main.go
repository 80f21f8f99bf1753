package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"compliance-rag/internal/api"
	"compliance-rag/internal/api/handlers"
	"compliance-rag/internal/cache"
	"compliance-rag/internal/deel"
	"compliance-rag/internal/metrics"
	"compliance-rag/internal/repository"
	"compliance-rag/internal/service"
	"compliance-rag/pkg/auth"
	"compliance-rag/pkg/config"
	"compliance-rag/pkg/logger"
	"compliance-rag/pkg/postgres"

	"go.uber.org/zap"
)

// @title Compliance RAG API
// @version 1.0
// @description Wage and hour compliance analysis over a document corpus

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting compliance service")

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	metrics.Init()

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	healthDeps := map[string]handlers.Pinger{"postgres": db}

	// Embedding cache is optional
	var embeddingCache service.EmbeddingCache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, &cfg.Redis, logger.Named("cache"))
		if err != nil {
			appLogger.Warn("Redis unavailable, embeddings will not be cached", zap.Error(err))
		} else {
			defer redisCache.Close()
			embeddingCache = redisCache
			healthDeps["redis"] = redisCache
		}
	}

	// Initialize repositories
	chunkRepo := repository.NewChunkRepository(db, appLogger)
	reportRepo := repository.NewReportRepository(db, appLogger)

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)

	// Initialize services
	embedder, err := service.NewEmbeddingService(&cfg.LLM, embeddingCache, logger.Named("embedding"))
	if err != nil {
		appLogger.Fatal("Failed to initialize embedding service", zap.Error(err))
	}

	chatModel, err := service.NewChatModel(&cfg.LLM, logger.Named("llm"))
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	if closer, ok := chatModel.(io.Closer); ok {
		defer closer.Close()
	}

	ragService := service.NewRAGService(chunkRepo, logger.Named("rag"))
	completionService := service.NewCompletionService(chatModel, logger.Named("completion"))
	deelClient := deel.NewClient(&cfg.Deel, logger.Named("deel"))

	complianceService := service.NewComplianceService(
		embedder,
		ragService,
		completionService,
		reportRepo,
		deelClient,
		service.DefaultRuleTable(),
		cfg.RAG,
		logger.Named("compliance"),
	)
	queryService := service.NewQueryService(embedder, ragService, completionService, cfg.RAG, logger.Named("query"))

	// Initialize handlers
	complianceHandler := handlers.NewComplianceHandler(complianceService, appLogger)
	queryHandler := handlers.NewQueryHandler(queryService, appLogger)
	healthHandler := handlers.NewHealthHandler(healthDeps)

	// Setup router
	app := api.SetupRouter(complianceHandler, queryHandler, healthHandler, jwtManager, api.RouterConfig{
		InternalSecret:  cfg.Auth.InternalSecret,
		RateLimitPerMin: cfg.Server.RateLimitPerMin,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
	}, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

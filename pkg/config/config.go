package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrConfiguration marks a missing or invalid required setting.
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Auth     AuthConfig
	LLM      LLMConfig
	RAG      RAGConfig
	Deel     DeelConfig
	Redis    RedisConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimitPerMin int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
}

// AuthConfig holds the shared secret used for service-to-service calls.
type AuthConfig struct {
	InternalSecret string
}

type LLMConfig struct {
	Provider        string // "openai" or "gigachat"
	APIKey          string
	BaseURL         string
	ChatModel       string
	EmbeddingModel  string
	EmbeddingAPIKey string
	EmbeddingURL    string
	Dimensions      int
	MaxOutputTokens int
	QueryPrefix     string
	DocumentPrefix  string

	GigaChatScope      string
	InsecureSkipVerify bool
}

type RAGConfig struct {
	ContextWindowTokens   int
	ReasoningReserveRatio float64
	TopK                  int
	SimilarityThreshold   float64
	MaxPerDoc             int
	MaxChunks             int
	MaxPromptWorkers      int
	MaxSources            int
}

type DeelConfig struct {
	BaseURL   string
	Token     string
	PageSize  int
	PageDelay time.Duration
	MaxOffset int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work for Docker/K8s
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "120"))
	rateLimit, _ := strconv.Atoi(getEnv("SERVER_RATE_LIMIT_PER_MIN", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	dims, _ := strconv.Atoi(getEnv("EMBEDDING_DIMENSIONS", "768"))
	maxOut, _ := strconv.Atoi(getEnv("LLM_MAX_OUTPUT_TOKENS", "4096"))
	contextWindow, _ := strconv.Atoi(getEnv("RAG_CONTEXT_WINDOW_TOKENS", "8192"))
	reserveRatio, _ := strconv.ParseFloat(getEnv("RAG_REASONING_RESERVE_RATIO", "0.3"), 64)
	topK, _ := strconv.Atoi(getEnv("RAG_TOP_K", "16"))
	threshold, _ := strconv.ParseFloat(getEnv("RAG_SIMILARITY_THRESHOLD", "0.2"), 64)
	maxPerDoc, _ := strconv.Atoi(getEnv("RAG_MAX_PER_DOC", "2"))
	maxChunks, _ := strconv.Atoi(getEnv("RAG_MAX_CHUNKS", "12"))
	maxWorkers, _ := strconv.Atoi(getEnv("RAG_MAX_PROMPT_WORKERS", "200"))
	maxSources, _ := strconv.Atoi(getEnv("RAG_MAX_SOURCES", "3"))
	pageSize, _ := strconv.Atoi(getEnv("DEEL_PAGE_SIZE", "150"))
	pageDelayMs, _ := strconv.Atoi(getEnv("DEEL_PAGE_DELAY_MS", "250"))
	maxOffset, _ := strconv.Atoi(getEnv("DEEL_MAX_OFFSET", "10000"))
	maxConns, _ := strconv.Atoi(getEnv("DB_MAX_CONNS", "10"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisTTL, _ := strconv.Atoi(getEnv("REDIS_EMBEDDING_TTL_HOURS", "168"))

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     time.Duration(readTimeout) * time.Second,
			WriteTimeout:    time.Duration(writeTimeout) * time.Second,
			RateLimitPerMin: rateLimit,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "compliance"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(maxConns),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", ""),
			Expiration: time.Duration(jwtExp) * time.Hour,
		},
		Auth: AuthConfig{
			InternalSecret: getEnv("INTERNAL_SHARED_SECRET", ""),
		},
		LLM: LLMConfig{
			Provider:           getEnv("LLM_PROVIDER", "openai"),
			APIKey:             getEnv("LLM_API_KEY", ""),
			BaseURL:            getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
			ChatModel:          getEnv("LLM_CHAT_MODEL", "gemini-2.0-flash"),
			EmbeddingModel:     getEnv("LLM_EMBEDDING_MODEL", "text-embedding-004"),
			EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", getEnv("LLM_API_KEY", "")),
			EmbeddingURL:       getEnv("EMBEDDING_BASE_URL", getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/")),
			Dimensions:         dims,
			MaxOutputTokens:    maxOut,
			QueryPrefix:        getEnv("EMBEDDING_QUERY_PREFIX", ""),
			DocumentPrefix:     getEnv("EMBEDDING_DOCUMENT_PREFIX", ""),
			GigaChatScope:      getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "false") == "true",
		},
		RAG: RAGConfig{
			ContextWindowTokens:   contextWindow,
			ReasoningReserveRatio: reserveRatio,
			TopK:                  topK,
			SimilarityThreshold:   threshold,
			MaxPerDoc:             maxPerDoc,
			MaxChunks:             maxChunks,
			MaxPromptWorkers:      maxWorkers,
			MaxSources:            maxSources,
		},
		Deel: DeelConfig{
			BaseURL:   getEnv("DEEL_API_BASE_URL", "https://api.letsdeel.com/rest/v2"),
			Token:     getEnv("DEEL_API_TOKEN", ""),
			PageSize:  pageSize,
			PageDelay: time.Duration(pageDelayMs) * time.Millisecond,
			MaxOffset: maxOffset,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			TTL:      time.Duration(redisTTL) * time.Hour,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

// Validate checks the settings without which the service must not start.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: LLM_API_KEY is required", ErrConfiguration)
	}
	if c.LLM.EmbeddingAPIKey == "" {
		return fmt.Errorf("%w: EMBEDDING_API_KEY is required", ErrConfiguration)
	}
	if c.LLM.Provider != "openai" && c.LLM.Provider != "gigachat" {
		return fmt.Errorf("%w: unsupported LLM_PROVIDER %q", ErrConfiguration, c.LLM.Provider)
	}
	if c.JWT.SecretKey == "" && c.Auth.InternalSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET_KEY or INTERNAL_SHARED_SECRET is required", ErrConfiguration)
	}
	if c.LLM.Dimensions <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIMENSIONS must be positive", ErrConfiguration)
	}
	if c.RAG.ReasoningReserveRatio < 0 || c.RAG.ReasoningReserveRatio >= 1 {
		return fmt.Errorf("%w: RAG_REASONING_RESERVE_RATIO must be in [0,1)", ErrConfiguration)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

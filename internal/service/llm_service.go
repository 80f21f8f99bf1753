package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"compliance-rag/internal/metrics"
	"compliance-rag/internal/models"
	"compliance-rag/pkg/config"

	"github.com/Role1776/gigago"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Sampling is kept low: compliance findings should be reproducible run to run.
const (
	generationTemperature  = 0.1
	defaultMaxOutputTokens = 4096
)

// NewChatModel builds the generation backend selected by LLM_PROVIDER.
func NewChatModel(cfg *config.LLMConfig, logger *zap.Logger) (ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: LLM API key is not set", ErrConfiguration)
	}

	switch cfg.Provider {
	case "gigachat":
		return NewGigaChatModel(cfg, logger)
	case "openai", "":
		return NewOpenAIChatModel(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrConfiguration, cfg.Provider)
	}
}

// OpenAIChatModel talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, Gemini's compatibility layer, local gateways).
type OpenAIChatModel struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

func NewOpenAIChatModel(cfg *config.LLMConfig, logger *zap.Logger) *OpenAIChatModel {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}

	logger.Info("LLM client initialized",
		zap.String("provider", "openai"),
		zap.String("model", cfg.ChatModel),
	)

	return &OpenAIChatModel{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.ChatModel,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

func (m *OpenAIChatModel) Name() string { return m.model }

func (m *OpenAIChatModel) Chat(ctx context.Context, systemInstruction, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemInstruction,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		Temperature: generationTemperature,
		MaxTokens:   m.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrGeneration)
	}

	m.logger.Debug("LLM completion generated",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	return resp.Choices[0].Message.Content, nil
}

// GigaChatModel generates through the GigaChat SDK.
type GigaChatModel struct {
	client *gigago.Client
	model  string
	logger *zap.Logger
}

func NewGigaChatModel(cfg *config.LLMConfig, logger *zap.Logger) (*GigaChatModel, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.GigaChatScope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(context.Background(), cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := cfg.ChatModel
	if model == "" || !strings.HasPrefix(model, "GigaChat") {
		model = "GigaChat"
	}

	logger.Info("LLM client initialized",
		zap.String("provider", "gigachat"),
		zap.String("model", model),
	)

	return &GigaChatModel{client: client, model: model, logger: logger}, nil
}

func (m *GigaChatModel) Name() string { return m.model }

func (m *GigaChatModel) Chat(ctx context.Context, systemInstruction, userPrompt string) (string, error) {
	// a fresh model per call keeps the system instruction request-scoped
	model := m.client.GenerativeModel(m.model)
	model.SystemInstruction = systemInstruction
	model.Temperature = generationTemperature

	resp, err := model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: userPrompt},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrGeneration)
	}

	return resp.Choices[0].Message.Content, nil
}

func (m *GigaChatModel) Close() error {
	if m.client != nil {
		m.client.Close()
	}
	return nil
}

// CompletionService attaches retrieved context to a prompt and runs it
// through the configured chat model.
type CompletionService struct {
	model  ChatModel
	logger *zap.Logger
}

func NewCompletionService(model ChatModel, logger *zap.Logger) *CompletionService {
	return &CompletionService{model: model, logger: logger}
}

// Complete returns the model's text. Empty output is a GenerationError: an
// empty analysis is worse than a visible failure.
func (s *CompletionService) Complete(ctx context.Context, userPrompt string, contextChunks []*models.DocumentChunk, systemInstruction string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	}()

	prompt := userPrompt
	if len(contextChunks) > 0 {
		prompt = userPrompt + "\n\nCONTEXT:\n" + BuildContextBlock(contextChunks)
	}

	text, err := s.model.Chat(ctx, systemInstruction, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty content", ErrGeneration)
	}

	s.logger.Debug("Completion received",
		zap.String("model", s.model.Name()),
		zap.Int("context_chunks", len(contextChunks)),
		zap.Int("output_length", len(text)),
	)

	return text, nil
}

// FormatContextChunk renders one chunk with its 1-based citation index.
func FormatContextChunk(index int, chunk *models.DocumentChunk) string {
	return fmt.Sprintf("[%d] Document: %s | Section: %s\n%s", index, chunk.Title(), chunk.Section(), chunk.Content)
}

// BuildContextBlock numbers chunks in selection order and joins them with blank lines.
func BuildContextBlock(chunks []*models.DocumentChunk) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = FormatContextChunk(i+1, chunk)
	}
	return strings.Join(parts, "\n\n")
}

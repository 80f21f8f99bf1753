package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"compliance-rag/internal/metrics"
	"compliance-rag/internal/models"
	"compliance-rag/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewRequest struct {
	UserID uuid.UUID
	// Workers may be empty when the roster is to be fetched with DeelToken.
	Workers      []models.WorkerRecord
	TotalWorkers int
	Ablation     bool
	DeelToken    string
}

type ReviewResult struct {
	UsedRAG         bool
	Analysis        *models.ComplianceAnalysis
	Baseline        *models.ComplianceAnalysis
	Diff            *models.ViolationDiff
	WorkersAnalyzed int
	EmployeesCount  int
	ContractsCount  int
	Ablation        bool
	Persisted       bool
}

type ComplianceService struct {
	embedder   Embedder
	rag        *RAGService
	completion *CompletionService
	reports    ReportStore
	roster     RosterSource
	rules      *RuleTable
	cfg        config.RAGConfig
	logger     *zap.Logger
}

func NewComplianceService(
	embedder Embedder,
	rag *RAGService,
	completion *CompletionService,
	reports ReportStore,
	roster RosterSource,
	rules *RuleTable,
	cfg config.RAGConfig,
	logger *zap.Logger,
) *ComplianceService {
	if rules == nil {
		rules = DefaultRuleTable()
	}
	return &ComplianceService{
		embedder:   embedder,
		rag:        rag,
		completion: completion,
		reports:    reports,
		roster:     roster,
		rules:      rules,
		cfg:        cfg,
		logger:     logger,
	}
}

// Review runs one compliance analysis for a user. Embedding and generation
// failures abort the run; retrieval, parse and persistence failures degrade.
func (s *ComplianceService) Review(ctx context.Context, req ReviewRequest) (*ReviewResult, error) {
	result, err := s.review(ctx, req)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.AnalysesTotal.WithLabelValues("success").Inc()
	return result, nil
}

func (s *ComplianceService) review(ctx context.Context, req ReviewRequest) (*ReviewResult, error) {
	roster, err := s.resolveRoster(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(roster.Workers) == 0 {
		return nil, ErrEmptyRoster
	}

	log := s.logger.With(
		zap.String("user_id", req.UserID.String()),
		zap.Int("workers", len(roster.Workers)),
		zap.Bool("ablation", req.Ablation),
	)

	// BUILD_QUERY
	query := BuildRetrievalQuery(roster.Workers)

	embedStart := time.Now()
	embedding, err := s.embedder.Embed(ctx, query, TaskQuery)
	metrics.StageDuration.WithLabelValues("embed").Observe(time.Since(embedStart).Seconds())
	if err != nil {
		if !errors.Is(err, ErrEmbedding) && !errors.Is(err, ErrConfiguration) {
			err = fmt.Errorf("%w: %v", ErrEmbedding, err)
		}
		return nil, err
	}

	// RETRIEVE / SELECT_CONTEXT
	prompt := BuildCompliancePrompt(roster.Workers, roster.TotalWorkers, s.rules, s.cfg.MaxPromptWorkers)
	retrieved := s.rag.Retrieve(ctx, embedding, s.cfg.TopK, s.cfg.SimilarityThreshold)
	selected := SelectContext(retrieved, prompt, SelectOptionsFromConfig(&s.cfg))

	log.Info("Context selected",
		zap.Int("retrieved", len(retrieved)),
		zap.Int("selected", len(selected)),
	)

	// GENERATE_RAG
	text, err := s.completion.Complete(ctx, prompt, selected, complianceSystemInstruction())
	if err != nil {
		return nil, err
	}

	// NORMALIZE
	raw, err := parseAnalysis(text)
	if err != nil {
		metrics.ParseFallbacks.WithLabelValues("rag").Inc()
		log.Warn("Failed to parse analysis, using empty result", zap.Error(err))
		raw = nil
	}
	analysis := normalizeAnalysis(raw, roster.TotalWorkers, len(roster.Workers))
	analysis.Sources = AuditCitations(text, selected, PolicyStructured, s.cfg.MaxSources).Sources

	result := &ReviewResult{
		UsedRAG:         len(selected) > 0,
		Analysis:        analysis,
		WorkersAnalyzed: len(roster.Workers),
		EmployeesCount:  roster.EmployeesCount,
		ContractsCount:  roster.ContractsCount,
		Ablation:        req.Ablation,
	}

	// GENERATE_BASELINE / DIFF
	if req.Ablation {
		baseline := s.baseline(ctx, prompt, roster, log)
		diff := DiffViolations(analysis.Violations, baseline.Violations)
		result.Baseline = baseline
		result.Diff = &diff
	}

	// PERSIST
	result.Persisted = s.persist(ctx, req.UserID, result, log)

	log.Info("Compliance review completed",
		zap.Int("violations", len(analysis.Violations)),
		zap.Int("sources", len(analysis.Sources)),
		zap.Bool("used_rag", result.UsedRAG),
	)

	return result, nil
}

// resolveRoster prefers the workers supplied in the request and only calls
// the HR system when none were given. The token may be empty; the source then
// falls back to its configured token.
func (s *ComplianceService) resolveRoster(ctx context.Context, req ReviewRequest) (*models.Roster, error) {
	if len(req.Workers) > 0 || s.roster == nil {
		if err := validateWorkers(req.Workers); err != nil {
			return nil, err
		}
		total := req.TotalWorkers
		if total <= 0 {
			total = len(req.Workers)
		}
		return &models.Roster{Workers: req.Workers, TotalWorkers: total}, nil
	}

	start := time.Now()
	roster, err := s.roster.FetchRoster(ctx, req.DeelToken)
	metrics.StageDuration.WithLabelValues("roster").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}
	if req.TotalWorkers > 0 {
		roster.TotalWorkers = req.TotalWorkers
	}
	if roster.TotalWorkers <= 0 {
		roster.TotalWorkers = len(roster.Workers)
	}
	return roster, nil
}

// validateWorkers rejects caller-supplied records that cannot be audited.
func validateWorkers(workers []models.WorkerRecord) error {
	for _, w := range workers {
		if w.Compensation.Rate < 0 {
			return fmt.Errorf("%w: worker %q has a negative compensation rate", ErrInvalidRoster, w.ID)
		}
		if math.IsNaN(w.Compensation.Rate) || math.IsInf(w.Compensation.Rate, 0) {
			return fmt.Errorf("%w: worker %q has a non-finite compensation rate", ErrInvalidRoster, w.ID)
		}
	}
	return nil
}

// baseline produces the no-context analysis. A failed or unparsable model
// run falls back to the deterministic minimum-wage detector.
func (s *ComplianceService) baseline(ctx context.Context, prompt string, roster *models.Roster, log *zap.Logger) *models.ComplianceAnalysis {
	text, err := s.completion.Complete(ctx, prompt, nil, baselineSystemInstruction())
	if err == nil {
		raw, parseErr := parseAnalysis(text)
		if parseErr == nil {
			return normalizeAnalysis(raw, roster.TotalWorkers, len(roster.Workers))
		}
		err = parseErr
	}

	metrics.ParseFallbacks.WithLabelValues("baseline").Inc()
	log.Warn("Baseline generation unusable, using rule-based detector", zap.Error(err))

	violations := DetectMinimumWageViolations(roster.Workers, s.rules)
	return analysisFromViolations(violations, roster.TotalWorkers, len(roster.Workers))
}

func (s *ComplianceService) persist(ctx context.Context, userID uuid.UUID, result *ReviewResult, log *zap.Logger) bool {
	if s.reports == nil || userID == uuid.Nil {
		return false
	}

	payload, err := json.Marshal(result.Analysis)
	if err != nil {
		metrics.PersistenceFailures.Inc()
		log.Error("Failed to encode analysis", zap.Error(err))
		return false
	}

	now := time.Now().UTC()
	report := &models.ComplianceReport{
		ID:             uuid.New(),
		UserID:         userID,
		Analysis:       payload,
		RiskScore:      result.Analysis.Summary.OverallRiskScore,
		CriticalIssues: result.Analysis.Summary.CriticalIssues,
		TotalWorkers:   result.Analysis.Summary.TotalWorkers,
		UsedRAG:        result.UsedRAG,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.reports.Upsert(ctx, report); err != nil {
		metrics.PersistenceFailures.Inc()
		log.Error("Failed to save compliance report",
			zap.Error(fmt.Errorf("%w: %v", ErrPersistence, err)),
		)
		return false
	}
	return true
}

// LatestReport returns the stored analysis for a user.
func (s *ComplianceService) LatestReport(ctx context.Context, userID uuid.UUID) (*models.ComplianceReport, *models.ComplianceAnalysis, error) {
	report, err := s.reports.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	var analysis models.ComplianceAnalysis
	if err := json.Unmarshal(report.Analysis, &analysis); err != nil {
		return nil, nil, fmt.Errorf("failed to decode stored analysis: %w", err)
	}
	return report, &analysis, nil
}

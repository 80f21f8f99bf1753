package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"compliance-rag/internal/models"
	"compliance-rag/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const ragReply = `Here is the audit:
{
  "summary": {"overallRiskScore": 40, "totalWorkers": 1, "complianceRate": 50},
  "violations": [
    {"workerId": "w1", "workerName": "Worker w1", "violationType": "minimum_wage", "severity": "high",
     "title": "Below CA minimum", "description": "California requires $16.00 [2].", "jurisdiction": "US-CA",
     "currentRate": 15, "requiredRate": 16, "recommendedActions": ["Raise pay"]},
    {"workerId": "w2", "workerName": "Worker w2", "violationType": "overtime", "severity": "medium",
     "title": "Overtime exposure", "description": "Weekly hours over 40 [1].", "jurisdiction": "US-NY",
     "recommendedActions": []}
  ],
  "recommendations": [{"priority": "high", "title": "Fix pay", "affectedWorkers": 1, "implementation": "Adjust payroll"}]
}`

func testRAGConfig() config.RAGConfig {
	return config.RAGConfig{
		ContextWindowTokens:   8192,
		ReasoningReserveRatio: 0.3,
		TopK:                  16,
		SimilarityThreshold:   0.2,
		MaxPerDoc:             2,
		MaxChunks:             12,
		MaxPromptWorkers:      200,
		MaxSources:            3,
	}
}

type pipeline struct {
	svc     *ComplianceService
	model   *scriptedModel
	reports *fakeReportStore
	store   *fakeChunkStore
}

func newPipeline(rules ...scriptRule) *pipeline {
	model := &scriptedModel{rules: rules}
	store := &fakeChunkStore{matches: []*models.DocumentChunk{
		chunk(1, "flsa", "FLSA", "Overtime after 40 hours.", 0.9),
		chunk(2, "ca", "California", "Minimum wage $16.00.", 0.8),
		chunk(3, "ny", "New York", "Minimum wage $15.00.", 0.7),
	}}
	reports := newFakeReportStore()
	logger := zap.NewNop()

	svc := NewComplianceService(
		&fakeEmbedder{},
		NewRAGService(store, logger),
		NewCompletionService(model, logger),
		reports,
		nil,
		DefaultRuleTable(),
		testRAGConfig(),
		logger,
	)
	return &pipeline{svc: svc, model: model, reports: reports, store: store}
}

func roster() []models.WorkerRecord {
	return []models.WorkerRecord{
		worker("w1", "US", "CA", 15.00, "USD", models.ScaleHourly),
		worker("w2", "US", "NY", 3500, "USD", models.ScaleMonthly),
	}
}

func TestReview_RAGPathWithCitations(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: ragReply})
	userID := uuid.New()

	result, err := p.svc.Review(context.Background(), ReviewRequest{UserID: userID, Workers: roster()})
	require.NoError(t, err)

	assert.True(t, result.UsedRAG)
	assert.Equal(t, 2, result.WorkersAnalyzed)
	assert.Nil(t, result.Baseline)
	assert.Nil(t, result.Diff)
	assert.True(t, result.Persisted)

	a := result.Analysis
	require.Len(t, a.Violations, 2)
	assert.Equal(t, 2, a.Summary.TotalWorkers, "reconciled count beats the model's 1")
	assert.Equal(t, 40.0, a.Summary.OverallRiskScore)

	require.Len(t, a.Sources, 2)
	assert.Equal(t, "flsa", a.Sources[0].DocID)
	assert.Equal(t, "ca", a.Sources[1].DocID)

	// the context block is appended after the prompt
	require.Equal(t, 1, p.model.calls())
	assert.Contains(t, p.model.prompts[0], "JURISDICTION RULES:")
	assert.Contains(t, p.model.prompts[0], "\n\nCONTEXT:\n[1] Document: FLSA | Section: Section flsa\n")

	stored := p.reports.reports[userID]
	require.NotNil(t, stored)
	assert.Equal(t, 2, stored.TotalWorkers)
	assert.False(t, stored.UpdatedAt.IsZero())
	assert.Equal(t, stored.CreatedAt, stored.UpdatedAt)
	var persisted models.ComplianceAnalysis
	require.NoError(t, json.Unmarshal(stored.Analysis, &persisted))
	assert.Len(t, persisted.Violations, 2)
}

func TestReview_NoCitationsMeansNoSources(t *testing.T) {
	reply := strings.NewReplacer("[1]", "", "[2]", "").Replace(ragReply)
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: reply})

	result, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: roster()})
	require.NoError(t, err)
	assert.Empty(t, result.Analysis.Sources)
	assert.NotNil(t, result.Analysis.Sources)
}

func TestReview_WorkerCountInvariant(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: ragReply})

	result, err := p.svc.Review(context.Background(), ReviewRequest{
		UserID:       uuid.New(),
		Workers:      roster(),
		TotalWorkers: 740,
	})
	require.NoError(t, err)
	assert.Equal(t, 740, result.Analysis.Summary.TotalWorkers)
}

func TestReview_AblationFallsBackToDetectorWhenBaselineFails(t *testing.T) {
	p := newPipeline(
		scriptRule{systemContains: "No supporting documents", err: errors.New("upstream 500")},
		scriptRule{systemContains: "compliance auditor", reply: ragReply},
	)

	result, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: roster(), Ablation: true})
	require.NoError(t, err)

	require.NotNil(t, result.Baseline)
	require.Len(t, result.Baseline.Violations, 1, "CA worker below $16.00")
	assert.Equal(t, "w1", result.Baseline.Violations[0].WorkerID)
	assert.Equal(t, models.ViolationMinimumWage, result.Baseline.Violations[0].ViolationType)

	require.NotNil(t, result.Diff)
	assert.Equal(t, models.ViolationDiff{OnlyInRAG: 1, OnlyInBaseline: 0}, *result.Diff)
	assert.True(t, result.Ablation)
	assert.Equal(t, 2, p.model.calls())
}

func TestReview_AblationFallsBackWhenBaselineUnparsable(t *testing.T) {
	p := newPipeline(
		scriptRule{systemContains: "No supporting documents", reply: "I need more information."},
		scriptRule{systemContains: "compliance auditor", reply: ragReply},
	)

	result, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: roster(), Ablation: true})
	require.NoError(t, err)
	require.Len(t, result.Baseline.Violations, 1)
	assert.Empty(t, result.Baseline.Sources)
}

func TestReview_AblationUsesModelBaseline(t *testing.T) {
	baseline := `{"violations":[{"workerId":"w3","violationType":"minimum_wage","severity":"high"}]}`
	p := newPipeline(
		scriptRule{systemContains: "No supporting documents", reply: baseline},
		scriptRule{systemContains: "compliance auditor", reply: ragReply},
	)

	result, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: roster(), Ablation: true})
	require.NoError(t, err)
	assert.Equal(t, models.ViolationDiff{OnlyInRAG: 2, OnlyInBaseline: 1}, *result.Diff)

	// the baseline call carries no context block
	assert.NotContains(t, p.model.prompts[1], "CONTEXT:")
}

func TestReview_AlwaysFailingModelAbortsBeforeBaseline(t *testing.T) {
	// a failed grounded generation ends the run; only the baseline call has a
	// deterministic fallback, so no baseline or diff is produced here
	p := newPipeline(scriptRule{systemContains: "", err: errors.New("boom")})

	result, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: roster(), Ablation: true})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, p.model.calls(), "baseline is not attempted")
	assert.Equal(t, 0, p.reports.upserts, "nothing is persisted on failure")
}

func TestReview_EmptyOutputIsGenerationError(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "", reply: "   "})

	_, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: roster()})
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestReview_UnparsableRAGOutputDegradesToNoFindings(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: "Sorry, I cannot comply."})

	result, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: roster(), TotalWorkers: 9})
	require.NoError(t, err)
	assert.Empty(t, result.Analysis.Violations)
	assert.Equal(t, 9, result.Analysis.Summary.TotalWorkers)
	assert.Equal(t, 100.0, result.Analysis.Summary.ComplianceRate)
}

func TestReview_EmbeddingFailureAborts(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "", reply: ragReply})
	p.svc.embedder = &fakeEmbedder{err: errors.New("quota exceeded")}

	_, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: roster()})
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.Equal(t, 0, p.model.calls())
}

func TestReview_RetrievalFailureStillAnalyzes(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: ragReply})
	p.store.matchErr = errors.New("rpc failed")
	p.store.recentErr = errors.New("also failed")

	result, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: roster()})
	require.NoError(t, err)
	assert.False(t, result.UsedRAG)
	assert.Empty(t, result.Analysis.Sources, "citations cannot resolve without context")
}

func TestReview_PersistenceFailureIsNotFatal(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: ragReply})
	p.reports.err = errors.New("connection reset")

	result, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: roster()})
	require.NoError(t, err)
	assert.False(t, result.Persisted)
	assert.Len(t, result.Analysis.Violations, 2)
}

func TestReview_IdempotentViolations(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: ragReply})
	userID := uuid.New()

	first, err := p.svc.Review(context.Background(), ReviewRequest{UserID: userID, Workers: roster()})
	require.NoError(t, err)
	second, err := p.svc.Review(context.Background(), ReviewRequest{UserID: userID, Workers: roster()})
	require.NoError(t, err)

	assert.ElementsMatch(t, first.Analysis.Violations, second.Analysis.Violations)
	assert.Len(t, p.reports.reports, 1, "one report per user")
	assert.Equal(t, 2, p.reports.upserts)
}

func TestReview_EmptyRoster(t *testing.T) {
	p := newPipeline()
	_, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrEmptyRoster)
}

func TestReview_FetchesRosterWithToken(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: ragReply})
	source := &fakeRoster{roster: &models.Roster{
		Workers:        roster(),
		EmployeesCount: 1,
		ContractsCount: 3,
		TotalWorkers:   4,
	}}
	p.svc.roster = source

	result, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), DeelToken: "deel-123"})
	require.NoError(t, err)

	assert.Equal(t, []string{"deel-123"}, source.tokens)
	assert.Equal(t, 1, result.EmployeesCount)
	assert.Equal(t, 3, result.ContractsCount)
	assert.Equal(t, 4, result.Analysis.Summary.TotalWorkers)
}

func TestReview_PersistedReportIsTimestamped(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: ragReply})
	userID := uuid.New()
	before := time.Now().Add(-time.Second)

	_, err := p.svc.Review(context.Background(), ReviewRequest{UserID: userID, Workers: roster()})
	require.NoError(t, err)
	first := p.reports.reports[userID]
	require.NotNil(t, first)
	assert.True(t, first.UpdatedAt.After(before))
	assert.True(t, first.CreatedAt.After(before))

	_, err = p.svc.Review(context.Background(), ReviewRequest{UserID: userID, Workers: roster()})
	require.NoError(t, err)
	second := p.reports.reports[userID]
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestReview_FetchesRosterWithConfiguredToken(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: ragReply})
	source := &fakeRoster{roster: &models.Roster{Workers: roster(), EmployeesCount: 2}}
	p.svc.roster = source

	result, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, []string{""}, source.tokens, "empty token defers to the source's own")
	assert.Equal(t, 2, result.WorkersAnalyzed)
	assert.Equal(t, 2, result.Analysis.Summary.TotalWorkers)
}

func TestReview_RosterSourceErrorPropagates(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: ragReply})
	missing := errors.New("no HR API token configured")
	p.svc.roster = &fakeRoster{err: missing}

	_, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New()})
	assert.ErrorIs(t, err, missing)
	assert.Equal(t, 0, p.model.calls())
}

func TestReview_RejectsInvalidRates(t *testing.T) {
	p := newPipeline(scriptRule{systemContains: "compliance auditor", reply: ragReply})

	workers := roster()
	workers[1].Compensation.Rate = -20
	_, err := p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: workers})
	assert.ErrorIs(t, err, ErrInvalidRoster)
	assert.Contains(t, err.Error(), `"w2"`)

	workers[1].Compensation.Rate = math.NaN()
	_, err = p.svc.Review(context.Background(), ReviewRequest{UserID: uuid.New(), Workers: workers})
	assert.ErrorIs(t, err, ErrInvalidRoster)
	assert.Equal(t, 0, p.model.calls())
}

func TestBuildRetrievalQuery(t *testing.T) {
	q := BuildRetrievalQuery([]models.WorkerRecord{
		worker("1", "US", "NY", 1, "USD", models.ScaleHourly),
		worker("2", "US", "CA", 1, "USD", models.ScaleHourly),
		worker("3", "DE", "", 1, "EUR", models.ScaleHourly),
		worker("4", " ", "CA", 1, "USD", models.ScaleHourly),
	})
	assert.True(t, strings.HasPrefix(q, "FLSA minimum wage and overtime rules"))
	assert.Contains(t, q, "Countries: DE, US.")
	assert.Contains(t, q, "States: CA, NY.")
}

func TestBuildCompliancePrompt_CapsWorkers(t *testing.T) {
	var workers []models.WorkerRecord
	for i := 0; i < 5; i++ {
		workers = append(workers, worker(string(rune('a'+i)), "US", "CA", 20, "USD", models.ScaleHourly))
	}
	prompt := BuildCompliancePrompt(workers, 5, DefaultRuleTable(), 3)

	assert.Contains(t, prompt, "TOTAL WORKERS: 5 (showing 3)")
	assert.Contains(t, prompt, `"id":"c"`)
	assert.NotContains(t, prompt, `"id":"d"`)
	assert.NotContains(t, prompt, "email")
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"compliance-rag/internal/models"

	"github.com/google/uuid"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

type fakeChunkStore struct {
	matches   []*models.DocumentChunk
	matchErr  error
	recent    []*models.DocumentChunk
	recentErr error
}

func (f *fakeChunkStore) MatchChunks(ctx context.Context, embedding []float32, threshold float64, count int) ([]*models.DocumentChunk, error) {
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	out := f.matches
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (f *fakeChunkStore) RecentReadyChunks(ctx context.Context, limit int) ([]*models.DocumentChunk, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.recent, nil
}

// scriptedModel answers by system instruction: the first rule whose key is a
// substring of the system instruction wins.
type scriptedModel struct {
	mu      sync.Mutex
	rules   []scriptRule
	prompts []string
	systems []string
}

type scriptRule struct {
	systemContains string
	reply          string
	err            error
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Chat(ctx context.Context, systemInstruction, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, userPrompt)
	m.systems = append(m.systems, systemInstruction)
	for _, r := range m.rules {
		if strings.Contains(systemInstruction, r.systemContains) {
			return r.reply, r.err
		}
	}
	return "", errors.New("no scripted reply")
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.systems)
}

type fakeReportStore struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*models.ComplianceReport
	err     error
	upserts int
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{reports: make(map[uuid.UUID]*models.ComplianceReport)}
}

func (f *fakeReportStore) Upsert(ctx context.Context, report *models.ComplianceReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.err != nil {
		return f.err
	}
	f.reports[report.UserID] = report
	return nil
}

func (f *fakeReportStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ComplianceReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[userID]
	if !ok {
		return nil, errors.New("not found")
	}
	return r, nil
}

type fakeRoster struct {
	roster *models.Roster
	err    error
	tokens []string
}

func (f *fakeRoster) FetchRoster(ctx context.Context, token string) (*models.Roster, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return f.roster, nil
}

func strPtr(s string) *string { return &s }

func chunk(id int64, docID, title, content string, similarity float64) *models.DocumentChunk {
	return &models.DocumentChunk{
		ChunkID:     id,
		DocID:       docID,
		DocTitle:    strPtr(title),
		SectionPath: strPtr("Section " + docID),
		Content:     content,
		Similarity:  similarity,
	}
}

func worker(id, country, state string, rate float64, currency string, scale models.PayScale) models.WorkerRecord {
	return models.WorkerRecord{
		ID:             id,
		Name:           "Worker " + id,
		Classification: models.ClassificationEmployee,
		Location:       models.Location{Country: country, State: state},
		Compensation:   models.Compensation{Rate: rate, Currency: currency, Scale: scale},
	}
}

package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"compliance-rag/internal/models"
)

// rawAnalysis is the model's JSON as received. Every field is optional and
// tolerant of the wrong scalar type; normalizeAnalysis fills the gaps.
type rawAnalysis struct {
	Summary struct {
		OverallRiskScore flexFloat `json:"overallRiskScore"`
		CriticalIssues   flexFloat `json:"criticalIssues"`
		TotalWorkers     flexFloat `json:"totalWorkers"`
		ComplianceRate   flexFloat `json:"complianceRate"`
	} `json:"summary"`
	Violations []struct {
		WorkerID           flexString  `json:"workerId"`
		WorkerName         flexString  `json:"workerName"`
		ViolationType      flexString  `json:"violationType"`
		Severity           flexString  `json:"severity"`
		Title              flexString  `json:"title"`
		Description        flexString  `json:"description"`
		Jurisdiction       flexString  `json:"jurisdiction"`
		CurrentRate        flexFloat   `json:"currentRate"`
		RequiredRate       flexFloat   `json:"requiredRate"`
		RecommendedActions flexStrings `json:"recommendedActions"`
	} `json:"violations"`
	Recommendations []struct {
		Priority        flexString `json:"priority"`
		Title           flexString `json:"title"`
		AffectedWorkers flexFloat  `json:"affectedWorkers"`
		Implementation  flexString `json:"implementation"`
	} `json:"recommendations"`
}

// parseAnalysis extracts and decodes the first JSON object in the model output.
func parseAnalysis(text string) (*rawAnalysis, error) {
	obj, ok := extractFirstJSONObject(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found", ErrParse)
	}
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &raw, nil
}

// normalizeAnalysis converts the model's partial output into a complete
// analysis. reconciledTotal, when positive, always wins over the model's
// worker count; rosterSize is the last resort.
func normalizeAnalysis(raw *rawAnalysis, reconciledTotal, rosterSize int) *models.ComplianceAnalysis {
	if raw == nil {
		raw = &rawAnalysis{}
	}

	analysis := &models.ComplianceAnalysis{
		Violations:      make([]models.Violation, 0, len(raw.Violations)),
		Recommendations: make([]models.Recommendation, 0, len(raw.Recommendations)),
		Sources:         []models.Source{},
	}

	for _, v := range raw.Violations {
		actions := make([]string, 0, len(v.RecommendedActions))
		for _, a := range v.RecommendedActions {
			if a = strings.TrimSpace(a); a != "" {
				actions = append(actions, sanitizeUTF8(a))
			}
		}
		violationType := strings.ToLower(strings.TrimSpace(string(v.ViolationType)))
		if violationType == "" {
			violationType = "other"
		}
		analysis.Violations = append(analysis.Violations, models.Violation{
			WorkerID:           strings.TrimSpace(string(v.WorkerID)),
			WorkerName:         sanitizeUTF8(string(v.WorkerName)),
			ViolationType:      violationType,
			Severity:           normalizeSeverity(string(v.Severity)),
			Title:              sanitizeUTF8(string(v.Title)),
			Description:        sanitizeUTF8(string(v.Description)),
			Jurisdiction:       strings.TrimSpace(string(v.Jurisdiction)),
			CurrentRate:        v.CurrentRate.ptr(),
			RequiredRate:       v.RequiredRate.ptr(),
			RecommendedActions: actions,
		})
	}

	for _, r := range raw.Recommendations {
		analysis.Recommendations = append(analysis.Recommendations, models.Recommendation{
			Priority:        strings.ToLower(strings.TrimSpace(string(r.Priority))),
			Title:           sanitizeUTF8(string(r.Title)),
			AffectedWorkers: int(math.Max(0, r.AffectedWorkers.Value)),
			Implementation:  sanitizeUTF8(string(r.Implementation)),
		})
	}

	analysis.Summary = summarize(analysis.Violations, raw, reconciledTotal, rosterSize)
	return analysis
}

// analysisFromViolations wraps a detector result in a complete analysis.
func analysisFromViolations(violations []models.Violation, reconciledTotal, rosterSize int) *models.ComplianceAnalysis {
	return &models.ComplianceAnalysis{
		Summary:         summarize(violations, nil, reconciledTotal, rosterSize),
		Violations:      violations,
		Recommendations: []models.Recommendation{},
		Sources:         []models.Source{},
	}
}

func summarize(violations []models.Violation, raw *rawAnalysis, reconciledTotal, rosterSize int) models.AnalysisSummary {
	if raw == nil {
		raw = &rawAnalysis{}
	}
	s := raw.Summary

	total := rosterSize
	switch {
	case reconciledTotal > 0:
		total = reconciledTotal
	case s.TotalWorkers.Valid && s.TotalWorkers.Value > 0:
		total = int(s.TotalWorkers.Value)
	}

	critical := 0
	if s.CriticalIssues.Valid && s.CriticalIssues.Value >= 0 {
		critical = int(s.CriticalIssues.Value)
	} else {
		for _, v := range violations {
			if v.Severity == models.SeverityCritical || v.Severity == models.SeverityHigh {
				critical++
			}
		}
	}

	risk := math.Min(100, float64(critical)*10)
	if s.OverallRiskScore.Valid {
		risk = clampPercent(s.OverallRiskScore.Value)
	}

	rate := 100.0
	if total > 0 {
		rate = math.Max(0, 100-float64(len(violations))/float64(total)*100)
	}
	if s.ComplianceRate.Valid {
		rate = clampPercent(s.ComplianceRate.Value)
	}

	return models.AnalysisSummary{
		OverallRiskScore: risk,
		CriticalIssues:   critical,
		TotalWorkers:     total,
		ComplianceRate:   round2(rate),
	}
}

func normalizeSeverity(value string) models.Severity {
	switch sev := models.Severity(strings.ToLower(strings.TrimSpace(value))); sev {
	case models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow:
		return sev
	default:
		return models.SeverityMedium
	}
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// DiffViolations counts (workerId, violationType) keys found in only one of
// the two analyses.
func DiffViolations(rag, baseline []models.Violation) models.ViolationDiff {
	key := func(v models.Violation) string {
		return v.WorkerID + "|" + v.ViolationType
	}

	ragKeys := make(map[string]struct{}, len(rag))
	for _, v := range rag {
		ragKeys[key(v)] = struct{}{}
	}
	baseKeys := make(map[string]struct{}, len(baseline))
	for _, v := range baseline {
		baseKeys[key(v)] = struct{}{}
	}

	var diff models.ViolationDiff
	for k := range ragKeys {
		if _, ok := baseKeys[k]; !ok {
			diff.OnlyInRAG++
		}
	}
	for k := range baseKeys {
		if _, ok := ragKeys[k]; !ok {
			diff.OnlyInBaseline++
		}
	}
	return diff
}

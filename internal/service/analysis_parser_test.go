package service

import (
	"encoding/json"
	"testing"

	"compliance-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFirstJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"prose around", "Here you go:\n```json\n{\"a\":{\"b\":2}}\n```\nThanks", `{"a":{"b":2}}`, true},
		{"braces in strings", `{"s":"a } b { c","n":1} {"second":true}`, `{"s":"a } b { c","n":1}`, true},
		{"escaped quote", `{"s":"say \"}\" now"}`, `{"s":"say \"}\" now"}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"none", "no json", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractFirstJSONObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAnalysis_TolerantScalars(t *testing.T) {
	raw, err := parseAnalysis(`Result: {"summary":{"overallRiskScore":"45","criticalIssues":2,"totalWorkers":3,"complianceRate":"66.7%"},
		"violations":[{"workerId":"w1","violationType":"Minimum_Wage","severity":"HIGH","currentRate":"15.00","requiredRate":16}]}`)
	require.NoError(t, err)

	a := normalizeAnalysis(raw, 0, 5)
	assert.Equal(t, 45.0, a.Summary.OverallRiskScore)
	assert.Equal(t, 2, a.Summary.CriticalIssues)
	assert.Equal(t, 3, a.Summary.TotalWorkers)
	assert.Equal(t, 66.7, a.Summary.ComplianceRate)

	require.Len(t, a.Violations, 1)
	v := a.Violations[0]
	assert.Equal(t, "minimum_wage", v.ViolationType)
	assert.Equal(t, models.SeverityHigh, v.Severity)
	assert.Equal(t, 15.0, *v.CurrentRate)
	assert.Equal(t, 16.0, *v.RequiredRate)
	assert.NotNil(t, v.RecommendedActions)
}

func TestParseAnalysis_TolerantStrings(t *testing.T) {
	raw, err := parseAnalysis(`{"violations":[
		{"workerId":101,"workerName":null,"violationType":"overtime","severity":"low","recommendedActions":"Raise pay"},
		{"workerId":"w2","title":{"text":"odd"},"recommendedActions":["Audit hours",7,null," "]}
	],"recommendations":[{"priority":"HIGH","title":42,"affectedWorkers":"3"}]}`)
	require.NoError(t, err)

	a := normalizeAnalysis(raw, 2, 2)
	require.Len(t, a.Violations, 2)

	assert.Equal(t, "101", a.Violations[0].WorkerID)
	assert.Equal(t, "", a.Violations[0].WorkerName)
	assert.Equal(t, []string{"Raise pay"}, a.Violations[0].RecommendedActions)

	assert.Equal(t, "w2", a.Violations[1].WorkerID)
	assert.Equal(t, "", a.Violations[1].Title)
	assert.Equal(t, []string{"Audit hours", "7"}, a.Violations[1].RecommendedActions)

	require.Len(t, a.Recommendations, 1)
	assert.Equal(t, "high", a.Recommendations[0].Priority)
	assert.Equal(t, "42", a.Recommendations[0].Title)
	assert.Equal(t, 3, a.Recommendations[0].AffectedWorkers)
}

func TestFlexStrings(t *testing.T) {
	var f flexStrings
	require.NoError(t, json.Unmarshal([]byte(`true`), &f))
	assert.Equal(t, flexStrings{"true"}, f)

	f = nil
	require.NoError(t, json.Unmarshal([]byte(`{"a":1}`), &f))
	assert.Nil(t, f)
}

func TestParseAnalysis_Failure(t *testing.T) {
	_, err := parseAnalysis("I cannot help with that.")
	assert.ErrorIs(t, err, ErrParse)

	_, err = parseAnalysis(`{"violations": "nope"}`)
	assert.ErrorIs(t, err, ErrParse)
}

func TestNormalizeAnalysis_Fallbacks(t *testing.T) {
	raw, err := parseAnalysis(`{"violations":[
		{"workerId":"w1","violationType":"minimum_wage","severity":"critical"},
		{"workerId":"w2","violationType":"overtime","severity":"high"},
		{"workerId":"w3","violationType":"misclassification","severity":"low"},
		{"workerId":"w4","severity":"bogus"}
	]}`)
	require.NoError(t, err)

	a := normalizeAnalysis(raw, 0, 8)
	assert.Equal(t, 8, a.Summary.TotalWorkers, "roster size when nothing else is known")
	assert.Equal(t, 2, a.Summary.CriticalIssues, "critical and high severities")
	assert.Equal(t, 20.0, a.Summary.OverallRiskScore)
	assert.Equal(t, 50.0, a.Summary.ComplianceRate)
	assert.Equal(t, "other", a.Violations[3].ViolationType)
	assert.Equal(t, models.SeverityMedium, a.Violations[3].Severity)
}

func TestNormalizeAnalysis_ReconciledTotalWins(t *testing.T) {
	raw, err := parseAnalysis(`{"summary":{"totalWorkers":3}}`)
	require.NoError(t, err)

	a := normalizeAnalysis(raw, 250, 200)
	assert.Equal(t, 250, a.Summary.TotalWorkers)
}

func TestNormalizeAnalysis_ComplianceRateFloor(t *testing.T) {
	a := analysisFromViolations([]models.Violation{
		{WorkerID: "a", ViolationType: "x", Severity: models.SeverityLow},
		{WorkerID: "a", ViolationType: "y", Severity: models.SeverityLow},
		{WorkerID: "a", ViolationType: "z", Severity: models.SeverityLow},
	}, 2, 2)
	assert.Equal(t, 0.0, a.Summary.ComplianceRate)
	assert.Equal(t, 0, a.Summary.CriticalIssues)
}

func TestNormalizeAnalysis_NilIsComplete(t *testing.T) {
	a := normalizeAnalysis(nil, 4, 4)
	assert.NotNil(t, a.Violations)
	assert.NotNil(t, a.Recommendations)
	assert.NotNil(t, a.Sources)
	assert.Equal(t, 4, a.Summary.TotalWorkers)
	assert.Equal(t, 100.0, a.Summary.ComplianceRate)
	assert.Equal(t, 0.0, a.Summary.OverallRiskScore)
}

func TestDiffViolations(t *testing.T) {
	rag := []models.Violation{
		{WorkerID: "w1", ViolationType: "minimum_wage"},
		{WorkerID: "w1", ViolationType: "overtime"},
		{WorkerID: "w2", ViolationType: "minimum_wage"},
		{WorkerID: "w2", ViolationType: "minimum_wage"},
	}
	baseline := []models.Violation{
		{WorkerID: "w1", ViolationType: "minimum_wage"},
		{WorkerID: "w3", ViolationType: "minimum_wage"},
	}

	diff := DiffViolations(rag, baseline)
	assert.Equal(t, models.ViolationDiff{OnlyInRAG: 2, OnlyInBaseline: 1}, diff)
}

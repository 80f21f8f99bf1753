package models

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

const ViolationMinimumWage = "minimum_wage"

type AnalysisSummary struct {
	OverallRiskScore float64 `json:"overallRiskScore"`
	CriticalIssues   int     `json:"criticalIssues"`
	TotalWorkers     int     `json:"totalWorkers"`
	ComplianceRate   float64 `json:"complianceRate"`
}

type Violation struct {
	WorkerID           string   `json:"workerId"`
	WorkerName         string   `json:"workerName"`
	ViolationType      string   `json:"violationType"`
	Severity           Severity `json:"severity"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Jurisdiction       string   `json:"jurisdiction"`
	CurrentRate        *float64 `json:"currentRate,omitempty"`
	RequiredRate       *float64 `json:"requiredRate,omitempty"`
	RecommendedActions []string `json:"recommendedActions"`
}

type Recommendation struct {
	Priority        string `json:"priority"`
	Title           string `json:"title"`
	AffectedWorkers int    `json:"affectedWorkers"`
	Implementation  string `json:"implementation"`
}

// Source is a cited context chunk surfaced alongside an answer.
type Source struct {
	Index       int     `json:"index"`
	DocID       string  `json:"doc_id"`
	Title       string  `json:"title"`
	SectionPath string  `json:"section_path"`
	Similarity  float64 `json:"similarity"`
	Snippet     string  `json:"snippet"`
}

// ComplianceAnalysis is always structurally complete once normalised.
type ComplianceAnalysis struct {
	Summary         AnalysisSummary  `json:"summary"`
	Violations      []Violation      `json:"violations"`
	Recommendations []Recommendation `json:"recommendations"`
	Sources         []Source         `json:"sources"`
}

type ViolationDiff struct {
	OnlyInRAG      int `json:"only_in_rag"`
	OnlyInBaseline int `json:"only_in_baseline"`
}

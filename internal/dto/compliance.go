package dto

import "compliance-rag/internal/models"

type ComplianceReviewRequest struct {
	Workers      []models.WorkerRecord `json:"workers"`
	TotalWorkers int                   `json:"totalWorkers"`
	Ablation     bool                  `json:"ablation"`
	// DeelToken is used to fetch the roster when workers is empty.
	DeelToken string `json:"deelToken,omitempty"`
}

type ReviewMeta struct {
	EmployeesCount int `json:"employeesCount"`
	ContractsCount int `json:"contractsCount"`
}

type ComplianceReviewResponse struct {
	Success         bool                       `json:"success"`
	UsedRAG         bool                       `json:"usedRAG"`
	Analysis        *models.ComplianceAnalysis `json:"analysis"`
	Baseline        *models.ComplianceAnalysis `json:"baseline"`
	Diff            *models.ViolationDiff      `json:"diff"`
	WorkersAnalyzed int                        `json:"workersAnalyzed"`
	Meta            ReviewMeta                 `json:"meta"`
	Ablation        bool                       `json:"ablation"`
}

type ComplianceReportResponse struct {
	Success        bool                       `json:"success"`
	Analysis       *models.ComplianceAnalysis `json:"analysis"`
	RiskScore      float64                    `json:"riskScore"`
	CriticalIssues int                        `json:"criticalIssues"`
	TotalWorkers   int                        `json:"totalWorkers"`
	UsedRAG        bool                       `json:"usedRAG"`
	UpdatedAt      string                     `json:"updatedAt"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// ComplianceReport is the single current report per user; each run overwrites it.
type ComplianceReport struct {
	ID             uuid.UUID `db:"id"`
	UserID         uuid.UUID `db:"user_id"`
	Analysis       []byte    `db:"analysis"`
	RiskScore      float64   `db:"risk_score"`
	CriticalIssues int       `db:"critical_issues"`
	TotalWorkers   int       `db:"total_workers"`
	UsedRAG        bool      `db:"used_rag"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

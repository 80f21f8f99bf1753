package repository

import (
	"context"
	"errors"

	"compliance-rag/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ReportRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReportRepository(db *pgxpool.Pool, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes the user's current report. Concurrent runs for the same user
// are not coordinated: the last write wins.
func (r *ReportRepository) Upsert(ctx context.Context, report *models.ComplianceReport) error {
	query := squirrel.Insert("compliance_reports").
		Columns("id", "user_id", "analysis", "risk_score", "critical_issues", "total_workers", "used_rag", "created_at", "updated_at").
		Values(report.ID, report.UserID, report.Analysis, report.RiskScore, report.CriticalIssues, report.TotalWorkers, report.UsedRAG, report.CreatedAt, report.UpdatedAt).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			analysis = EXCLUDED.analysis,
			risk_score = EXCLUDED.risk_score,
			critical_issues = EXCLUDED.critical_issues,
			total_workers = EXCLUDED.total_workers,
			used_rag = EXCLUDED.used_rag,
			updated_at = EXCLUDED.updated_at`).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ReportRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ComplianceReport, error) {
	query := squirrel.Select("id", "user_id", "analysis", "risk_score", "critical_issues", "total_workers", "used_rag", "created_at", "updated_at").
		From("compliance_reports").
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var report models.ComplianceReport
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&report.ID, &report.UserID, &report.Analysis, &report.RiskScore, &report.CriticalIssues,
		&report.TotalWorkers, &report.UsedRAG, &report.CreatedAt, &report.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &report, nil
}

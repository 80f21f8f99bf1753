package handlers

import (
	"errors"
	"time"

	"compliance-rag/internal/deel"
	"compliance-rag/internal/dto"
	"compliance-rag/internal/repository"
	"compliance-rag/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const HeaderDeelToken = "X-Deel-Token"

type ComplianceHandler struct {
	complianceService *service.ComplianceService
	logger            *zap.Logger
}

func NewComplianceHandler(complianceService *service.ComplianceService, logger *zap.Logger) *ComplianceHandler {
	return &ComplianceHandler{
		complianceService: complianceService,
		logger:            logger,
	}
}

// Review godoc
// @Summary Run a compliance review
// @Description Retrieval-grounded wage and hour review of a worker roster, with optional baseline ablation
// @Tags compliance
// @Accept json
// @Produce json
// @Param request body dto.ComplianceReviewRequest true "Roster and options"
// @Param X-Deel-Token header string false "Deel API token used when no workers are supplied"
// @Security Bearer
// @Success 200 {object} dto.ComplianceReviewResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/v1/compliance/review [post]
func (h *ComplianceHandler) Review(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.ComplianceReviewRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}

	token := req.DeelToken
	if token == "" {
		token = c.Get(HeaderDeelToken)
	}

	result, err := h.complianceService.Review(c.UserContext(), service.ReviewRequest{
		UserID:       userID,
		Workers:      req.Workers,
		TotalWorkers: req.TotalWorkers,
		Ablation:     req.Ablation,
		DeelToken:    token,
	})
	if err != nil {
		status, message := reviewErrorStatus(err)
		h.logger.Error("Compliance review failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return errorResponse(c, status, message)
	}

	return c.JSON(dto.ComplianceReviewResponse{
		Success:         true,
		UsedRAG:         result.UsedRAG,
		Analysis:        result.Analysis,
		Baseline:        result.Baseline,
		Diff:            result.Diff,
		WorkersAnalyzed: result.WorkersAnalyzed,
		Meta: dto.ReviewMeta{
			EmployeesCount: result.EmployeesCount,
			ContractsCount: result.ContractsCount,
		},
		Ablation: result.Ablation,
	})
}

// Report godoc
// @Summary Get the latest compliance report
// @Tags compliance
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.ComplianceReportResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/compliance/report [get]
func (h *ComplianceHandler) Report(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	report, analysis, err := h.complianceService.LatestReport(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorResponse(c, fiber.StatusNotFound, "No compliance report yet")
		}
		h.logger.Error("Failed to load compliance report", zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load compliance report")
	}

	return c.JSON(dto.ComplianceReportResponse{
		Success:        true,
		Analysis:       analysis,
		RiskScore:      report.RiskScore,
		CriticalIssues: report.CriticalIssues,
		TotalWorkers:   report.TotalWorkers,
		UsedRAG:        report.UsedRAG,
		UpdatedAt:      report.UpdatedAt.Format(time.RFC3339),
	})
}

func reviewErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmptyRoster), errors.Is(err, service.ErrInvalidRoster):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, deel.ErrMissingToken):
		return fiber.StatusBadRequest, err.Error()
	case deel.IsUnauthorized(err):
		return fiber.StatusUnauthorized, "Deel API rejected the token"
	case errors.Is(err, service.ErrConfiguration):
		return fiber.StatusInternalServerError, "Service is not configured"
	case errors.Is(err, service.ErrEmbedding), errors.Is(err, service.ErrGeneration):
		return fiber.StatusBadGateway, err.Error()
	default:
		return fiber.StatusInternalServerError, "Compliance review failed"
	}
}

package handlers

import (
	"errors"

	"compliance-rag/internal/dto"
	"compliance-rag/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type QueryHandler struct {
	queryService *service.QueryService
	logger       *zap.Logger
}

func NewQueryHandler(queryService *service.QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
		logger:       logger,
	}
}

// Query godoc
// @Summary Ask a question over the compliance corpus
// @Tags rag
// @Accept json
// @Produce json
// @Param request body dto.RAGQueryRequest true "Question"
// @Security Bearer
// @Success 200 {object} dto.RAGQueryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/v1/rag/query [post]
func (h *QueryHandler) Query(c *fiber.Ctx) error {
	var req dto.RAGQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	result, err := h.queryService.Answer(c.UserContext(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyQuestion):
			return errorResponse(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEmbedding), errors.Is(err, service.ErrGeneration):
			h.logger.Error("RAG query failed", zap.Error(err))
			return errorResponse(c, fiber.StatusBadGateway, err.Error())
		default:
			h.logger.Error("RAG query failed", zap.Error(err))
			return errorResponse(c, fiber.StatusInternalServerError, "Query failed")
		}
	}

	return c.JSON(dto.RAGQueryResponse{
		Success:     true,
		Answer:      result.Answer,
		Sources:     result.Sources,
		UsedRAG:     result.UsedRAG,
		Regenerated: result.Regenerated,
	})
}

package dto

import "compliance-rag/internal/models"

type RAGQueryRequest struct {
	Question string `json:"question"`
}

type RAGQueryResponse struct {
	Success     bool            `json:"success"`
	Answer      string          `json:"answer"`
	Sources     []models.Source `json:"sources"`
	UsedRAG     bool            `json:"usedRAG"`
	Regenerated bool            `json:"regenerated"`
}

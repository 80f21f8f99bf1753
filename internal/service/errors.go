package service

import (
	"errors"

	"compliance-rag/pkg/config"
)

// Failure taxonomy of the analysis pipeline. Retrieval and parse failures are
// recovered inside the service; persistence failures are only logged.
var (
	ErrConfiguration = config.ErrConfiguration
	ErrEmbedding     = errors.New("embedding failed")
	ErrRetrieval     = errors.New("retrieval failed")
	ErrGeneration    = errors.New("generation failed")
	ErrParse         = errors.New("model output could not be parsed")
	ErrPersistence   = errors.New("report persistence failed")
	ErrEmptyRoster   = errors.New("no workers to analyze")
	ErrInvalidRoster = errors.New("invalid worker record")
	ErrEmptyQuestion = errors.New("question is required")
)

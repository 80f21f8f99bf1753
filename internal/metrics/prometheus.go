package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_analyses_total",
			Help: "Compliance analysis runs by outcome",
		},
		[]string{"status"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_rag_queries_total",
			Help: "Free-text RAG queries by outcome",
		},
		[]string{"status"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compliance_stage_duration_seconds",
			Help:    "Pipeline stage latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	RetrievalFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "compliance_retrieval_fallbacks_total",
			Help: "Similarity searches that fell back to the recency scan",
		},
	)

	RetrievedChunks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compliance_retrieved_chunks",
			Help:    "Chunks kept after context selection",
			Buckets: []float64{0, 1, 2, 4, 6, 8, 10, 12},
		},
	)

	OverCitationRegenerations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "compliance_over_citation_regenerations_total",
			Help: "Answers regenerated because of over-citation",
		},
	)

	ParseFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_parse_fallbacks_total",
			Help: "Model outputs that could not be parsed",
		},
		[]string{"path"},
	)

	PersistenceFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "compliance_persistence_failures_total",
			Help: "Report upserts that failed",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	RosterPagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_roster_pages_fetched_total",
			Help: "HR API pages fetched",
		},
		[]string{"collection"},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call twice.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			AnalysesTotal,
			QueriesTotal,
			StageDuration,
			RetrievalFallbacks,
			RetrievedChunks,
			OverCitationRegenerations,
			ParseFallbacks,
			PersistenceFailures,
			CacheHits,
			CacheMisses,
			RosterPagesFetched,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

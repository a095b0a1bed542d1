package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors shared by the pipelines. Register
// once in main; the default registry backs the /metrics route.
type Metrics struct {
	DocumentsIngested prometheus.Counter
	ChunksStored      prometheus.Counter
	Completions       prometheus.Counter
	CompletionSeconds prometheus.Histogram
	ProviderErrors    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		DocumentsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lileg_documents_ingested_total",
			Help: "Documents accepted by the ingestion pipeline.",
		}),
		ChunksStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lileg_chunks_stored_total",
			Help: "Chunks written to the vector store.",
		}),
		Completions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lileg_completions_total",
			Help: "Questions answered by the completion pipeline.",
		}),
		CompletionSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lileg_completion_duration_seconds",
			Help:    "End-to-end completion latency.",
			Buckets: prometheus.DefBuckets,
		}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lileg_provider_errors_total",
			Help: "Errors returned by chat and embedding providers.",
		}, []string{"provider"}),
	}
}

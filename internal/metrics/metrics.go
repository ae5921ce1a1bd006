// Package metrics wires Prometheus instrumentation for the ingestion
// pipeline (teacher go.mod declares client_golang but never uses it;
// this is that dependency put to work).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups the counters and histograms the ingestion components
// update. Constructed once at startup and threaded through by reference,
// the way the teacher threads its stats struct through StreamProcessor.
type Registry struct {
	SamplesIngested   *prometheus.CounterVec
	SamplesFailed     *prometheus.CounterVec
	ChunksFailed      *prometheus.CounterVec
	DuplicatesRemoved *prometheus.CounterVec
	AuthFailures      prometheus.Counter
	RateLimitRejects  prometheus.Counter
	BatchDuration     prometheus.Histogram
	RetryAttempts     prometheus.Counter
}

// New registers and returns a Registry against the given registerer.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		SamplesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_samples_processed_total",
			Help: "Samples successfully upserted, by metric kind.",
		}, []string{"kind"}),
		SamplesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_samples_failed_total",
			Help: "Samples rejected by validation or chunk failure, by metric kind.",
		}, []string{"kind"}),
		ChunksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_chunks_failed_total",
			Help: "Upsert chunks that failed terminally, by metric kind.",
		}, []string{"kind"}),
		DuplicatesRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_duplicates_removed_total",
			Help: "Samples collapsed by the intra-batch deduplicator, by metric kind.",
		}, []string{"kind"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_auth_failures_total",
			Help: "Bearer-token authentication failures.",
		}),
		RateLimitRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_rate_limit_rejects_total",
			Help: "Requests rejected by the per-key rate limiter.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingest_batch_duration_seconds",
			Help:    "BatchProcessor.ProcessBatch wall-clock duration.",
			Buckets: prometheus.DefBuckets,
		}),
		RetryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_chunk_retry_attempts_total",
			Help: "Chunk retry attempts issued by the backoff loop.",
		}),
	}

	reg.MustRegister(
		r.SamplesIngested, r.SamplesFailed, r.ChunksFailed, r.DuplicatesRemoved,
		r.AuthFailures, r.RateLimitRejects, r.BatchDuration, r.RetryAttempts,
	)

	return r
}

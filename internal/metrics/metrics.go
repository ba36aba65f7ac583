// Package metrics holds the Prometheus collectors for ingestion and question
// answering. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docsai"

// Stage labels for StageDuration.
const (
	StageExtract  = "extract"
	StageEmbed    = "embed"
	StageInsert   = "insert"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	cacheLookups     *prometheus.CounterVec // result: hit, miss, error
	cacheWriteErrors prometheus.Counter
	embeddingBatches prometheus.Counter
	embeddingRetries prometheus.Counter
	chunksIngested   prometheus.Counter
	documents        *prometheus.CounterVec // status: ok, empty, error
	questions        *prometheus.CounterVec // status: answered, failed
	stageDuration    *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Query cache lookups by result",
		}, []string{"result"}),

		cacheWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "write_errors_total",
			Help:      "Query cache writes that failed and were ignored",
		}),

		embeddingBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "batches_total",
			Help:      "Embedding batches that returned vectors",
		}),

		embeddingRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "retries_total",
			Help:      "Embedding batch attempts retried after a transient provider error",
		}),

		chunksIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Chunks written to the vector store",
		}),

		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Documents processed by ingestion status",
		}, []string{"status"}),

		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "questions_total",
			Help:      "Questions processed by status",
		}, []string{"status"}),

		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cacheLookups,
		m.cacheWriteErrors,
		m.embeddingBatches,
		m.embeddingRetries,
		m.chunksIngested,
		m.documents,
		m.questions,
		m.stageDuration,
	)

	return m
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CacheHit records a cache lookup that returned an entry.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

// CacheMiss records a cache lookup that found nothing.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// CacheError records a failed lookup, which is treated as a miss.
func (m *Metrics) CacheError() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("error").Inc()
}

// CacheWriteError records a failed cache write.
func (m *Metrics) CacheWriteError() {
	if m == nil {
		return
	}
	m.cacheWriteErrors.Inc()
}

// EmbeddingBatch records one successful provider batch.
func (m *Metrics) EmbeddingBatch() {
	if m == nil {
		return
	}
	m.embeddingBatches.Inc()
}

// EmbeddingRetry records one retried batch attempt.
func (m *Metrics) EmbeddingRetry() {
	if m == nil {
		return
	}
	m.embeddingRetries.Inc()
}

// DocumentIngested records a completed ingestion of n chunks.
func (m *Metrics) DocumentIngested(n int) {
	if m == nil {
		return
	}
	if n == 0 {
		m.documents.WithLabelValues("empty").Inc()
		return
	}
	m.documents.WithLabelValues("ok").Inc()
	m.chunksIngested.Add(float64(n))
}

// DocumentFailed records an ingestion that returned an error.
func (m *Metrics) DocumentFailed() {
	if m == nil {
		return
	}
	m.documents.WithLabelValues("error").Inc()
}

// QuestionAnswered records a question that produced an answer.
func (m *Metrics) QuestionAnswered() {
	if m == nil {
		return
	}
	m.questions.WithLabelValues("answered").Inc()
}

// QuestionFailed records a question that ended in an error.
func (m *Metrics) QuestionFailed() {
	if m == nil {
		return
	}
	m.questions.WithLabelValues("failed").Inc()
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Since is shorthand for ObserveStage(stage, time.Since(start)).
func (m *Metrics) Since(stage string, start time.Time) {
	m.ObserveStage(stage, time.Since(start))
}

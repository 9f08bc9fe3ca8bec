// Package metrics groups the Prometheus instruments exported by engram.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "engram"

// Metrics groups all Prometheus instruments used by the memory subsystem.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ChunksStored      *prometheus.CounterVec
	StoreFailures     prometheus.Counter
	StoreLatency      prometheus.Histogram
	RecallRequests    prometheus.Counter
	RecallFailures    prometheus.Counter
	RecallResults     prometheus.Histogram
	DedupDrops        prometheus.Counter
	TruncatedMessages prometheus.Counter
	TruncationStalls  prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the instruments on a fresh registry.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(namespace, reg, reg)
}

// NewWithRegistry registers the instruments on reg and serves them from g.
func NewWithRegistry(namespace string, reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)

	return &Metrics{
		ChunksStored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_stored_total",
			Help:      "Memory chunks written to the vector store by content type.",
		}, []string{"content_type"}),
		StoreFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Turns whose chunks could not be embedded or written.",
		}),
		StoreLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_latency_ms",
			Help:      "Time to chunk, embed and write one turn in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		RecallRequests: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recall_requests_total",
			Help:      "Recall requests with a non-blank query.",
		}),
		RecallFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recall_failures_total",
			Help:      "Recall requests that degraded to an empty result.",
		}),
		RecallResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recall_results",
			Help:      "Records returned per recall.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),
		DedupDrops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recall_dedup_drops_total",
			Help:      "Candidates dropped as near duplicates of an accepted record.",
		}),
		TruncatedMessages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_truncated_messages_total",
			Help:      "Messages removed from conversation history to fit the token budget.",
		}),
		TruncationStalls: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_truncation_stalls_total",
			Help:      "Truncations that could not reach the token budget.",
		}),
		gatherer: g,
	}
}

func (m *Metrics) ObserveStore(d time.Duration, prompts, responses int) {
	if m == nil {
		return
	}
	m.StoreLatency.Observe(float64(d.Milliseconds()))
	m.ChunksStored.WithLabelValues("prompt").Add(float64(prompts))
	m.ChunksStored.WithLabelValues("response").Add(float64(responses))
}

func (m *Metrics) IncStoreFailure() {
	if m == nil {
		return
	}
	m.StoreFailures.Inc()
}

func (m *Metrics) ObserveRecall(results, dedupDrops int) {
	if m == nil {
		return
	}
	m.RecallRequests.Inc()
	m.RecallResults.Observe(float64(results))
	m.DedupDrops.Add(float64(dedupDrops))
}

func (m *Metrics) IncRecallFailure() {
	if m == nil {
		return
	}
	m.RecallRequests.Inc()
	m.RecallFailures.Inc()
}

func (m *Metrics) ObserveTruncation(removed int, stalled bool) {
	if m == nil {
		return
	}
	m.TruncatedMessages.Add(float64(removed))
	if stalled {
		m.TruncationStalls.Inc()
	}
}

// Handler serves the registered instruments in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

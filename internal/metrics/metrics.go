// Package metrics provides Prometheus metrics for the ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EnrichTotal counts enrichment requests by outcome.
	EnrichTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memeboard",
			Name:      "enrich_total",
			Help:      "Total number of enrichment requests",
		},
		[]string{"outcome"},
	)

	// EnrichCoalesced counts callers that reused another caller's enrichment.
	EnrichCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "memeboard",
			Name:      "enrich_coalesced_total",
			Help:      "Enrichment calls served by an in-flight call for the same keyword",
		},
	)

	// ModelDuration measures summarization model latency.
	ModelDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memeboard",
			Name:      "model_call_duration_seconds",
			Help:      "Duration of summarization model calls in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"status"},
	)

	// ExtractorResults counts extractor outcomes by reason.
	ExtractorResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memeboard",
			Name:      "extractor_results_total",
			Help:      "Extractor outcomes by extractor and reason",
		},
		[]string{"extractor", "reason"},
	)

	// ImageProxyTotal counts image proxy responses by status code.
	ImageProxyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memeboard",
			Name:      "image_proxy_total",
			Help:      "Image proxy responses by status",
		},
		[]string{"status"},
	)

	// QueryFailures counts absorbed storage failures in the read path.
	QueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memeboard",
			Name:      "query_failures_total",
			Help:      "Storage failures absorbed by the ranking query service",
		},
		[]string{"query"},
	)

	// JobRuns counts scheduled job runs by job and result.
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memeboard",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and result",
		},
		[]string{"job", "result"},
	)
)

// RecordEnrich records an enrichment outcome.
func RecordEnrich(outcome string) {
	EnrichTotal.WithLabelValues(outcome).Inc()
}

// RecordModelCall records a model call.
func RecordModelCall(status string, seconds float64) {
	ModelDuration.WithLabelValues(status).Observe(seconds)
}

// RecordExtractor records an extractor outcome.
func RecordExtractor(extractor, reason string) {
	ExtractorResults.WithLabelValues(extractor, reason).Inc()
}

// RecordImageProxy records an image proxy response.
func RecordImageProxy(status string) {
	ImageProxyTotal.WithLabelValues(status).Inc()
}

// RecordQueryFailure records an absorbed query failure.
func RecordQueryFailure(query string) {
	QueryFailures.WithLabelValues(query).Inc()
}

// RecordJob records a job run.
func RecordJob(job, result string) {
	JobRuns.WithLabelValues(job, result).Inc()
}

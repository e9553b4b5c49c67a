package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics of the evaluation service.
type Metrics struct {
	// Submission pipeline metrics
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests prometheus.Counter
	TranscriptionRetries  prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram

	// LLM provider metrics
	LLMRequests *prometheus.CounterVec
	LLMDuration *prometheus.HistogramVec

	// HTTP API metrics
	HTTPRequests *prometheus.CounterVec
}

// New creates and registers all metrics on the given registerer. Tests
// pass a private registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EvaluationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smartnlp_evaluations_total",
			Help: "Total number of evaluation submissions by terminal outcome",
		}, []string{"outcome"}),
		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartnlp_evaluation_duration_seconds",
			Help:    "End-to-end duration of evaluation submissions",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		TranscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "smartnlp_transcription_requests_total",
			Help: "Total number of transcription attempts sent to the speech service",
		}),
		TranscriptionRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "smartnlp_transcription_retries_total",
			Help: "Total number of transcription attempt retries",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "smartnlp_transcription_failures_total",
			Help: "Total number of transcriptions that failed after all retries",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartnlp_transcription_duration_seconds",
			Help:    "Duration of individual transcription attempts",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		LLMRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smartnlp_llm_requests_total",
			Help: "Total number of LLM provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		LLMDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smartnlp_llm_request_duration_seconds",
			Help:    "Duration of LLM provider calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"provider"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smartnlp_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

// RecordEvaluation records a finished submission with its outcome.
func (m *Metrics) RecordEvaluation(outcome string, durationSeconds float64) {
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()
	m.EvaluationDuration.Observe(durationSeconds)
}

// RecordTranscriptionAttempt records one attempt against the speech
// service; retry marks attempts after the first.
func (m *Metrics) RecordTranscriptionAttempt(retry bool, durationSeconds float64) {
	m.TranscriptionRequests.Inc()
	if retry {
		m.TranscriptionRetries.Inc()
	}
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a transcription that exhausted
// its retries.
func (m *Metrics) RecordTranscriptionFailure() {
	m.TranscriptionFailures.Inc()
}

// RecordLLMRequest records a provider call.
func (m *Metrics) RecordLLMRequest(provider, outcome string, durationSeconds float64) {
	m.LLMRequests.WithLabelValues(provider, outcome).Inc()
	m.LLMDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string) {
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
}

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the assessment gateway.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AssessmentTotal      *prometheus.CounterVec
	StreamDurationMs     *prometheus.HistogramVec
	StreamFragmentsTotal prometheus.Counter
	TokensTotal          *prometheus.CounterVec
	QuotaDecisionTotal   *prometheus.CounterVec
	QuotaBackendErrors   *prometheus.CounterVec
	FilterActionTotal    *prometheus.CounterVec
	UpstreamErrorsTotal  *prometheus.CounterVec
}

// NewMetrics creates the gateway metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AssessmentTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_requests_total",
			Help: "Assessment requests by final outcome and response locale.",
		}, []string{"outcome", "locale"}),

		StreamDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessment_stream_duration_ms",
			Help:    "Time from upstream call to terminal SSE event in milliseconds.",
			Buckets: []float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
		}, []string{"outcome"}),

		StreamFragmentsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "assessment_stream_fragments_total",
			Help: "Content fragments relayed to clients.",
		}),

		TokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_tokens_total",
			Help: "Estimated tokens sent to and received from the upstream model.",
		}, []string{"model", "direction"}),

		QuotaDecisionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_quota_decisions_total",
			Help: "Daily quota decisions.",
		}, []string{"decision"}),

		QuotaBackendErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_quota_backend_errors_total",
			Help: "Quota store failures that were admitted without counting.",
		}, []string{"backend"}),

		FilterActionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_filter_action_total",
			Help: "Total filter actions taken on project descriptions.",
		}, []string{"filter", "action"}),

		UpstreamErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_upstream_errors_total",
			Help: "Upstream failures by kind.",
		}, []string{"kind"}),
	}
}

// AssessmentLabels holds the values recorded once a stream has ended.
type AssessmentLabels struct {
	Outcome          string
	Locale           string
	Model            string
	DurationMs       float64
	Fragments        int
	PromptTokens     int
	CompletionTokens int
}

// RecordAssessment records metrics for a finished (or rejected) assessment.
func (m *Metrics) RecordAssessment(labels AssessmentLabels) {
	if m == nil {
		return
	}
	m.AssessmentTotal.WithLabelValues(labels.Outcome, labels.Locale).Inc()

	if labels.DurationMs > 0 {
		m.StreamDurationMs.WithLabelValues(labels.Outcome).Observe(labels.DurationMs)
	}
	if labels.Fragments > 0 {
		m.StreamFragmentsTotal.Add(float64(labels.Fragments))
	}
	if labels.PromptTokens > 0 {
		m.TokensTotal.WithLabelValues(labels.Model, "prompt").Add(float64(labels.PromptTokens))
	}
	if labels.CompletionTokens > 0 {
		m.TokensTotal.WithLabelValues(labels.Model, "completion").Add(float64(labels.CompletionTokens))
	}
}

// RecordQuotaDecision counts an admit or reject decision.
func (m *Metrics) RecordQuotaDecision(allowed bool) {
	if m == nil {
		return
	}
	decision := "rejected"
	if allowed {
		decision = "admitted"
	}
	m.QuotaDecisionTotal.WithLabelValues(decision).Inc()
}

// RecordQuotaBackendError counts a store failure that was failed open.
func (m *Metrics) RecordQuotaBackendError(backend string) {
	if m == nil {
		return
	}
	m.QuotaBackendErrors.WithLabelValues(backend).Inc()
}

// RecordFilterAction records a filter action metric.
func (m *Metrics) RecordFilterAction(filter, action string) {
	if m == nil {
		return
	}
	m.FilterActionTotal.WithLabelValues(filter, action).Inc()
}

// RecordUpstreamError counts an upstream failure.
func (m *Metrics) RecordUpstreamError(kind string) {
	if m == nil {
		return
	}
	m.UpstreamErrorsTotal.WithLabelValues(kind).Inc()
}

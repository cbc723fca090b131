package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the grading pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Generation backend call latency by provider and outcome
	BackendLatency *prometheus.HistogramVec

	// Evaluator attempts by competency and outcome
	EvaluationAttempts *prometheus.CounterVec

	// Scores coerced into a legal value
	ClampCorrections *prometheus.CounterVec

	// Finished runs by outcome
	RunOutcome *prometheus.CounterVec

	// Overall run latency
	RunLatency prometheus.Histogram

	// Report cache lookups
	CacheLookups *prometheus.CounterVec
}

// New creates the grading metrics and registers them on reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BackendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_backend_call_seconds",
			Help:    "Duration of generation backend calls",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"provider", "outcome"}), // outcome: "ok", "error", "timeout"

		EvaluationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_evaluation_attempts_total",
			Help: "Evaluator attempts by competency and outcome",
		}, []string{"competency", "outcome"}), // outcome: "ok", "parse_error", "timeout", "backend_error"

		ClampCorrections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_clamp_corrections_total",
			Help: "Competency scores coerced into the legal range or step",
		}, []string{"competency"}),

		RunOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_runs_total",
			Help: "Finished scoring runs by outcome",
		}, []string{"outcome"}), // outcome: "reported", "input", "grounding", "scoring", "internal"

		RunLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "grading_run_duration_seconds",
			Help:    "Duration of a full scoring run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_report_cache_lookups_total",
			Help: "Report cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error"
	}
}

// ObserveBackendCall records the duration of one generation call.
func (m *Metrics) ObserveBackendCall(provider, outcome string, d time.Duration) {
	if m != nil {
		m.BackendLatency.WithLabelValues(provider, outcome).Observe(d.Seconds())
	}
}

// IncrementAttempt records one evaluator attempt.
func (m *Metrics) IncrementAttempt(competency, outcome string) {
	if m != nil {
		m.EvaluationAttempts.WithLabelValues(competency, outcome).Inc()
	}
}

func (m *Metrics) IncrementClamp(competency string) {
	if m != nil {
		m.ClampCorrections.WithLabelValues(competency).Inc()
	}
}

// ObserveRun records the outcome and duration of a run.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m != nil {
		m.RunOutcome.WithLabelValues(outcome).Inc()
		m.RunLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

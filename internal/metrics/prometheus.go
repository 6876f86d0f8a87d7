package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/interview-coach/internal/types"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	turnsTotal         *prometheus.CounterVec
	turnDuration       *prometheus.HistogramVec
	transitionsTotal   *prometheus.CounterVec
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	promptTokens       *prometheus.HistogramVec
	conflictsTotal     prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewPrometheusRecorder registers the interview metrics on reg. A nil reg uses a fresh registry.
func NewPrometheusRecorder(reg *prometheus.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_turns_total",
				Help: "Total number of conversation turns by final stage and status",
			},
			[]string{"stage", "status"},
		),
		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interview_turn_duration_seconds",
				Help:    "Duration of conversation turns in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_stage_transitions_total",
				Help: "Total number of stage transitions",
			},
			[]string{"from", "to", "reason"},
		),
		generationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_generations_total",
				Help: "Total number of structured generation calls by stage and status",
			},
			[]string{"stage", "status"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interview_generation_duration_seconds",
				Help:    "Duration of structured generation calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		promptTokens: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interview_prompt_tokens",
				Help:    "Estimated prompt size in tokens",
				Buckets: prometheus.ExponentialBuckets(128, 2, 8),
			},
			[]string{"stage"},
		),
		conflictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_persistence_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts on save",
		}),
		gatherer: reg,
	}
}

// ObserveTurn implements Recorder.
func (p *PrometheusRecorder) ObserveTurn(stage types.Stage, status string, duration time.Duration) {
	p.turnsTotal.WithLabelValues(string(stage), status).Inc()
	p.turnDuration.WithLabelValues(string(stage)).Observe(duration.Seconds())
}

// ObserveTransition implements Recorder.
func (p *PrometheusRecorder) ObserveTransition(from, to types.Stage, reason string) {
	p.transitionsTotal.WithLabelValues(string(from), string(to), reason).Inc()
}

// ObserveGeneration implements Recorder.
func (p *PrometheusRecorder) ObserveGeneration(stage types.Stage, promptTokens int, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	p.generationsTotal.WithLabelValues(string(stage), status).Inc()
	p.generationDuration.WithLabelValues(string(stage)).Observe(duration.Seconds())
	p.promptTokens.WithLabelValues(string(stage)).Observe(float64(promptTokens))
}

// IncConflict implements Recorder.
func (p *PrometheusRecorder) IncConflict() {
	p.conflictsTotal.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Package metrics exposes Prometheus collectors for enrichment runs.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Metrics holds the enrichment collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	StageTotal    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	RunsTotal     *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
}

// New registers collectors on reg. A nil reg creates unregistered collectors,
// which keeps tests free of duplicate-registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StageTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enricher_stage_total",
			Help: "Stage executions by outcome (success, degraded, failed)",
		}, []string{"stage", "outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enricher_stage_duration_seconds",
			Help:    "Time spent in a single stage",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		}, []string{"stage"}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enricher_runs_total",
			Help: "Completed enrichment runs by final status",
		}, []string{"status"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "enricher_queue_enqueued",
			Help: "Content ids enqueued since start minus ids dequeued",
		}),
	}
}

const backlogTimeout = 2 * time.Second

// RegisterQueueBacklog exposes the number of ids waiting in the trigger queue,
// read from the queue itself on every scrape. A failed read reports -1.
func RegisterQueueBacklog(reg prometheus.Registerer, length func(ctx context.Context) (int64, error)) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "enricher_queue_backlog",
		Help: "Content ids currently waiting in the trigger queue",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), backlogTimeout)
		defer cancel()
		n, err := length(ctx)
		if err != nil {
			return -1
		}
		return float64(n)
	})
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(stage, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StageTotal.WithLabelValues(stage, outcome).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// Enqueued and Dequeued track the trigger queue.
func (m *Metrics) Enqueued() {
	if m == nil {
		return
	}
	m.QueueDepth.Inc()
}

func (m *Metrics) Dequeued() {
	if m == nil {
		return
	}
	m.QueueDepth.Dec()
}

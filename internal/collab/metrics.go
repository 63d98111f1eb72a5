package collab

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors updated by sessions and the manager.
type Metrics struct {
	Steps          *prometheus.CounterVec
	Operations     prometheus.Counter
	Conflicts      prometheus.Counter
	Failures       *prometheus.CounterVec
	Snapshots      prometheus.Counter
	ActiveSessions prometheus.Gauge
	StepDuration   *prometheus.HistogramVec
}

// NewMetrics registers the collaboration metrics with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Steps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docpatch_history_steps_total",
			Help: "History steps committed, by action",
		}, []string{"action"}),
		Operations: f.NewCounter(prometheus.CounterOpts{
			Name: "docpatch_operations_applied_total",
			Help: "Elementary operations applied to documents",
		}),
		Conflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "docpatch_version_conflicts_total",
			Help: "Patches rejected because their base version was stale",
		}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docpatch_history_failures_total",
			Help: "History steps that failed, by action",
		}, []string{"action"}),
		Snapshots: f.NewCounter(prometheus.CounterOpts{
			Name: "docpatch_snapshots_total",
			Help: "Snapshots written to storage",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "docpatch_active_sessions",
			Help: "Documents currently loaded in memory",
		}),
		StepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docpatch_step_duration_seconds",
			Help:    "Duration of history steps including persistence",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"action"}),
	}
}

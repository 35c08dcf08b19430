// Package metrics exposes the Prometheus counters/histograms SPEC_FULL.md
// §14 names, labelled by run ID so concurrent pipeline runs in the same
// process don't clobber each other's series. Grounded on the teacher's
// pkg/agent/middleware/metrics/prometheus.go PrometheusRecorder, collapsed
// from its per-request LLM-call metric set to the per-stage pipeline
// metrics this domain needs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder wraps the process-wide Prometheus collectors the pipeline
// driver reports against. Unlike the teacher's PrometheusRecorder, a
// Recorder has no constructor-time state beyond the collectors themselves
// — there is exactly one of these per process, registered once via
// promauto against the default registry.
type Recorder struct {
	stageDuration   *prometheus.HistogramVec
	stageCost       *prometheus.HistogramVec
	repairAttempts  *prometheus.CounterVec
	pipelineResults *prometheus.CounterVec
}

// New registers and returns the pipeline's metric collectors against the
// default Prometheus registry. Call once per process (cmd/noctua's main
// does this); the pipeline driver receives the *Recorder by value through
// its Options rather than reaching for a package-level singleton, per
// spec.md §9's "no module-level mutability in the core."
func New() *Recorder {
	return &Recorder{
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "noctua_stage_duration_seconds",
				Help:    "Duration of one pipeline stage invocation, in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"run_id", "stage"},
		),
		stageCost: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "noctua_stage_cost_usd",
				Help:    "USD cost of one pipeline stage invocation",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
			},
			[]string{"run_id", "stage"},
		),
		repairAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noctua_repair_attempts_total",
				Help: "Total number of REPAIR stage attempts",
			},
			[]string{"run_id"},
		),
		pipelineResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noctua_pipeline_result_total",
				Help: "Total number of pipeline runs by terminal outcome",
			},
			[]string{"result"},
		),
	}
}

// ObserveStage records one stage's wall-clock duration and USD cost.
func (r *Recorder) ObserveStage(runID, stage string, duration time.Duration, costUSD float64) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(runID, stage).Observe(duration.Seconds())
	r.stageCost.WithLabelValues(runID, stage).Observe(costUSD)
}

// IncRepairAttempt records one REPAIR stage attempt for runID.
func (r *Recorder) IncRepairAttempt(runID string) {
	if r == nil {
		return
	}
	r.repairAttempts.WithLabelValues(runID).Inc()
}

// IncResult records one pipeline run's terminal outcome ("done" or "failed").
func (r *Recorder) IncResult(result string) {
	if r == nil {
		return
	}
	r.pipelineResults.WithLabelValues(result).Inc()
}

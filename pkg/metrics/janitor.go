package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JanitorMetrics records housekeeping job runs.
type JanitorMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	purged   *prometheus.CounterVec
}

// NewJanitorMetrics registers the janitor metrics on the provided registerer.
func NewJanitorMetrics(reg prometheus.Registerer) *JanitorMetrics {
	if reg == nil {
		return &JanitorMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "janitor_job_runs_total",
		Help: "Janitor job executions by job and result.",
	}, []string{"job", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "janitor_job_duration_seconds",
		Help:    "Duration of janitor jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	purged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "janitor_rows_purged_total",
		Help: "Rows removed by janitor jobs.",
	}, []string{"job"})
	reg.MustRegister(runs, duration, purged)
	return &JanitorMetrics{runs: runs, duration: duration, purged: purged}
}

// ObserveRun records one job execution.
func (j *JanitorMetrics) ObserveRun(job string, err error, elapsed time.Duration) {
	if j == nil || j.runs == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	j.runs.WithLabelValues(normalizeLabel(job), result).Inc()
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(elapsed.Seconds())
}

// AddPurged counts rows a job deleted.
func (j *JanitorMetrics) AddPurged(job string, rows int64) {
	if j == nil || j.purged == nil || rows <= 0 {
		return
	}
	j.purged.WithLabelValues(normalizeLabel(job)).Add(float64(rows))
}

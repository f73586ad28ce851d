package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SyncResultSuccess = "success"
	SyncResultFailure = "failure"
	SyncResultDropped = "dropped"
)

// SyncMetrics records cart mirror pushes.
type SyncMetrics struct {
	results  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewSyncMetrics registers the mirror sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_total",
		Help: "Cart mirror pushes by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_sync_duration_seconds",
		Help:    "Duration of cart mirror pushes in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(results, duration)
	return &SyncMetrics{results: results, duration: duration}
}

// Observe records one push attempt.
func (s *SyncMetrics) Observe(result string, elapsed time.Duration) {
	if s == nil || s.results == nil {
		return
	}
	s.results.WithLabelValues(normalizeLabel(result)).Inc()
	if result != SyncResultDropped {
		s.duration.Observe(elapsed.Seconds())
	}
}

// IncDropped counts a snapshot dropped because the queue was full.
func (s *SyncMetrics) IncDropped() {
	s.Observe(SyncResultDropped, 0)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics counts cart engine activity.
type CartMetrics struct {
	mutations        *prometheus.CounterVec
	clamped          *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Committed cart mutations by operation.",
	}, []string{"op"})
	clamped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_clamped_total",
		Help: "Cart mutations whose quantity was clamped to stock or MOQ.",
	}, []string{"op"})
	validationErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_validation_errors_total",
		Help: "Cart validation errors reported at checkout gating, by type.",
	}, []string{"type"})
	reg.MustRegister(mutations, clamped, validationErrors)
	return &CartMetrics{
		mutations:        mutations,
		clamped:          clamped,
		validationErrors: validationErrors,
	}
}

// IncMutation counts one committed mutation.
func (c *CartMetrics) IncMutation(op string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncClamped counts one clamped mutation.
func (c *CartMetrics) IncClamped(op string) {
	if c == nil || c.clamped == nil {
		return
	}
	c.clamped.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncValidationError counts one validation error of the given type.
func (c *CartMetrics) IncValidationError(kind string) {
	if c == nil || c.validationErrors == nil {
		return
	}
	c.validationErrors.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

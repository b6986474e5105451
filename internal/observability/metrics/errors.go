package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ErrorMetrics counts built errors by component and category.
type ErrorMetrics struct {
	errorsTotal *prometheus.CounterVec
}

// NewErrorMetrics creates and registers error metrics.
func NewErrorMetrics(registry prometheus.Registerer) (*ErrorMetrics, error) {
	m := &ErrorMetrics{
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors by component and category",
		}, []string{"component", "category"}),
	}
	if err := registry.Register(m.errorsTotal); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordError counts one error.
func (m *ErrorMetrics) RecordError(component, category string) {
	m.errorsTotal.WithLabelValues(component, category).Inc()
}

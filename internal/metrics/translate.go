package metrics

import "github.com/prometheus/client_golang/prometheus"

// TranslateMetrics tracks calls to the external translation service.
type TranslateMetrics struct {
	Requests     *prometheus.CounterVec
	BreakerState prometheus.Gauge
}

// NewTranslateMetrics creates and registers translation metrics.
func NewTranslateMetrics(reg prometheus.Registerer) *TranslateMetrics {
	m := &TranslateMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "translate",
			Name:      "requests_total",
			Help:      "Total number of translation requests, by outcome.",
		}, []string{"outcome"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "translate",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
	}

	reg.MustRegister(m.Requests, m.BreakerState)
	return m
}

// ObserveTranslation counts one call by outcome ("ok", "error", "rejected").
func (m *TranslateMetrics) ObserveTranslation(outcome string) {
	m.Requests.WithLabelValues(outcome).Inc()
}

// SetBreakerState mirrors gobreaker's numeric state.
func (m *TranslateMetrics) SetBreakerState(state int) {
	m.BreakerState.Set(float64(state))
}

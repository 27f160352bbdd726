package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ScorerMetrics records model predictions. It satisfies sentiment.Recorder.
type ScorerMetrics struct {
	Predictions *prometheus.CounterVec
	Inference   prometheus.Histogram
	CacheHits   prometheus.Counter
	Errors      prometheus.Counter
}

// NewScorerMetrics creates and registers scorer metrics on the given registry.
func NewScorerMetrics(reg prometheus.Registerer) *ScorerMetrics {
	m := &ScorerMetrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of scored texts, by predicted label.",
		}, []string{"label"}),
		Inference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_seconds",
			Help:      "Time spent producing a prediction, cache hits included.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of logit cache hits.",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of failed predictions.",
		}),
	}

	reg.MustRegister(m.Predictions, m.Inference, m.CacheHits, m.Errors)
	return m
}

func (m *ScorerMetrics) ObservePrediction(label string, elapsed time.Duration) {
	m.Predictions.WithLabelValues(label).Inc()
	m.Inference.Observe(elapsed.Seconds())
}

func (m *ScorerMetrics) ObserveCacheHit() {
	m.CacheHits.Inc()
}

func (m *ScorerMetrics) ObserveError() {
	m.Errors.Inc()
}

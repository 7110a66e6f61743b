package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records search outcomes. A nil *Metrics records nothing.
type Metrics struct {
	queries  *prometheus.CounterVec
	results  prometheus.Histogram
	duration prometheus.Histogram
}

// NewMetrics builds unregistered collectors; register them via Collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "websearch_queries_total",
				Help: "Total web searches by outcome",
			},
			[]string{"outcome"},
		),
		results: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "websearch_results_returned",
			Help:    "Number of results returned by successful searches",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "websearch_request_duration_seconds",
			Help:    "Search latency including parsing",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Collectors returns the collectors to register.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.queries, m.results, m.duration}
}

func (m *Metrics) observe(err error, n int, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
	if err == nil {
		m.queries.WithLabelValues("success").Inc()
		m.results.Observe(float64(n))
		return
	}
	outcome := "error"
	if k, ok := KindOf(err); ok {
		outcome = k.String()
	}
	m.queries.WithLabelValues(outcome).Inc()
}

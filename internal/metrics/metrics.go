package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes used as label values.
const (
	OutcomeOK          = "ok"
	OutcomeCached      = "cached"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	GenerationRequests *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	RateLimitRejects   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		GenerationRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusflow_generation_requests_total",
				Help: "Background generation requests by outcome.",
			},
			[]string{"outcome"},
		),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "focusflow_generation_duration_seconds",
			Help:    "Time spent waiting for the image API.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60},
		}),
		RateLimitRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focusflow_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.GenerationRequests,
		m.GenerationDuration,
		m.RateLimitRejects,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Outcome counts one generation request. Safe on a nil receiver.
func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.GenerationRequests.WithLabelValues(outcome).Inc()
	if outcome == OutcomeRateLimited {
		m.RateLimitRejects.Inc()
	}
}

// ObserveGeneration records how long an image API call took. Safe on a nil receiver.
func (m *Metrics) ObserveGeneration(seconds float64) {
	if m == nil {
		return
	}
	m.GenerationDuration.Observe(seconds)
}

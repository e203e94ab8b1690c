package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the proxy's Prometheus collectors.
type Metrics struct {
	Requests    *prometheus.CounterVec
	RateLimited prometheus.Counter
	LLMLatency  prometheus.Histogram
	LLMFailures prometheus.Counter
}

// NewMetrics registers the proxy collectors on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pausewise",
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Generate requests by response source.",
		}, []string{"source"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pausewise",
			Subsystem: "proxy",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		LLMLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pausewise",
			Subsystem: "proxy",
			Name:      "llm_latency_seconds",
			Help:      "Upstream LLM call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8),
		}),
		LLMFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pausewise",
			Subsystem: "proxy",
			Name:      "llm_failures_total",
			Help:      "Upstream LLM calls that failed or returned unusable output.",
		}),
	}
	reg.MustRegister(m.Requests, m.RateLimited, m.LLMLatency, m.LLMFailures)
	return m
}

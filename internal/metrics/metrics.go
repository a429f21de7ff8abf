// Package metrics exposes Prometheus collectors for the auditor service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	auditsTotal          *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec
	aiFailoversTotal     *prometheus.CounterVec
	rateLimitDenials     *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		auditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_audits_total",
				Help: "Total audits processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditor_fetch_duration_seconds",
				Help:    "Histogram of target fetch latencies, labeled by kind.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		)
		aiFailoversTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_ai_failovers_total",
				Help: "Provider failures that advanced the AI fallback chain.",
			},
			[]string{"provider"},
		)
		rateLimitDenials = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_ratelimit_denials_total",
				Help: "Requests denied by the fixed-window limiter, by endpoint.",
			},
			[]string{"endpoint"},
		)
	})
}

// ObserveAudit records one finished audit submission.
func ObserveAudit(outcome string) {
	if auditsTotal != nil {
		auditsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveFetch records one fetch latency. kind is "page", "link", or "pagespeed".
func ObserveFetch(kind string, d time.Duration) {
	if fetchDurationSeconds != nil {
		fetchDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// ObserveAIFailover records one provider advancing the chain.
func ObserveAIFailover(provider string) {
	if aiFailoversTotal != nil {
		aiFailoversTotal.WithLabelValues(provider).Inc()
	}
}

// ObserveRateLimitDenial records one denied request.
func ObserveRateLimitDenial(endpoint string) {
	if rateLimitDenials != nil {
		rateLimitDenials.WithLabelValues(endpoint).Inc()
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package monitor owns the process metrics registry. Counters live here so
// service packages can bump them without knowing about the HTTP exposition.
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	AllocationCommits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "atelier_allocation_commits_total",
		Help: "Number of team-to-project assignments committed",
	})

	RecommenderCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_recommender_calls_total",
		Help: "Recommendation service calls by outcome",
	}, []string{"outcome"})

	ForecastFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "atelier_forecast_fallbacks_total",
		Help: "Completion predictions answered with the fallback message",
	})

	LoginFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "atelier_login_failures_total",
		Help: "Failed login attempts",
	})

	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_notifications_sent_total",
		Help: "Notifications delivered by channel",
	}, []string{"channel"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		AllocationCommits,
		RecommenderCalls,
		ForecastFallbacks,
		LoginFailures,
		NotificationsSent,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Package metrics exposes Prometheus counters for the retrieval pipeline.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache event labels.
const (
	CacheHit         = "hit"
	CacheRefreshed   = "refreshed"
	CacheStale       = "stale"
	CacheColdFailure = "cold_failure"
)

// Metrics owns a private registry so tests and multiple servers never collide.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry           *prom.Registry
	cacheEvents        *prom.CounterVec
	groundingTiers     *prom.CounterVec
	completionDuration *prom.HistogramVec
	chatRequests       *prom.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prom.NewRegistry()

	m := &Metrics{
		registry: registry,
		cacheEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "supportbot",
			Name:      "knowledge_cache_events_total",
			Help:      "Knowledge cache lookups by outcome.",
		}, []string{"result"}),
		groundingTiers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "supportbot",
			Name:      "grounding_tier_total",
			Help:      "Answers by the grounding tier used to build the prompt.",
		}, []string{"tier"}),
		completionDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "supportbot",
			Name:      "completion_duration_seconds",
			Help:      "Completion provider latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 12, 20},
		}, []string{"outcome"}),
		chatRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "supportbot",
			Name:      "chat_requests_total",
			Help:      "Chat requests by HTTP status code.",
		}, []string{"status"}),
	}

	registry.MustRegister(m.cacheEvents, m.groundingTiers, m.completionDuration, m.chatRequests)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prom.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) CacheEvent(result string) {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues(result).Inc()
}

func (m *Metrics) GroundingTier(tier string) {
	if m == nil {
		return
	}
	m.groundingTiers.WithLabelValues(tier).Inc()
}

func (m *Metrics) CompletionObserved(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.completionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) ChatRequest(status string) {
	if m == nil {
		return
	}
	m.chatRequests.WithLabelValues(status).Inc()
}

// Package metrics exposes Prometheus instrumentation for admission decisions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/serroba/admit/internal/ratelimit"
)

const (
	resultAllowed = "allowed"
	resultBlocked = "blocked"
)

// Collector holds the admission metrics registered on one registry.
type Collector struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewCollector registers admission metrics on a fresh registry together with
// the Go runtime and process collectors.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admit_decisions_total",
				Help: "Total number of admission decisions by strategy and result",
			},
			[]string{"strategy", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "admit_decision_duration_seconds",
				Help:    "Time spent deciding one admission",
				Buckets: prometheus.ExponentialBuckets(0.0000001, 2, 16), // 100ns to ~3ms
			},
			[]string{"strategy"},
		),
	}
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordDecision records one admission decision and how long it took.
func (c *Collector) RecordDecision(strategy ratelimit.Strategy, allowed bool, elapsed time.Duration) {
	result := resultAllowed
	if !allowed {
		result = resultBlocked
	}

	c.decisions.WithLabelValues(string(strategy), result).Inc()
	c.duration.WithLabelValues(string(strategy)).Observe(elapsed.Seconds())
}

// Instrumented decorates a limiter with decision metrics. Keys are never
// used as labels.
type Instrumented[K comparable] struct {
	next      ratelimit.Limiter[K]
	strategy  ratelimit.Strategy
	collector *Collector
}

// Instrument wraps next so every decision is recorded on c.
func Instrument[K comparable](next ratelimit.Limiter[K], strategy ratelimit.Strategy, c *Collector) *Instrumented[K] {
	return &Instrumented[K]{
		next:      next,
		strategy:  strategy,
		collector: c,
	}
}

func (i *Instrumented[K]) Allow(key K, now time.Time) bool {
	start := time.Now()
	allowed := i.next.Allow(key, now)
	i.collector.RecordDecision(i.strategy, allowed, time.Since(start))

	return allowed
}

// Compile-time check.
var _ ratelimit.Limiter[string] = (*Instrumented[string])(nil)

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Compose outcomes
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeDegraded = "degraded"
)

// Invalidation reasons
const (
	ReasonMessage    = "message_inserted"
	ReasonConnection = "connection_changed"
	ReasonMemory     = "memory_changed"
)

// Collector holds the Prometheus metrics of the engine. Each collector owns
// its registry so tests can create as many as they like.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	ComposeRequests     *prometheus.CounterVec
	ComposeDuration     prometheus.Histogram
	Invalidations       *prometheus.CounterVec
	MemoryTruncations   prometheus.Counter
	ConnectionMutations *prometheus.CounterVec
	LookupFailures      prometheus.Counter
	ActiveSubscriptions prometheus.Gauge
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	composeRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compose_requests_total",
			Help:      "Total number of context compositions by outcome",
		},
		[]string{"outcome"},
	)

	composeDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compose_duration_seconds",
			Help:      "Time spent computing a composed context",
			Buckets:   prometheus.DefBuckets,
		},
	)

	invalidations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_invalidations_total",
			Help:      "Total number of composed contexts marked stale",
		},
		[]string{"reason"},
	)

	memoryTruncations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_truncations_total",
			Help:      "Total number of memory injections that excluded items",
		},
	)

	connectionMutations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_mutations_total",
			Help:      "Total number of connection graph mutations",
		},
		[]string{"op"},
	)

	lookupFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidation_lookup_failures_total",
			Help:      "Outgoing-target lookups that failed or were rejected by the breaker",
		},
	)

	activeSubscriptions := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_subscriptions",
			Help:      "Number of running invalidation subscriptions",
		},
	)

	registry.MustRegister(
		composeRequests,
		composeDuration,
		invalidations,
		memoryTruncations,
		connectionMutations,
		lookupFailures,
		activeSubscriptions,
	)

	return &Collector{
		registry:            registry,
		ComposeRequests:     composeRequests,
		ComposeDuration:     composeDuration,
		Invalidations:       invalidations,
		MemoryTruncations:   memoryTruncations,
		ConnectionMutations: connectionMutations,
		LookupFailures:      lookupFailures,
		ActiveSubscriptions: activeSubscriptions,
	}
}

// ObserveCompose records one composition
func (c *Collector) ObserveCompose(outcome string, elapsed time.Duration, memoryTruncated bool) {
	if c == nil {
		return
	}
	c.ComposeRequests.WithLabelValues(outcome).Inc()
	if outcome != OutcomeHit {
		c.ComposeDuration.Observe(elapsed.Seconds())
	}
	if memoryTruncated {
		c.MemoryTruncations.Inc()
	}
}

// Invalidated counts n stale-marked contexts
func (c *Collector) Invalidated(reason string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.Invalidations.WithLabelValues(reason).Add(float64(n))
}

// ConnectionMutated counts a graph mutation
func (c *Collector) ConnectionMutated(op string) {
	if c == nil {
		return
	}
	c.ConnectionMutations.WithLabelValues(op).Inc()
}

// LookupFailed counts a failed outgoing-target lookup
func (c *Collector) LookupFailed() {
	if c == nil {
		return
	}
	c.LookupFailures.Inc()
}

// SubscriptionStarted / SubscriptionStopped track live subscriptions
func (c *Collector) SubscriptionStarted() {
	if c == nil {
		return
	}
	c.ActiveSubscriptions.Inc()
}

func (c *Collector) SubscriptionStopped() {
	if c == nil {
		return
	}
	c.ActiveSubscriptions.Dec()
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tally-hq/tally/pkg/config"
	"tally-hq/tally/pkg/limits/admission"
	"tally-hq/tally/pkg/limits/ratelimit"
	"tally-hq/tally/pkg/queue"
)

// Collector owns the prometheus registry and the pipeline's metric
// instances. It satisfies the pipeline's Monitor interface, so wiring it in
// is a single config field.
type Collector struct {
	registry *prometheus.Registry
	ns       string

	messagesTotal    prometheus.Counter
	rateLimitedTotal *prometheus.CounterVec
	parsesTotal      *prometheus.CounterVec
	parseDuration    prometheus.Histogram
	outcomesTotal    *prometheus.CounterVec
}

// NewCollector creates a collector with all pipeline metrics registered. A
// nil registry allocates a fresh one.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "tally"
	}

	c := &Collector{
		registry: registry,
		ns:       ns,

		messagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "messages_total",
			Help:      "Message updates offered to the pipeline.",
		}),
		rateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "rate_limited_total",
			Help:      "Updates rejected by a rate limiter, by scope.",
		}, []string{"scope"}),
		parsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "parses_total",
			Help:      "Amount extraction attempts, by result.",
		}, []string{"result"}),
		parseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "parse_duration_seconds",
			Help:      "Latency of one extraction attempt.",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
		}),
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "outcomes_total",
			Help:      "Pipeline outcomes, by kind.",
		}, []string{"kind"}),
	}

	registry.MustRegister(
		c.messagesTotal,
		c.rateLimitedTotal,
		c.parsesTotal,
		c.parseDuration,
		c.outcomesTotal,
	)
	return c
}

// Registry returns the registry for handler wiring.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// MessageSeen counts one offered message update.
func (c *Collector) MessageSeen() {
	c.messagesTotal.Inc()
}

// RateLimited counts one limiter rejection in the given scope.
func (c *Collector) RateLimited(scope string) {
	c.rateLimitedTotal.WithLabelValues(scope).Inc()
}

// ParseObserved records one extraction attempt and its latency.
func (c *Collector) ParseObserved(duration time.Duration, ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	c.parsesTotal.WithLabelValues(result).Inc()
	c.parseDuration.Observe(duration.Seconds())
}

// OutcomeSeen counts one pipeline outcome.
func (c *Collector) OutcomeSeen(kind string) {
	c.outcomesTotal.WithLabelValues(kind).Inc()
}

// ObserveAdmission registers gauges backed by the controller's live stats.
func (c *Collector) ObserveAdmission(stats func() admission.Stats) {
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.ns, Subsystem: "admission", Name: "active",
			Help: "Permits currently held.",
		}, func() float64 { return float64(stats().ActiveCount) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.ns, Subsystem: "admission", Name: "available",
			Help: "Permits currently free.",
		}, func() float64 { return float64(stats().Available) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.ns, Subsystem: "admission", Name: "requests_total",
			Help: "Permits granted since start.",
		}, func() float64 { return float64(stats().TotalRequests) }),
	)
}

// ObserveQueue registers gauges backed by the queue's live stats.
func (c *Collector) ObserveQueue(stats func() queue.Stats) {
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.ns, Subsystem: "queue", Name: "size",
			Help: "Items currently buffered.",
		}, func() float64 { return float64(stats().QueueSize) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.ns, Subsystem: "queue", Name: "processed_total",
			Help: "Items handed to the handler since start.",
		}, func() float64 { return float64(stats().ProcessedCount) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.ns, Subsystem: "queue", Name: "dropped_total",
			Help: "Items evicted under overload since start.",
		}, func() float64 { return float64(stats().DroppedCount) }),
	)
}

// ObserveRateLimiter registers an active-keys gauge for one limiter.
func (c *Collector) ObserveRateLimiter(scope string, stats func() ratelimit.Stats) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.ns, Subsystem: "ratelimit", Name: "active_keys",
		Help:        "Keys with requests inside the current window.",
		ConstLabels: prometheus.Labels{"scope": scope},
	}, func() float64 { return float64(stats().ActiveKeys) }))
}

// Package metrics provides Prometheus instrumentation for the component loader.
//
// All methods are safe to call on a nil *Collector, so instrumentation is
// optional for callers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Collector holds all loader metrics on a dedicated registry.
type Collector struct {
	registry *prometheus.Registry

	DescriptorFetches *prometheus.CounterVec
	DependencyLoads   *prometheus.CounterVec
	DependencyHits    prometheus.Counter
	StylesheetLoads   *prometheus.CounterVec
	Hydrations        *prometheus.CounterVec
	HydrateDuration   prometheus.Histogram
	JSONPInFlight     prometheus.Gauge
}

// New creates a collector whose metrics are registered on a fresh registry.
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = "rcmp"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		DescriptorFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "descriptor_fetches_total",
				Help:      "Descriptor fetches by gateway and outcome",
			},
			[]string{"gateway", "outcome"},
		),
		DependencyLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dependency_loads_total",
				Help:      "Dependency entries created, by outcome (ok, error, predefined)",
			},
			[]string{"outcome"},
		),
		DependencyHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dependency_cache_hits_total",
				Help:      "Dependency loads served by an existing entry",
			},
		),
		StylesheetLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stylesheet_loads_total",
				Help:      "Stylesheet loads by outcome",
			},
			[]string{"outcome"},
		),
		Hydrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hydrations_total",
				Help:      "Component hydrations by entry point and outcome",
			},
			[]string{"entry", "outcome"},
		),
		HydrateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "hydrate_duration_seconds",
				Help:      "Time from Hydrate call to delegate completion",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		JSONPInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jsonp_callbacks_in_flight",
				Help:      "JSONP callbacks currently registered",
			},
		),
	}

	c.registry.MustRegister(
		c.DescriptorFetches,
		c.DependencyLoads,
		c.DependencyHits,
		c.StylesheetLoads,
		c.Hydrations,
		c.HydrateDuration,
		c.JSONPInFlight,
	)
	return c
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// RecordFetch records a descriptor fetch.
func (c *Collector) RecordFetch(gateway string, err error) {
	if c == nil {
		return
	}
	c.DescriptorFetches.WithLabelValues(gateway, Outcome(err)).Inc()
}

// RecordDependency records a settled dependency entry.
func (c *Collector) RecordDependency(outcome string) {
	if c == nil {
		return
	}
	c.DependencyLoads.WithLabelValues(outcome).Inc()
}

// RecordDependencyHit records a load served from an existing entry.
func (c *Collector) RecordDependencyHit() {
	if c == nil {
		return
	}
	c.DependencyHits.Inc()
}

// RecordStylesheet records a settled stylesheet load.
func (c *Collector) RecordStylesheet(err error) {
	if c == nil {
		return
	}
	c.StylesheetLoads.WithLabelValues(Outcome(err)).Inc()
}

// RecordHydrate records a finished hydration.
func (c *Collector) RecordHydrate(entry string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.Hydrations.WithLabelValues(entry, Outcome(err)).Inc()
	c.HydrateDuration.Observe(d.Seconds())
}

// JSONPStarted marks a JSONP callback as registered.
func (c *Collector) JSONPStarted() {
	if c == nil {
		return
	}
	c.JSONPInFlight.Inc()
}

// JSONPFinished marks a JSONP callback as unregistered.
func (c *Collector) JSONPFinished() {
	if c == nil {
		return
	}
	c.JSONPInFlight.Dec()
}

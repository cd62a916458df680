package rcmp

import (
	"github.com/a-h/templ"
	"github.com/rs/zerolog"

	"github.com/pthm/rcmp/lib/idgen"
	"github.com/pthm/rcmp/lib/metrics"
)

// Option configures loaders, gateways, dependency registries and mounts.
// Options that do not apply to a constructor are ignored by it.
type Option func(*options)

type options struct {
	logger   zerolog.Logger
	metrics  *metrics.Collector
	gateway  Gateway
	deps     *Dependencies
	ids      IDGenerator
	fallback templ.Component
}

func newOptions(opts []Option) *options {
	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.ids == nil {
		o.ids = idgen.New(nil)
	}
	return o
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records loader activity on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// WithGateway sets the descriptor gateway. Loaders default to a
// FetchGateway using http.DefaultClient.
func WithGateway(g Gateway) Option {
	return func(o *options) {
		o.gateway = g
	}
}

// WithDependencies makes a loader use d instead of the registry shared by
// its document.
func WithDependencies(d *Dependencies) Option {
	return func(o *options) {
		o.deps = d
	}
}

// WithIDGenerator sets the generator for JSONP callback identifiers.
func WithIDGenerator(ids IDGenerator) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// WithFallback sets the content a Mount renders into its element when
// loading or hydration fails.
func WithFallback(c templ.Component) Option {
	return func(o *options) {
		o.fallback = c
	}
}

package rcmp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/rcmp/lib/config"
	"github.com/pthm/rcmp/lib/metrics"
)

// Loader fetches component descriptors and turns them into handles.
//
// A loader is bound to one document. Every Load fetches the descriptor
// again; only dependencies are cached, in the document's Dependencies.
type Loader struct {
	gateway Gateway
	doc     Document
	ns      Namespace
	deps    *Dependencies
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewLoader creates a loader for doc and ns.
func NewLoader(doc Document, ns Namespace, opts ...Option) *Loader {
	o := newOptions(opts)

	l := &Loader{
		gateway: o.gateway,
		doc:     doc,
		ns:      ns,
		deps:    o.deps,
		logger:  o.logger,
		metrics: o.metrics,
	}
	if l.gateway == nil {
		l.gateway = NewFetchGateway(FetchConfig{}, opts...)
	}
	if l.deps == nil {
		l.deps = DependenciesFor(doc, ns, opts...)
	}
	return l
}

// NewFromConfig assembles a loader from configuration: the gateway mode,
// request headers and timeout, logging and metrics.
func NewFromConfig(cfg *config.Config, doc Document, ns Namespace, logger zerolog.Logger, opts ...Option) (*Loader, *metrics.Collector) {
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New(cfg.Metrics.Namespace)
	}

	base := []Option{WithLogger(logger), WithMetrics(collector)}
	base = append(base, opts...)

	var gateway Gateway
	switch cfg.Loader.Gateway {
	case config.GatewayJSONP:
		gateway = NewJSONPGateway(doc, ns, base...)
	default:
		gateway = NewFetchGateway(FetchConfig{
			Client:  http.DefaultClient,
			Headers: cfg.Loader.Headers,
			Timeout: cfg.Loader.Timeout,
		}, base...)
	}

	return NewLoader(doc, ns, append(base, WithGateway(gateway))...), collector
}

// Dependencies returns the dependency registry the loader uses.
func (l *Loader) Dependencies() *Dependencies {
	return l.deps
}

// Load fetches the descriptor at url with untyped props and state.
func (l *Loader) Load(ctx context.Context, url string) (*Handle[any, any], error) {
	return Load[any, any](ctx, l, url)
}

// Load fetches the descriptor at url and returns a handle for it.
//
// When the descriptor lists stylesheets, Load returns only after all of them
// loaded, so a handle never hydrates unstyled markup. Fetch and stylesheet
// failures are returned as-is; nothing is retried.
func Load[P, S any](ctx context.Context, l *Loader, url string) (*Handle[P, S], error) {
	log := l.logger.With().Str("url", url).Logger()

	desc, err := FetchAs[Descriptor[P, S]](ctx, l.gateway, url)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", url, err)
	}
	log.Debug().
		Str("client", desc.Client).
		Str("resolver", desc.ResolverFunction).
		Int("dependencies", len(desc.Dependencies)).
		Int("styles", len(desc.Styles)).
		Msg("descriptor fetched")

	if len(desc.Styles) > 0 {
		if err := l.loadStyles(ctx, desc.Styles); err != nil {
			return nil, fmt.Errorf("load %s: %w", url, err)
		}
	}

	return &Handle[P, S]{
		Descriptor: desc,
		loader:     l,
		url:        url,
	}, nil
}

func (l *Loader) loadStyles(ctx context.Context, hrefs []string) error {
	futures := make([]*Future, len(hrefs))
	for i, href := range hrefs {
		futures[i] = l.doc.AppendStylesheet(href)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range futures {
		f := f
		href := hrefs[i]
		g.Go(func() error {
			err := f.Wait(gctx)
			if f.Settled() {
				l.metrics.RecordStylesheet(f.Err())
			}
			if f.Err() != nil {
				return fmt.Errorf("%w: %s: %w", ErrStylesheet, href, f.Err())
			}
			return err
		})
	}
	return g.Wait()
}

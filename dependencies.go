package rcmp

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/rcmp/lib/metrics"
)

// Dependencies is the document-scoped dependency registry.
//
// Each dependency identity maps to exactly one entry for the lifetime of the
// document. Entries are never evicted: URLs are assumed immutable while the
// page lives, and injecting the same library twice would corrupt the globals
// it publishes.
type Dependencies struct {
	scripts *ScriptLoader
	ns      Namespace
	logger  zerolog.Logger
	metrics *metrics.Collector

	mu       sync.Mutex
	byGlobal map[string]*Future
	byURL    map[string]*Future
}

// NewDependencies creates an empty registry. Most callers want
// DependenciesFor, which shares one registry per document.
func NewDependencies(doc Document, ns Namespace, opts ...Option) *Dependencies {
	o := newOptions(opts)
	return &Dependencies{
		scripts:  NewScriptLoader(doc, o.logger),
		ns:       ns,
		logger:   o.logger,
		metrics:  o.metrics,
		byGlobal: make(map[string]*Future),
		byURL:    make(map[string]*Future),
	}
}

var (
	documentsMu sync.Mutex
	documents   = make(map[Document]*Dependencies)
)

// DependenciesFor returns the registry shared by every loader on doc,
// creating it on first use. doc must be comparable (typically a pointer).
// Options only apply when the registry is created.
func DependenciesFor(doc Document, ns Namespace, opts ...Option) *Dependencies {
	documentsMu.Lock()
	defer documentsMu.Unlock()

	if d, ok := documents[doc]; ok {
		return d
	}
	d := NewDependencies(doc, ns, opts...)
	documents[doc] = d
	return d
}

// Load returns the future for dep, starting its load if no entry with the
// same identity exists. A new entry whose global is already defined resolves
// immediately without touching the document.
//
// The entry is registered before Load returns, so concurrent callers always
// share it.
func (d *Dependencies) Load(dep Dependency) *Future {
	d.mu.Lock()
	defer d.mu.Unlock()

	if f := d.lookup(dep); f != nil {
		d.logger.Debug().Str("dependency", dep.URL).Str("global", dep.GlobalVariable).Msg("dependency already registered")
		d.metrics.RecordDependencyHit()
		return f
	}

	var f *Future
	if dep.GlobalVariable != "" {
		if _, ok := d.ns.Global(dep.GlobalVariable); ok {
			d.logger.Debug().Str("dependency", dep.URL).Str("global", dep.GlobalVariable).Msg("global already defined, skipping load")
			d.metrics.RecordDependency("predefined")
			f = Resolved()
		}
	}
	if f == nil {
		f = d.scripts.Load(dep.URL)
		go func() {
			<-f.Done()
			d.metrics.RecordDependency(metrics.Outcome(f.Err()))
		}()
	}

	d.register(dep, f)
	return f
}

func (d *Dependencies) lookup(dep Dependency) *Future {
	if dep.GlobalVariable != "" {
		if f, ok := d.byGlobal[dep.GlobalVariable]; ok {
			return f
		}
	}
	return d.byURL[dep.URL]
}

func (d *Dependencies) register(dep Dependency, f *Future) {
	if dep.GlobalVariable != "" {
		d.byGlobal[dep.GlobalVariable] = f
	}
	if _, ok := d.byURL[dep.URL]; !ok {
		d.byURL[dep.URL] = f
	}
}

// LoadAll loads every dependency and waits for all of them.
//
// Loads are started one after another in SortDependencies order; once
// started they run concurrently. The first failure is returned. Returning
// early on ctx does not stop loads already started.
func (d *Dependencies) LoadAll(ctx context.Context, deps []Dependency) error {
	sorted := SortDependencies(deps)

	futures := make([]*Future, len(sorted))
	for i, dep := range sorted {
		futures[i] = d.Load(dep)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range futures {
		f := f
		g.Go(func() error {
			return f.Wait(gctx)
		})
	}
	return g.Wait()
}

// Len returns the number of distinct entries.
func (d *Dependencies) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[*Future]struct{}, len(d.byURL))
	for _, f := range d.byURL {
		seen[f] = struct{}{}
	}
	for _, f := range d.byGlobal {
		seen[f] = struct{}{}
	}
	return len(seen)
}

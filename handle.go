package rcmp

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Handle is a loaded component: its descriptor plus the hydrate/disconnect
// lifecycle for one mount point.
type Handle[P, S any] struct {
	Descriptor[P, S]

	loader *Loader
	url    string

	mu        sync.Mutex
	hydrating *Future
	pending   *Future
	runtime   *Runtime
}

// URL returns the descriptor URL the handle was loaded from.
func (h *Handle[P, S]) URL() string {
	return h.url
}

// Runtime returns the runtime of a successful hydration, or nil.
func (h *Handle[P, S]) Runtime() *Runtime {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runtime
}

// Hydrate mounts the component on el.
//
// It loads the declared dependencies, then the client bundle (only after
// every dependency resolved), waits for the resolver global, normalizes it
// and calls the runtime's Render (no server markup and the runtime has one)
// or Hydrate. Hydrate returns after the delegate returns.
//
// A resolver global that never appears blocks until ctx is done.
func (h *Handle[P, S]) Hydrate(ctx context.Context, el Element) error {
	h.mu.Lock()
	done := h.pending
	h.pending = nil
	if done == nil {
		done = NewFuture()
		h.hydrating = done
	}
	h.mu.Unlock()

	err := h.hydrate(ctx, el)
	done.Settle(err)
	return err
}

// begin registers the next Hydrate as in flight before it starts, so a
// Disconnect issued in between waits for it.
func (h *Handle[P, S]) begin() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		h.pending = NewFuture()
		h.hydrating = h.pending
	}
}

func (h *Handle[P, S]) hydrate(ctx context.Context, el Element) error {
	l := h.loader
	log := l.logger.With().Str("url", h.url).Str("resolver", h.ResolverFunction).Logger()
	start := time.Now()

	if err := l.deps.LoadAll(ctx, h.Dependencies); err != nil {
		return fmt.Errorf("hydrate %s: dependencies: %w", h.url, err)
	}

	if err := l.deps.Load(Dependency{URL: h.Client}).Wait(ctx); err != nil {
		return fmt.Errorf("hydrate %s: client: %w", h.url, err)
	}

	raw, err := l.ns.AwaitGlobal(ctx, h.ResolverFunction)
	if err != nil {
		return fmt.Errorf("hydrate %s: %w: %s: %w", h.url, ErrResolverMissing, h.ResolverFunction, err)
	}

	rt, err := Normalize(ctx, raw)
	if err != nil {
		return fmt.Errorf("hydrate %s: %w", h.url, err)
	}
	log.Debug().Stringer("shape", Classify(raw)).Msg("runtime resolved")

	entry, fn := "hydrate", rt.Hydrate
	if !h.HasHTML() && rt.Render != nil {
		entry, fn = "render", rt.Render
	}

	err = fn(ctx, el, h.Props, h.State)
	l.metrics.RecordHydrate(entry, time.Since(start), err)
	if err != nil {
		log.Warn().Str("entry", entry).Err(err).Msg("component entry point failed")
		return fmt.Errorf("hydrate %s: %s: %w", h.url, entry, err)
	}

	h.mu.Lock()
	h.runtime = rt
	h.mu.Unlock()
	log.Debug().Str("entry", entry).Dur("took", time.Since(start)).Msg("component hydrated")
	return nil
}

// Disconnect tears the component down from el.
//
// It first waits for any in-flight Hydrate, so teardown never races a mount
// that has not finished; the hydrate itself is not cancelled. If the runtime
// has a Disconnect hook it is called with el. A failed or absent hydration
// leaves nothing to tear down.
func (h *Handle[P, S]) Disconnect(ctx context.Context, el Element) error {
	h.mu.Lock()
	hydrating := h.hydrating
	h.mu.Unlock()

	if hydrating != nil {
		select {
		case <-hydrating.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	rt := h.Runtime()
	if rt == nil || rt.Disconnect == nil {
		return nil
	}
	rt.Disconnect(el)
	h.loader.logger.Debug().Str("url", h.url).Msg("component disconnected")
	return nil
}

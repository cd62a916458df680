package rcmp

import (
	"context"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"
)

// Lifecycle events dispatched on the element.
const (
	EventLoadFailed    = "rcmp:load-failed"
	EventHydrateFailed = "rcmp:hydrate-failed"
	EventHydrated      = "rcmp:hydrated"
)

// State is the lifecycle state of a Mount.
type State int

const (
	StateUnattached State = iota
	StateAttributeSet
	StateFetching
	StateMounted
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateAttributeSet:
		return "attribute-set"
	case StateFetching:
		return "fetching"
	case StateMounted:
		return "mounted"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unattached"
	}
}

// FailureDetail is the detail of EventLoadFailed and EventHydrateFailed.
type FailureDetail struct {
	Src string
	Err error
}

// HydratedDetail is the detail of EventHydrated.
type HydratedDetail struct {
	Src string
}

// Mount binds one element to the loader: it is the state machine behind the
// custom element, independent of any DOM.
//
// Host adapters call SetSrc when the src attribute is assigned, and
// Connected/Disconnected from the element's lifecycle callbacks. SetSrc
// blocks for the whole load and hydration, so adapters call it from a
// goroutine.
type Mount struct {
	el       Element
	loader   *Loader
	logger   zerolog.Logger
	fallback templ.Component

	mu     sync.Mutex
	state  State
	src    string
	gen    uint64
	handle *Handle[any, any]
}

// NewMount creates an unattached mount for el.
func NewMount(el Element, loader *Loader, opts ...Option) *Mount {
	o := newOptions(opts)
	return &Mount{
		el:       el,
		loader:   loader,
		logger:   o.logger,
		fallback: o.fallback,
	}
}

// State returns the current lifecycle state.
func (m *Mount) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Src returns the last assigned descriptor URL.
func (m *Mount) Src() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

// Handle returns the handle of the current mount, if any.
func (m *Mount) Handle() *Handle[any, any] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// SetSrc reacts to the src attribute being assigned.
//
// While the element is not mounted this loads the descriptor, injects its
// html (if any) before anything else runs, and hydrates. A newer SetSrc
// supersedes one still in flight. Once mounted, src changes are ignored.
// Failures are dispatched as events, never returned.
func (m *Mount) SetSrc(ctx context.Context, src string) {
	m.mu.Lock()
	if m.state == StateMounted {
		m.mu.Unlock()
		m.logger.Debug().Str("src", src).Msg("src changed on a mounted component, ignoring")
		return
	}
	m.src = src
	if src == "" {
		m.mu.Unlock()
		return
	}
	m.gen++
	gen := m.gen
	m.state = StateFetching
	m.mu.Unlock()

	log := m.logger.With().Str("src", src).Logger()
	log.Debug().Msg("loading component")

	h, err := m.loader.Load(ctx, src)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		log.Debug().Msg("discarding superseded load")
		return
	}
	if err != nil {
		m.state = StateAttributeSet
		m.mu.Unlock()
		log.Warn().Err(err).Msg("component failed to load")
		m.fail(ctx, EventLoadFailed, src, err)
		return
	}
	h.begin()
	m.handle = h
	m.state = StateMounted
	m.mu.Unlock()

	if h.HTML != nil {
		m.el.SetHTML(*h.HTML)
	}

	err = h.Hydrate(ctx, m.el)

	m.mu.Lock()
	current := gen == m.gen && m.state == StateMounted
	if err != nil && current {
		m.state = StateAttributeSet
	}
	m.mu.Unlock()

	if !current {
		// Disconnected or superseded while hydrating; teardown is owned by
		// whoever took the handle.
		log.Debug().Err(err).Msg("hydration finished after element moved on")
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("component failed to hydrate")
		m.fail(ctx, EventHydrateFailed, src, err)
		return
	}
	m.el.Dispatch(EventHydrated, HydratedDetail{Src: src})
}

// Connected reacts to the element being (re)inserted. An element that was
// disconnected with a src reloads it.
func (m *Mount) Connected(ctx context.Context) {
	m.mu.Lock()
	reload := m.state == StateDisconnected && m.src != ""
	if reload {
		m.state = StateAttributeSet
	}
	src := m.src
	m.mu.Unlock()

	if reload {
		m.SetSrc(ctx, src)
	}
}

// Disconnected reacts to the element being removed: any in-flight load is
// discarded and the mounted component is torn down once its hydration
// settles.
func (m *Mount) Disconnected(ctx context.Context) {
	m.mu.Lock()
	m.state = StateDisconnected
	m.gen++
	h := m.handle
	m.handle = nil
	m.mu.Unlock()

	if h == nil {
		return
	}
	if err := h.Disconnect(ctx, m.el); err != nil {
		m.logger.Warn().Str("src", h.URL()).Err(err).Msg("disconnect did not complete")
	}
}

func (m *Mount) fail(ctx context.Context, event, src string, err error) {
	m.el.Dispatch(event, FailureDetail{Src: src, Err: err})

	if m.fallback == nil {
		return
	}
	var buf strings.Builder
	if rerr := m.fallback.Render(ctx, &buf); rerr != nil {
		m.logger.Error().Err(rerr).Msg("fallback render failed")
		return
	}
	m.el.SetHTML(buf.String())
}

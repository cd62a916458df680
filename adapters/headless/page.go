// Package headless runs remote components outside a browser.
//
// A Page emulates the parts of a document the loader touches. Script and
// stylesheet elements are fetched over HTTP, scripts execute in an embedded
// JavaScript engine sharing one global object, and the globals they publish
// are exposed through the Namespace port. Element is an in-memory mount
// point backed by an HTML parser.
//
//	page, _ := headless.NewPage(headless.WithBaseURL("https://shop.example"))
//	loader := rcmp.NewLoader(page, page)
//	el := headless.NewElement("remote-component")
//	rcmp.NewMount(el, loader).SetSrc(ctx, "/fragments/cart")
//	fmt.Println(el.HTML())
package headless

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"

	"github.com/pthm/rcmp"
)

// Page is a headless document: it implements rcmp.Document and
// rcmp.Namespace.
//
// The JavaScript runtime is single-threaded; every access to it is
// serialized. JSONP callbacks invoked by a script are queued while the
// script runs and delivered after the runtime is released, before the
// script's load future settles.
type Page struct {
	client *http.Client
	base   *url.URL
	logger zerolog.Logger

	vmMu      sync.Mutex
	vm        *goja.Runtime
	stringify goja.Callable
	queued    []invocation

	mu        sync.Mutex
	scripts   map[string]string
	injected  []string
	styles    []string
	callbacks map[string]func(payload []byte)
	errs      []error
	changed   chan struct{}
}

type invocation struct {
	name    string
	payload []byte
}

// Option configures a Page.
type Option func(*Page) error

// WithHTTPClient sets the client used to fetch scripts and stylesheets.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Page) error {
		p.client = c
		return nil
	}
}

// WithBaseURL resolves relative script and stylesheet URLs against raw.
func WithBaseURL(raw string) Option {
	return func(p *Page) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("headless: base url: %w", err)
		}
		p.base = u
		return nil
	}
}

// WithLogger sets the logger. Script console output is logged through it.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Page) error {
		p.logger = logger
		return nil
	}
}

// NewPage creates an empty page.
func NewPage(opts ...Option) (*Page, error) {
	p := &Page{
		client:    http.DefaultClient,
		logger:    zerolog.Nop(),
		vm:        goja.New(),
		scripts:   make(map[string]string),
		callbacks: make(map[string]func(payload []byte)),
		changed:   make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if err := p.setupGlobals(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Page) setupGlobals() error {
	global := p.vm.GlobalObject()
	if err := p.vm.Set("window", global); err != nil {
		return err
	}
	if err := p.vm.Set("self", global); err != nil {
		return err
	}

	stringify, ok := goja.AssertFunction(p.vm.Get("JSON").ToObject(p.vm).Get("stringify"))
	if !ok {
		return fmt.Errorf("headless: JSON.stringify unavailable")
	}
	p.stringify = stringify

	console := p.vm.NewObject()
	for _, level := range []zerolog.Level{zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel, zerolog.ErrorLevel} {
		name := level.String()
		switch level {
		case zerolog.InfoLevel:
			name = "log"
		case zerolog.WarnLevel:
			name = "warn"
		}
		lvl := level
		if err := console.Set(name, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			p.logger.WithLevel(lvl).Str("source", "console").Msg(strings.Join(parts, " "))
			return goja.Undefined()
		}); err != nil {
			return err
		}
	}
	return p.vm.Set("console", console)
}

// AppendScript inserts a script element and fetches and runs src in the
// background. A script that throws still fires its load event, as in a
// browser; the exception is recorded in Errors.
func (p *Page) AppendScript(id, src string) *rcmp.Future {
	f := rcmp.NewFuture()

	p.mu.Lock()
	p.injected = append(p.injected, src)
	if id != "" {
		p.scripts[id] = src
	}
	p.mu.Unlock()

	go func() {
		body, err := p.get(src)
		if err != nil {
			p.logger.Warn().Str("src", src).Err(err).Msg("script failed to load")
			f.Settle(err)
			return
		}
		if err := p.exec(src, body); err != nil {
			p.logger.Warn().Str("src", src).Err(err).Msg("script threw")
			p.mu.Lock()
			p.errs = append(p.errs, err)
			p.mu.Unlock()
		}
		f.Settle(nil)
	}()
	return f
}

// RemoveScript removes the script element with the given id. A script
// that is already fetching still runs.
func (p *Page) RemoveScript(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.scripts, id)
}

// AppendStylesheet inserts a stylesheet element; the future settles once
// the stylesheet has been fetched. Stylesheets are not applied.
func (p *Page) AppendStylesheet(href string) *rcmp.Future {
	f := rcmp.NewFuture()

	p.mu.Lock()
	p.styles = append(p.styles, href)
	p.mu.Unlock()

	go func() {
		_, err := p.get(href)
		f.Settle(err)
	}()
	return f
}

// Eval runs inline script source, like a <script> element without src.
func (p *Page) Eval(name, src string) error {
	return p.exec(name, src)
}

// Set binds a Go value to a global name.
func (p *Page) Set(name string, v any) error {
	p.vmMu.Lock()
	err := p.vm.Set(name, v)
	p.vmMu.Unlock()
	p.notify()
	return err
}

// Global returns the value scripts bound to name, converted for the
// loader: objects exposing resolve(), a default export or hydrate() are
// returned as the matching runtime shape, anything else as its Go export.
func (p *Page) Global(name string) (any, bool) {
	p.vmMu.Lock()
	defer p.vmMu.Unlock()

	v := p.vm.GlobalObject().Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, false
	}
	return p.wrap(v), true
}

// AwaitGlobal blocks until name is bound or ctx is done. Globals only
// change when a script runs or Set is called, so it waits for those.
func (p *Page) AwaitGlobal(ctx context.Context, name string) (any, error) {
	for {
		changed := p.changes()
		if v, ok := p.Global(name); ok {
			return v, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// RegisterCallback binds a global function name. Scripts call it with one
// argument, which fn receives JSON-encoded.
func (p *Page) RegisterCallback(name string, fn func(payload []byte)) {
	p.mu.Lock()
	p.callbacks[name] = fn
	p.mu.Unlock()

	p.vmMu.Lock()
	defer p.vmMu.Unlock()
	err := p.vm.Set(name, func(call goja.FunctionCall) goja.Value {
		payload, err := p.stringify(goja.Undefined(), call.Argument(0))
		if err != nil || goja.IsUndefined(payload) {
			p.queued = append(p.queued, invocation{name: name, payload: []byte("null")})
			return goja.Undefined()
		}
		p.queued = append(p.queued, invocation{name: name, payload: []byte(payload.String())})
		return goja.Undefined()
	})
	if err != nil {
		p.logger.Error().Str("name", name).Err(err).Msg("callback not bound")
	}
}

// UnregisterCallback removes the global function bound to name.
func (p *Page) UnregisterCallback(name string) {
	p.mu.Lock()
	delete(p.callbacks, name)
	p.mu.Unlock()

	p.vmMu.Lock()
	defer p.vmMu.Unlock()
	_ = p.vm.GlobalObject().Delete(name)
}

// Injected returns the src of every script ever inserted, in order.
func (p *Page) Injected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.injected...)
}

// Present returns the ids of identified scripts still in the document.
func (p *Page) Present() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.scripts))
	for id := range p.scripts {
		ids = append(ids, id)
	}
	return ids
}

// Stylesheets returns every inserted stylesheet href, in order.
func (p *Page) Stylesheets() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.styles...)
}

// Errors returns the exceptions thrown by scripts.
func (p *Page) Errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.errs...)
}

// exec runs src, then delivers the callbacks it invoked.
func (p *Page) exec(name, src string) error {
	p.vmMu.Lock()
	_, err := p.vm.RunScript(name, src)
	calls := p.drain()
	p.vmMu.Unlock()

	p.notify()
	p.deliver(calls)
	return err
}

// drain takes the queued callback invocations. The caller holds vmMu.
func (p *Page) drain() []invocation {
	calls := p.queued
	p.queued = nil
	return calls
}

func (p *Page) deliver(calls []invocation) {
	for _, c := range calls {
		p.mu.Lock()
		fn := p.callbacks[c.name]
		p.mu.Unlock()
		if fn != nil {
			fn(c.payload)
		}
	}
}

func (p *Page) changes() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}

func (p *Page) notify() {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *Page) get(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if p.base != nil {
		u = p.base.ResolveReference(u)
	}

	resp, err := p.client.Get(u.String())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return string(body), nil
}

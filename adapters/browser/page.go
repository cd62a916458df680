//go:build js && wasm

package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall/js"
	"time"

	"github.com/rs/zerolog"

	"github.com/pthm/rcmp"
	"github.com/pthm/rcmp/lib/codec"
)

// ErrEvent is returned when a script or stylesheet element fires error.
var ErrEvent = errors.New("browser: element error event")

// Page is the browser document and global object.
type Page struct {
	window   js.Value
	document js.Value
	logger   zerolog.Logger
	poll     time.Duration

	mu        sync.Mutex
	callbacks map[string]js.Func
}

// Option configures a Page.
type Option func(*Page)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Page) {
		p.logger = logger
	}
}

// WithPollInterval sets how often AwaitGlobal checks for a global.
// Defaults to 10ms.
func WithPollInterval(d time.Duration) Option {
	return func(p *Page) {
		p.poll = d
	}
}

// NewPage binds the current window.
func NewPage(opts ...Option) *Page {
	window := js.Global()
	p := &Page{
		window:    window,
		document:  window.Get("document"),
		logger:    zerolog.Nop(),
		poll:      10 * time.Millisecond,
		callbacks: make(map[string]js.Func),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AppendScript appends a script element to document.head.
func (p *Page) AppendScript(id, src string) *rcmp.Future {
	el := p.document.Call("createElement", "script")
	if id != "" {
		el.Set("id", id)
	}
	f := p.watch(el, src)
	el.Set("src", src)
	p.document.Get("head").Call("appendChild", el)
	return f
}

// RemoveScript removes the element with the given id, if any.
func (p *Page) RemoveScript(id string) {
	el := p.document.Call("getElementById", id)
	if el.Truthy() {
		el.Call("remove")
	}
}

// AppendStylesheet appends a stylesheet link to document.head.
func (p *Page) AppendStylesheet(href string) *rcmp.Future {
	el := p.document.Call("createElement", "link")
	el.Set("rel", "stylesheet")
	f := p.watch(el, href)
	el.Set("href", href)
	p.document.Get("head").Call("appendChild", el)
	return f
}

// watch settles the returned future on el's load or error event.
func (p *Page) watch(el js.Value, url string) *rcmp.Future {
	f := rcmp.NewFuture()

	var onLoad, onError js.Func
	release := func() {
		el.Call("removeEventListener", "load", onLoad)
		el.Call("removeEventListener", "error", onError)
		onLoad.Release()
		onError.Release()
	}
	onLoad = js.FuncOf(func(this js.Value, args []js.Value) any {
		release()
		f.Settle(nil)
		return nil
	})
	onError = js.FuncOf(func(this js.Value, args []js.Value) any {
		release()
		f.Settle(fmt.Errorf("%w: %s", ErrEvent, url))
		return nil
	})
	el.Call("addEventListener", "load", onLoad)
	el.Call("addEventListener", "error", onError)
	return f
}

// Global returns window[name] converted to a runtime shape when it has one.
func (p *Page) Global(name string) (any, bool) {
	v := p.window.Get(name)
	if v.IsUndefined() || v.IsNull() {
		return nil, false
	}
	return p.wrap(v), true
}

// AwaitGlobal polls window[name] until it is bound or ctx is done.
func (p *Page) AwaitGlobal(ctx context.Context, name string) (any, error) {
	if v, ok := p.Global(name); ok {
		return v, nil
	}

	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if v, ok := p.Global(name); ok {
				return v, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// RegisterCallback binds window[name] to a function delivering its first
// argument to fn as JSON.
func (p *Page) RegisterCallback(name string, fn func(payload []byte)) {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		payload := "null"
		if len(args) > 0 && !args[0].IsUndefined() {
			payload = p.window.Get("JSON").Call("stringify", args[0]).String()
		}
		fn([]byte(payload))
		return nil
	})

	p.mu.Lock()
	if old, ok := p.callbacks[name]; ok {
		old.Release()
	}
	p.callbacks[name] = cb
	p.mu.Unlock()

	p.window.Set(name, cb)
}

// UnregisterCallback deletes window[name] and releases its function.
func (p *Page) UnregisterCallback(name string) {
	p.window.Delete(name)

	p.mu.Lock()
	defer p.mu.Unlock()
	if cb, ok := p.callbacks[name]; ok {
		cb.Release()
		delete(p.callbacks, name)
	}
}

// wrap converts an exported global into the shape the loader normalizes.
func (p *Page) wrap(v js.Value) any {
	if v.Type() != js.TypeObject {
		return v
	}
	if v.Get("resolve").Type() == js.TypeFunction {
		return &resolvable{page: p, obj: v}
	}
	if d := v.Get("default"); !d.IsUndefined() {
		return &module{page: p, def: d}
	}
	return p.direct(v)
}

func (p *Page) direct(v js.Value) any {
	if v.Type() != js.TypeObject || v.Get("hydrate").Type() != js.TypeFunction {
		return v
	}

	rt := &rcmp.Runtime{Hydrate: p.entry(v, "hydrate")}
	if v.Get("render").Type() == js.TypeFunction {
		rt.Render = p.entry(v, "render")
	}
	if v.Get("disconnect").Type() == js.TypeFunction {
		rt.Disconnect = func(el rcmp.Element) {
			if _, err := callMethod(v, "disconnect", elementValue(el)); err != nil {
				p.logger.Warn().Err(err).Msg("component disconnect failed")
			}
		}
	}
	return rt
}

func (p *Page) entry(obj js.Value, method string) rcmp.HydrateFunc {
	return func(ctx context.Context, el rcmp.Element, props, state any) error {
		jsProps, err := p.toJS(props)
		if err != nil {
			return err
		}
		jsState, err := p.toJS(state)
		if err != nil {
			return err
		}
		ret, err := callMethod(obj, method, elementValue(el), jsProps, jsState)
		if err != nil {
			return err
		}
		_, err = p.await(ctx, ret)
		return err
	}
}

// toJS converts a decoded Go value to a JavaScript value through JSON, so
// typed props and state arrive as plain objects.
func (p *Page) toJS(v any) (js.Value, error) {
	if v == nil {
		return js.Null(), nil
	}
	data, err := codec.Encode(codec.FormatJSON, v)
	if err != nil {
		return js.Undefined(), err
	}
	return p.window.Get("JSON").Call("parse", string(data)), nil
}

// await waits for a thenable to settle. Other values are returned as is.
func (p *Page) await(ctx context.Context, v js.Value) (js.Value, error) {
	if v.Type() != js.TypeObject || v.Get("then").Type() != js.TypeFunction {
		return v, nil
	}

	var (
		result     js.Value
		onOk, onNo js.Func
	)
	done := rcmp.NewFuture()
	onOk = js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			result = args[0]
		}
		done.Settle(nil)
		return nil
	})
	onNo = js.FuncOf(func(this js.Value, args []js.Value) any {
		reason := "rejected"
		if len(args) > 0 {
			reason = js.Global().Get("String").Invoke(args[0]).String()
		}
		done.Settle(errors.New(reason))
		return nil
	})
	defer onOk.Release()
	defer onNo.Release()

	v.Call("then", onOk, onNo)
	if err := done.Wait(ctx); err != nil {
		return js.Undefined(), err
	}
	return result, nil
}

// callMethod calls obj[method](args...), turning a thrown exception into
// an error.
func callMethod(obj js.Value, method string, args ...any) (ret js.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			jsErr, ok := r.(js.Error)
			if !ok {
				panic(r)
			}
			err = jsErr
		}
	}()
	return obj.Call(method, args...), nil
}

// resolvable is an exported object with the deprecated resolve().
type resolvable struct {
	page *Page
	obj  js.Value
}

func (r *resolvable) Resolve(ctx context.Context) (any, error) {
	ret, err := callMethod(r.obj, "resolve")
	if err != nil {
		return nil, err
	}
	v, err := r.page.await(ctx, ret)
	if err != nil {
		return nil, err
	}
	return r.page.direct(v), nil
}

// module is an exported object with a default export.
type module struct {
	page *Page
	def  js.Value
}

func (m *module) Default() any {
	return m.page.direct(m.def)
}

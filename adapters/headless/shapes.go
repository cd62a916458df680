package headless

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/pthm/rcmp"
)

// ErrRejected is returned when a promise returned by a component rejects.
var ErrRejected = errors.New("headless: promise rejected")

// wrap converts a global into the shape the loader normalizes. The caller
// holds vmMu.
func (p *Page) wrap(v goja.Value) any {
	exp := v.Export()
	if isGoShape(exp) {
		return exp
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return exp
	}
	if _, ok := goja.AssertFunction(obj.Get("resolve")); ok {
		return &resolvable{page: p, obj: obj}
	}
	if def := obj.Get("default"); def != nil && !goja.IsUndefined(def) {
		return &module{page: p, def: def}
	}
	return p.direct(v)
}

// direct converts v into a runtime without looking at export shapes. The
// caller holds vmMu.
func (p *Page) direct(v goja.Value) any {
	exp := v.Export()
	if isGoShape(exp) {
		return exp
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return exp
	}
	if rt := p.runtime(obj); rt != nil {
		return rt
	}
	return exp
}

func isGoShape(v any) bool {
	switch v.(type) {
	case rcmp.Resolvable, rcmp.DefaultExporter, rcmp.Hydrater, *rcmp.Runtime, rcmp.Runtime:
		return true
	}
	return false
}

// runtime binds the entry points of a JavaScript runtime object, or
// returns nil if it has no hydrate function.
func (p *Page) runtime(obj *goja.Object) *rcmp.Runtime {
	hydrate, ok := goja.AssertFunction(obj.Get("hydrate"))
	if !ok {
		return nil
	}

	rt := &rcmp.Runtime{Hydrate: p.entry(obj, hydrate)}
	if render, ok := goja.AssertFunction(obj.Get("render")); ok {
		rt.Render = p.entry(obj, render)
	}
	if disconnect, ok := goja.AssertFunction(obj.Get("disconnect")); ok {
		rt.Disconnect = func(el rcmp.Element) {
			if _, err := p.call(context.Background(), obj, disconnect, p.elementArg(el)); err != nil {
				p.logger.Warn().Err(err).Msg("component disconnect failed")
			}
		}
	}
	return rt
}

// entry adapts fn(el, props, state) to a rcmp.HydrateFunc. A returned
// promise is awaited.
func (p *Page) entry(this *goja.Object, fn goja.Callable) rcmp.HydrateFunc {
	return func(ctx context.Context, el rcmp.Element, props, state any) error {
		_, err := p.call(ctx, this, fn, p.elementArg(el), props, state)
		return err
	}
}

// call invokes fn with Go arguments and awaits the result if it is a
// promise. Callbacks the call invoked are delivered before awaiting.
func (p *Page) call(ctx context.Context, this *goja.Object, fn goja.Callable, args ...any) (goja.Value, error) {
	p.vmMu.Lock()
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		if f, ok := a.(func(*goja.Runtime) goja.Value); ok {
			vals[i] = f(p.vm)
			continue
		}
		vals[i] = p.vm.ToValue(a)
	}
	ret, err := fn(this, vals...)
	calls := p.drain()
	p.vmMu.Unlock()

	p.notify()
	p.deliver(calls)
	if err != nil {
		return nil, err
	}
	return p.await(ctx, ret)
}

// await waits for a promise to settle. Non-promise values are returned as
// they are. Promises only progress when the runtime runs, so a pending one
// is re-checked after every script execution.
func (p *Page) await(ctx context.Context, v goja.Value) (goja.Value, error) {
	if v == nil {
		return goja.Undefined(), nil
	}
	prom, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}

	for {
		changed := p.changes()

		p.vmMu.Lock()
		state, result := prom.State(), prom.Result()
		var reason string
		if state == goja.PromiseStateRejected && result != nil {
			reason = result.String()
		}
		p.vmMu.Unlock()

		switch state {
		case goja.PromiseStateFulfilled:
			return result, nil
		case goja.PromiseStateRejected:
			return nil, fmt.Errorf("%w: %s", ErrRejected, reason)
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// elementArg defers building the element's script object until the
// runtime is locked.
func (p *Page) elementArg(el rcmp.Element) func(*goja.Runtime) goja.Value {
	return func(vm *goja.Runtime) goja.Value {
		return p.elementObject(vm, el)
	}
}

// elementObject exposes el to scripts as an object with setHTML(html),
// dispatch(name, detail) and, when el can report it, an innerHTML property.
func (p *Page) elementObject(vm *goja.Runtime, el rcmp.Element) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("setHTML", func(markup string) {
		el.SetHTML(markup)
	})
	_ = obj.Set("dispatch", func(name string, detail goja.Value) {
		var d any
		if detail != nil && !goja.IsUndefined(detail) {
			d = detail.Export()
		}
		el.Dispatch(name, d)
	})

	if r, ok := el.(interface{ HTML() string }); ok {
		getter := vm.ToValue(func(goja.FunctionCall) goja.Value {
			return vm.ToValue(r.HTML())
		})
		setter := vm.ToValue(func(call goja.FunctionCall) goja.Value {
			el.SetHTML(call.Argument(0).String())
			return goja.Undefined()
		})
		_ = obj.DefineAccessorProperty("innerHTML", getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE)
	}
	return obj
}

// resolvable is a script object exposing the deprecated resolve().
type resolvable struct {
	page *Page
	obj  *goja.Object
}

func (r *resolvable) Resolve(ctx context.Context) (any, error) {
	p := r.page

	p.vmMu.Lock()
	fn, ok := goja.AssertFunction(r.obj.Get("resolve"))
	p.vmMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("headless: resolve is no longer a function")
	}

	v, err := p.call(ctx, r.obj, fn)
	if err != nil {
		return nil, err
	}

	p.vmMu.Lock()
	defer p.vmMu.Unlock()
	return p.direct(v), nil
}

// module is a script object with a default export.
type module struct {
	page *Page
	def  goja.Value
}

func (m *module) Default() any {
	m.page.vmMu.Lock()
	defer m.page.vmMu.Unlock()
	return m.page.direct(m.def)
}

//go:build js && wasm

package browser

import (
	"context"
	"sync"
	"syscall/js"

	"github.com/pthm/rcmp"
)

// Element wraps a DOM element as a mount point.
type Element struct {
	v js.Value
}

// Wrap returns the mount point for the DOM element v.
func Wrap(v js.Value) *Element {
	return &Element{v: v}
}

// Value returns the underlying DOM element.
func (e *Element) Value() js.Value {
	return e.v
}

// SetHTML sets innerHTML.
func (e *Element) SetHTML(html string) {
	e.v.Set("innerHTML", html)
}

// HTML returns innerHTML.
func (e *Element) HTML() string {
	return e.v.Get("innerHTML").String()
}

// Dispatch dispatches a bubbling CustomEvent carrying detail.
func (e *Element) Dispatch(event string, detail any) {
	init := map[string]any{
		"bubbles": true,
		"detail":  detailValue(detail),
	}
	ev := js.Global().Get("CustomEvent").New(event, init)
	e.v.Call("dispatchEvent", ev)
}

func detailValue(detail any) any {
	switch d := detail.(type) {
	case nil:
		return nil
	case rcmp.FailureDetail:
		msg := ""
		if d.Err != nil {
			msg = d.Err.Error()
		}
		return map[string]any{"src": d.Src, "error": msg}
	case rcmp.HydratedDetail:
		return map[string]any{"src": d.Src}
	case js.Value:
		return d
	case string, bool, float64, int:
		return d
	default:
		return nil
	}
}

// elementValue is what a script receives as the element argument: the DOM
// node itself when el wraps one.
func elementValue(el rcmp.Element) any {
	if e, ok := el.(*Element); ok {
		return e.v
	}
	return js.Null()
}

// mountKey is the property storing a mount's id on its DOM element.
const mountKey = "__rcmpMount"

// classSource builds the custom element class around Go hooks.
const classSource = `return class extends HTMLElement {
	static get observedAttributes() { return ["src"]; }
	connectedCallback() { hooks.connected(this); }
	disconnectedCallback() { hooks.disconnected(this); }
	attributeChangedCallback(name, oldValue, newValue) {
		if (name === "src" && oldValue !== newValue) hooks.src(this, newValue);
	}
};`

// elements tracks the live mounts of one defined tag. A mount is released
// when its element is removed and re-created if the element comes back.
type elements struct {
	loader *rcmp.Loader
	opts   []rcmp.Option

	mu     sync.Mutex
	next   int
	mounts map[int]*rcmp.Mount
}

func newElements(loader *rcmp.Loader, opts []rcmp.Option) *elements {
	return &elements{loader: loader, opts: opts, mounts: make(map[int]*rcmp.Mount)}
}

// mount returns the mount of v, creating one if v has none. created reports
// whether the mount is new.
func (es *elements) mount(v js.Value) (m *rcmp.Mount, created bool) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if id := v.Get(mountKey); id.Type() == js.TypeNumber {
		if m, ok := es.mounts[id.Int()]; ok {
			return m, false
		}
	}
	m = rcmp.NewMount(Wrap(v), es.loader, es.opts...)
	es.next++
	es.mounts[es.next] = m
	v.Set(mountKey, es.next)
	return m, true
}

// release detaches the mount from v and forgets it.
func (es *elements) release(v js.Value) (*rcmp.Mount, bool) {
	es.mu.Lock()
	defer es.mu.Unlock()

	id := v.Get(mountKey)
	if id.Type() != js.TypeNumber {
		return nil, false
	}
	v.Delete(mountKey)
	m, ok := es.mounts[id.Int()]
	delete(es.mounts, id.Int())
	return m, ok
}

func (es *elements) live() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.mounts)
}

func srcAttribute(v js.Value) string {
	if a := v.Call("getAttribute", "src"); a.Type() == js.TypeString {
		return a.String()
	}
	return ""
}

// Define registers the custom element tag. Assigning src mounts the
// component; removing the element disconnects it and re-inserting it
// mounts it again. Lifecycle work runs on goroutines so element callbacks
// never block the page.
func Define(tag string, loader *rcmp.Loader, opts ...rcmp.Option) {
	es := newElements(loader, opts)
	ctx := context.Background()

	hooks := map[string]any{
		"src": js.FuncOf(func(this js.Value, args []js.Value) any {
			m, _ := es.mount(this)
			src := ""
			if len(args) > 1 && args[1].Type() == js.TypeString {
				src = args[1].String()
			}
			go m.SetSrc(ctx, src)
			return nil
		}),
		"connected": js.FuncOf(func(this js.Value, args []js.Value) any {
			m, created := es.mount(this)
			if !created {
				go m.Connected(ctx)
				return nil
			}
			if src := srcAttribute(this); src != "" {
				go m.SetSrc(ctx, src)
			}
			return nil
		}),
		"disconnected": js.FuncOf(func(this js.Value, args []js.Value) any {
			if m, ok := es.release(this); ok {
				go m.Disconnected(ctx)
			}
			return nil
		}),
	}

	class := js.Global().Get("Function").New("hooks", classSource).Invoke(hooks)
	js.Global().Get("customElements").Call("define", tag, class)
}

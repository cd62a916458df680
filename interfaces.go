package rcmp

import "context"

// Document is the part of the host page the loader writes elements into.
//
// AppendScript and AppendStylesheet must insert the element before they
// return; the returned future settles on the element's load or error event.
// The error value is whatever the host's error event carried.
type Document interface {
	// AppendScript inserts <script src=src> into the document head.
	// id may be empty; a non-empty id makes the element removable.
	AppendScript(id, src string) *Future

	// RemoveScript removes the script element with the given id.
	// Removing an unknown id is a no-op.
	RemoveScript(id string)

	// AppendStylesheet inserts <link rel="stylesheet" href=href>.
	AppendStylesheet(href string) *Future
}

// Namespace is the host's global symbol table (window in a browser).
//
// Dependency and resolver globals are written by external scripts and only
// read here. Callbacks are owned by whoever registered them and must be
// unregistered by the same owner.
type Namespace interface {
	// Global returns the value bound to name, if any.
	Global(name string) (any, bool)

	// AwaitGlobal blocks until name is bound or ctx is done.
	AwaitGlobal(ctx context.Context, name string) (any, error)

	// RegisterCallback binds name to a function scripts can call with a
	// single argument. The host delivers the argument JSON-encoded, and
	// must allow fn to call back into the host (fn unregisters itself).
	// A JSONP callback fires before its script's load event settles.
	RegisterCallback(name string, fn func(payload []byte))

	// UnregisterCallback removes the binding created by RegisterCallback.
	// After it returns fn is never invoked again.
	UnregisterCallback(name string)
}

// Element is the mount point a component hydrates into.
type Element interface {
	// SetHTML replaces the element's children with the given markup.
	SetHTML(html string)

	// Dispatch emits a lifecycle event on the element so the embedding page
	// can react without errors crossing the element boundary.
	Dispatch(event string, detail any)
}

// Hydrater is implemented by runtime components that take over markup.
//
// Hydrate receives the mount point and the props and state carried by the
// descriptor. The loader waits for it to return before the caller's
// Handle.Hydrate returns.
type Hydrater interface {
	Hydrate(ctx context.Context, el Element, props, state any) error
}

// Renderer is the legacy first-paint entry point, used instead of Hydrate
// when the descriptor carried no server markup.
type Renderer interface {
	Render(ctx context.Context, el Element, props, state any) error
}

// Disconnecter is implemented by runtime components that need teardown.
type Disconnecter interface {
	Disconnect(el Element)
}

// Resolvable is the deprecated export shape: an object whose resolve()
// produces the runtime component asynchronously.
type Resolvable interface {
	Resolve(ctx context.Context) (any, error)
}

// DefaultExporter is the module export shape: the runtime component is the
// module's default export.
type DefaultExporter interface {
	Default() any
}

// Package rcmp loads independently-built UI fragments ("remote components")
// into a page at runtime.
//
// A component is described by a descriptor fetched from a remote endpoint.
// The descriptor names the component's client bundle, the third-party
// scripts and stylesheets it needs, the global symbol its bundle publishes,
// and the props and state to hydrate with. rcmp fetches the descriptor,
// loads everything in dependency order exactly once per document, and
// drives the hydrate/disconnect lifecycle of the mounted fragment.
//
// # Hosts
//
// The engine never touches a DOM directly. It writes through three small
// ports:
//   - Document: inserts script and stylesheet elements
//   - Namespace: the page's global symbols and JSONP callbacks
//   - Element: the mount point a component hydrates into
//
// adapters/browser binds them to a real page (GOOS=js GOARCH=wasm);
// adapters/headless emulates a page natively, executing scripts with an
// embedded JavaScript engine. TestHost and TestElement are in-memory fakes
// for unit tests.
//
// # Loading
//
//	loader := rcmp.NewLoader(doc, ns)
//	h, err := loader.Load(ctx, "/fragments/cart")
//	if err != nil {
//	    return err // transport failure, not retried
//	}
//	err = h.Hydrate(ctx, el)
//
// Descriptors are fetched with a FetchGateway (same origin, JSON or msgpack)
// unless the loader is built WithGateway(NewJSONPGateway(doc, ns)) for
// cross-origin endpoints. The loader never picks a gateway by inspecting the
// URL.
//
// # Dependencies
//
// Dependencies are deduplicated per document: two declarations are the same
// if they share a global variable name or an identical URL. A dependency
// whose global is already defined is never loaded. Within one descriptor,
// loads start in ascending order (unordered ones last) and run concurrently;
// the client bundle starts only after all of them resolved.
//
// # Runtime shapes
//
// The value a bundle publishes under its resolver name may be the runtime
// itself (a Hydrater or *Runtime), a module with a default export
// (DefaultExporter), or the deprecated resolve() shape (Resolvable).
// Normalize turns all three into a Runtime.
//
// # Custom element
//
// Mount is the state machine behind the custom element: assigning src loads
// and hydrates, removal disconnects, and failures are dispatched as
// EventLoadFailed or EventHydrateFailed instead of escaping the element.
package rcmp

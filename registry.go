package rcmp

import (
	"context"
	"fmt"
	"sync"
)

// Registry is an in-memory Namespace.
//
// It stands in for the page's global object wherever no real one exists:
// Go-published runtimes, native hosts and tests. Globals are bound with
// Set; callbacks with RegisterCallback and released with UnregisterCallback.
type Registry struct {
	mu        sync.Mutex
	globals   map[string]any
	callbacks map[string]func(payload []byte)
	waiters   map[string][]chan struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		globals:   make(map[string]any),
		callbacks: make(map[string]func(payload []byte)),
		waiters:   make(map[string][]chan struct{}),
	}
}

// Set binds name to v and wakes every AwaitGlobal waiting on it.
func (r *Registry) Set(name string, v any) {
	r.mu.Lock()
	r.globals[name] = v
	waiters := r.waiters[name]
	delete(r.waiters, name)
	r.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}

// Delete removes a global binding.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.globals, name)
}

// Global returns the value bound to name.
func (r *Registry) Global(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.globals[name]
	return v, ok
}

// AwaitGlobal blocks until name is bound or ctx is done.
func (r *Registry) AwaitGlobal(ctx context.Context, name string) (any, error) {
	r.mu.Lock()
	if v, ok := r.globals[name]; ok {
		r.mu.Unlock()
		return v, nil
	}
	ch := make(chan struct{})
	r.waiters[name] = append(r.waiters[name], ch)
	r.mu.Unlock()

	select {
	case <-ch:
		v, _ := r.Global(name)
		return v, nil
	case <-ctx.Done():
		r.dropWaiter(name, ch)
		return nil, ctx.Err()
	}
}

func (r *Registry) dropWaiter(name string, ch chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	waiters := r.waiters[name]
	for i, w := range waiters {
		if w == ch {
			r.waiters[name] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(r.waiters[name]) == 0 {
		delete(r.waiters, name)
	}
}

// RegisterCallback binds name to fn. Names are owned by their registrant;
// binding a name that is already taken panics, since two owners would
// unregister each other's callback.
func (r *Registry) RegisterCallback(name string, fn func(payload []byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.callbacks[name]; exists {
		panic(fmt.Sprintf("rcmp: callback name collision for %q", name))
	}
	r.callbacks[name] = fn
}

// UnregisterCallback removes the callback bound to name.
func (r *Registry) UnregisterCallback(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.callbacks, name)
}

// Invoke calls the callback bound to name with payload, as a script would.
// It reports whether a callback was bound. The callback runs without the
// registry lock held, so it may unregister itself.
func (r *Registry) Invoke(name string, payload []byte) bool {
	r.mu.Lock()
	fn, ok := r.callbacks[name]
	r.mu.Unlock()

	if !ok {
		return false
	}
	fn(payload)
	return true
}

// Callbacks returns the names of the currently bound callbacks.
func (r *Registry) Callbacks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.callbacks))
	for name := range r.callbacks {
		names = append(names, name)
	}
	return names
}

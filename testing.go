package rcmp

import (
	"sync"
)

// TestHost is an in-memory Document and Namespace for testing loaders and
// runtime components without a browser.
//
// Every injected script and stylesheet is recorded in order. Their load
// outcome is controlled by the test: call Load or Fail on the returned
// TestScript, or set OnScript to react as soon as one is injected.
//
//	host := rcmp.NewTestHost()
//	host.OnScript = func(s *rcmp.TestScript) {
//	    host.Set("Counter", counterRuntime)
//	    s.Load()
//	}
//	loader := rcmp.NewLoader(host, host, rcmp.WithGateway(gw))
type TestHost struct {
	*Registry

	// OnScript is called after a script element has been injected, without
	// internal locks held. Leave nil to settle scripts manually.
	OnScript func(s *TestScript)

	// OnStylesheet is the stylesheet counterpart of OnScript.
	OnStylesheet func(s *TestScript)

	mu      sync.Mutex
	scripts []*TestScript
	styles  []*TestScript
}

// TestScript is a script or stylesheet element injected into a TestHost.
type TestScript struct {
	ID  string
	Src string

	host    *TestHost
	future  *Future
	removed bool
}

// NewTestHost creates an empty test host.
func NewTestHost() *TestHost {
	return &TestHost{Registry: NewRegistry()}
}

// AppendScript records a script element.
func (h *TestHost) AppendScript(id, src string) *Future {
	s := &TestScript{ID: id, Src: src, host: h, future: NewFuture()}

	h.mu.Lock()
	h.scripts = append(h.scripts, s)
	hook := h.OnScript
	h.mu.Unlock()

	if hook != nil {
		hook(s)
	}
	return s.future
}

// RemoveScript marks the script element with the given id as removed.
func (h *TestHost) RemoveScript(id string) {
	if id == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.scripts {
		if s.ID == id {
			s.removed = true
		}
	}
}

// AppendStylesheet records a stylesheet element.
func (h *TestHost) AppendStylesheet(href string) *Future {
	s := &TestScript{Src: href, host: h, future: NewFuture()}

	h.mu.Lock()
	h.styles = append(h.styles, s)
	hook := h.OnStylesheet
	h.mu.Unlock()

	if hook != nil {
		hook(s)
	}
	return s.future
}

// Scripts returns every injected script in injection order.
func (h *TestHost) Scripts() []*TestScript {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*TestScript(nil), h.scripts...)
}

// Stylesheets returns every injected stylesheet in injection order.
func (h *TestHost) Stylesheets() []*TestScript {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*TestScript(nil), h.styles...)
}

// Injected returns the src of every injected script in injection order.
func (h *TestHost) Injected() []string {
	scripts := h.Scripts()
	srcs := make([]string, len(scripts))
	for i, s := range scripts {
		srcs[i] = s.Src
	}
	return srcs
}

// Script returns the first injected script with the given src, or nil.
func (h *TestHost) Script(src string) *TestScript {
	for _, s := range h.Scripts() {
		if s.Src == src {
			return s
		}
	}
	return nil
}

// Present returns the scripts that have not been removed.
func (h *TestHost) Present() []*TestScript {
	h.mu.Lock()
	defer h.mu.Unlock()

	var present []*TestScript
	for _, s := range h.scripts {
		if !s.removed {
			present = append(present, s)
		}
	}
	return present
}

// Load fires the element's load event.
func (s *TestScript) Load() {
	s.future.Settle(nil)
}

// Fail fires the element's error event carrying err.
func (s *TestScript) Fail(err error) {
	s.future.Settle(err)
}

// Removed reports whether the element was removed from the document.
func (s *TestScript) Removed() bool {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	return s.removed
}

// Settled reports whether the element fired load or error.
func (s *TestScript) Settled() bool {
	return s.future.Settled()
}

// TestElement is an in-memory Element recording its content and events.
type TestElement struct {
	mu     sync.Mutex
	html   string
	sets   int
	events []TestEvent
}

// TestEvent is an event dispatched on a TestElement.
type TestEvent struct {
	Name   string
	Detail any
}

// NewTestElement creates an empty element.
func NewTestElement() *TestElement {
	return &TestElement{}
}

// SetHTML replaces the element's content.
func (e *TestElement) SetHTML(html string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.html = html
	e.sets++
}

// Dispatch records an event.
func (e *TestElement) Dispatch(event string, detail any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, TestEvent{Name: event, Detail: detail})
}

// HTML returns the current content.
func (e *TestElement) HTML() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.html
}

// SetCount returns how many times SetHTML was called.
func (e *TestElement) SetCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sets
}

// Events returns the dispatched events in order.
func (e *TestElement) Events() []TestEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]TestEvent(nil), e.events...)
}

// EventNames returns the names of the dispatched events in order.
func (e *TestElement) EventNames() []string {
	events := e.Events()
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Name
	}
	return names
}

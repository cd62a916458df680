package rcmp

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestMount_LoadAndHydrate(t *testing.T) {
	host := NewTestHost()
	gw := &stubGateway{descs: map[string]string{
		"/c": `{"state":"la","client":"c.js","html":"<p>Hi</p>","resolverFunction":"R"}`,
	}}
	el := NewTestElement()

	var htmlAtHydrate string
	host.OnScript = func(s *TestScript) {
		host.Set("R", &Runtime{Hydrate: func(ctx context.Context, got Element, props, state any) error {
			htmlAtHydrate = el.HTML()
			return nil
		}})
		s.Load()
	}

	m := NewMount(el, NewLoader(host, host, WithGateway(gw)))
	if m.State() != StateUnattached {
		t.Errorf("State() = %v, want unattached", m.State())
	}

	m.SetSrc(context.Background(), "/c")

	if m.State() != StateMounted {
		t.Errorf("State() = %v, want mounted", m.State())
	}
	if htmlAtHydrate != "<p>Hi</p>" {
		t.Errorf("html at hydrate = %q, want markup injected first", htmlAtHydrate)
	}
	if got := el.EventNames(); !reflect.DeepEqual(got, []string{EventHydrated}) {
		t.Errorf("events = %v, want [%s]", got, EventHydrated)
	}
	if d, ok := el.Events()[0].Detail.(HydratedDetail); !ok || d.Src != "/c" {
		t.Errorf("detail = %#v", el.Events()[0].Detail)
	}
	if m.Handle() == nil || m.Src() != "/c" {
		t.Error("mount did not keep its handle and src")
	}
}

func TestMount_NoHTMLLeavesContent(t *testing.T) {
	host := NewTestHost()
	gw := &stubGateway{descs: map[string]string{"/c": `{"client":"c.js","resolverFunction":"R"}`}}
	rec := &recorder{}
	publishOnLoad(host, "c.js", "R", rec.runtime())
	el := NewTestElement()

	NewMount(el, NewLoader(host, host, WithGateway(gw))).SetSrc(context.Background(), "/c")

	if el.SetCount() != 0 {
		t.Errorf("SetHTML called %d times, want 0", el.SetCount())
	}
	if calls := rec.Calls(); len(calls) != 1 || calls[0].entry != "render" {
		t.Errorf("calls = %+v, want one render", calls)
	}
}

func TestMount_LoadFailed(t *testing.T) {
	host := NewTestHost()
	gw := &stubGateway{descs: map[string]string{}}
	el := NewTestElement()

	m := NewMount(el, NewLoader(host, host, WithGateway(gw)),
		WithFallback(HTMLFallback("<em>unavailable</em>")))
	m.SetSrc(context.Background(), "/missing")

	events := el.Events()
	if len(events) != 1 || events[0].Name != EventLoadFailed {
		t.Fatalf("events = %v, want [%s]", el.EventNames(), EventLoadFailed)
	}
	d := events[0].Detail.(FailureDetail)
	if d.Src != "/missing" || !IsTransportError(d.Err) {
		t.Errorf("detail = %+v", d)
	}
	if el.HTML() != "<em>unavailable</em>" {
		t.Errorf("HTML() = %q, want fallback", el.HTML())
	}
	if m.State() != StateAttributeSet {
		t.Errorf("State() = %v, want attribute-set", m.State())
	}
}

func TestMount_HydrateFailed(t *testing.T) {
	host := NewTestHost()
	gw := &stubGateway{descs: map[string]string{"/c": `{"client":"c.js","html":"x","resolverFunction":"R"}`}}
	boom := errors.New("hydrate exploded")
	rec := &recorder{err: boom}
	publishOnLoad(host, "c.js", "R", rec.runtime())
	el := NewTestElement()

	m := NewMount(el, NewLoader(host, host, WithGateway(gw)))
	m.SetSrc(context.Background(), "/c")

	events := el.Events()
	if len(events) != 1 || events[0].Name != EventHydrateFailed {
		t.Fatalf("events = %v, want [%s]", el.EventNames(), EventHydrateFailed)
	}
	if d := events[0].Detail.(FailureDetail); !errors.Is(d.Err, boom) {
		t.Errorf("detail error = %v, want %v", d.Err, boom)
	}
	if el.HTML() != "x" {
		t.Errorf("HTML() = %q, want server markup kept without a fallback", el.HTML())
	}
	if m.State() != StateAttributeSet {
		t.Errorf("State() = %v, want attribute-set", m.State())
	}
}

func TestMount_IgnoresSrcWhileMounted(t *testing.T) {
	host := NewTestHost()
	gw := &stubGateway{descs: map[string]string{
		"/a": `{"client":"a.js","html":"A","resolverFunction":"RA"}`,
		"/b": `{"client":"b.js","html":"B","resolverFunction":"RB"}`,
	}}
	rec := &recorder{}
	host.OnScript = func(s *TestScript) {
		host.Set("RA", rec.runtime())
		host.Set("RB", rec.runtime())
		s.Load()
	}
	el := NewTestElement()

	m := NewMount(el, NewLoader(host, host, WithGateway(gw)))
	m.SetSrc(context.Background(), "/a")
	m.SetSrc(context.Background(), "/b")

	if gw.calls != 1 {
		t.Errorf("gateway called %d times, want 1", gw.calls)
	}
	if el.HTML() != "A" || m.Src() != "/a" {
		t.Errorf("HTML() = %q, Src() = %q, want the first component", el.HTML(), m.Src())
	}
}

func TestMount_EmptySrc(t *testing.T) {
	host := NewTestHost()
	gw := &stubGateway{}
	m := NewMount(NewTestElement(), NewLoader(host, host, WithGateway(gw)))

	m.SetSrc(context.Background(), "")

	if gw.calls != 0 {
		t.Errorf("gateway called %d times, want 0", gw.calls)
	}
	if m.State() != StateUnattached {
		t.Errorf("State() = %v, want unattached", m.State())
	}
}

// gatedGateway blocks each fetch until its URL is released.
type gatedGateway struct {
	stubGateway
	gates map[string]chan struct{}
}

func (g *gatedGateway) Fetch(ctx context.Context, url string, v any) error {
	if gate, ok := g.gates[url]; ok {
		<-gate
	}
	return g.stubGateway.Fetch(ctx, url, v)
}

func TestMount_NewerSrcSupersedes(t *testing.T) {
	host := NewTestHost()
	gw := &gatedGateway{
		stubGateway: stubGateway{descs: map[string]string{
			"/old": `{"client":"old.js","html":"old","resolverFunction":"R"}`,
			"/new": `{"client":"new.js","html":"new","resolverFunction":"R"}`,
		}},
		gates: map[string]chan struct{}{"/old": make(chan struct{})},
	}
	rec := &recorder{}
	publishOnLoad(host, "new.js", "R", rec.runtime())
	el := NewTestElement()
	m := NewMount(el, NewLoader(host, host, WithGateway(gw)))

	first := make(chan struct{})
	go func() {
		m.SetSrc(context.Background(), "/old")
		close(first)
	}()
	waitFor(t, func() bool { return m.State() == StateFetching })

	m.SetSrc(context.Background(), "/new")
	close(gw.gates["/old"])
	<-first

	if el.HTML() != "new" {
		t.Errorf("HTML() = %q, want new", el.HTML())
	}
	if m.Handle().URL() != "/new" {
		t.Errorf("Handle().URL() = %q, want /new", m.Handle().URL())
	}
	if host.Script("old.js") != nil {
		t.Error("superseded component was hydrated")
	}
}

func TestMount_DisconnectAndReconnect(t *testing.T) {
	host := NewTestHost()
	gw := &stubGateway{descs: map[string]string{"/c": `{"client":"c.js","html":"x","resolverFunction":"R"}`}}
	rec := &recorder{}
	publishOnLoad(host, "c.js", "R", rec.runtime())
	el := NewTestElement()

	m := NewMount(el, NewLoader(host, host, WithGateway(gw)))
	m.SetSrc(context.Background(), "/c")
	m.Disconnected(context.Background())

	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if rec.TornOff() != 1 {
		t.Errorf("disconnects = %d, want 1", rec.TornOff())
	}
	if m.Handle() != nil {
		t.Error("handle kept after disconnect")
	}

	m.Connected(context.Background())

	if m.State() != StateMounted {
		t.Errorf("State() = %v, want mounted after reconnect", m.State())
	}
	if len(rec.Calls()) != 2 {
		t.Errorf("hydrations = %d, want 2", len(rec.Calls()))
	}
	if len(host.Scripts()) != 1 {
		t.Errorf("client injected %d times, want once per document", len(host.Scripts()))
	}
}

func TestMount_DisconnectDuringLoad(t *testing.T) {
	host := NewTestHost()
	gw := &gatedGateway{
		stubGateway: stubGateway{descs: map[string]string{"/c": `{"client":"c.js","html":"x","resolverFunction":"R"}`}},
		gates:       map[string]chan struct{}{"/c": make(chan struct{})},
	}
	el := NewTestElement()
	m := NewMount(el, NewLoader(host, host, WithGateway(gw)))

	done := make(chan struct{})
	go func() {
		m.SetSrc(context.Background(), "/c")
		close(done)
	}()
	waitFor(t, func() bool { return m.State() == StateFetching })

	m.Disconnected(context.Background())
	close(gw.gates["/c"])

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SetSrc did not return")
	}
	if el.SetCount() != 0 || len(host.Scripts()) != 0 {
		t.Error("disconnected element was still mounted")
	}
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
}

// hookElement runs onSetHTML once, after the markup is written.
type hookElement struct {
	*TestElement
	onSetHTML func()
}

func (e *hookElement) SetHTML(html string) {
	e.TestElement.SetHTML(html)
	if f := e.onSetHTML; f != nil {
		e.onSetHTML = nil
		f()
	}
}

func TestMount_DisconnectBeforeHydrate(t *testing.T) {
	host := NewTestHost()
	gw := &stubGateway{descs: map[string]string{"/c": `{"client":"c.js","html":"x","resolverFunction":"R"}`}}
	rec := &recorder{}
	publishOnLoad(host, "c.js", "R", rec.runtime())
	el := &hookElement{TestElement: NewTestElement()}
	m := NewMount(el, NewLoader(host, host, WithGateway(gw)))

	disconnected := make(chan struct{})
	el.onSetHTML = func() {
		go func() {
			m.Disconnected(context.Background())
			close(disconnected)
		}()
		waitFor(t, func() bool { return m.State() == StateDisconnected })
	}

	m.SetSrc(context.Background(), "/c")

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("Disconnected did not return")
	}
	if len(rec.Calls()) != 1 || rec.TornOff() != 1 {
		t.Errorf("hydrates = %d, disconnects = %d, want 1 and 1", len(rec.Calls()), rec.TornOff())
	}
	if got := el.EventNames(); len(got) != 0 {
		t.Errorf("events = %v, want none after disconnect", got)
	}
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
}

func TestMount_FallbackAfterHydrateFailure(t *testing.T) {
	host := NewTestHost()
	host.OnScript = func(s *TestScript) { s.Fail(errors.New("cdn down")) }
	gw := &stubGateway{descs: map[string]string{"/c": `{"client":"c.js","html":"x","resolverFunction":"R"}`}}
	el := NewTestElement()

	m := NewMount(el, NewLoader(host, host, WithGateway(gw)),
		WithFallback(Placeholder("remote-component", "/c", HTMLFallback("retry later"))))
	m.SetSrc(context.Background(), "/c")

	if got := el.EventNames(); len(got) != 1 || got[0] != EventHydrateFailed {
		t.Fatalf("events = %v, want [%s]", got, EventHydrateFailed)
	}
	if !strings.Contains(el.HTML(), "retry later") {
		t.Errorf("HTML() = %q, want fallback", el.HTML())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateUnattached:   "unattached",
		StateAttributeSet: "attribute-set",
		StateFetching:     "fetching",
		StateMounted:      "mounted",
		StateDisconnected: "disconnected",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

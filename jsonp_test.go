package rcmp

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/pthm/rcmp/lib/idgen"
)

// callbackOf extracts the callback parameter from an injected JSONP src.
func callbackOf(t *testing.T, src string) string {
	t.Helper()
	u, err := url.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return u.Query().Get("callback")
}

func TestCallbackURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"http://x/c", "http://x/c?callback=cb1"},
		{"http://x/c?id=7", "http://x/c?callback=cb1&id=7"},
		{"http://x/c?callback=old", "http://x/c?callback=cb1"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := CallbackURL(tt.raw, "cb1")
			if err != nil {
				t.Fatalf("CallbackURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CallbackURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJSONPGateway_Success(t *testing.T) {
	host := NewTestHost()
	var seenCallbackBound bool
	host.OnScript = func(s *TestScript) {
		name := callbackOf(t, s.Src)
		for _, cb := range host.Callbacks() {
			if cb == name {
				seenCallbackBound = true
			}
		}
		host.Invoke(name, []byte(`{"client":"http://x/c.js","resolverFunction":"R","state":"la"}`))
		s.Load()
	}

	g := NewJSONPGateway(host, host, WithIDGenerator(idgen.NewSequential("t")))
	desc, err := FetchAs[Descriptor[any, string]](context.Background(), g, "http://x/desc?lang=en")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if desc.Client != "http://x/c.js" || desc.State != "la" || desc.ResolverFunction != "R" {
		t.Errorf("descriptor = %+v", desc)
	}
	if !seenCallbackBound {
		t.Error("callback was not bound when the script was injected")
	}

	scripts := host.Scripts()
	if len(scripts) != 1 {
		t.Fatalf("injected %d scripts, want 1", len(scripts))
	}
	if scripts[0].ID != "t1" {
		t.Errorf("script id = %q, want t1", scripts[0].ID)
	}
	if name := callbackOf(t, scripts[0].Src); name != CallbackPrefix+"t1" {
		t.Errorf("callback = %q, want %q", name, CallbackPrefix+"t1")
	}
	if !strings.Contains(scripts[0].Src, "lang=en") {
		t.Errorf("src %q lost the original query", scripts[0].Src)
	}
	if !scripts[0].Removed() {
		t.Error("script element not removed after callback")
	}
	if len(host.Callbacks()) != 0 {
		t.Errorf("callbacks left bound: %v", host.Callbacks())
	}
}

func TestJSONPGateway_ScriptError(t *testing.T) {
	host := NewTestHost()
	boom := errors.New("net::ERR_NAME_NOT_RESOLVED")
	host.OnScript = func(s *TestScript) { s.Fail(boom) }

	g := NewJSONPGateway(host, host)
	var v map[string]any
	err := g.Fetch(context.Background(), "http://down/desc", &v)

	if !IsTransportError(err) {
		t.Errorf("Fetch() error = %v, want transport error", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Fetch() error = %v, want host error in chain", err)
	}
	if len(host.Present()) != 0 {
		t.Error("script element not removed after error")
	}
	if len(host.Callbacks()) != 0 {
		t.Errorf("callbacks left bound: %v", host.Callbacks())
	}
}

func TestJSONPGateway_LoadWithoutCallback(t *testing.T) {
	host := NewTestHost()
	host.OnScript = func(s *TestScript) { s.Load() }

	g := NewJSONPGateway(host, host)
	var v map[string]any
	err := g.Fetch(context.Background(), "http://x/not-jsonp.js", &v)

	if !errors.Is(err, ErrNoCallback) {
		t.Errorf("Fetch() error = %v, want ErrNoCallback", err)
	}
	if len(host.Present()) != 0 || len(host.Callbacks()) != 0 {
		t.Error("cleanup did not run")
	}
}

func TestJSONPGateway_ContextCancel(t *testing.T) {
	host := NewTestHost()
	g := NewJSONPGateway(host, host)

	ctx, cancel := context.WithCancel(context.Background())
	host.OnScript = func(s *TestScript) { cancel() }

	var v map[string]any
	err := g.Fetch(ctx, "http://slow/desc", &v)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
	if len(host.Present()) != 0 || len(host.Callbacks()) != 0 {
		t.Error("cleanup did not run on cancellation")
	}

	// A late load event after cancellation must not panic or re-run cleanup.
	host.Scripts()[0].Load()
}

func TestJSONPGateway_BadPayload(t *testing.T) {
	host := NewTestHost()
	host.OnScript = func(s *TestScript) {
		host.Invoke(callbackOf(t, s.Src), []byte(`"not an object"`))
		s.Load()
	}

	g := NewJSONPGateway(host, host)
	var v Descriptor[any, any]
	if err := g.Fetch(context.Background(), "http://x/desc", &v); !IsTransportError(err) {
		t.Errorf("Fetch() error = %v, want transport error", err)
	}
	if len(host.Callbacks()) != 0 {
		t.Error("callback left bound after bad payload")
	}
}

func TestJSONPGateway_UniqueCallbacks(t *testing.T) {
	host := NewTestHost()
	names := make(map[string]bool)
	host.OnScript = func(s *TestScript) {
		name := callbackOf(t, s.Src)
		names[name] = true
		host.Invoke(name, []byte(`{}`))
		s.Load()
	}

	g := NewJSONPGateway(host, host)
	for i := 0; i < 20; i++ {
		var v map[string]any
		if err := g.Fetch(context.Background(), "http://x/desc", &v); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	if len(names) != 20 {
		t.Errorf("got %d distinct callback names for 20 calls", len(names))
	}
}

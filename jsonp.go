package rcmp

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/pthm/rcmp/lib/codec"
	"github.com/pthm/rcmp/lib/metrics"
)

// CallbackPrefix prefixes every JSONP callback name.
const CallbackPrefix = "__rcmp_jsonp_"

// JSONPGateway retrieves descriptors cross-origin by injecting a script whose
// response calls back into a uniquely named global function.
type JSONPGateway struct {
	doc     Document
	ns      Namespace
	ids     IDGenerator
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewJSONPGateway creates a JSONP gateway writing into doc and ns.
func NewJSONPGateway(doc Document, ns Namespace, opts ...Option) *JSONPGateway {
	o := newOptions(opts)
	return &JSONPGateway{
		doc:     doc,
		ns:      ns,
		ids:     o.ids,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// CallbackURL appends callback=name to raw, keeping its other parameters.
func CallbackURL(raw, name string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("callback", name)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch injects the JSONP script and waits for its callback.
//
// The script element and the callback binding are removed exactly once,
// whichever way the call ends, and before Fetch returns. A script error
// fails with ErrTransport; a script that loads without calling back fails
// with ErrNoCallback.
func (g *JSONPGateway) Fetch(ctx context.Context, rawURL string, v any) error {
	err := g.fetch(ctx, rawURL, v)
	g.metrics.RecordFetch("jsonp", err)
	if err != nil {
		g.logger.Warn().Str("url", rawURL).Err(err).Msg("jsonp fetch failed")
	}
	return err
}

func (g *JSONPGateway) fetch(ctx context.Context, rawURL string, v any) error {
	id := g.ids.New()
	name := CallbackPrefix + id

	src, err := CallbackURL(rawURL, name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	result := NewFuture()
	var claimed atomic.Bool
	// claim returns true for exactly one caller, after cleanup has run.
	claim := func() bool {
		if !claimed.CompareAndSwap(false, true) {
			return false
		}
		g.doc.RemoveScript(id)
		g.ns.UnregisterCallback(name)
		g.metrics.JSONPFinished()
		return true
	}

	g.metrics.JSONPStarted()
	g.ns.RegisterCallback(name, func(payload []byte) {
		if !claim() {
			return
		}
		if err := codec.DecodeFormat(codec.FormatJSON, payload, v); err != nil {
			result.Settle(fmt.Errorf("%w: %s: %w", ErrTransport, rawURL, err))
			return
		}
		result.Settle(nil)
	})

	g.logger.Debug().Str("url", src).Str("callback", name).Msg("injecting jsonp script")
	loaded := g.doc.AppendScript(id, src)

	go func() {
		<-loaded.Done()
		if err := loaded.Err(); err != nil {
			if claim() {
				result.Settle(fmt.Errorf("%w: jsonp %s: %w", ErrTransport, rawURL, err))
			}
			return
		}
		if claim() {
			result.Settle(fmt.Errorf("%w: %s", ErrNoCallback, rawURL))
		}
	}()

	select {
	case <-result.Done():
		return result.Err()
	case <-ctx.Done():
		if claim() {
			return ctx.Err()
		}
		// The callback or the script event won the race; its outcome stands.
		<-result.Done()
		return result.Err()
	}
}

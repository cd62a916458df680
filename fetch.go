package rcmp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pthm/rcmp/lib/codec"
	"github.com/pthm/rcmp/lib/metrics"
)

// Gateway retrieves a descriptor from a remote endpoint and decodes it into v.
//
// The loader never inspects URLs to pick a gateway; the embedding context
// constructs the loader with the one it needs.
type Gateway interface {
	Fetch(ctx context.Context, url string, v any) error
}

// FetchAs is the typed form of Gateway.Fetch.
func FetchAs[T any](ctx context.Context, g Gateway, url string) (T, error) {
	var v T
	err := g.Fetch(ctx, url, &v)
	return v, err
}

// FetchGateway retrieves descriptors with plain HTTP GET requests.
type FetchGateway struct {
	client  *http.Client
	headers map[string]string
	timeout time.Duration
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// FetchConfig configures a FetchGateway.
type FetchConfig struct {
	Client  *http.Client // Defaults to http.DefaultClient
	Headers map[string]string
	Timeout time.Duration // Zero means no per-request timeout
}

// NewFetchGateway creates a fetch gateway.
func NewFetchGateway(cfg FetchConfig, opts ...Option) *FetchGateway {
	o := newOptions(opts)
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &FetchGateway{
		client:  client,
		headers: cfg.Headers,
		timeout: cfg.Timeout,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Fetch performs the request. Non-2xx responses fail with a *FetchError
// carrying the response body; 2xx bodies are decoded into v according to
// their Content-Type.
func (g *FetchGateway) Fetch(ctx context.Context, url string, v any) error {
	err := g.fetch(ctx, url, v)
	g.metrics.RecordFetch("fetch", err)
	if err != nil {
		g.logger.Warn().Str("url", url).Err(err).Msg("descriptor fetch failed")
	}
	return err
}

func (g *FetchGateway) fetch(ctx context.Context, url string, v any) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", codec.Accept)
	for k, val := range g.headers {
		req.Header.Set(k, val)
	}

	g.logger.Debug().Str("url", url).Msg("fetching descriptor")
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if err := codec.Decode(resp.Header.Get("Content-Type"), body, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, url, err)
	}
	return nil
}

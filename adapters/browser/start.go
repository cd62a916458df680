//go:build js && wasm

package browser

import (
	"fmt"
	"syscall/js"

	"github.com/pthm/rcmp"
	"github.com/pthm/rcmp/lib/config"
)

// ConfigElementID is the id of the optional inline YAML configuration.
const ConfigElementID = "rcmp-config"

// consoleWriter writes log lines to the browser console.
type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	js.Global().Get("console").Call("log", string(p))
	return len(p), nil
}

// LoadConfig reads the inline configuration element, or returns the
// defaults if the page has none.
func LoadConfig() (*config.Config, error) {
	el := js.Global().Get("document").Call("getElementById", ConfigElementID)
	if !el.Truthy() {
		return config.Default(), nil
	}
	cfg, err := config.Parse([]byte(el.Get("textContent").String()))
	if err != nil {
		return nil, fmt.Errorf("browser: %s: %w", ConfigElementID, err)
	}
	return cfg, nil
}

// Start configures a loader for the current page and defines the custom
// element. The caller keeps the program alive afterwards.
func Start(opts ...rcmp.Option) (*rcmp.Loader, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(cfg.Logging, consoleWriter{})
	page := NewPage(WithLogger(logger))

	loader, _ := rcmp.NewFromConfig(cfg, page, page, logger, opts...)

	mountOpts := []rcmp.Option{rcmp.WithLogger(logger)}
	if fb := rcmp.HTMLFallback(cfg.Element.FallbackHTML); fb != nil {
		mountOpts = append(mountOpts, rcmp.WithFallback(fb))
	}
	Define(cfg.Element.Tag, loader, append(mountOpts, opts...)...)

	logger.Info().
		Str("tag", cfg.Element.Tag).
		Str("gateway", cfg.Loader.Gateway).
		Msg("remote components ready")
	return loader, nil
}

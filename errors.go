package rcmp

import (
	"errors"
	"fmt"
)

// Sentinel errors for loader operations.
var (
	ErrTransport       = errors.New("rcmp: descriptor transport failed")
	ErrScriptLoad      = errors.New("rcmp: script failed to load")
	ErrStylesheet      = errors.New("rcmp: stylesheet failed to load")
	ErrNoCallback      = errors.New("rcmp: jsonp script loaded without invoking its callback")
	ErrResolverMissing = errors.New("rcmp: resolver global was not published")
	ErrResolverShape   = errors.New("rcmp: resolver global has no usable runtime shape")
	ErrResolveFailed   = errors.New("rcmp: resolver resolve() failed")
	ErrInvalidTag      = errors.New("rcmp: invalid custom element name")
)

// FetchError is returned by the fetch gateway for non-2xx responses.
// The message carries the response body so callers can surface server
// diagnostics as-is.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("rcmp: fetch %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Is makes every FetchError match ErrTransport.
func (e *FetchError) Is(target error) bool {
	return target == ErrTransport
}

// IsTransportError checks if err is a descriptor fetch failure
// (network error, non-2xx status, or JSONP script error).
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsDependencyError checks if err came from a script or stylesheet that
// failed to load.
func IsDependencyError(err error) bool {
	return errors.Is(err, ErrScriptLoad) || errors.Is(err, ErrStylesheet)
}

// IsResolverError checks if err came from resolving the runtime component.
func IsResolverError(err error) bool {
	return errors.Is(err, ErrResolverMissing) ||
		errors.Is(err, ErrResolverShape) ||
		errors.Is(err, ErrResolveFailed)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}

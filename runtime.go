package rcmp

import (
	"context"
	"fmt"
)

// Shape classifies the value a client bundle publishes under its resolver name.
type Shape int

const (
	// ShapeInvalid is a value no runtime can be built from.
	ShapeInvalid Shape = iota
	// ShapeResolve is the deprecated shape: resolve() yields the runtime.
	ShapeResolve
	// ShapeDefault is a module whose default export is the runtime.
	ShapeDefault
	// ShapeDirect is the runtime itself.
	ShapeDirect
)

func (s Shape) String() string {
	switch s {
	case ShapeResolve:
		return "resolve"
	case ShapeDefault:
		return "default"
	case ShapeDirect:
		return "direct"
	default:
		return "invalid"
	}
}

// HydrateFunc is the signature of the hydrate and render entry points.
type HydrateFunc func(ctx context.Context, el Element, props, state any) error

// Runtime is the normalized runtime implementation of a component.
// Hydrate is required; Render and Disconnect are optional.
type Runtime struct {
	Hydrate    HydrateFunc
	Render     HydrateFunc
	Disconnect func(el Element)
}

// Classify reports which export shape v has. When a value satisfies several
// shapes, resolve() wins over a default export, which wins over the value
// itself.
func Classify(v any) Shape {
	if _, ok := v.(Resolvable); ok {
		return ShapeResolve
	}
	if _, ok := v.(DefaultExporter); ok {
		return ShapeDefault
	}
	if direct(v) != nil {
		return ShapeDirect
	}
	return ShapeInvalid
}

// Normalize turns a published resolver value into a Runtime.
//
// The object produced by resolve() and the default export are used as the
// runtime directly; they are not classified again.
func Normalize(ctx context.Context, v any) (*Runtime, error) {
	switch Classify(v) {
	case ShapeResolve:
		resolved, err := v.(Resolvable).Resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResolveFailed, err)
		}
		return asRuntime(resolved, "resolve()")
	case ShapeDefault:
		return asRuntime(v.(DefaultExporter).Default(), "default export")
	case ShapeDirect:
		return direct(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrResolverShape, v)
	}
}

func asRuntime(v any, from string) (*Runtime, error) {
	if rt := direct(v); rt != nil {
		return rt, nil
	}
	return nil, fmt.Errorf("%w: %s produced %T", ErrResolverShape, from, v)
}

// direct builds a Runtime from a value that is one, or nil.
func direct(v any) *Runtime {
	switch c := v.(type) {
	case *Runtime:
		if c == nil || c.Hydrate == nil {
			return nil
		}
		return c
	case Runtime:
		if c.Hydrate == nil {
			return nil
		}
		return &c
	case Hydrater:
		rt := &Runtime{Hydrate: c.Hydrate}
		if r, ok := v.(Renderer); ok {
			rt.Render = r.Render
		}
		if d, ok := v.(Disconnecter); ok {
			rt.Disconnect = d.Disconnect
		}
		return rt
	}
	return nil
}

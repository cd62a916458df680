package rcmp

import (
	"cmp"
	"slices"
)

// Descriptor describes one component instance as produced by the server.
//
// Field names are shared by the JSON and msgpack encodings.
type Descriptor[P, S any] struct {
	Props            P            `json:"props"`
	State            S            `json:"state"`
	HTML             *string      `json:"html,omitempty"`
	Client           string       `json:"client"`
	Styles           []string     `json:"styles,omitempty"`
	ResolverFunction string       `json:"resolverFunction"`
	Dependencies     []Dependency `json:"dependencies,omitempty"`
}

// HasHTML reports whether the server supplied pre-rendered markup.
func (d *Descriptor[P, S]) HasHTML() bool {
	return d.HTML != nil
}

// Dependency is a third-party script a component needs before its bundle runs.
//
// Two dependencies are the same if they share a GlobalVariable (both set) or
// have an identical URL. URLs are compared verbatim.
type Dependency struct {
	URL            string `json:"dependency"`
	GlobalVariable string `json:"globalVariable,omitempty"`
	Order          *int   `json:"order,omitempty"`
}

// Ordered returns a copy of d with Order set.
func (d Dependency) Ordered(order int) Dependency {
	d.Order = &order
	return d
}

// SameAs reports whether d and other share an identity.
func (d Dependency) SameAs(other Dependency) bool {
	if d.GlobalVariable != "" && d.GlobalVariable == other.GlobalVariable {
		return true
	}
	return d.URL == other.URL
}

// SortDependencies returns deps in load-initiation order: ascending Order,
// dependencies without an Order after all ordered ones, ties in declaration
// order. deps is not modified.
func SortDependencies(deps []Dependency) []Dependency {
	sorted := slices.Clone(deps)
	slices.SortStableFunc(sorted, func(a, b Dependency) int {
		switch {
		case a.Order == nil && b.Order == nil:
			return 0
		case a.Order == nil:
			return 1
		case b.Order == nil:
			return -1
		}
		return cmp.Compare(*a.Order, *b.Order)
	})
	return sorted
}

package rcmp

import (
	"encoding/json"
	"reflect"
	"testing"
)

func urls(deps []Dependency) []string {
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.URL
	}
	return out
}

func TestSortDependencies(t *testing.T) {
	tests := []struct {
		name string
		deps []Dependency
		want []string
	}{
		{
			name: "ordered before unordered",
			deps: []Dependency{
				Dependency{URL: "A"}.Ordered(2),
				{URL: "B"},
				Dependency{URL: "C"}.Ordered(1),
				Dependency{URL: "D"}.Ordered(0),
			},
			want: []string{"D", "C", "A", "B"},
		},
		{
			name: "unordered keep declaration order",
			deps: []Dependency{{URL: "x"}, {URL: "y"}, {URL: "z"}},
			want: []string{"x", "y", "z"},
		},
		{
			name: "ties keep declaration order",
			deps: []Dependency{
				Dependency{URL: "late"}.Ordered(5),
				Dependency{URL: "first"}.Ordered(1),
				Dependency{URL: "second"}.Ordered(1),
			},
			want: []string{"first", "second", "late"},
		},
		{
			name: "negative orders",
			deps: []Dependency{{URL: "none"}, Dependency{URL: "neg"}.Ordered(-3)},
			want: []string{"neg", "none"},
		},
		{
			name: "empty",
			deps: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := urls(SortDependencies(tt.deps))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SortDependencies() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortDependencies_DoesNotMutate(t *testing.T) {
	deps := []Dependency{{URL: "b"}, Dependency{URL: "a"}.Ordered(0)}
	SortDependencies(deps)
	if deps[0].URL != "b" {
		t.Error("SortDependencies modified its input")
	}
}

func TestDependency_SameAs(t *testing.T) {
	tests := []struct {
		name string
		a, b Dependency
		want bool
	}{
		{"same url", Dependency{URL: "u"}, Dependency{URL: "u"}, true},
		{"same global", Dependency{URL: "u1", GlobalVariable: "React"}, Dependency{URL: "u2", GlobalVariable: "React"}, true},
		{"different global same url", Dependency{URL: "u", GlobalVariable: "A"}, Dependency{URL: "u", GlobalVariable: "B"}, true},
		{"query differs", Dependency{URL: "u?v=1"}, Dependency{URL: "u?v=2"}, false},
		{"one global only", Dependency{URL: "u1", GlobalVariable: "A"}, Dependency{URL: "u2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.SameAs(tt.b); got != tt.want {
				t.Errorf("SameAs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDescriptor_JSONNames(t *testing.T) {
	data := `{
		"props": {"id": 7},
		"state": "la",
		"client": "http://x/c.js",
		"styles": ["http://x/c.css"],
		"resolverFunction": "R",
		"dependencies": [{"dependency": "http://x/react.js", "globalVariable": "React", "order": 1}]
	}`

	var d Descriptor[map[string]int, string]
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if d.Props["id"] != 7 || d.State != "la" || d.Client != "http://x/c.js" || d.ResolverFunction != "R" {
		t.Errorf("descriptor = %+v", d)
	}
	if d.HasHTML() {
		t.Error("HasHTML() = true for descriptor without html")
	}
	if len(d.Dependencies) != 1 || d.Dependencies[0].GlobalVariable != "React" || *d.Dependencies[0].Order != 1 {
		t.Errorf("dependencies = %+v", d.Dependencies)
	}
}

package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Locator identifies one element among the descendants of a node: the
// Index-th element of kind Kind whose attributes satisfy Attrs.
type Locator struct {
	Kind  string            `json:"kind,omitempty" yaml:"kind,omitempty"`   // element name, empty matches any element
	Attrs map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"` // attribute filter
	Index int               `json:"index,omitempty" yaml:"index,omitempty" validate:"min=0"`
}

// At returns a locator for the index-th element of the given kind.
func At(kind string, index int) Locator {
	return Locator{Kind: kind, Index: index}
}

// With returns a copy of l with the attribute filter key=value added.
func (l Locator) With(key, value string) Locator {
	attrs := make(map[string]string, len(l.Attrs)+1)
	for k, v := range l.Attrs {
		attrs[k] = v
	}
	attrs[key] = value
	l.Attrs = attrs
	return l
}

// MatchesAttrs reports whether the attribute lookup satisfies the filter.
//
// The class filter matches either the whole class attribute or a single
// class token; every other attribute must be equal.
func (l Locator) MatchesAttrs(attr func(name string) (string, bool)) bool {
	for name, want := range l.Attrs {
		got, ok := attr(name)
		if !ok {
			return false
		}
		if name == "class" {
			if !classMatches(got, want) {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

func classMatches(got, want string) bool {
	tokens := strings.Fields(got)
	wantTokens := strings.Fields(want)
	if strings.Join(tokens, " ") == strings.Join(wantTokens, " ") {
		return true
	}
	if len(wantTokens) != 1 {
		return false
	}
	for _, t := range tokens {
		if t == wantTokens[0] {
			return true
		}
	}
	return false
}

// String renders the locator in a selector-like form for diagnostics,
// e.g. span[class="row-1"]#0.
func (l Locator) String() string {
	var sb strings.Builder
	if l.Kind == "" {
		sb.WriteString("*")
	} else {
		sb.WriteString(l.Kind)
	}

	keys := make([]string, 0, len(l.Attrs))
	for k := range l.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "[%s=%q]", k, l.Attrs[k])
	}

	fmt.Fprintf(&sb, "#%d", l.Index)
	return sb.String()
}

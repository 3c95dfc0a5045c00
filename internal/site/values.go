// Package site holds the site-wide data tree passed read-only into
// template rendering. The tree is a nested string-keyed value map with a
// total lookup: asking for an absent key returns an explicit "not found"
// result instead of silently propagating nils, and reading never mutates
// the tree.
package site

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultEnvironment is the section of the site data file that is always
// applied; named environments overlay it.
const DefaultEnvironment = "default"

// Values is an immutable-by-convention nested value tree. Keys are
// strings; values are scalars, []any, or nested Values.
type Values map[string]any

// Lookup resolves a dot-separated path ("author.name") through nested
// maps. The second result reports whether every segment was present; a
// missing segment anywhere yields (nil, false), never a panic and never a
// silently created node.
func (v Values) Lookup(path string) (any, bool) {
	cur := any(v)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(Values)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Get returns the value at a dot-separated path, or the empty string when
// absent. Exposed to templates where a total, non-failing accessor is
// more convenient than Lookup.
func (v Values) Get(path string) any {
	val, ok := v.Lookup(path)
	if !ok {
		return ""
	}
	return val
}

// Merge returns a new tree with other overlaid on v. Maps merge
// recursively; nil values in other are ignored; anything else in other
// replaces the value in v. Neither input is modified.
func (v Values) Merge(other Values) Values {
	out := make(Values, len(v)+len(other))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range other {
		if val == nil {
			continue
		}
		if base, ok := out[k].(Values); ok {
			if overlay, ok := val.(Values); ok {
				out[k] = base.Merge(overlay)
				continue
			}
		}
		out[k] = val
	}
	return out
}

// normalize converts the map[string]any trees produced by the YAML
// decoder into Values recursively so Lookup and Merge see one shape.
func normalize(val any) any {
	switch t := val.(type) {
	case map[string]any:
		out := make(Values, len(t))
		for k, v := range t {
			out[k] = normalize(v)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = normalize(v)
		}
		return out
	default:
		return val
	}
}

// Load reads a site data file and returns the tree for the requested
// environment: the "default" section, with the named environment's
// section (when present and not itself "default") deep-merged over it.
// The file must contain a "default" section.
func Load(path, env string) (Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, env)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte, env string) (Values, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing site data: %w", err)
	}

	sections, _ := normalize(raw).(Values)
	base, ok := sections[DefaultEnvironment].(Values)
	if !ok {
		return nil, fmt.Errorf("site data must have a %q section", DefaultEnvironment)
	}

	if env != "" && env != DefaultEnvironment {
		overlay, ok := sections[env].(Values)
		if !ok {
			return nil, fmt.Errorf("site data has no %q section", env)
		}
		return base.Merge(overlay), nil
	}
	return base, nil
}

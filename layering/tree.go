// Package layering holds the tree primitives shared by the settings store:
// deep cloning, leaf normalization, completion of partial trees from a
// defaults tree, and strong-to-weak merging of layered inputs.
package layering

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Group is one level of a settings tree. Values are either nested Groups or
// leaf values (string, bool, float64).
type Group = map[string]any

var (
	// ErrShapeMismatch indicates a group was supplied where a leaf is
	// expected, or the other way around.
	ErrShapeMismatch = errors.New("layering: shape mismatch")
	// ErrUnknownKey indicates a key that has no counterpart in the defaults.
	ErrUnknownKey = errors.New("layering: unknown key")
	// ErrInvalidLeaf indicates a leaf that is not a string, bool or number.
	ErrInvalidLeaf = errors.New("layering: invalid leaf value")
)

// IsGroup reports whether v is a settings group.
func IsGroup(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// Clone deep copies a settings tree. Nested groups are copied; leaves are
// immutable values and shared.
func Clone(g Group) Group {
	if g == nil {
		return nil
	}
	out := make(Group, len(g))
	for key, value := range g {
		if child, ok := value.(map[string]any); ok {
			out[key] = Clone(child)
			continue
		}
		out[key] = value
	}
	return out
}

// NormalizeLeaf converts supported leaf values into their canonical form:
// every numeric kind becomes float64. ok is false for unsupported values.
func NormalizeLeaf(v any) (any, bool) {
	switch typed := v.(type) {
	case string, bool, float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	default:
		return nil, false
	}
}

// LeafEqual compares two leaves after normalization.
func LeafEqual(a, b any) bool {
	na, okA := NormalizeLeaf(a)
	nb, okB := NormalizeLeaf(b)
	if okA && okB {
		return na == nb
	}
	return false
}

// Normalize rewrites every leaf of g in place into its canonical form. The
// first unsupported leaf aborts the walk.
func Normalize(g Group) error {
	return normalize(g, "")
}

func normalize(g Group, prefix string) error {
	for _, key := range sortedKeys(g) {
		path := JoinPath(prefix, key)
		value := g[key]
		if child, ok := value.(map[string]any); ok {
			if err := normalize(child, path); err != nil {
				return err
			}
			continue
		}
		leaf, ok := NormalizeLeaf(value)
		if !ok {
			return fmt.Errorf("%w: %s (%T)", ErrInvalidLeaf, path, value)
		}
		g[key] = leaf
	}
	return nil
}

// Complete returns a new tree with the shape of defaults, taking values from
// partial where supplied and from defaults everywhere else. Completing an
// already complete tree yields an equal tree.
func Complete(partial, defaults Group) (Group, error) {
	return complete(partial, defaults, "")
}

func complete(partial, defaults Group, prefix string) (Group, error) {
	for key := range partial {
		if _, ok := defaults[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, JoinPath(prefix, key))
		}
	}

	out := make(Group, len(defaults))
	for _, key := range sortedKeys(defaults) {
		path := JoinPath(prefix, key)
		def := defaults[key]
		supplied, has := partial[key]
		defGroup, defIsGroup := def.(map[string]any)

		if !has {
			if defIsGroup {
				out[key] = Clone(defGroup)
			} else {
				out[key] = def
			}
			continue
		}

		suppliedGroup, suppliedIsGroup := supplied.(map[string]any)
		switch {
		case defIsGroup && suppliedIsGroup:
			child, err := complete(suppliedGroup, defGroup, path)
			if err != nil {
				return nil, err
			}
			out[key] = child
		case defIsGroup != suppliedIsGroup:
			return nil, fmt.Errorf("%w: %s", ErrShapeMismatch, path)
		default:
			leaf, ok := NormalizeLeaf(supplied)
			if !ok {
				return nil, fmt.Errorf("%w: %s (%T)", ErrInvalidLeaf, path, supplied)
			}
			out[key] = leaf
		}
	}
	return out, nil
}

// SplitPath splits a dotted path into its segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// JoinPath appends segment to a dotted prefix.
func JoinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

func sortedKeys(g Group) []string {
	keys := make([]string, 0, len(g))
	for key := range g {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

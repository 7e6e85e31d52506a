// Package patch computes structural differences between two settings trees.
//
// Diff walks both trees once and produces a forward patch list (old -> new)
// together with its inverse (new -> old). Entries are emitted in lockstep:
// inverse[i] undoes forward[i]. Apply replays either list onto a copy of a
// tree, so Apply(new, inverse) reproduces old.
package patch

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-paracharts/layering"
)

// Op names the kind of structural change a Patch records.
type Op string

const (
	// OpReplace swaps a leaf value for another.
	OpReplace Op = "replace"
	// OpAdd introduces a key that was not present before.
	OpAdd Op = "add"
	// OpRemove deletes an existing key.
	OpRemove Op = "remove"
)

var (
	// ErrShapeMismatch indicates a group and a leaf occupy the same path in
	// the two trees being compared.
	ErrShapeMismatch = errors.New("patch: group and leaf at same path")
	// ErrPathNotFound indicates Apply could not resolve a patch path.
	ErrPathNotFound = errors.New("patch: path not found")
	// ErrUnsupportedOp indicates a patch carrying an unknown Op.
	ErrUnsupportedOp = errors.New("patch: unsupported op")
)

// Patch is one structural change addressed by its key segments.
type Patch struct {
	Op    Op       `json:"op"`
	Path  []string `json:"path"`
	Value any      `json:"value,omitempty"`
}

// PathString joins the patch segments into a dotted path.
func (p Patch) PathString() string {
	return strings.Join(p.Path, ".")
}

// Diff compares old and new and returns the forward and inverse patch lists.
// Keys are visited in sorted order so the output is deterministic.
func Diff(old, new map[string]any) (forward, inverse []Patch, err error) {
	d := differ{}
	if err := d.walk(old, new, nil); err != nil {
		return nil, nil, err
	}
	return d.forward, d.inverse, nil
}

type differ struct {
	forward []Patch
	inverse []Patch
}

func (d *differ) emit(fwd, inv Patch) {
	d.forward = append(d.forward, fwd)
	d.inverse = append(d.inverse, inv)
}

func (d *differ) walk(old, new map[string]any, prefix []string) error {
	for _, key := range unionKeys(old, new) {
		path := appendPath(prefix, key)
		oldValue, inOld := old[key]
		newValue, inNew := new[key]

		switch {
		case inOld && !inNew:
			d.emit(
				Patch{Op: OpRemove, Path: path},
				Patch{Op: OpAdd, Path: path, Value: cloneAny(oldValue)},
			)
		case !inOld && inNew:
			d.emit(
				Patch{Op: OpAdd, Path: path, Value: cloneAny(newValue)},
				Patch{Op: OpRemove, Path: path},
			)
		default:
			oldGroup, oldIsGroup := oldValue.(map[string]any)
			newGroup, newIsGroup := newValue.(map[string]any)
			if oldIsGroup != newIsGroup {
				return fmt.Errorf("%w: %s", ErrShapeMismatch, strings.Join(path, "."))
			}
			if oldIsGroup {
				if err := d.walk(oldGroup, newGroup, path); err != nil {
					return err
				}
				continue
			}
			if layering.LeafEqual(oldValue, newValue) {
				continue
			}
			d.emit(
				Patch{Op: OpReplace, Path: path, Value: newValue},
				Patch{Op: OpReplace, Path: path, Value: oldValue},
			)
		}
	}
	return nil
}

// Apply returns a copy of tree with patches applied in order. tree itself is
// left untouched.
func Apply(tree map[string]any, patches []Patch) (map[string]any, error) {
	out := layering.Clone(tree)
	if out == nil {
		out = map[string]any{}
	}
	for _, p := range patches {
		if err := applyOne(out, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func applyOne(tree map[string]any, p Patch) error {
	if len(p.Path) == 0 {
		return fmt.Errorf("%w: empty path", ErrPathNotFound)
	}
	parent := tree
	for _, segment := range p.Path[:len(p.Path)-1] {
		next, ok := parent[segment].(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s", ErrPathNotFound, p.PathString())
		}
		parent = next
	}
	key := p.Path[len(p.Path)-1]

	switch p.Op {
	case OpReplace:
		if _, ok := parent[key]; !ok {
			return fmt.Errorf("%w: %s", ErrPathNotFound, p.PathString())
		}
		parent[key] = cloneAny(p.Value)
	case OpAdd:
		parent[key] = cloneAny(p.Value)
	case OpRemove:
		if _, ok := parent[key]; !ok {
			return fmt.Errorf("%w: %s", ErrPathNotFound, p.PathString())
		}
		delete(parent, key)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOp, p.Op)
	}
	return nil
}

func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	for key := range a {
		keys = append(keys, key)
	}
	for key := range b {
		if _, ok := a[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func appendPath(prefix []string, key string) []string {
	out := make([]string, len(prefix), len(prefix)+1)
	copy(out, prefix)
	return append(out, key)
}

func cloneAny(v any) any {
	if group, ok := v.(map[string]any); ok {
		return layering.Clone(group)
	}
	return v
}

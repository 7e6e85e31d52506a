package para

import (
	"sort"

	"github.com/goliatone/go-paracharts/layering"
)

// CreateSettings expands input into a partial tree, materializing the groups
// along each dotted path, and completes it from defaults. A value whose kind
// (group or leaf) conflicts with defaults fails with ErrShapeViolation; paths
// absent from defaults fail with ErrUnknownPath. defaults is not modified.
func CreateSettings(input Input, defaults Settings) (Settings, error) {
	normalizedDefaults, err := normalizeDefaults(defaults)
	if err != nil {
		return nil, err
	}

	partial := Settings{}
	paths := make([]string, 0, len(input))
	for path := range input {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := Set(path, input[path], partial, true); err != nil {
			return nil, asShapeViolation(err)
		}
	}

	tree, err := layering.Complete(partial, normalizedDefaults)
	if err != nil {
		return nil, translateTreeError(err)
	}
	return tree, nil
}

// Complete fills every key missing from partial with the value in defaults.
// It is CreateSettings for callers that already hold a nested tree.
func Complete(partial, defaults Settings) (Settings, error) {
	normalizedDefaults, err := normalizeDefaults(defaults)
	if err != nil {
		return nil, err
	}
	tree, err := layering.Complete(partial, normalizedDefaults)
	if err != nil {
		return nil, translateTreeError(err)
	}
	return tree, nil
}

// Flatten is the inverse of CreateSettings' expansion step: it lists every
// leaf of tree keyed by its dotted path.
func Flatten(tree Settings) Input {
	out := Input{}
	flatten(tree, "", out)
	return out
}

func flatten(tree Settings, prefix string, out Input) {
	for key, value := range tree {
		path := layering.JoinPath(prefix, key)
		if child, ok := value.(map[string]any); ok {
			flatten(child, path, out)
			continue
		}
		out[path] = value
	}
}

func normalizeDefaults(defaults Settings) (Settings, error) {
	out := layering.Clone(defaults)
	if out == nil {
		out = Settings{}
	}
	if err := layering.Normalize(out); err != nil {
		return nil, translateTreeError(err)
	}
	return out, nil
}

// asShapeViolation reports hydration conflicts between two input paths (for
// example "ui" and "ui.theme") as shape violations.
func asShapeViolation(err error) error {
	pe, ok := err.(*PathError)
	if !ok || pe.Err != ErrNotGroup {
		return err
	}
	return pathError("create", pe.Path, ErrShapeViolation)
}

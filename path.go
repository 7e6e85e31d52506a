package para

import (
	"strings"

	"github.com/goliatone/go-paracharts/layering"
)

// Get resolves path inside tree and returns the leaf stored there. Groups are
// not retrievable through Get.
func Get(path string, tree Settings) (Setting, error) {
	segments := layering.SplitPath(path)
	if len(segments) == 0 {
		return nil, pathError("get", path, ErrEmptyPath)
	}
	var current any = tree
	for _, segment := range segments {
		group, ok := current.(map[string]any)
		if !ok {
			return nil, pathError("get", path, ErrNotGroup)
		}
		next, ok := group[segment]
		if !ok {
			return nil, pathError("get", path, ErrUnknownPath)
		}
		current = next
	}
	if layering.IsGroup(current) {
		return nil, pathError("get", path, ErrNotLeaf)
	}
	return current, nil
}

// GetGroup walks path inside tree and returns the group found there. An empty
// path returns tree itself. When create is true, missing segments are
// materialized as empty groups; a leaf in the way is always an error.
func GetGroup(path string, tree Settings, create bool) (Settings, error) {
	if tree == nil {
		return nil, pathError("get group", path, ErrNotGroup)
	}
	group := tree
	for _, segment := range layering.SplitPath(path) {
		next, ok := group[segment]
		if !ok {
			if !create {
				return nil, pathError("get group", path, ErrUnknownPath)
			}
			next = Settings{}
			group[segment] = next
		}
		child, ok := next.(map[string]any)
		if !ok {
			return nil, pathError("get group", path, ErrNotGroup)
		}
		group = child
	}
	return group, nil
}

// Set stores value at path inside tree. Intermediate groups are created when
// create is true; otherwise every segment, the leaf included, must already
// exist. A leaf cannot replace a group and a group cannot replace a leaf.
func Set(path string, value Setting, tree Settings, create bool) error {
	segments := layering.SplitPath(path)
	if len(segments) == 0 {
		return pathError("set", path, ErrEmptyPath)
	}
	parent, err := GetGroup(strings.Join(segments[:len(segments)-1], "."), tree, create)
	if err != nil {
		return pathError("set", path, unwrapPathError(err))
	}

	key := segments[len(segments)-1]
	normalized, err := normalizeValue(value)
	if err != nil {
		return pathError("set", path, err)
	}

	existing, has := parent[key]
	if !has {
		if !create {
			return pathError("set", path, ErrUnknownPath)
		}
		parent[key] = normalized
		return nil
	}
	if layering.IsGroup(existing) != layering.IsGroup(normalized) {
		return pathError("set", path, ErrShapeViolation)
	}
	parent[key] = normalized
	return nil
}

// normalizeValue canonicalizes a leaf, or deep copies and canonicalizes a
// group so the caller's map is never aliased into a tree.
func normalizeValue(value any) (any, error) {
	if group, ok := value.(map[string]any); ok {
		clone := layering.Clone(group)
		if err := layering.Normalize(clone); err != nil {
			return nil, translateTreeError(err)
		}
		return clone, nil
	}
	leaf, ok := layering.NormalizeLeaf(value)
	if !ok {
		return nil, ErrInvalidSetting
	}
	return leaf, nil
}

func unwrapPathError(err error) error {
	if pe, ok := err.(*PathError); ok {
		return pe.Err
	}
	return err
}

package para

import (
	"sort"

	"github.com/goliatone/go-paracharts/layering"
)

// FieldDescriptor describes a leaf path and its setting type.
type FieldDescriptor struct {
	Path    string  `json:"path"`
	Type    string  `json:"type"`
	Default Setting `json:"default,omitempty"`
}

// Setting types reported by descriptors.
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeGroup   = "group"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument pairs a generated schema with its format. Document must be
// JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator transforms a settings tree into a schema document.
// Implementations must be safe for concurrent use and return an empty
// document for a nil tree.
type SchemaGenerator interface {
	Generate(tree Settings) (SchemaDocument, error)
}

// DefaultSchemaGenerator returns the built-in descriptor generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(tree Settings) (SchemaDocument, error) {
	descriptors := Describe(tree)
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}

// Describe lists every leaf of tree in path order. Empty groups are reported
// with TypeGroup since they have no leaves to describe.
func Describe(tree Settings) []FieldDescriptor {
	return describe(tree, "")
}

func describe(tree Settings, prefix string) []FieldDescriptor {
	if tree == nil {
		return nil
	}
	if len(tree) == 0 && prefix != "" {
		return []FieldDescriptor{{Path: prefix, Type: TypeGroup}}
	}
	keys := make([]string, 0, len(tree))
	for key := range tree {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var fields []FieldDescriptor
	for _, key := range keys {
		path := layering.JoinPath(prefix, key)
		if child, ok := tree[key].(map[string]any); ok {
			fields = append(fields, describe(child, path)...)
			continue
		}
		fields = append(fields, FieldDescriptor{
			Path:    path,
			Type:    SettingType(tree[key]),
			Default: tree[key],
		})
	}
	return fields
}

// SettingType names the type of a leaf value.
func SettingType(value Setting) string {
	switch value.(type) {
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case map[string]any:
		return TypeGroup
	default:
		if _, ok := layering.NormalizeLeaf(value); ok {
			return TypeNumber
		}
		return "unknown"
	}
}

// pathIndex is the single place paths are validated against the defaults.
type pathIndex struct {
	leaves   map[string]FieldDescriptor
	defaults Settings
}

func newPathIndex(defaults Settings) pathIndex {
	idx := pathIndex{leaves: map[string]FieldDescriptor{}, defaults: defaults}
	for _, field := range Describe(defaults) {
		if field.Type == TypeGroup {
			continue
		}
		idx.leaves[field.Path] = field
	}
	return idx
}

// leaf returns nil when path names a leaf of the defaults tree.
func (idx pathIndex) leaf(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if _, ok := idx.leaves[path]; ok {
		return nil
	}
	if _, err := GetGroup(path, idx.defaults, false); err == nil {
		return ErrNotLeaf
	}
	return ErrUnknownPath
}

func (idx pathIndex) descriptors() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(idx.leaves))
	for _, field := range idx.leaves {
		out = append(out, field)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

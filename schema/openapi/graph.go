package openapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	para "github.com/goliatone/go-paracharts"
	"github.com/goliatone/go-paracharts/layering"
)

// pathExtension carries the dotted settings path of every node.
const pathExtension = "x-para-path"

type schemaNode struct {
	Type       string
	Path       string
	Properties map[string]*schemaNode
	Default    any
}

func newGroupNode(path string) *schemaNode {
	return &schemaNode{
		Type:       "object",
		Path:       path,
		Properties: map[string]*schemaNode{},
	}
}

// buildSchemaGraph walks a settings tree. Every key of a group is required
// and unknown keys are rejected since the tree shape is fixed at creation.
func buildSchemaGraph(tree para.Settings) (*schemaNode, error) {
	return buildGroup("", tree)
}

func buildGroup(path string, group para.Settings) (*schemaNode, error) {
	node := newGroupNode(path)
	for key, value := range group {
		child := layering.JoinPath(path, key)
		if nested, ok := value.(para.Settings); ok {
			sub, err := buildGroup(child, nested)
			if err != nil {
				return nil, err
			}
			node.Properties[key] = sub
			continue
		}
		leaf, err := buildLeaf(child, value)
		if err != nil {
			return nil, err
		}
		node.Properties[key] = leaf
	}
	return node, nil
}

func buildLeaf(path string, value any) (*schemaNode, error) {
	switch para.SettingType(value) {
	case para.TypeBoolean:
		return &schemaNode{Type: "boolean", Path: path, Default: value}, nil
	case para.TypeNumber:
		return &schemaNode{Type: "number", Path: path, Default: value}, nil
	case para.TypeString:
		return &schemaNode{Type: "string", Path: path, Default: value}, nil
	default:
		return nil, fmt.Errorf("openapi: %q: unsupported setting %T", path, value)
	}
}

func (n *schemaNode) names() []string {
	names := make([]string, 0, len(n.Properties))
	for name := range n.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *schemaNode) baseMap(withPaths bool) map[string]any {
	result := map[string]any{"type": n.Type}
	if n.Default != nil {
		result["default"] = n.Default
	}
	if withPaths && n.Path != "" {
		result[pathExtension] = n.Path
	}
	return result
}

// shapeMap renders the node without paths, so identically shaped groups
// share a digest regardless of where they live.
func (n *schemaNode) shapeMap() map[string]any {
	result := map[string]any{"type": n.Type}
	if n.Default != nil {
		result["default"] = n.Default
	}
	if n.Type == "object" {
		props := make(map[string]any, len(n.Properties))
		for _, name := range n.names() {
			props[name] = n.Properties[name].shapeMap()
		}
		result["properties"] = props
	}
	return result
}

// inlineOpenAPI renders the subtree. Component schemas are shared between
// paths, so they are rendered without the path extension.
func (n *schemaNode) inlineOpenAPI(withPaths bool) map[string]any {
	result := n.baseMap(withPaths)
	if n.Type != "object" {
		return result
	}
	names := n.names()
	props := make(map[string]any, len(names))
	for _, name := range names {
		props[name] = n.Properties[name].inlineOpenAPI(withPaths)
	}
	result["properties"] = props
	result["additionalProperties"] = false
	if len(names) > 0 {
		result["required"] = names
	}
	return result
}

func (n *schemaNode) Digest() string {
	data, err := json.Marshal(n.shapeMap())
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

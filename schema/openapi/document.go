package openapi

import (
	"fmt"
	"sort"
	"strings"
)

type openAPIDocumentBuilder struct {
	config   generatorConfig
	registry *componentRegistry
	rootNode *schemaNode
}

func newOpenAPIDocumentBuilder(config generatorConfig, root *schemaNode) *openAPIDocumentBuilder {
	return &openAPIDocumentBuilder{
		config:   config,
		registry: newComponentRegistry(),
		rootNode: root,
	}
}

func (b *openAPIDocumentBuilder) build() (map[string]any, error) {
	if b.rootNode == nil {
		return nil, fmt.Errorf("openapi: root schema node cannot be nil")
	}

	b.countGroups(b.rootNode)

	var body map[string]any
	if b.config.rootComponent != "" {
		ref := b.registry.force(b.config.rootComponent, b.rootNode, b.schemaFor(b.rootNode, false))
		body = map[string]any{"$ref": ref}
	} else {
		body = b.schemaFor(b.rootNode, true)
	}

	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   b.buildPaths(body),
	}
	if components := b.registry.componentsMap(); components != nil {
		document["components"] = map[string]any{
			"schemas": components,
		}
	}

	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *openAPIDocumentBuilder) countGroups(node *schemaNode) {
	for _, name := range node.names() {
		child := node.Properties[name]
		if child.Type != "object" {
			continue
		}
		b.registry.count(child.Path, child)
		b.countGroups(child)
	}
}

func (b *openAPIDocumentBuilder) schemaFor(node *schemaNode, withPaths bool) map[string]any {
	if node.Type == "object" && node.Path != "" {
		if ref := b.registry.reference(node); ref != "" {
			return map[string]any{"$ref": ref}
		}
	}
	result := node.baseMap(withPaths)
	if node.Type != "object" {
		return result
	}
	names := node.names()
	props := make(map[string]any, len(names))
	for _, name := range names {
		props[name] = b.schemaFor(node.Properties[name], withPaths)
	}
	result["properties"] = props
	result["additionalProperties"] = false
	if len(names) > 0 {
		result["required"] = names
	}
	return result
}

func (b *openAPIDocumentBuilder) buildInfo() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

func (b *openAPIDocumentBuilder) buildPaths(body map[string]any) map[string]any {
	method := b.method()
	content := map[string]any{
		b.config.contentType: map[string]any{"schema": body},
	}

	responses := make(map[string]any, len(b.config.responses))
	statuses := make([]string, 0, len(b.config.responses))
	for status := range b.config.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		responses[status] = map[string]any{
			"description": b.config.responses[status].Description,
		}
	}

	update := map[string]any{
		"operationId": b.operationID(),
		"requestBody": map[string]any{
			"required": true,
			"content":  content,
		},
		"responses": responses,
	}
	if summary := strings.TrimSpace(b.config.operation.Summary); summary != "" {
		update["summary"] = summary
	}

	item := map[string]any{method: update}
	if method != "get" {
		item["get"] = map[string]any{
			"operationId": "get:" + b.config.operation.Path,
			"responses": map[string]any{
				"200": map[string]any{
					"description": "Current settings",
					"content":     content,
				},
			},
		}
	}
	return map[string]any{b.config.operation.Path: item}
}

func (b *openAPIDocumentBuilder) method() string {
	method := strings.ToLower(b.config.operation.Method)
	if method == "" {
		method = "put"
	}
	return method
}

func (b *openAPIDocumentBuilder) operationID() string {
	if b.config.operation.OperationID != "" {
		return b.config.operation.OperationID
	}
	return fmt.Sprintf("%s:%s", b.method(), b.config.operation.Path)
}

func validateDocument(document map[string]any) error {
	if openapi, _ := document["openapi"].(string); openapi == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		pathItem, _ := pathValue.(map[string]any)
		if len(pathItem) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", pathKey)
		}
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			if _, ok := operation["responses"].(map[string]any); !ok {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
			if method == "get" {
				continue
			}
			requestBody, _ := operation["requestBody"].(map[string]any)
			if requestBody == nil {
				return fmt.Errorf("openapi: operation %s %s missing requestBody", method, pathKey)
			}
			if content, _ := requestBody["content"].(map[string]any); len(content) == 0 {
				return fmt.Errorf("openapi: operation %s %s requestBody missing content", method, pathKey)
			}
		}
	}
	return nil
}

package openapi

import (
	"fmt"
	"regexp"
	"strings"
)

// componentRegistry hoists group shapes that appear more than once (or that
// are forced) into components/schemas.
type componentRegistry struct {
	entries   map[string]*componentEntry
	usedNames map[string]struct{}
}

type componentEntry struct {
	name   string
	schema map[string]any
	count  int
	force  bool
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		entries:   map[string]*componentEntry{},
		usedNames: map[string]struct{}{},
	}
}

// count records one occurrence of node. Call it for every group before any
// reference is requested.
func (r *componentRegistry) count(nameHint string, node *schemaNode) {
	digest := node.Digest()
	if digest == "" {
		return
	}
	if entry, ok := r.entries[digest]; ok {
		entry.count++
		return
	}
	r.entries[digest] = &componentEntry{name: r.uniqueName(nameHint), count: 1}
}

// force publishes schema under name regardless of how often node occurs.
func (r *componentRegistry) force(name string, node *schemaNode, schema map[string]any) string {
	digest := node.Digest()
	entry, ok := r.entries[digest]
	if !ok {
		entry = &componentEntry{name: r.uniqueName(name)}
		r.entries[digest] = entry
	}
	entry.force = true
	entry.count++
	entry.schema = schema
	return componentRef(entry.name)
}

// reference returns the $ref for node when it is shared, or "" when the node
// should be inlined.
func (r *componentRegistry) reference(node *schemaNode) string {
	entry, ok := r.entries[node.Digest()]
	if !ok || (!entry.force && entry.count < 2) {
		return ""
	}
	if entry.schema == nil {
		entry.schema = node.inlineOpenAPI(false)
	}
	return componentRef(entry.name)
}

func (r *componentRegistry) uniqueName(name string) string {
	safe := sanitizeComponentName(name)
	if safe == "" {
		safe = "Group"
	}
	if _, exists := r.usedNames[safe]; !exists {
		r.usedNames[safe] = struct{}{}
		return safe
	}
	for suffix := 1; ; suffix++ {
		candidate := fmt.Sprintf("%s%d", safe, suffix)
		if _, exists := r.usedNames[candidate]; !exists {
			r.usedNames[candidate] = struct{}{}
			return candidate
		}
	}
}

func (r *componentRegistry) componentsMap() map[string]any {
	out := map[string]any{}
	for _, entry := range r.entries {
		if entry.schema != nil {
			out[entry.name] = entry.schema
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func componentRef(name string) string {
	return "#/components/schemas/" + name
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// sanitizeComponentName turns a settings path such as "chart.size" into
// "ChartSize".
func sanitizeComponentName(name string) string {
	parts := componentNameRegexp.Split(name, -1)
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	out := b.String()
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

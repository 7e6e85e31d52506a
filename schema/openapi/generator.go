// Package openapi renders settings trees as OpenAPI 3 documents. Groups
// become closed objects whose keys are all required, leaves carry their
// current value as the schema default.
package openapi

import (
	para "github.com/goliatone/go-paracharts"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI schema generator for settings trees.
func NewGenerator(opts ...GeneratorOption) para.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option wires the OpenAPI generator into a settings store.
func Option(opts ...GeneratorOption) para.Option {
	return para.WithSchemaGenerator(NewGenerator(opts...))
}

func (g generator) Generate(tree para.Settings) (para.SchemaDocument, error) {
	if tree == nil {
		tree = para.Settings{}
	}
	root, err := buildSchemaGraph(tree)
	if err != nil {
		return para.SchemaDocument{}, err
	}
	document, err := newOpenAPIDocumentBuilder(g.config, root).build()
	if err != nil {
		return para.SchemaDocument{}, err
	}
	return para.SchemaDocument{
		Format:   para.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}

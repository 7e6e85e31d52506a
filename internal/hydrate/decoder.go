// Package hydrate turns settings payloads read from files or storage into
// para.Input values. Payloads may be nested groups, dotted paths or a mix.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	para "github.com/goliatone/go-paracharts"
	"github.com/goliatone/go-paracharts/layering"
)

// Format identifies the payload encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Context carries identifiers tied to a payload.
type Context struct {
	Source string
	Scope  string
}

// PreHook lets callers mutate or normalise the raw payload before flattening.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the flattened input.
type PostHook func(Context, para.Input) error

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder converts payloads into settings input.
type Decoder struct {
	format    Format
	preHooks  []PreHook
	postHooks []PostHook
	defaults  para.Settings
	useNumber bool
}

// WithFormat selects the payload encoding. JSON is the default.
func WithFormat(format Format) DecoderOption {
	return func(d *Decoder) {
		if format != "" {
			d.format = format
		}
	}
}

// WithPreHook applies hook prior to flattening.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after flattening completes.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber decodes JSON numbers through json.Number.
func WithUseNumber() DecoderOption {
	return func(d *Decoder) {
		d.useNumber = true
	}
}

// WithDefaults validates the decoded input against defaults, rejecting
// unknown paths and shape violations.
func WithDefaults(defaults para.Settings) DecoderOption {
	return func(d *Decoder) {
		d.defaults = defaults
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{format: FormatJSON}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode parses data in the configured format and hydrates it.
func (d *Decoder) Decode(ctx Context, data []byte) (para.Input, error) {
	payload, err := d.parse(data)
	if err != nil {
		return nil, fmt.Errorf("hydrate: parse %s payload for %q: %w", d.format, ctx.Source, err)
	}
	return d.DecodeMap(ctx, payload)
}

// DecodeMap hydrates an already parsed payload. The payload is not mutated.
func (d *Decoder) DecodeMap(ctx Context, payload map[string]any) (para.Input, error) {
	if payload == nil {
		return nil, fmt.Errorf("hydrate: payload is nil for %q", ctx.Source)
	}

	current, err := normalizePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("hydrate: clone payload for %q: %w", ctx.Source, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.Source, err)
		}
		if next != nil {
			current = next
		}
	}

	input := para.Flatten(current)
	for path, value := range input {
		if number, ok := value.(json.Number); ok {
			f, err := number.Float64()
			if err != nil {
				return nil, fmt.Errorf("hydrate: %q: %w", path, err)
			}
			value = f
		}
		if leaf, ok := layering.NormalizeLeaf(value); ok {
			value = leaf
		}
		input[path] = value
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, input); err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.Source, err)
		}
	}

	if d.defaults != nil {
		if _, err := para.CreateSettings(input, d.defaults); err != nil {
			return nil, fmt.Errorf("hydrate: validate %q: %w", ctx.Source, err)
		}
	}
	return input, nil
}

func (d *Decoder) parse(data []byte) (map[string]any, error) {
	var out map[string]any
	switch d.format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if d.useNumber {
			dec.UseNumber()
		}
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", d.format)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// normalizePayload deep copies payload, converting the map[any]any and
// map[string]any shapes produced by YAML into plain groups.
func normalizePayload(payload map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		normalized, err := normalizeValue(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = normalized
	}
	return out, nil
}

func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		return normalizePayload(v)
	case map[any]any:
		converted := make(map[string]any, len(v))
		for key, child := range v {
			name, ok := key.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", key)
			}
			converted[name] = child
		}
		return normalizePayload(converted)
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			normalized, err := normalizeValue(child)
			if err != nil {
				return nil, err
			}
			out[i] = normalized
		}
		return out, nil
	default:
		return value, nil
	}
}

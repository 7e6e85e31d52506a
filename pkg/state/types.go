package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	para "github.com/goliatone/go-paracharts"
	"github.com/goliatone/go-paracharts/layering"
)

var (
	// ErrETagMismatch indicates a Mutate call raced another writer.
	ErrETagMismatch = errors.New("state: etag mismatch")
	// ErrStoreRequired indicates a Resolver without a Store.
	ErrStoreRequired = errors.New("state: store is required")
	// ErrDomainRequired indicates an empty settings domain.
	ErrDomainRequired = errors.New("state: domain is required")
	// ErrReservedScope indicates a caller scope named "defaults".
	ErrReservedScope = errors.New("state: scope name is reserved")
)

// Ref identifies one persisted input for one settings domain and scope.
type Ref struct {
	Domain string
	Scope  Scope
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves the sparse settings input of a single Ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (input para.Input, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, input para.Input, meta Meta) (Meta, error)
}

// Identifier returns the canonical storage key of the ref.
func (r Ref) Identifier() (string, error) {
	switch r.Scope.Name {
	case "system":
		return fmt.Sprintf("system/%s", r.Domain), nil
	case "tenant", "org", "team", "user":
		metadataKey := r.Scope.Name + "_id"
		id, ok := r.Scope.Metadata[metadataKey].(string)
		if !ok || id == "" {
			return "", fmt.Errorf("missing metadata key %q for scope %q", metadataKey, r.Scope.Name)
		}
		return fmt.Sprintf("%s/%s/%s", r.Scope.Name, id, r.Domain), nil
	default:
		return "", fmt.Errorf("unsupported scope name %q", r.Scope.Name)
	}
}

// Resolver loads per-scope inputs and layers them over Defaults into a
// settings store.
type Resolver struct {
	Store    Store
	Defaults para.Settings
	// Options are applied to every store the resolver builds.
	Options []para.Option
}

// Resolved is a settings store together with the layers it was built from.
type Resolved struct {
	Store  *para.Store
	Layers []Layer
}

// Mutator edits a copy of a persisted input.
type Mutator func(input para.Input) error

// Resolve loads every scope's input for domain, merges them strongest first
// and completes the result from the resolver defaults. Scopes with no stored
// input are skipped.
func (r Resolver) Resolve(ctx context.Context, domain string, scopes ...Scope) (*Resolved, error) {
	if r.Store == nil {
		return nil, ErrStoreRequired
	}
	if domain == "" {
		return nil, ErrDomainRequired
	}

	layers := make([]Layer, 0, len(scopes))
	for _, scope := range scopes {
		if scope.Name == "defaults" {
			return nil, fmt.Errorf("%w: %q", ErrReservedScope, scope.Name)
		}
		input, meta, ok, err := r.Store.Load(ctx, Ref{Domain: domain, Scope: scope})
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", domain, scope.Name, err)
		}
		if !ok {
			continue
		}
		layers = append(layers, Layer{Scope: scope, Input: input, SnapshotID: meta.SnapshotID})
	}

	sorted, err := sortLayers(layers)
	if err != nil {
		return nil, err
	}
	inputs := make([]map[string]any, len(sorted))
	for i, layer := range sorted {
		inputs[i] = layer.Input
	}
	merged := layering.MergeInputs(inputs...)

	store, err := para.New(r.Defaults, para.Input(merged), r.Options...)
	if err != nil {
		return nil, fmt.Errorf("state: resolve %q: %w", domain, err)
	}
	return &Resolved{Store: store, Layers: sorted}, nil
}

// Provenance reports what one layer contributed to a path.
type Provenance struct {
	Scope      Scope  `json:"scope"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
}

// Trace lists, strongest first, the value each layer holds for path. The
// last entry is the defaults layer.
func (r *Resolved) Trace(path string) []Provenance {
	out := make([]Provenance, 0, len(r.Layers)+1)
	for _, layer := range r.Layers {
		value, ok := layer.Input[path]
		out = append(out, Provenance{
			Scope:      layer.Scope.clone(),
			SnapshotID: layer.SnapshotID,
			Value:      value,
			Found:      ok,
		})
	}
	value, err := para.Get(path, r.Store.Defaults())
	out = append(out, Provenance{
		Scope: NewScope("defaults", 0, WithScopeLabel("Defaults")),
		Value: value,
		Found: err == nil,
	})
	return out
}

// Mutate loads the input stored at ref, applies fn to a copy, validates the
// result against the resolver defaults and saves it. A non-empty meta.ETag
// must match the stored one.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (para.Input, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, ErrStoreRequired
	}
	if ref.Domain == "" {
		return nil, Meta{}, ErrDomainRequired
	}
	if ref.Scope.Name == "" {
		return nil, Meta{}, ErrScopeNameRequired
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}

	input, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	if !ok {
		input = para.Input{}
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	draft := cloneInput(input)
	if draft == nil {
		draft = para.Input{}
	}
	if err := fn(draft); err != nil {
		return nil, loadedMeta, err
	}
	if _, err := para.CreateSettings(draft, r.Defaults); err != nil {
		return nil, loadedMeta, err
	}

	savedMeta, err := r.Store.Save(ctx, ref, draft, mergeMeta(loadedMeta, meta))
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	return draft, savedMeta, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

package state

import (
	"errors"
	"fmt"
	"sort"

	para "github.com/goliatone/go-paracharts"
)

// Recommended priorities for common layering patterns. Higher numbers win.
const (
	ScopePrioritySystem = 100
	ScopePriorityTenant = 200
	ScopePriorityOrg    = 300
	ScopePriorityTeam   = 400
	ScopePriorityUser   = 500
)

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("state: scope name must be provided")
	// ErrDuplicateScopeName indicates two layers share a scope name.
	ErrDuplicateScopeName = errors.New("state: scope names must be unique")
	// ErrPriorityOrder indicates two layers share a priority.
	ErrPriorityOrder = errors.New("state: scope priorities must be strictly ordered")
)

// Scope models a named precedence bucket (system, tenant, user...). Higher
// priority values represent stronger layers.
type Scope struct {
	Name     string         `json:"name"`
	Label    string         `json:"label,omitempty"`
	Priority int            `json:"priority"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*Scope)

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(s *Scope) {
		s.Label = label
	}
}

// WithScopeMetadata attaches metadata such as the "user_id" used by
// Ref.Identifier. The map is copied.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(s *Scope) {
		s.Metadata = copyMetadata(metadata)
	}
}

// NewScope builds a Scope. Validation is deferred to layering so callers can
// assemble scopes before deciding precedence.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	scope := Scope{Name: name, Priority: priority}
	for _, opt := range opts {
		if opt != nil {
			opt(&scope)
		}
	}
	return scope
}

func (s Scope) clone() Scope {
	s.Metadata = copyMetadata(s.Metadata)
	return s
}

// Layer pairs a scope with the settings input persisted for it.
type Layer struct {
	Scope      Scope      `json:"scope"`
	Input      para.Input `json:"input"`
	SnapshotID string     `json:"snapshot_id,omitempty"`
}

// sortLayers validates layers and orders them strongest first.
func sortLayers(layers []Layer) ([]Layer, error) {
	seen := make(map[string]struct{}, len(layers))
	out := make([]Layer, len(layers))
	for i, layer := range layers {
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seen[layer.Scope.Name] = struct{}{}
		out[i] = Layer{
			Scope:      layer.Scope.clone(),
			Input:      cloneInput(layer.Input),
			SnapshotID: layer.SnapshotID,
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope.Priority == out[j].Scope.Priority {
			return out[i].Scope.Name < out[j].Scope.Name
		}
		return out[i].Scope.Priority > out[j].Scope.Priority
	})
	for i := 1; i < len(out); i++ {
		if out[i-1].Scope.Priority <= out[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, out[i].Scope.Priority)
		}
	}
	return out, nil
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}

func cloneInput(in para.Input) para.Input {
	if in == nil {
		return nil
	}
	out := make(para.Input, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

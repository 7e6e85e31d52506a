package scrolly

import (
	"fmt"
	"sort"
	"sync"
)

// Action is a named handler attached to step triggers.
type Action func(Context) error

// Actions resolves action names to handlers. Names are case sensitive.
type Actions struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewActions merges defaults with overrides; overrides win on collision.
// Nil handlers are ignored.
func NewActions(defaults, overrides map[string]Action) *Actions {
	merged := make(map[string]Action, len(defaults)+len(overrides))
	for _, layer := range []map[string]Action{defaults, overrides} {
		for name, fn := range layer {
			if fn != nil && name != "" {
				merged[name] = fn
			}
		}
	}
	return &Actions{actions: merged}
}

// Register adds fn under name, rejecting duplicates.
func (a *Actions) Register(name string, fn Action) error {
	if name == "" {
		return fmt.Errorf("scrolly: action name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("scrolly: action %q is nil", name)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.actions == nil {
		a.actions = map[string]Action{}
	}
	if _, exists := a.actions[name]; exists {
		return fmt.Errorf("scrolly: action %q already registered", name)
	}
	a.actions[name] = fn
	return nil
}

// Lookup returns the handler registered for name.
func (a *Actions) Lookup(name string) (Action, bool) {
	if a == nil {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	fn, ok := a.actions[name]
	return fn, ok
}

// Names returns registered action names sorted alphabetically.
func (a *Actions) Names() []string {
	if a == nil {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.actions))
	for name := range a.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DatasetHighlighter is implemented by chart handles that can emphasise a
// dataset.
type DatasetHighlighter interface {
	HighlightDataset(chartID, datasetID string) error
	ClearHighlight(chartID string) error
}

// StepAnnouncer is implemented by chart handles that can announce a step to
// assistive technology.
type StepAnnouncer interface {
	AnnounceStep(ctx Context) error
}

// DefaultActions returns the built-in actions. They act on the Parachart
// handle and do nothing when it lacks the needed capability.
func DefaultActions() map[string]Action {
	return map[string]Action{
		"highlightDataset": func(ctx Context) error {
			chart, ok := ctx.Parachart.(DatasetHighlighter)
			if !ok || ctx.DatasetID == "" {
				return nil
			}
			return chart.HighlightDataset(ctx.ChartID, ctx.DatasetID)
		},
		"clearHighlight": func(ctx Context) error {
			chart, ok := ctx.Parachart.(DatasetHighlighter)
			if !ok {
				return nil
			}
			return chart.ClearHighlight(ctx.ChartID)
		},
		"announceStep": func(ctx Context) error {
			chart, ok := ctx.Parachart.(StepAnnouncer)
			if !ok {
				return nil
			}
			return chart.AnnounceStep(ctx)
		},
	}
}

// Package rules evaluates small expressions against a settings snapshot.
//
// Snapshot groups are bound as top-level identifiers, so with a snapshot
// {"ui": {"isVoicingEnabled": true}} the expression `ui.isVoicingEnabled`
// resolves to true. Vars are bound after the snapshot and win on collision;
// the scrollytelling engine uses them for step context (index, direction,
// progress, chartId, datasetId). `now` and `settings` are always bound.
//
// Three engines are available: expr-lang/expr (default), cel-go, and goja
// (only with the js_eval build tag).
package rules

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotBoolean indicates a guard expression that did not produce a bool.
var ErrNotBoolean = errors.New("rules: expression did not evaluate to a bool")

// Env carries the bindings visible to an expression.
type Env struct {
	Snapshot map[string]any
	Vars     map[string]any
	Now      *time.Time
}

func (env Env) timestamp() time.Time {
	if env.Now != nil {
		return *env.Now
	}
	return time.Now()
}

func (env Env) bindings() map[string]any {
	out := make(map[string]any, len(env.Snapshot)+len(env.Vars)+2)
	for key, value := range env.Snapshot {
		out[key] = value
	}
	for key, value := range env.Vars {
		out[key] = value
	}
	settings := env.Snapshot
	if settings == nil {
		settings = map[string]any{}
	}
	out["settings"] = settings
	out["now"] = env.timestamp()
	return out
}

// Evaluator executes expressions against an Env.
type Evaluator interface {
	Evaluate(env Env, expr string) (any, error)
	Compile(expr string) (Program, error)
}

// Program is a compiled, reusable expression.
type Program interface {
	Run(env Env) (any, error)
}

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryCache is a ProgramCache backed by sync.Map.
type MemoryCache struct {
	entries sync.Map
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(key string) (any, bool) {
	return c.entries.Load(key)
}

func (c *MemoryCache) Set(key string, value any) {
	c.entries.Store(key, value)
}

// EvaluateBool runs expr and requires a boolean result.
func EvaluateBool(e Evaluator, env Env, expr string) (bool, error) {
	if e == nil {
		return false, fmt.Errorf("rules: evaluator is nil")
	}
	value, err := e.Evaluate(env, expr)
	if err != nil {
		return false, err
	}
	result, ok := value.(bool)
	if !ok {
		return false, &EvaluationError{Engine: EngineName(e), Expr: expr, Err: fmt.Errorf("%w: got %T", ErrNotBoolean, value)}
	}
	return result, nil
}

// EngineName reports the engine label for the built-in evaluators.
func EngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if isJSEvaluator(e) {
			return "js"
		}
		return "custom"
	}
}

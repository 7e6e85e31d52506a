// Package para implements the ParaCharts settings store: a nested
// configuration tree addressed by dotted paths, completed from a defaults
// tree, updated atomically through a draft, and observed per path.
package para

import (
	"log/slog"

	"github.com/goliatone/go-paracharts/layering"
	"github.com/goliatone/go-paracharts/pkg/activity"
	"github.com/goliatone/go-paracharts/rules"
)

// Setting is a leaf value: string, bool or float64.
type Setting = any

// Settings is a nested settings tree. Groups are Settings values, leaves are
// Setting values.
type Settings = layering.Group

// Input is a sparse mapping of dotted paths to leaf values.
type Input map[string]any

// Mutator edits a draft of the current snapshot inside UpdateSettings.
type Mutator func(draft *Draft) error

// Option configures a Store.
type Option func(*config)

type config struct {
	logger          *slog.Logger
	onUpdate        func()
	onNotice        func(key string, value any)
	onSettingChange func(path string, oldValue, newValue Setting)
	activityHooks   activity.Hooks
	activityConfig  activity.Config
	evaluator       rules.Evaluator
	programCache    rules.ProgramCache
	functions       *rules.FunctionRegistry
	schemaGenerator SchemaGenerator
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithLogger sets the structured logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithOnUpdate registers the hook fired once after every update that changed
// at least one path. Hosts use it to request a re-render.
func WithOnUpdate(fn func()) Option {
	return func(cfg *config) {
		cfg.onUpdate = fn
	}
}

// WithOnNotice registers the hook receiving named notices.
func WithOnNotice(fn func(key string, value any)) Option {
	return func(cfg *config) {
		cfg.onNotice = fn
	}
}

// WithOnSettingChange registers the global settingDidChange hook. It fires
// once per changed path, after the path observers.
func WithOnSettingChange(fn func(path string, oldValue, newValue Setting)) Option {
	return func(cfg *config) {
		cfg.onSettingChange = fn
	}
}

// WithActivityHooks attaches activity hooks notified for every changed path.
// Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := make(activity.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	return func(cfg *config) {
		cfg.activityHooks = normalized
		cfg.activityConfig.Enabled = len(normalized) > 0
	}
}

// WithActivityActor sets the actor and channel stamped on emitted activity.
func WithActivityActor(actorID, channel string) Option {
	return func(cfg *config) {
		cfg.activityConfig.ActorID = actorID
		cfg.activityConfig.Channel = channel
	}
}

// WithEvaluator configures the rule evaluator used by Evaluate.
func WithEvaluator(e rules.Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
	}
}

// WithProgramCache configures the program cache of the default evaluator.
func WithProgramCache(cache rules.ProgramCache) Option {
	return func(cfg *config) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes custom functions to the default evaluator.
func WithFunctionRegistry(registry *rules.FunctionRegistry) Option {
	return func(cfg *config) {
		cfg.functions = registry
	}
}

// WithSchemaGenerator configures the generator used by Store.Schema.
func WithSchemaGenerator(generator SchemaGenerator) Option {
	return func(cfg *config) {
		cfg.schemaGenerator = generator
	}
}

package scrolly

import (
	"log/slog"

	para "github.com/goliatone/go-paracharts"
	"github.com/goliatone/go-paracharts/pkg/activity"
	"github.com/goliatone/go-paracharts/rules"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	config         Config
	settings       *para.Store
	logger         *slog.Logger
	defaultActions map[string]Action
	actions        map[string]Action
	onStepEnter    Listener
	onStepExit     Listener
	onStepProgress Listener
	parachart      any
	evaluator      rules.Evaluator
	activityHooks  activity.Hooks
	activityConfig activity.Config
}

// WithConfig sets the call-site configuration. It wins over host settings.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithSettings reads host configuration from store and exposes its
// snapshot to step guards.
func WithSettings(store *para.Store) Option {
	return func(o *options) {
		o.settings = store
	}
}

// WithLogger sets the structured logger used by the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithActions registers action overrides merged over the defaults.
func WithActions(actions map[string]Action) Option {
	return func(o *options) {
		if o.actions == nil {
			o.actions = map[string]Action{}
		}
		for name, fn := range actions {
			o.actions[name] = fn
		}
	}
}

// WithDefaultActions replaces the built-in default actions.
func WithDefaultActions(actions map[string]Action) Option {
	return func(o *options) {
		o.defaultActions = actions
	}
}

// WithOnStepEnter sets the global callback fired for every step entry.
func WithOnStepEnter(fn Listener) Option {
	return func(o *options) {
		o.onStepEnter = fn
	}
}

// WithOnStepExit sets the global callback fired for every step exit.
func WithOnStepExit(fn Listener) Option {
	return func(o *options) {
		o.onStepExit = fn
	}
}

// WithOnStepProgress sets the global callback fired for progress changes.
func WithOnStepProgress(fn Listener) Option {
	return func(o *options) {
		o.onStepProgress = fn
	}
}

// WithParachart sets the chart handle carried in every Context.
func WithParachart(chart any) Option {
	return func(o *options) {
		o.parachart = chart
	}
}

// WithEvaluator sets the evaluator for data-para-if guards. Without one the
// settings store evaluator is used, or expr when no store is configured.
func WithEvaluator(e rules.Evaluator) Option {
	return func(o *options) {
		o.evaluator = e
	}
}

// WithActivityHooks attaches hooks notified on step entry and exit.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := make(activity.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	return func(o *options) {
		o.activityHooks = normalized
		o.activityConfig.Enabled = len(normalized) > 0
	}
}

// WithActivityActor sets the actor and channel stamped on step activity.
func WithActivityActor(actorID, channel string) Option {
	return func(o *options) {
		o.activityConfig.ActorID = actorID
		o.activityConfig.Channel = channel
	}
}

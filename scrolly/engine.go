// Package scrolly drives scrollytelling: it watches step elements through an
// intersection observer, tracks which step the trigger line crosses and how
// far, and dispatches enter, exit and progress events to listeners and named
// actions.
package scrolly

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-paracharts/internal/logging"
	"github.com/goliatone/go-paracharts/pkg/activity"
	"github.com/goliatone/go-paracharts/rules"
)

// Engine is the scrollytelling state machine. Intersection batches are
// processed synchronously; listeners and actions run after the engine has
// released its lock and may call back into it.
type Engine struct {
	platform  Platform
	opts      options
	logger    *slog.Logger
	actions   *Actions
	emitter   *activity.Emitter
	listeners listeners

	evalOnce  sync.Once
	evaluator rules.Evaluator

	mu          sync.Mutex
	config      Config
	offsetPx    float64
	steps       []*Step
	byElement   map[Element]*Step
	observer    IntersectionObserver
	overlay     Overlay
	lastScrollY float64
	direction   Direction
}

// New constructs an engine bound to platform. Call Init to collect steps.
func New(platform Platform, opts ...Option) *Engine {
	o := options{defaultActions: DefaultActions()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Engine{
		platform:  platform,
		opts:      o,
		logger:    logging.OrNop(o.logger),
		actions:   NewActions(o.defaultActions, o.actions),
		emitter:   activity.NewEmitter(o.activityHooks, o.activityConfig),
		direction: DirectionDown,
	}
}

// Init resolves configuration, collects the step elements and starts
// observing them. It rebuilds any previous step state and does nothing when
// the platform is unavailable.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.platform == nil || !e.platform.Available() {
		e.logger.Debug("scrollytelling init skipped, platform unavailable")
		return nil
	}
	e.teardownLocked()

	host, err := HostConfig(e.opts.settings)
	if err != nil {
		return err
	}
	cfg := MergeConfig(host, e.opts.config)
	offsetPx, err := ParseOffset(cfg.Offset, e.platform.ViewportHeight())
	if err != nil {
		return err
	}
	e.config = cfg
	e.offsetPx = offsetPx

	elements := e.platform.QueryAll(StepSelector)
	if len(elements) == 0 {
		e.logger.Debug("scrollytelling found no steps")
		return nil
	}
	e.byElement = make(map[Element]*Step, len(elements))
	for i, el := range elements {
		step := newStep(el, i)
		e.steps = append(e.steps, step)
		e.byElement[el] = step
	}
	e.resolveStepOffsetsLocked()

	if cfg.Debug() {
		e.overlay = e.platform.NewOverlay("offset", offsetPx)
		for _, step := range e.steps {
			decorate(step)
		}
	}
	e.setupObserverLocked()
	e.lastScrollY = e.platform.ScrollY()
	e.direction = DirectionDown

	e.logger.Debug("scrollytelling initialized",
		"steps", len(e.steps),
		"offset_px", offsetPx,
		"debug", cfg.Debug(),
	)
	return nil
}

// Resize recomputes the trigger offset for the current viewport and rebuilds
// the observer.
func (e *Engine) Resize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.platform == nil || !e.platform.Available() || len(e.steps) == 0 {
		return nil
	}
	offsetPx, err := ParseOffset(e.config.Offset, e.platform.ViewportHeight())
	if err != nil {
		return err
	}
	e.offsetPx = offsetPx
	e.resolveStepOffsetsLocked()
	if e.overlay != nil {
		e.overlay.Move(offsetPx)
	}
	e.setupObserverLocked()
	e.logger.Debug("scrollytelling resized", "offset_px", offsetPx)
	return nil
}

// Destroy stops observing, removes debug decorations, forgets every step and
// clears all listeners. It is safe to call repeatedly or without Init.
func (e *Engine) Destroy() {
	e.mu.Lock()
	e.teardownLocked()
	e.mu.Unlock()
	e.listeners.remove("")
}

func (e *Engine) teardownLocked() {
	if e.observer != nil {
		for _, step := range e.steps {
			e.observer.Unobserve(step.Element)
		}
		e.observer.Disconnect()
		e.observer = nil
	}
	if e.overlay != nil {
		e.overlay.Remove()
		e.overlay = nil
	}
	for _, step := range e.steps {
		step.Element.RemoveAttr(AttrDebug)
	}
	e.steps = nil
	e.byElement = nil
}

func (e *Engine) setupObserverLocked() {
	if e.observer != nil {
		for _, step := range e.steps {
			e.observer.Unobserve(step.Element)
		}
		e.observer.Disconnect()
	}
	observerInit := ObserverInit{
		RootMargin: RootMargin(e.offsetPx, e.platform.ViewportHeight(), e.config.Extra()),
		Thresholds: Thresholds(),
	}
	e.observer = e.platform.NewIntersectionObserver(e.HandleEntries, observerInit)
	for _, step := range e.steps {
		e.observer.Observe(step.Element)
	}
}

func (e *Engine) resolveStepOffsetsLocked() {
	viewport := e.platform.ViewportHeight()
	for _, step := range e.steps {
		step.offsetPx = nil
		if step.Offset == "" {
			continue
		}
		px, err := ParseOffset(step.Offset, viewport)
		if err != nil {
			e.logger.Warn("scrollytelling step offset ignored", "index", step.Index, "error", err)
			continue
		}
		step.offsetPx = &px
	}
}

type dispatch struct {
	event   EventName
	ctx     Context
	actions []string
	guard   string
}

// HandleEntries processes one intersection batch. It is the observer
// callback and may be called directly by hosts that track geometry
// themselves.
func (e *Engine) HandleEntries(entries []Entry) {
	e.mu.Lock()
	if len(e.steps) == 0 {
		e.mu.Unlock()
		return
	}
	direction := e.updateDirectionLocked()
	debug := e.config.Debug()

	var pending []dispatch
	for _, entry := range entries {
		step := e.byElement[entry.Target]
		if step == nil {
			continue
		}
		offsetPx := e.offsetPx
		if step.offsetPx != nil {
			offsetPx = *step.offsetPx
		}
		state := ComputeStepState(entry.BoundingRect, offsetPx)
		wasActive, previous := step.IsActive, step.Progress
		step.IsActive = state.IsActive
		step.Progress = state.Progress
		step.Direction = direction

		ctx := e.contextFor(step)
		queue := func(event EventName) {
			pending = append(pending, dispatch{
				event:   event,
				ctx:     ctx,
				actions: append([]string(nil), step.actionsFor(event)...),
				guard:   step.Guard,
			})
		}
		if !wasActive && state.IsActive {
			queue(EventStepEnter)
		}
		if state.IsActive && progressChanged(previous, state.Progress) {
			queue(EventStepProgress)
		}
		if wasActive && !state.IsActive {
			queue(EventStepExit)
		}
		if debug {
			decorate(step)
		}
	}
	e.mu.Unlock()

	for _, d := range pending {
		e.dispatch(d)
	}
}

func (e *Engine) updateDirectionLocked() Direction {
	y := e.platform.ScrollY()
	switch {
	case y > e.lastScrollY:
		e.direction = DirectionDown
	case y < e.lastScrollY:
		e.direction = DirectionUp
	}
	e.lastScrollY = y
	return e.direction
}

func (e *Engine) contextFor(step *Step) Context {
	return Context{
		Element:   step.Element,
		Index:     step.Index,
		Direction: step.Direction,
		Progress:  step.Progress,
		ChartID:   step.ChartID,
		DatasetID: step.DatasetID,
		Parachart: e.opts.parachart,
	}
}

func (e *Engine) dispatch(d dispatch) {
	for _, fn := range e.listeners.take(d.event) {
		fn(d.ctx)
	}
	if callback := e.callbackFor(d.event); callback != nil {
		callback(d.ctx)
	}
	e.emitActivity(d)

	if len(d.actions) == 0 {
		return
	}
	if d.guard != "" && !e.guardAllows(d) {
		return
	}
	debug := e.debug()
	for _, name := range d.actions {
		action, ok := e.actions.Lookup(name)
		if !ok {
			if debug {
				e.logger.Warn("scrollytelling action not registered", "action", name, "event", string(d.event), "index", d.ctx.Index)
			}
			continue
		}
		if err := action(d.ctx); err != nil {
			e.logger.Warn("scrollytelling action failed", "action", name, "index", d.ctx.Index, "error", err)
		}
	}
}

func (e *Engine) callbackFor(event EventName) Listener {
	switch event {
	case EventStepEnter:
		return e.opts.onStepEnter
	case EventStepExit:
		return e.opts.onStepExit
	case EventStepProgress:
		return e.opts.onStepProgress
	default:
		return nil
	}
}

func (e *Engine) emitActivity(d dispatch) {
	if !e.emitter.Enabled() {
		return
	}
	transition := activity.StepTransition{
		Index:      d.ctx.Index,
		Direction:  string(d.ctx.Direction),
		Progress:   d.ctx.Progress,
		ChartID:    d.ctx.ChartID,
		DatasetID:  d.ctx.DatasetID,
		Actions:    d.actions,
		OccurredAt: time.Now(),
	}
	var event activity.Event
	switch d.event {
	case EventStepEnter:
		event = activity.BuildStepEnteredEvent(transition)
	case EventStepExit:
		event = activity.BuildStepExitedEvent(transition)
	default:
		return
	}
	if err := e.emitter.Emit(context.Background(), event); err != nil {
		e.logger.Warn("scrollytelling activity emit failed", "verb", event.Verb, "error", err)
	}
}

func (e *Engine) guardAllows(d dispatch) bool {
	env := rules.Env{Vars: d.ctx.vars()}
	if e.opts.settings != nil {
		env.Snapshot = e.opts.settings.Settings()
	}
	ok, err := rules.EvaluateBool(e.guardEvaluator(), env, d.guard)
	if err != nil {
		e.logger.Warn("scrollytelling guard failed", "index", d.ctx.Index, "guard", d.guard, "error", err)
		return false
	}
	if !ok {
		e.logger.Debug("scrollytelling guard skipped actions", "index", d.ctx.Index, "event", string(d.event))
	}
	return ok
}

func (e *Engine) guardEvaluator() rules.Evaluator {
	e.evalOnce.Do(func() {
		switch {
		case e.opts.evaluator != nil:
			e.evaluator = e.opts.evaluator
		case e.opts.settings != nil:
			if evaluator, err := e.opts.settings.Evaluator(); err == nil {
				e.evaluator = evaluator
			}
		}
		if e.evaluator == nil {
			e.evaluator = rules.NewExpr()
		}
	})
	return e.evaluator
}

func (e *Engine) debug() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config.Debug()
}

func decorate(step *Step) {
	state := "inactive"
	if step.IsActive {
		state = "active"
	}
	step.Element.SetAttr(AttrDebug, fmt.Sprintf("%s %.3f", state, step.Progress))
}

// On registers fn for event and returns its id.
func (e *Engine) On(event EventName, fn Listener) ListenerID {
	return e.listeners.add(event, fn, false)
}

// Once registers fn for the next dispatch of event only.
func (e *Engine) Once(event EventName, fn Listener) ListenerID {
	return e.listeners.add(event, fn, true)
}

// Off removes listeners. Off("") clears every event, Off(event) clears one
// event and Off(event, ids...) removes specific registrations.
func (e *Engine) Off(event EventName, ids ...ListenerID) {
	e.listeners.remove(event, ids...)
}

// ListenerCount reports how many listeners are registered for event.
func (e *Engine) ListenerCount(event EventName) int {
	return e.listeners.count(event)
}

// Actions returns the action registry.
func (e *Engine) Actions() *Actions {
	return e.actions
}

// Steps returns a copy of the current step state.
func (e *Engine) Steps() []Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Step, 0, len(e.steps))
	for _, step := range e.steps {
		out = append(out, step.clone())
	}
	return out
}

// Config returns the configuration resolved by the last Init.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// OffsetPx returns the trigger line in pixels from the top of the viewport.
func (e *Engine) OffsetPx() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offsetPx
}

// Direction returns the direction computed for the last batch.
func (e *Engine) Direction() Direction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.direction
}

package para

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-paracharts/internal/logging"
	"github.com/goliatone/go-paracharts/layering"
	"github.com/goliatone/go-paracharts/patch"
	"github.com/goliatone/go-paracharts/pkg/activity"
	"github.com/goliatone/go-paracharts/rules"
)

// Store holds the authoritative settings snapshot. Readers always observe a
// complete immutable snapshot; updates build a draft and swap it in.
type Store struct {
	cfg      config
	logger   *slog.Logger
	defaults Settings
	index    pathIndex
	emitter  *activity.Emitter

	snapshot atomic.Pointer[Settings]
	updating atomic.Bool

	mu        sync.RWMutex
	observers map[string][]Observer

	evalOnce         sync.Once
	defaultEvaluator rules.Evaluator
}

// New creates a store whose snapshot is CreateSettings(input, defaults).
func New(defaults Settings, input Input, opts ...Option) (*Store, error) {
	cfg := applyOptions(opts)
	normalizedDefaults, err := normalizeDefaults(defaults)
	if err != nil {
		return nil, err
	}
	tree, err := CreateSettings(input, normalizedDefaults)
	if err != nil {
		return nil, err
	}

	s := &Store{
		cfg:       cfg,
		logger:    logging.OrNop(cfg.logger),
		defaults:  normalizedDefaults,
		index:     newPathIndex(normalizedDefaults),
		emitter:   activity.NewEmitter(cfg.activityHooks, cfg.activityConfig),
		observers: map[string][]Observer{},
	}
	s.snapshot.Store(&tree)
	s.logger.Debug("settings store created", "paths", len(s.index.leaves), "input", len(input))
	return s, nil
}

// Settings returns the current snapshot. It must be treated as read-only.
func (s *Store) Settings() Settings {
	return *s.snapshot.Load()
}

// Defaults returns a copy of the defaults tree.
func (s *Store) Defaults() Settings {
	return layering.Clone(s.defaults)
}

// Get resolves path in the current snapshot.
func (s *Store) Get(path string) (Setting, error) {
	return Get(path, s.Settings())
}

// GetGroup resolves a group in the current snapshot. The group belongs to
// the snapshot and must not be modified.
func (s *Store) GetGroup(path string) (Settings, error) {
	return GetGroup(path, s.Settings(), false)
}

// Paths lists the leaf descriptors of the defaults tree.
func (s *Store) Paths() []FieldDescriptor {
	return s.index.descriptors()
}

// Notice forwards a named notice to the OnNotice hook.
func (s *Store) Notice(key string, value any) {
	if s.cfg.onNotice != nil {
		s.cfg.onNotice(key, value)
	}
}

// Schema renders the current snapshot with generator, falling back to the
// configured generator and then to the descriptor generator.
func (s *Store) Schema(generator SchemaGenerator) (SchemaDocument, error) {
	if generator == nil {
		generator = s.cfg.schemaGenerator
	}
	if generator == nil {
		generator = DefaultSchemaGenerator()
	}
	return generator.Generate(s.Settings())
}

// Draft is the mutable copy of the snapshot handed to a Mutator.
type Draft struct {
	tree Settings
}

// Get resolves path in the draft.
func (d *Draft) Get(path string) (Setting, error) {
	return Get(path, d.tree)
}

// Set replaces the leaf at path. The path must already exist.
func (d *Draft) Set(path string, value Setting) error {
	return Set(path, value, d.tree, false)
}

// Group resolves a group of the draft for direct edits.
func (d *Draft) Group(path string) (Settings, error) {
	return GetGroup(path, d.tree, false)
}

// Tree exposes the whole draft for direct edits.
func (d *Draft) Tree() Settings {
	return d.tree
}

// UpdateSettings runs fn against a draft of the current snapshot, swaps in the
// result and returns the changed paths. Unless ignoreObservers is set, each
// changed path notifies its observers and then the OnSettingChange hook once.
// A failing mutator or a shape violation leaves the snapshot untouched.
// Calling UpdateSettings from inside a mutator returns ErrUpdateInProgress.
func (s *Store) UpdateSettings(fn Mutator, ignoreObservers bool) (ChangeSet, error) {
	if fn == nil {
		return nil, ErrMutatorRequired
	}
	if !s.updating.CompareAndSwap(false, true) {
		return nil, ErrUpdateInProgress
	}
	changes, err := s.commit(fn)
	s.updating.Store(false)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return changes, nil
	}

	s.logger.Debug("settings updated", "paths", changes.Paths(), "ignore_observers", ignoreObservers)
	if !ignoreObservers {
		s.dispatch(changes)
	}
	s.emitActivity(changes)
	s.Notice(NoticeSettingsChanged, changes)
	if s.cfg.onUpdate != nil {
		s.cfg.onUpdate()
	}
	return changes, nil
}

func (s *Store) commit(fn Mutator) (ChangeSet, error) {
	old := s.Settings()
	draft := &Draft{tree: layering.Clone(old)}
	if err := fn(draft); err != nil {
		return nil, fmt.Errorf("para: mutator: %w", err)
	}
	if draft.tree == nil {
		return nil, fmt.Errorf("%w: draft tree replaced with nil", ErrShapeViolation)
	}
	if err := layering.Normalize(draft.tree); err != nil {
		return nil, translateTreeError(err)
	}

	forward, inverse, err := patch.Diff(old, draft.tree)
	if err != nil {
		if errors.Is(err, patch.ErrShapeMismatch) {
			return nil, fmt.Errorf("%w: %w", ErrShapeViolation, err)
		}
		return nil, err
	}

	next, changes, err := s.pair(draft.tree, forward, inverse)
	if err != nil {
		return nil, err
	}
	s.snapshot.Store(&next)
	return changes, nil
}

// pair matches forward and inverse patches by position into changes. Any
// patch that is not a replace is reported and undone so the snapshot keeps the
// defaults' shape.
func (s *Store) pair(tree Settings, forward, inverse []patch.Patch) (Settings, ChangeSet, error) {
	changes := make(ChangeSet, 0, len(forward))
	var reverts []patch.Patch
	for i, fwd := range forward {
		if fwd.Op != patch.OpReplace {
			s.logger.Error("unexpected settings patch skipped",
				"op", string(fwd.Op),
				"path", fwd.PathString(),
			)
			reverts = append(reverts, inverse[i])
			continue
		}
		changes = append(changes, Change{
			Path:     fwd.PathString(),
			OldValue: inverse[i].Value,
			NewValue: fwd.Value,
		})
	}
	if len(reverts) == 0 {
		return tree, changes, nil
	}
	reverted, err := patch.Apply(tree, reverts)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrShapeViolation, err)
	}
	return reverted, changes, nil
}

func (s *Store) dispatch(changes ChangeSet) {
	for _, change := range changes {
		for _, observer := range s.observersFor(change.Path) {
			observer.SettingDidChange(change.Path, change.OldValue, change.NewValue)
		}
		if s.cfg.onSettingChange != nil {
			s.cfg.onSettingChange(change.Path, change.OldValue, change.NewValue)
		}
	}
}

func (s *Store) emitActivity(changes ChangeSet) {
	if !s.emitter.Enabled() {
		return
	}
	now := time.Now()
	for _, change := range changes {
		event := activity.BuildSettingChangedEvent(activity.SettingChange{
			Path:       change.Path,
			OldValue:   change.OldValue,
			NewValue:   change.NewValue,
			OccurredAt: now,
		})
		if err := s.emitter.Emit(context.Background(), event); err != nil {
			s.logger.Warn("settings activity hook failed", "path", change.Path, "error", err)
		}
	}
}

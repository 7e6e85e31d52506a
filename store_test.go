package para

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-paracharts/patch"
	"github.com/goliatone/go-paracharts/pkg/activity"
)

func voicingDefaults() Settings {
	return Settings{
		"ui": Settings{
			"isVoicingEnabled": false,
			"speechRate":       1,
		},
	}
}

type settingCall struct {
	path     string
	old, new Setting
}

func TestStoreEndToEndVoicingToggle(t *testing.T) {
	var calls []settingCall
	updates := 0
	store, err := New(voicingDefaults(), Input{},
		WithOnSettingChange(func(path string, oldValue, newValue Setting) {
			calls = append(calls, settingCall{path, oldValue, newValue})
		}),
		WithOnUpdate(func() { updates++ }),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if got, err := Get("ui.isVoicingEnabled", store.Settings()); err != nil || got != false {
		t.Fatalf("expected false, got %v (%v)", got, err)
	}

	changes, err := store.UpdateSettings(func(d *Draft) error {
		return d.Set("ui.isVoicingEnabled", true)
	}, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if got, _ := Get("ui.isVoicingEnabled", store.Settings()); got != true {
		t.Fatalf("expected true after update, got %v", got)
	}
	want := []settingCall{{"ui.isVoicingEnabled", false, true}}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("expected %+v, got %+v", want, calls)
	}
	if len(changes) != 1 || changes[0].Path != "ui.isVoicingEnabled" {
		t.Fatalf("unexpected change set: %+v", changes)
	}
	if updates != 1 {
		t.Fatalf("expected one OnUpdate, got %d", updates)
	}
}

func TestUpdateSettingsKeepsPreviousSnapshot(t *testing.T) {
	store, err := New(voicingDefaults(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	before := store.Settings()
	if _, err := store.UpdateSettings(func(d *Draft) error {
		return d.Set("ui.speechRate", 2)
	}, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := Get("ui.speechRate", before); got != float64(1) {
		t.Fatalf("previous snapshot changed: %v", got)
	}
	if got, _ := store.Get("ui.speechRate"); got != float64(2) {
		t.Fatalf("expected new snapshot value 2, got %v", got)
	}
}

func TestUpdateSettingsInverseRestoresOld(t *testing.T) {
	defaults := Settings{
		"ui":    Settings{"isVoicingEnabled": false, "speechRate": 1, "theme": "light"},
		"chart": Settings{"size": Settings{"width": 600, "height": 450}},
	}
	mutators := map[string]Mutator{
		"single leaf": func(d *Draft) error { return d.Set("ui.theme", "dark") },
		"many leaves": func(d *Draft) error {
			for path, value := range map[string]Setting{"ui.speechRate": 1.5, "chart.size.width": 800, "ui.isVoicingEnabled": true} {
				if err := d.Set(path, value); err != nil {
					return err
				}
			}
			return nil
		},
		"direct group edit": func(d *Draft) error {
			size, err := d.Group("chart.size")
			if err != nil {
				return err
			}
			size["height"] = 100
			return nil
		},
		"no change": func(d *Draft) error { return d.Set("ui.theme", "light") },
	}

	for name, fn := range mutators {
		t.Run(name, func(t *testing.T) {
			store, err := New(defaults, nil)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			old := store.Settings()
			if _, err := store.UpdateSettings(fn, true); err != nil {
				t.Fatalf("update: %v", err)
			}
			next := store.Settings()

			forward, inverse, err := patch.Diff(old, next)
			if err != nil {
				t.Fatalf("diff: %v", err)
			}
			restored, err := patch.Apply(next, inverse)
			if err != nil {
				t.Fatalf("apply inverse: %v", err)
			}
			if !reflect.DeepEqual(restored, old) {
				t.Fatalf("inverse did not restore old:\n got %#v\nwant %#v", restored, old)
			}
			replayed, err := patch.Apply(old, forward)
			if err != nil {
				t.Fatalf("apply forward: %v", err)
			}
			if !reflect.DeepEqual(replayed, next) {
				t.Fatalf("forward did not reproduce new")
			}
		})
	}
}

func TestObserverFanOut(t *testing.T) {
	var global []settingCall
	store, err := New(voicingDefaults(), nil, WithOnSettingChange(func(path string, o, n Setting) {
		global = append(global, settingCall{path, o, n})
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var first, second []settingCall
	a := ObserverFunc(func(o, n Setting) { first = append(first, settingCall{"", o, n}) })
	b := ObserverFunc(func(o, n Setting) { second = append(second, settingCall{"", o, n}) })
	if err := store.ObserveSetting("ui.speechRate", a); err != nil {
		t.Fatalf("observe a: %v", err)
	}
	if err := store.ObserveSetting("ui.speechRate", b); err != nil {
		t.Fatalf("observe b: %v", err)
	}

	if _, err := store.UpdateSettings(func(d *Draft) error { return d.Set("ui.speechRate", 2) }, false); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected each observer once, got %d and %d", len(first), len(second))
	}
	if !reflect.DeepEqual(first, second) || first[0].old != float64(1) || first[0].new != float64(2) {
		t.Fatalf("observers saw different arguments: %+v %+v", first, second)
	}
	if len(global) != 1 {
		t.Fatalf("expected settingDidChange once, got %d", len(global))
	}
}

func TestObserversAreExactPath(t *testing.T) {
	defaults := Settings{"a": Settings{"b": 1, "c": 2, "d": Settings{"x": 3}}}
	store, err := New(defaults, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	fired := map[string]int{}
	for _, path := range []string{"a.b", "a.c", "a.d.x"} {
		path := path
		if err := store.ObserveSetting(path, ObserverFunc(func(Setting, Setting) { fired[path]++ })); err != nil {
			t.Fatalf("observe %s: %v", path, err)
		}
	}

	if _, err := store.UpdateSettings(func(d *Draft) error { return d.Set("a.b", 10) }, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	if fired["a.b"] != 1 || fired["a.c"] != 0 || fired["a.d.x"] != 0 {
		t.Fatalf("unexpected dispatch: %+v", fired)
	}
}

func TestIgnoreObserversSkipsDispatchOnly(t *testing.T) {
	calls := 0
	updates := 0
	var notices []string
	store, err := New(voicingDefaults(), nil,
		WithOnSettingChange(func(string, Setting, Setting) { calls++ }),
		WithOnUpdate(func() { updates++ }),
		WithOnNotice(func(key string, _ any) { notices = append(notices, key) }),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	observed := 0
	if err := store.ObserveSetting("ui.speechRate", ObserverFunc(func(Setting, Setting) { observed++ })); err != nil {
		t.Fatalf("observe: %v", err)
	}

	if _, err := store.UpdateSettings(func(d *Draft) error { return d.Set("ui.speechRate", 4) }, true); err != nil {
		t.Fatalf("update: %v", err)
	}
	if calls != 0 || observed != 0 {
		t.Fatalf("expected no observer dispatch, got hook=%d observer=%d", calls, observed)
	}
	if updates != 1 || len(notices) != 1 || notices[0] != NoticeSettingsChanged {
		t.Fatalf("expected update and notice to fire, got updates=%d notices=%v", updates, notices)
	}
	if got, _ := store.Get("ui.speechRate"); got != float64(4) {
		t.Fatalf("expected snapshot updated, got %v", got)
	}
}

func TestUpdateSettingsWithoutChangesIsQuiet(t *testing.T) {
	updates := 0
	store, err := New(voicingDefaults(), nil, WithOnUpdate(func() { updates++ }))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	changes, err := store.UpdateSettings(func(d *Draft) error { return d.Set("ui.speechRate", 1) }, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(changes) != 0 || updates != 0 {
		t.Fatalf("expected no changes and no update hook, got %v / %d", changes, updates)
	}
}

func TestUpdateSettingsRevertsAddAndRemove(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	calls := 0
	store, err := New(voicingDefaults(), nil, WithLogger(logger), WithOnSettingChange(func(string, Setting, Setting) { calls++ }))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	changes, err := store.UpdateSettings(func(d *Draft) error {
		ui, err := d.Group("ui")
		if err != nil {
			return err
		}
		ui["volume"] = 0.5
		delete(ui, "speechRate")
		ui["isVoicingEnabled"] = true
		return nil
	}, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(changes) != 1 || changes[0].Path != "ui.isVoicingEnabled" || calls != 1 {
		t.Fatalf("expected only the replace to be reported, got %+v (calls=%d)", changes, calls)
	}
	if !reflect.DeepEqual(store.Settings(), Settings{"ui": Settings{"isVoicingEnabled": true, "speechRate": float64(1)}}) {
		t.Fatalf("expected shape restored, got %#v", store.Settings())
	}
	out := logs.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "op=add") || !strings.Contains(out, "op=remove") {
		t.Fatalf("expected add/remove errors logged, got %s", out)
	}
}

func TestUpdateSettingsAbortsOnShapeViolation(t *testing.T) {
	store, err := New(voicingDefaults(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	before := store.Settings()

	_, err = store.UpdateSettings(func(d *Draft) error {
		d.Tree()["ui"] = "flat"
		return nil
	}, false)
	if !errors.Is(err, ErrShapeViolation) {
		t.Fatalf("expected ErrShapeViolation, got %v", err)
	}
	if !reflect.DeepEqual(store.Settings(), before) {
		t.Fatalf("snapshot changed after failed update")
	}

	_, err = store.UpdateSettings(func(d *Draft) error {
		return d.Set("ui.speechRate", Settings{"value": 2})
	}, false)
	if !errors.Is(err, ErrShapeViolation) {
		t.Fatalf("expected ErrShapeViolation from Set, got %v", err)
	}
}

func TestUpdateSettingsMutatorErrorLeavesSnapshot(t *testing.T) {
	store, err := New(voicingDefaults(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	boom := errors.New("boom")
	_, err = store.UpdateSettings(func(d *Draft) error {
		if err := d.Set("ui.speechRate", 9); err != nil {
			return err
		}
		return boom
	}, false)
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	if got, _ := store.Get("ui.speechRate"); got != float64(1) {
		t.Fatalf("snapshot changed after mutator error: %v", got)
	}
	if _, err := store.UpdateSettings(nil, false); !errors.Is(err, ErrMutatorRequired) {
		t.Fatalf("expected ErrMutatorRequired, got %v", err)
	}
}

func TestUpdateSettingsRejectsReentry(t *testing.T) {
	store, err := New(voicingDefaults(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var inner error
	if _, err := store.UpdateSettings(func(d *Draft) error {
		_, inner = store.UpdateSettings(func(*Draft) error { return nil }, false)
		return d.Set("ui.speechRate", 2)
	}, false); err != nil {
		t.Fatalf("outer update: %v", err)
	}
	if !errors.Is(inner, ErrUpdateInProgress) {
		t.Fatalf("expected ErrUpdateInProgress, got %v", inner)
	}

	// Observers run after the guard is released and may update again.
	var nested error
	obs := ObserverFunc(func(Setting, Setting) {
		_, nested = store.UpdateSettings(func(d *Draft) error { return d.Set("ui.isVoicingEnabled", true) }, true)
	})
	if err := store.ObserveSetting("ui.speechRate", obs); err != nil {
		t.Fatalf("observe: %v", err)
	}
	if _, err := store.UpdateSettings(func(d *Draft) error { return d.Set("ui.speechRate", 3) }, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	if nested != nil {
		t.Fatalf("expected update from observer to succeed, got %v", nested)
	}
	if got, _ := store.Get("ui.isVoicingEnabled"); got != true {
		t.Fatalf("expected nested update applied")
	}
}

func TestUpdateSettingsEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	store, err := New(voicingDefaults(), nil,
		WithActivityHooks(activity.Hooks{capture, nil}),
		WithActivityActor("host", "charts"),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := store.UpdateSettings(func(d *Draft) error {
		if err := d.Set("ui.speechRate", 2); err != nil {
			return err
		}
		return d.Set("ui.isVoicingEnabled", true)
	}, true); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(capture.Events) != 2 {
		t.Fatalf("expected one event per changed path, got %d", len(capture.Events))
	}
	first := capture.Events[0]
	if first.Verb != activity.VerbSettingChanged || first.ObjectID != "ui.isVoicingEnabled" {
		t.Fatalf("unexpected event: %+v", first)
	}
	if first.ActorID != "host" || first.Channel != "charts" {
		t.Fatalf("expected actor/channel defaults, got %+v", first)
	}
}

func TestNoticeCarriesChangeSet(t *testing.T) {
	var payload any
	store, err := New(voicingDefaults(), nil, WithOnNotice(func(key string, value any) {
		if key == NoticeSettingsChanged {
			payload = value
		}
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	store.Notice("custom", 1)
	if payload != nil {
		t.Fatalf("custom notice should not be mistaken for a change notice")
	}
	if _, err := store.UpdateSettings(func(d *Draft) error { return d.Set("ui.speechRate", 2) }, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	changes, ok := payload.(ChangeSet)
	if !ok || len(changes) != 1 {
		t.Fatalf("expected ChangeSet payload, got %#v", payload)
	}
}

func TestNewRejectsInvalidInput(t *testing.T) {
	if _, err := New(voicingDefaults(), Input{"ui": 1}); !errors.Is(err, ErrShapeViolation) {
		t.Fatalf("expected ErrShapeViolation, got %v", err)
	}
	if _, err := New(Settings{"ui": []string{"x"}}, nil); !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("expected ErrInvalidSetting for bad defaults, got %v", err)
	}
}

func TestStorePathsAndSchema(t *testing.T) {
	store, err := New(voicingDefaults(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	paths := store.Paths()
	if len(paths) != 2 || paths[0].Path != "ui.isVoicingEnabled" || paths[1].Type != TypeNumber {
		t.Fatalf("unexpected descriptors: %+v", paths)
	}

	doc, err := store.Schema(nil)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if doc.Format != SchemaFormatDescriptors {
		t.Fatalf("expected descriptor format, got %q", doc.Format)
	}
	fields, ok := doc.Document.([]FieldDescriptor)
	if !ok || len(fields) != 2 || fields[0].Type != TypeBoolean {
		t.Fatalf("unexpected document: %#v", doc.Document)
	}
}

package para

import (
	"errors"
	"testing"

	"github.com/goliatone/go-paracharts/rules"
)

func TestStoreEvaluateDefaultsToExpr(t *testing.T) {
	store, err := New(voicingDefaults(), Input{"ui.speechRate": 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	evaluator, err := store.Evaluator()
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	if rules.EngineName(evaluator) != "expr" {
		t.Fatalf("expected expr evaluator, got %s", rules.EngineName(evaluator))
	}
	again, _ := store.Evaluator()
	if again != evaluator {
		t.Fatalf("expected default evaluator to be reused")
	}

	got, err := store.Evaluate("ui.speechRate * 2")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != float64(4) {
		t.Fatalf("expected 4, got %#v", got)
	}

	got, err = store.Evaluate(`settings.ui.isVoicingEnabled == false`)
	if err != nil || got != true {
		t.Fatalf("expected settings binding, got %v (%v)", got, err)
	}
}

func TestStoreEvaluateSeesLatestSnapshot(t *testing.T) {
	store, err := New(voicingDefaults(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := store.UpdateSettings(func(d *Draft) error { return d.Set("ui.isVoicingEnabled", true) }, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.EvaluateWith(map[string]any{"step": 3}, "ui.isVoicingEnabled && step > 2")
	if err != nil || got != true {
		t.Fatalf("expected true, got %v (%v)", got, err)
	}
}

func TestStoreEvaluateWithCELAndFunctions(t *testing.T) {
	registry := rules.NewFunctionRegistry()
	if err := registry.Register("double", func(args ...any) (any, error) {
		return args[0].(float64) * 2, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	store, err := New(voicingDefaults(), nil, WithFunctionRegistry(registry), WithProgramCache(rules.NewMemoryCache()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := store.Evaluate("double(ui.speechRate)")
	if err != nil || got != float64(2) {
		t.Fatalf("expected 2, got %v (%v)", got, err)
	}

	celStore, err := New(voicingDefaults(), nil, WithEvaluator(rules.NewCEL()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err = celStore.Evaluate("ui.speechRate == 1.0")
	if err != nil || got != true {
		t.Fatalf("expected cel true, got %v (%v)", got, err)
	}
}

func TestStoreEvaluateErrors(t *testing.T) {
	store, err := New(voicingDefaults(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := store.Evaluate(""); err == nil {
		t.Fatalf("expected empty expression error")
	}
	_, err = store.Evaluate("ui.speechRate +")
	var evalErr *rules.EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Engine != "expr" {
		t.Fatalf("expected expr EvaluationError, got %v", err)
	}
}

package patch

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-paracharts/layering"
)

func sampleTree() map[string]any {
	return map[string]any{
		"ui": map[string]any{
			"isVoicingEnabled": false,
			"speechRate":       1.0,
		},
		"chart": map[string]any{
			"title": "Sales",
			"size":  map[string]any{"width": 600.0, "height": 450.0},
		},
	}
}

func TestDiffReplaceProducesPairedInverse(t *testing.T) {
	old := sampleTree()
	next := layering.Clone(old)
	next["ui"].(map[string]any)["isVoicingEnabled"] = true
	next["chart"].(map[string]any)["size"].(map[string]any)["width"] = 800.0

	forward, inverse, err := Diff(old, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(forward) != 2 || len(inverse) != 2 {
		t.Fatalf("expected 2 patches each way, got %d/%d", len(forward), len(inverse))
	}

	want := []Patch{
		{Op: OpReplace, Path: []string{"chart", "size", "width"}, Value: 800.0},
		{Op: OpReplace, Path: []string{"ui", "isVoicingEnabled"}, Value: true},
	}
	if !reflect.DeepEqual(want, forward) {
		t.Fatalf("forward mismatch:\nwant: %#v\n got: %#v", want, forward)
	}
	for i := range forward {
		if forward[i].PathString() != inverse[i].PathString() {
			t.Fatalf("patch %d not in lockstep: %s vs %s", i, forward[i].PathString(), inverse[i].PathString())
		}
	}
	if inverse[1].Value != false {
		t.Fatalf("expected inverse to carry old value false, got %#v", inverse[1].Value)
	}
}

func TestDiffIgnoresNumericRepresentation(t *testing.T) {
	old := map[string]any{"rate": 1.0}
	next := map[string]any{"rate": 1}
	forward, _, err := Diff(old, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(forward) != 0 {
		t.Fatalf("expected no patches for equal numbers, got %#v", forward)
	}
}

func TestDiffAddAndRemove(t *testing.T) {
	old := map[string]any{"a": 1.0, "gone": "x"}
	next := map[string]any{"a": 1.0, "fresh": map[string]any{"b": true}}

	forward, inverse, err := Diff(old, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(forward) != 2 {
		t.Fatalf("expected 2 patches, got %#v", forward)
	}
	if forward[0].Op != OpAdd || forward[0].PathString() != "fresh" {
		t.Fatalf("expected add of fresh first, got %#v", forward[0])
	}
	if inverse[0].Op != OpRemove {
		t.Fatalf("expected inverse remove, got %#v", inverse[0])
	}
	if forward[1].Op != OpRemove || inverse[1].Op != OpAdd || inverse[1].Value != "x" {
		t.Fatalf("unexpected remove pair: %#v / %#v", forward[1], inverse[1])
	}
}

func TestDiffShapeMismatch(t *testing.T) {
	old := map[string]any{"ui": map[string]any{"theme": "light"}}
	next := map[string]any{"ui": "flat"}
	if _, _, err := Diff(old, next); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestInverseRestoresOld(t *testing.T) {
	mutators := map[string]func(map[string]any){
		"leaf replace": func(tree map[string]any) {
			tree["ui"].(map[string]any)["speechRate"] = 2.5
		},
		"many leaves": func(tree map[string]any) {
			tree["ui"].(map[string]any)["isVoicingEnabled"] = true
			tree["chart"].(map[string]any)["title"] = "Revenue"
			tree["chart"].(map[string]any)["size"].(map[string]any)["height"] = 300.0
		},
		"add and remove": func(tree map[string]any) {
			delete(tree["chart"].(map[string]any), "title")
			tree["ui"].(map[string]any)["volume"] = 0.8
		},
		"no change": func(map[string]any) {},
	}

	for name, mutate := range mutators {
		t.Run(name, func(t *testing.T) {
			old := sampleTree()
			next := layering.Clone(old)
			mutate(next)

			forward, inverse, err := Diff(old, next)
			if err != nil {
				t.Fatalf("diff: %v", err)
			}

			restored, err := Apply(next, inverse)
			if err != nil {
				t.Fatalf("apply inverse: %v", err)
			}
			if !reflect.DeepEqual(old, restored) {
				t.Fatalf("inverse did not restore old:\nwant: %#v\n got: %#v", old, restored)
			}

			replayed, err := Apply(old, forward)
			if err != nil {
				t.Fatalf("apply forward: %v", err)
			}
			if !reflect.DeepEqual(next, replayed) {
				t.Fatalf("forward did not reproduce new:\nwant: %#v\n got: %#v", next, replayed)
			}
		})
	}
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	tree := sampleTree()
	_, err := Apply(tree, []Patch{{Op: OpReplace, Path: []string{"chart", "title"}, Value: "Other"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if tree["chart"].(map[string]any)["title"] != "Sales" {
		t.Fatalf("Apply mutated its input")
	}
}

func TestApplyErrors(t *testing.T) {
	tree := sampleTree()
	cases := []struct {
		name  string
		patch Patch
		want  error
	}{
		{"missing parent", Patch{Op: OpAdd, Path: []string{"nope", "x"}, Value: 1.0}, ErrPathNotFound},
		{"replace missing leaf", Patch{Op: OpReplace, Path: []string{"ui", "nope"}, Value: 1.0}, ErrPathNotFound},
		{"remove missing leaf", Patch{Op: OpRemove, Path: []string{"ui", "nope"}}, ErrPathNotFound},
		{"empty path", Patch{Op: OpReplace}, ErrPathNotFound},
		{"unknown op", Patch{Op: "move", Path: []string{"ui", "speechRate"}}, ErrUnsupportedOp},
	}
	for _, tc := range cases {
		if _, err := Apply(tree, []Patch{tc.patch}); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

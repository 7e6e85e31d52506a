package layering

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type completeFixture struct {
	Description string                `json:"description"`
	Defaults    map[string]any        `json:"defaults"`
	Cases       []completeFixtureCase `json:"cases"`
}

type completeFixtureCase struct {
	Name    string         `json:"name"`
	Partial map[string]any `json:"partial"`
	Expect  map[string]any `json:"expect"`
	Err     string         `json:"err"`
}

func TestCompleteFromFixture(t *testing.T) {
	fx := loadCompleteFixture(t, "layering_complete.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			got, err := Complete(tc.Partial, fx.Defaults)
			if tc.Err != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tc.Err)
				}
				if !strings.Contains(err.Error(), tc.Err) {
					t.Fatalf("expected error containing %q, got %v", tc.Err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(tc.Expect, got) {
				t.Fatalf("completed tree mismatch:\nwant: %#v\n got: %#v", tc.Expect, got)
			}
		})
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	fx := loadCompleteFixture(t, "layering_complete.json")

	for _, tc := range fx.Cases {
		if tc.Err != "" {
			continue
		}
		once, err := Complete(tc.Partial, fx.Defaults)
		if err != nil {
			t.Fatalf("%s: first completion: %v", tc.Name, err)
		}
		twice, err := Complete(once, fx.Defaults)
		if err != nil {
			t.Fatalf("%s: second completion: %v", tc.Name, err)
		}
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("%s: completion not idempotent:\nonce:  %#v\ntwice: %#v", tc.Name, once, twice)
		}
	}
}

func TestCompleteDoesNotAliasDefaults(t *testing.T) {
	defaults := Group{"ui": Group{"theme": "light"}}
	got, err := Complete(Group{}, defaults)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	got["ui"].(Group)["theme"] = "dark"
	if defaults["ui"].(Group)["theme"] != "light" {
		t.Fatalf("mutating completed tree leaked into defaults")
	}
}

func TestCompleteNormalizesNumbers(t *testing.T) {
	defaults := Group{"rate": 1.0}
	got, err := Complete(Group{"rate": 2}, defaults)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got["rate"] != 2.0 {
		t.Fatalf("expected float64 2, got %#v", got["rate"])
	}
	if _, err := Complete(Group{"rate": []int{1}}, defaults); !errors.Is(err, ErrInvalidLeaf) {
		t.Fatalf("expected ErrInvalidLeaf, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := Group{"a": Group{"b": Group{"c": true}}}
	clone := Clone(original)
	clone["a"].(Group)["b"].(Group)["c"] = false
	if original["a"].(Group)["b"].(Group)["c"] != true {
		t.Fatalf("clone shares nested groups with the original")
	}
	if Clone(nil) != nil {
		t.Fatalf("expected Clone(nil) to return nil")
	}
}

func TestNormalizeRejectsUnsupportedLeaves(t *testing.T) {
	tree := Group{"ui": Group{"speechRate": int32(3), "bad": struct{}{}}}
	err := Normalize(tree)
	if !errors.Is(err, ErrInvalidLeaf) {
		t.Fatalf("expected ErrInvalidLeaf, got %v", err)
	}
	if !strings.Contains(err.Error(), "ui.bad") {
		t.Fatalf("expected error to name the path, got %v", err)
	}
}

func TestLeafEqual(t *testing.T) {
	cases := []struct {
		a, b any
		want bool
	}{
		{1, 1.0, true},
		{int64(2), float32(2), true},
		{"x", "x", true},
		{true, false, false},
		{"1", 1, false},
		{[]int{1}, []int{1}, false},
	}
	for _, tc := range cases {
		if got := LeafEqual(tc.a, tc.b); got != tc.want {
			t.Errorf("LeafEqual(%#v, %#v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMergeInputsStrongestWins(t *testing.T) {
	user := map[string]any{"ui.theme": "dark"}
	system := map[string]any{"ui.theme": "light", "ui.speechRate": 1.0}

	got := MergeInputs(user, system)
	want := map[string]any{"ui.theme": "dark", "ui.speechRate": 1.0}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("merge mismatch:\nwant: %#v\n got: %#v", want, got)
	}
	if len(MergeInputs()) != 0 {
		t.Fatalf("expected empty merge for no inputs")
	}
}

func TestMergeLayersFillsNilFields(t *testing.T) {
	type config struct {
		Offset  any
		IsDebug *bool
		Margin  *float64
	}
	debug := true
	margin := 12.0
	callSite := config{Offset: "200px"}
	host := config{Offset: 0.3, IsDebug: &debug, Margin: &margin}

	got := MergeLayers(callSite, host)
	if got.Offset != "200px" {
		t.Fatalf("expected call-site offset to win, got %#v", got.Offset)
	}
	if got.IsDebug == nil || !*got.IsDebug {
		t.Fatalf("expected host debug flag to fill in, got %v", got.IsDebug)
	}
	if got.Margin == nil || *got.Margin != 12 || got.Margin == host.Margin {
		t.Fatalf("expected cloned host margin, got %v", got.Margin)
	}

	var zero config
	if got := MergeLayers[config](); !reflect.DeepEqual(got, zero) {
		t.Fatalf("expected MergeLayers() to return zero value, got %+v", got)
	}
}

func loadCompleteFixture(t *testing.T, name string) completeFixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read layering fixture %q: %v", name, err)
	}
	var fx completeFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal layering fixture %q: %v", name, err)
	}
	return fx
}

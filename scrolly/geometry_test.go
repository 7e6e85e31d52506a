package scrolly

import (
	"testing"
)

func rectAt(top, height float64) Rect {
	return Rect{Top: top, Bottom: top + height, Height: height}
}

func TestComputeStepState(t *testing.T) {
	cases := []struct {
		name string
		rect Rect
		want StepState
	}{
		{name: "below trigger", rect: rectAt(600, 200), want: StepState{Progress: 0}},
		{name: "top on trigger", rect: rectAt(500, 200), want: StepState{IsActive: true, Progress: 0}},
		{name: "spanning trigger", rect: rectAt(450, 200), want: StepState{IsActive: true, Progress: 0.25}},
		{name: "half way", rect: rectAt(400, 200), want: StepState{IsActive: true, Progress: 0.5}},
		{name: "bottom on trigger", rect: rectAt(300, 200), want: StepState{IsActive: true, Progress: 1}},
		{name: "scrolled past", rect: rectAt(100, 200), want: StepState{Progress: 1}},
		{name: "zero height on trigger", rect: rectAt(500, 0), want: StepState{IsActive: true, Progress: 0}},
		{name: "zero height past", rect: rectAt(499, 0), want: StepState{Progress: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeStepState(tc.rect, 500); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestProgressIsMonotonicAndClamped(t *testing.T) {
	const offset, height = 500.0, 200.0
	previous := -1.0
	// The bottom edge sweeps from one height below the trigger line to one
	// height above it while scrolling down.
	for bottom := offset + height; bottom >= offset-height; bottom -= 0.5 {
		state := ComputeStepState(Rect{Top: bottom - height, Bottom: bottom, Height: height}, offset)
		if state.Progress < 0 || state.Progress > 1 {
			t.Fatalf("progress %v out of range at bottom=%v", state.Progress, bottom)
		}
		if state.Progress < previous {
			t.Fatalf("progress decreased from %v to %v at bottom=%v", previous, state.Progress, bottom)
		}
		previous = state.Progress
	}
	if previous != 1 {
		t.Fatalf("expected progress to end at 1, got %v", previous)
	}
}

func TestProgressChanged(t *testing.T) {
	if progressChanged(0.5, 0.5005) {
		t.Fatalf("delta below epsilon must not count")
	}
	if !progressChanged(0.5, 0.502) {
		t.Fatalf("delta above epsilon must count")
	}
}

func TestRootMarginAndThresholds(t *testing.T) {
	margin := RootMargin(500, 1000, 0)
	if margin.Top != -500 || margin.Bottom != -500 {
		t.Fatalf("unexpected margin %+v", margin)
	}
	if got := margin.String(); got != "-500px 0px -500px 0px" {
		t.Fatalf("unexpected css margin %q", got)
	}
	if wider := RootMargin(300, 1000, 20); wider.Top != -280 || wider.Bottom != -680 {
		t.Fatalf("unexpected extra margin %+v", wider)
	}

	thresholds := Thresholds()
	if len(thresholds) != 11 || thresholds[0] != 0 || thresholds[10] != 1 || thresholds[3] != 0.3 {
		t.Fatalf("unexpected thresholds %v", thresholds)
	}
}

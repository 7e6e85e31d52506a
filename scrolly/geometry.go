package scrolly

import "math"

// ProgressEpsilon is the smallest progress delta reported as a change.
const ProgressEpsilon = 0.001

// StepState is the geometric state of a step relative to the trigger line.
type StepState struct {
	IsActive bool
	Progress float64
}

// ComputeStepState places rect against the trigger line offsetPx pixels
// below the top of the viewport. A step is active while the line crosses
// it. Progress runs from 0 when the top reaches the line to 1 when the
// bottom does, and is pinned to 0 before the step and 1 after it.
func ComputeStepState(rect Rect, offsetPx float64) StepState {
	topAdjusted := rect.Top - offsetPx
	bottomAdjusted := rect.Bottom - offsetPx

	switch {
	case topAdjusted <= 0 && bottomAdjusted >= 0:
		if rect.Height == 0 {
			return StepState{IsActive: true, Progress: 0}
		}
		return StepState{IsActive: true, Progress: clamp01(1 - bottomAdjusted/rect.Height)}
	case bottomAdjusted < 0:
		return StepState{Progress: 1}
	default:
		return StepState{Progress: 0}
	}
}

func progressChanged(previous, next float64) bool {
	return math.Abs(next-previous) > ProgressEpsilon
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// RootMargin shrinks the observed root to the trigger line, widened by
// extra pixels on both edges.
func RootMargin(offsetPx, viewportHeight, extra float64) Margin {
	return Margin{
		Top:    -offsetPx + extra,
		Bottom: offsetPx - viewportHeight + extra,
	}
}

// Thresholds returns the eleven observer thresholds 0, 0.1, ..., 1.
func Thresholds() []float64 {
	out := make([]float64, 11)
	for i := range out {
		out[i] = float64(i) / 10
	}
	return out
}

package activity

import (
	"strconv"
	"strings"
	"time"
)

const (
	// VerbSettingChanged is emitted once per changed settings path.
	VerbSettingChanged = "settings.changed"
	// VerbStepEntered is emitted when a scrollytelling step becomes active.
	VerbStepEntered = "scrolly.step.entered"
	// VerbStepExited is emitted when a scrollytelling step becomes inactive.
	VerbStepExited = "scrolly.step.exited"

	// ObjectTypeSetting identifies events whose ObjectID is a settings path.
	ObjectTypeSetting = "setting"
	// ObjectTypeStep identifies events whose ObjectID is a step index.
	ObjectTypeStep = "scrolly.step"
)

// SettingChange describes one settings path transition.
type SettingChange struct {
	ActorID    string
	UserID     string
	TenantID   string
	Path       string
	OldValue   any
	NewValue   any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildSettingChangedEvent constructs an activity event for a settings change.
func BuildSettingChangedEvent(change SettingChange) Event {
	metadata := cloneMap(change.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["path"] = change.Path
	metadata["old_value"] = change.OldValue
	metadata["new_value"] = change.NewValue

	return Event{
		Verb:       VerbSettingChanged,
		ActorID:    strings.TrimSpace(change.ActorID),
		UserID:     strings.TrimSpace(change.UserID),
		TenantID:   strings.TrimSpace(change.TenantID),
		ObjectType: ObjectTypeSetting,
		ObjectID:   strings.TrimSpace(change.Path),
		Metadata:   metadata,
		OccurredAt: change.OccurredAt,
	}
}

// StepTransition describes a scrollytelling step entering or leaving the
// trigger line.
type StepTransition struct {
	Index      int
	Direction  string
	Progress   float64
	ChartID    string
	DatasetID  string
	Actions    []string
	OccurredAt time.Time
}

// BuildStepEnteredEvent constructs an activity event for a step activation.
func BuildStepEnteredEvent(step StepTransition) Event {
	return buildStepEvent(VerbStepEntered, step)
}

// BuildStepExitedEvent constructs an activity event for a step deactivation.
func BuildStepExitedEvent(step StepTransition) Event {
	return buildStepEvent(VerbStepExited, step)
}

func buildStepEvent(verb string, step StepTransition) Event {
	metadata := map[string]any{
		"index":     step.Index,
		"direction": step.Direction,
		"progress":  step.Progress,
	}
	if step.ChartID != "" {
		metadata["chart_id"] = step.ChartID
	}
	if step.DatasetID != "" {
		metadata["dataset_id"] = step.DatasetID
	}
	if len(step.Actions) > 0 {
		metadata["actions"] = append([]string{}, step.Actions...)
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectTypeStep,
		ObjectID:   strconv.Itoa(step.Index),
		Metadata:   metadata,
		OccurredAt: step.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}

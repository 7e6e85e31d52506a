package scrolly

import (
	"strings"
)

// Step attributes read from the document.
const (
	AttrEnter     = "data-para-enter"
	AttrExit      = "data-para-exit"
	AttrProgress  = "data-para-progress"
	AttrChartID   = "data-para-chartid"
	AttrDatasetID = "data-para-datasetid"
	AttrOffset    = "data-para-offset"
	AttrIf        = "data-para-if"
	AttrDebug     = "data-para-debug"
)

// StepSelector matches every element that declares at least one trigger.
const StepSelector = "[" + AttrEnter + "],[" + AttrExit + "],[" + AttrProgress + "]"

// Direction is the scroll direction observed for a callback batch.
type Direction string

const (
	DirectionDown Direction = "down"
	DirectionUp   Direction = "up"
)

// Step is the state the engine tracks for one step element.
type Step struct {
	Element         Element
	Index           int
	IsActive        bool
	Progress        float64
	Direction       Direction
	EnterActions    []string
	ExitActions     []string
	ProgressActions []string
	ChartID         string
	DatasetID       string
	// Offset is the raw data-para-offset override, empty when absent.
	Offset string
	// Guard is the data-para-if expression, empty when absent.
	Guard string

	offsetPx *float64
}

func (s *Step) clone() Step {
	out := *s
	out.EnterActions = append([]string(nil), s.EnterActions...)
	out.ExitActions = append([]string(nil), s.ExitActions...)
	out.ProgressActions = append([]string(nil), s.ProgressActions...)
	out.offsetPx = nil
	return out
}

func (s *Step) actionsFor(event EventName) []string {
	switch event {
	case EventStepEnter:
		return s.EnterActions
	case EventStepExit:
		return s.ExitActions
	case EventStepProgress:
		return s.ProgressActions
	default:
		return nil
	}
}

func newStep(el Element, index int) *Step {
	step := &Step{Element: el, Index: index}
	step.EnterActions = parseActions(attr(el, AttrEnter))
	step.ExitActions = parseActions(attr(el, AttrExit))
	step.ProgressActions = parseActions(attr(el, AttrProgress))
	step.ChartID = strings.TrimSpace(attr(el, AttrChartID))
	step.DatasetID = strings.TrimSpace(attr(el, AttrDatasetID))
	step.Offset = strings.TrimSpace(attr(el, AttrOffset))
	step.Guard = strings.TrimSpace(attr(el, AttrIf))
	return step
}

func attr(el Element, name string) string {
	value, _ := el.Attr(name)
	return value
}

// parseActions splits a comma or whitespace separated action list.
func parseActions(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Context is handed to listeners, callbacks and actions.
type Context struct {
	Element   Element
	Index     int
	Direction Direction
	Progress  float64
	ChartID   string
	DatasetID string
	// Parachart is the host chart handle passed to New via WithParachart.
	Parachart any
}

func (c Context) vars() map[string]any {
	return map[string]any{
		"index":     c.Index,
		"direction": string(c.Direction),
		"progress":  c.Progress,
		"chartId":   c.ChartID,
		"datasetId": c.DatasetID,
	}
}

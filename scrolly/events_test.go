package scrolly

import (
	"reflect"
	"testing"
)

func TestParseActions(t *testing.T) {
	cases := map[string][]string{
		"":                          nil,
		"logStep":                   {"logStep"},
		"highlightDataset, logStep": {"highlightDataset", "logStep"},
		" a  b,c ,, d ":             {"a", "b", "c", "d"},
	}
	for raw, want := range cases {
		if got := parseActions(raw); !reflect.DeepEqual(got, want) {
			t.Fatalf("parseActions(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestListenersOnceAndOff(t *testing.T) {
	var l listeners
	var calls []string

	keep := l.add(EventStepEnter, func(Context) { calls = append(calls, "keep") }, false)
	l.add(EventStepEnter, func(Context) { calls = append(calls, "once") }, true)
	l.add(EventStepExit, func(Context) { calls = append(calls, "exit") }, false)
	if id := l.add(EventStepExit, nil, false); id != 0 {
		t.Fatalf("nil listener must not register")
	}

	for _, fn := range l.take(EventStepEnter) {
		fn(Context{})
	}
	for _, fn := range l.take(EventStepEnter) {
		fn(Context{})
	}
	if !reflect.DeepEqual(calls, []string{"keep", "once", "keep"}) {
		t.Fatalf("unexpected calls %v", calls)
	}

	l.remove(EventStepEnter, keep)
	if l.count(EventStepEnter) != 0 {
		t.Fatalf("expected enter listeners removed")
	}
	l.remove(EventStepExit)
	if l.count(EventStepExit) != 0 {
		t.Fatalf("expected exit listeners cleared")
	}

	l.add(EventStepProgress, func(Context) {}, false)
	l.remove("")
	if l.count(EventStepProgress) != 0 {
		t.Fatalf("expected everything cleared")
	}
}

func TestActionsMergeAndRegister(t *testing.T) {
	var called string
	defaults := map[string]Action{
		"a": func(Context) error { called = "default a"; return nil },
		"b": func(Context) error { called = "default b"; return nil },
	}
	overrides := map[string]Action{
		"a": func(Context) error { called = "override a"; return nil },
		"c": nil,
	}
	actions := NewActions(defaults, overrides)
	if !reflect.DeepEqual(actions.Names(), []string{"a", "b"}) {
		t.Fatalf("unexpected names %v", actions.Names())
	}
	fn, _ := actions.Lookup("a")
	_ = fn(Context{})
	if called != "override a" {
		t.Fatalf("expected override to win, got %q", called)
	}
	if _, ok := actions.Lookup("A"); ok {
		t.Fatalf("names are case sensitive")
	}

	if err := actions.Register("b", func(Context) error { return nil }); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := actions.Register("d", nil); err == nil {
		t.Fatalf("expected nil action error")
	}
	if err := actions.Register("d", func(Context) error { return nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
}

type recordingChart struct {
	highlighted []string
	cleared     int
	announced   []int
}

func (c *recordingChart) HighlightDataset(chartID, datasetID string) error {
	c.highlighted = append(c.highlighted, chartID+"/"+datasetID)
	return nil
}

func (c *recordingChart) ClearHighlight(string) error {
	c.cleared++
	return nil
}

func (c *recordingChart) AnnounceStep(ctx Context) error {
	c.announced = append(c.announced, ctx.Index)
	return nil
}

func TestDefaultActions(t *testing.T) {
	chart := &recordingChart{}
	actions := DefaultActions()
	ctx := Context{Index: 2, ChartID: "sales", DatasetID: "q3", Parachart: chart}

	for _, name := range []string{"highlightDataset", "announceStep", "clearHighlight"} {
		if err := actions[name](ctx); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	if !reflect.DeepEqual(chart.highlighted, []string{"sales/q3"}) || chart.cleared != 1 || !reflect.DeepEqual(chart.announced, []int{2}) {
		t.Fatalf("unexpected chart calls %+v", chart)
	}

	for name, action := range actions {
		if err := action(Context{}); err != nil {
			t.Fatalf("%s without chart must be a no-op: %v", name, err)
		}
	}
}

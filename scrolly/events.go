package scrolly

import "sync"

// EventName identifies a step lifecycle event.
type EventName string

const (
	EventStepEnter    EventName = "stepEnter"
	EventStepExit     EventName = "stepExit"
	EventStepProgress EventName = "stepProgress"
)

// Listener receives the context of a dispatched event.
type Listener func(Context)

// ListenerID identifies a registration returned by On and Once.
type ListenerID uint64

type listenerEntry struct {
	id   ListenerID
	fn   Listener
	once bool
}

// listeners is the per-event registry behind On, Once and Off.
type listeners struct {
	mu      sync.Mutex
	nextID  ListenerID
	entries map[EventName][]listenerEntry
}

func (l *listeners) add(event EventName, fn Listener, once bool) ListenerID {
	if fn == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.entries == nil {
		l.entries = map[EventName][]listenerEntry{}
	}
	l.nextID++
	l.entries[event] = append(l.entries[event], listenerEntry{id: l.nextID, fn: fn, once: once})
	return l.nextID
}

// remove drops ids from event. An empty event clears every event and no
// ids clears the whole event.
func (l *listeners) remove(event EventName, ids ...ListenerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if event == "" {
		l.entries = nil
		return
	}
	if len(ids) == 0 {
		delete(l.entries, event)
		return
	}
	drop := make(map[ListenerID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := l.entries[event][:0:0]
	for _, entry := range l.entries[event] {
		if _, ok := drop[entry.id]; !ok {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		delete(l.entries, event)
		return
	}
	l.entries[event] = kept
}

// take returns the listeners to call for event and unregisters the once
// entries among them.
func (l *listeners) take(event EventName) []Listener {
	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.entries[event]
	if len(current) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(current))
	kept := current[:0:0]
	for _, entry := range current {
		out = append(out, entry.fn)
		if !entry.once {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		delete(l.entries, event)
	} else {
		l.entries[event] = kept
	}
	return out
}

func (l *listeners) count(event EventName) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries[event])
}

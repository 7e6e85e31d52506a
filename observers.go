package para

import (
	"reflect"
)

// Observer receives changes for the paths it is registered on.
type Observer interface {
	SettingDidChange(path string, oldValue, newValue Setting)
}

// FuncObserver adapts a function to Observer. Registration identity is the
// pointer, so keep the value returned by ObserverFunc to unobserve later.
type FuncObserver struct {
	fn func(oldValue, newValue Setting)
}

// ObserverFunc wraps fn into a comparable Observer.
func ObserverFunc(fn func(oldValue, newValue Setting)) *FuncObserver {
	return &FuncObserver{fn: fn}
}

// SettingDidChange implements Observer.
func (o *FuncObserver) SettingDidChange(_ string, oldValue, newValue Setting) {
	if o != nil && o.fn != nil {
		o.fn(oldValue, newValue)
	}
}

// ObserveSetting registers observer for every future change of path. path
// must name a leaf of the defaults tree.
func (s *Store) ObserveSetting(path string, observer Observer) error {
	return s.ObserveSettings([]string{path}, observer)
}

// ObserveSettings registers observer on each of paths. Either every path is
// registered or none is.
func (s *Store) ObserveSettings(paths []string, observer Observer) error {
	if err := checkObserver(observer); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if err := s.index.leaf(path); err != nil {
			return pathError("observe", path, err)
		}
		if _, dup := seen[path]; dup || indexOf(s.observers[path], observer) >= 0 {
			return pathError("observe", path, ErrDuplicateObserver)
		}
		seen[path] = struct{}{}
	}
	for _, path := range paths {
		s.observers[path] = append(s.observers[path], observer)
	}
	return nil
}

// UnobserveSetting removes observer from path. The path entry is dropped once
// its last observer is removed.
func (s *Store) UnobserveSetting(path string, observer Observer) error {
	if err := checkObserver(observer); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.observers[path]
	if !ok {
		return pathError("unobserve", path, ErrNoObservers)
	}
	i := indexOf(list, observer)
	if i < 0 {
		return pathError("unobserve", path, ErrObserverNotFound)
	}
	if len(list) == 1 {
		delete(s.observers, path)
		return nil
	}
	next := make([]Observer, 0, len(list)-1)
	next = append(next, list[:i]...)
	s.observers[path] = append(next, list[i+1:]...)
	return nil
}

// ObserverCount reports how many observers are registered on path.
func (s *Store) ObserverCount(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers[path])
}

// observersFor returns a copy so observers may unobserve during dispatch.
func (s *Store) observersFor(path string) []Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.observers[path]
	if len(list) == 0 {
		return nil
	}
	return append([]Observer(nil), list...)
}

func checkObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverRequired
	}
	if !reflect.TypeOf(observer).Comparable() {
		return ErrObserverNotComparable
	}
	return nil
}

func indexOf(list []Observer, observer Observer) int {
	for i, candidate := range list {
		if candidate == observer {
			return i
		}
	}
	return -1
}

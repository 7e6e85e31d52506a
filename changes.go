package para

import "encoding/json"

// NoticeSettingsChanged is the notice key emitted after each update that
// changed at least one path. The payload is the ChangeSet.
const NoticeSettingsChanged = "settingsChanged"

// Change records one leaf transition produced by an update.
type Change struct {
	Path     string  `json:"path"`
	OldValue Setting `json:"old_value"`
	NewValue Setting `json:"new_value"`
}

// ChangeSet lists the changes of one update in path order.
type ChangeSet []Change

// Paths returns the changed paths.
func (c ChangeSet) Paths() []string {
	out := make([]string, 0, len(c))
	for _, change := range c {
		out = append(out, change.Path)
	}
	return out
}

// Lookup returns the change recorded for path.
func (c ChangeSet) Lookup(path string) (Change, bool) {
	for _, change := range c {
		if change.Path == path {
			return change, true
		}
	}
	return Change{}, false
}

// ToJSON serialises the change set for logging or transport.
func (c ChangeSet) ToJSON() ([]byte, error) {
	if c == nil {
		c = ChangeSet{}
	}
	return json.Marshal([]Change(c))
}

// ChangeSetFromJSON decodes a payload produced by ToJSON.
func ChangeSetFromJSON(payload []byte) (ChangeSet, error) {
	var changes []Change
	if err := json.Unmarshal(payload, &changes); err != nil {
		return nil, err
	}
	return ChangeSet(changes), nil
}

package entity

import "sort"

// ErrorEntry is a user-facing error or warning condition.
// Entries with the same Key are the same logical condition.
type ErrorEntry struct {
	Key            CompositeKey `json:"key"`
	Title          string       `json:"title"`
	Message        string       `json:"message"`
	Classification string       `json:"type"`
	Priority       int          `json:"priority"`
}

// ActionType names a reducer action of the global error store.
type ActionType string

// Reducer actions.
const (
	ActionSetError   ActionType = "SET_ERROR"
	ActionClearError ActionType = "CLEAR_ERROR"
)

// ClearPayload identifies the entry a CLEAR_ERROR action removes.
type ClearPayload struct {
	Key CompositeKey `json:"key"`
}

// Action is a single dispatch against the global error store.
// Entry is used by SET_ERROR, Clear by CLEAR_ERROR.
type Action struct {
	Type  ActionType
	Entry ErrorEntry
	Clear ClearPayload
}

// SetError builds a SET_ERROR action.
func SetError(entry ErrorEntry) Action {
	return Action{Type: ActionSetError, Entry: entry}
}

// ClearError builds a CLEAR_ERROR action.
func ClearError(key CompositeKey) Action {
	return Action{Type: ActionClearError, Clear: ClearPayload{Key: key}}
}

// GlobalErrorState maps canonical keys to the active entry for that key.
// Version increases by one with every change of the table.
type GlobalErrorState struct {
	Errors  map[string]ErrorEntry `json:"errors"`
	Version uint64                `json:"version"`
}

// Get returns the active entry for key, if any.
func (s GlobalErrorState) Get(key CompositeKey) (ErrorEntry, bool) {
	e, ok := s.Errors[key.Canonical()]
	return e, ok
}

// Sorted returns the active entries ordered by priority (highest first), then by canonical key.
func (s GlobalErrorState) Sorted() []ErrorEntry {
	keys := make([]string, 0, len(s.Errors))
	for k := range s.Errors {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := s.Errors[keys[i]].Priority, s.Errors[keys[j]].Priority
		if pi != pj {
			return pi > pj
		}
		return keys[i] < keys[j]
	})

	out := make([]ErrorEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.Errors[k])
	}
	return out
}

// Top returns the highest-priority active entry.
func (s GlobalErrorState) Top() (ErrorEntry, bool) {
	sorted := s.Sorted()
	if len(sorted) == 0 {
		return ErrorEntry{}, false
	}
	return sorted[0], true
}

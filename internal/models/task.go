package models

import "slices"

// Task represents an atomic work item with lifecycle state and an
// append-only audit log.
type Task struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	State        State      `json:"state"`
	Dependencies []int64    `json:"dependencies"`
	Log          []LogEntry `json:"log"`
}

// AppendLog stamps entry with the current time and appends it to the log.
// All log growth goes through here.
func (t *Task) AppendLog(entry LogEntryType) {
	t.Log = append(t.Log, LogEntry{Timestamp: Now(), EntryType: entry})
}

// SetState records the transition in the log and then assigns the state.
// Any state may transition to any state, including itself.
func (t *Task) SetState(s State) {
	t.AppendLog(StateChangeEntry(s))
	t.State = s
}

// AddComment appends a free-text comment to the log.
func (t *Task) AddComment(text string) {
	t.AppendLog(CommentEntry(text))
}

// AddDependency inserts id into the dependency set, keeping it sorted.
// Inserting an existing id is a no-op. The id is not checked against the
// project's tasks; dangling references are allowed.
func (t *Task) AddDependency(id int64) {
	i, found := slices.BinarySearch(t.Dependencies, id)
	if found {
		return
	}
	t.Dependencies = slices.Insert(t.Dependencies, i, id)
}

// RemoveDependency deletes id from the dependency set if present.
func (t *Task) RemoveDependency(id int64) {
	i, found := slices.BinarySearch(t.Dependencies, id)
	if !found {
		return
	}
	t.Dependencies = slices.Delete(t.Dependencies, i, i+1)
}

// Clone returns a deep copy safe to hand out after the store lock is
// released. Log entries are immutable once appended, so a shallow copy of
// the log slice suffices.
func (t *Task) Clone() Task {
	c := *t
	c.Dependencies = slices.Clone(t.Dependencies)
	c.Log = slices.Clone(t.Log)
	return c
}

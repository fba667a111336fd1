package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is a task's lifecycle tag, serialized as its bare name.
type State string

const (
	StateTodo       State = "Todo"
	StateInProgress State = "InProgress"
	StateBlocked    State = "Blocked"
	StateCancelled  State = "Cancelled"
	StateDone       State = "Done"
)

// Valid reports whether s is one of the known state tags.
func (s State) Valid() bool {
	switch s {
	case StateTodo, StateInProgress, StateBlocked, StateCancelled, StateDone:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown state tags.
func (s *State) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	if !State(tag).Valid() {
		return fmt.Errorf("unknown state %q", tag)
	}
	*s = State(tag)
	return nil
}

// UnixTime is a UTC instant with second precision, serialized as integer
// Unix seconds.
type UnixTime struct {
	time.Time
}

// Now returns the current instant truncated to whole seconds.
func Now() UnixTime {
	return UnixTime{time.Now().UTC().Truncate(time.Second)}
}

// MarshalJSON emits Unix seconds.
func (t UnixTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Unix())
}

// UnmarshalJSON reads Unix seconds.
func (t *UnixTime) UnmarshalJSON(data []byte) error {
	var secs int64
	if err := json.Unmarshal(data, &secs); err != nil {
		return err
	}
	t.Time = time.Unix(secs, 0).UTC()
	return nil
}

// LogEntryType is the tagged payload of a log entry: either a free-text
// comment or a state transition. Exactly one field is set.
type LogEntryType struct {
	Comment        *string
	StateChangedTo *State
}

// CommentEntry builds a comment payload.
func CommentEntry(text string) LogEntryType {
	return LogEntryType{Comment: &text}
}

// StateChangeEntry builds a state-transition payload.
func StateChangeEntry(s State) LogEntryType {
	return LogEntryType{StateChangedTo: &s}
}

// MarshalJSON emits the externally tagged form, e.g. {"Comment":"text"} or
// {"StateChangedTo":"Done"}.
func (e LogEntryType) MarshalJSON() ([]byte, error) {
	switch {
	case e.Comment != nil:
		return json.Marshal(map[string]string{"Comment": *e.Comment})
	case e.StateChangedTo != nil:
		return json.Marshal(map[string]State{"StateChangedTo": *e.StateChangedTo})
	}
	return nil, fmt.Errorf("log entry type has no payload")
}

// UnmarshalJSON reads the externally tagged form back, rejecting unknown
// tags and anything that is not exactly one tag.
func (e *LogEntryType) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("log entry type must carry exactly one tag, got %d", len(raw))
	}
	for tag, payload := range raw {
		switch tag {
		case "Comment":
			var text string
			if err := json.Unmarshal(payload, &text); err != nil {
				return err
			}
			*e = LogEntryType{Comment: &text}
		case "StateChangedTo":
			var s State
			if err := json.Unmarshal(payload, &s); err != nil {
				return err
			}
			*e = LogEntryType{StateChangedTo: &s}
		default:
			return fmt.Errorf("unknown log entry tag %q", tag)
		}
	}
	return nil
}

// LogEntry is one timestamped event in a task's audit log.
type LogEntry struct {
	Timestamp UnixTime     `json:"timestamp"`
	EntryType LogEntryType `json:"entry_type"`
}

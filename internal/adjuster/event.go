package adjuster

import (
	"fmt"
	"slices"
	"time"
)

// EventKind names a learning event.
type EventKind string

const (
	EventCompleted         EventKind = "completed"
	EventMastered          EventKind = "mastered"
	EventDifficult         EventKind = "difficult"
	EventRemedialCompleted EventKind = "remedial_completed"
)

// AllEventKinds returns every event kind the adjuster handles.
func AllEventKinds() []EventKind {
	return []EventKind{EventCompleted, EventMastered, EventDifficult, EventRemedialCompleted}
}

// ParseEventKind converts a string to an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(s)
	if !slices.Contains(AllEventKinds(), k) {
		return "", &UnknownEventError{Kind: k}
	}
	return k, nil
}

// Event is a transient learning signal for one knowledge point.
type Event struct {
	Kind             EventKind `json:"kind"`
	KnowledgePointID int64     `json:"knowledge_point_id"`
	Timestamp        time.Time `json:"timestamp"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%d)", e.Kind, e.KnowledgePointID)
}

// UnknownEventError indicates an event kind with no handler.
type UnknownEventError struct {
	Kind EventKind
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event kind: %q", e.Kind)
}

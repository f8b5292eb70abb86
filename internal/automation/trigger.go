// Package automation evaluates project automation rules against task lifecycle events.
//
// A Runner loads the project's active rules for a trigger, evaluates each rule's condition
// group against a fresh task snapshot, executes matching rules' actions in order, and appends
// one execution-log row per rule. A Dispatcher runs the Runner detached from the caller.
package automation

import "fmt"

// Trigger is a task lifecycle event type that makes a rule eligible.
type Trigger string

const (
	TriggerTaskAdded          Trigger = "TASK_ADDED"
	TriggerTaskMoved          Trigger = "TASK_MOVED"
	TriggerTaskCompleted      Trigger = "TASK_COMPLETED"
	TriggerFieldChanged       Trigger = "FIELD_CHANGED"
	TriggerDueDateApproaching Trigger = "DUE_DATE_APPROACHING"
)

// Triggers lists every trigger in declaration order.
var Triggers = []Trigger{
	TriggerTaskAdded,
	TriggerTaskMoved,
	TriggerTaskCompleted,
	TriggerFieldChanged,
	TriggerDueDateApproaching,
}

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	for _, k := range Triggers {
		if k == t {
			return true
		}
	}
	return false
}

// ParseTrigger returns the trigger named s (exact, case-sensitive).
func ParseTrigger(s string) (Trigger, error) {
	t := Trigger(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown trigger %q", s)
	}
	return t, nil
}

// ExecContext identifies the event a rule runs for. ActorID is the user whose request raised
// the trigger; comments added by rules are attributed to them.
type ExecContext struct {
	ProjectID string
	TaskID    string
	ActorID   string
}

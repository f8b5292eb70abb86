package automation

import (
	"strconv"
	"time"

	"github.com/sravan-boop/taskflow/internal/store"
)

// Value is a resolved field value. The zero Value is null.
type Value struct {
	s     string
	valid bool
}

// StringValue returns a non-null value.
func StringValue(s string) Value { return Value{s: s, valid: true} }

// Null reports whether the field did not resolve.
func (v Value) Null() bool { return !v.valid }

// String returns the string representation ("" for null).
func (v Value) String() string { return v.s }

// TaskSnapshot is the read-only view of a task the evaluator matches against.
type TaskSnapshot struct {
	Title    string
	Status   string
	Assignee Value // display name
	Section  Value // first placement with a section
	DueDate  Value // RFC 3339, UTC
	Fields   map[string]Value
	numeric  map[string]bool
}

// SnapshotFromTask builds a snapshot from a task loaded with GetTask.
func SnapshotFromTask(t *store.Task) TaskSnapshot {
	snap := TaskSnapshot{
		Title:   t.Title,
		Status:  t.Status,
		Fields:  make(map[string]Value, len(t.FieldValues)),
		numeric: make(map[string]bool, len(t.FieldValues)),
	}
	if t.AssigneeName != nil {
		snap.Assignee = StringValue(*t.AssigneeName)
	}
	if name := t.FirstSectionName(); name != "" {
		snap.Section = StringValue(name)
	}
	if t.DueDate != nil {
		snap.DueDate = StringValue(t.DueDate.UTC().Format(time.RFC3339))
	}
	for _, fv := range t.FieldValues {
		switch {
		case fv.NumberValue != nil:
			if !snap.numeric[fv.FieldName] {
				snap.Fields[fv.FieldName] = StringValue(strconv.FormatFloat(*fv.NumberValue, 'f', -1, 64))
				snap.numeric[fv.FieldName] = true
			}
		case fv.TextValue != nil:
			if _, ok := snap.Fields[fv.FieldName]; !ok {
				snap.Fields[fv.FieldName] = StringValue(*fv.TextValue)
			}
		}
	}
	return snap
}

// Resolve looks field up as a built-in attribute first, then as a custom-field name.
func (s TaskSnapshot) Resolve(field string) Value {
	switch field {
	case "title":
		return StringValue(s.Title)
	case "status":
		return StringValue(s.Status)
	case "assignee":
		return s.Assignee
	case "section":
		return s.Section
	case "dueDate":
		return s.DueDate
	}
	return s.Fields[field]
}

package automation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ActionType is the persisted tag of an action.
type ActionType string

const (
	ActionCompleteTask  ActionType = "COMPLETE_TASK"
	ActionSetAssignee   ActionType = "SET_ASSIGNEE"
	ActionMoveToSection ActionType = "MOVE_TO_SECTION"
	ActionAddComment    ActionType = "ADD_COMMENT"
	ActionSetDueDate    ActionType = "SET_DUE_DATE"
	ActionSetField      ActionType = "SET_FIELD"
)

// ActionTypes lists every action tag the executor understands.
var ActionTypes = []ActionType{ActionCompleteTask, ActionSetAssignee, ActionMoveToSection, ActionAddComment, ActionSetDueDate, ActionSetField}

// ActionDescriptor is the persisted {type, config} shape written by the rule editor.
type ActionDescriptor struct {
	Type   string `json:"type"`
	Config string `json:"config"`
}

// UnmarshalJSON accepts a string, number, or null config.
func (d *ActionDescriptor) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type   string          `json:"type"`
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.Type = raw.Type
	d.Config = ""
	cfg := bytes.TrimSpace(raw.Config)
	switch {
	case len(cfg) == 0 || bytes.Equal(cfg, []byte("null")):
	case cfg[0] == '"':
		if err := json.Unmarshal(cfg, &d.Config); err != nil {
			return err
		}
	default:
		d.Config = string(cfg)
	}
	return nil
}

// Action is one typed, parsed action. The concrete types are CompleteTask, SetAssignee,
// MoveToSection, AddComment, SetDueDate, SetField and Noop.
type Action interface {
	Type() ActionType
	Descriptor() ActionDescriptor
	isAction()
}

// CompleteTask marks the task done and stamps its completion time.
type CompleteTask struct{}

// SetAssignee assigns the task to UserID verbatim.
type SetAssignee struct{ UserID string }

// MoveToSection moves the task to SectionID within the triggering project.
type MoveToSection struct{ SectionID string }

// AddComment appends Body as a comment authored by the triggering actor.
type AddComment struct{ Body string }

// SetDueDate sets the due date to now plus OffsetDays (which may be negative).
type SetDueDate struct{ OffsetDays int }

// SetField writes Value into the text slot of custom field FieldID.
type SetField struct {
	FieldID string
	Value   string
}

// Noop is an action whose config could not be interpreted. Executing it succeeds and changes nothing.
type Noop struct {
	Kind   string
	Config string
	Reason string
}

func (CompleteTask) Type() ActionType  { return ActionCompleteTask }
func (SetAssignee) Type() ActionType   { return ActionSetAssignee }
func (MoveToSection) Type() ActionType { return ActionMoveToSection }
func (AddComment) Type() ActionType    { return ActionAddComment }
func (SetDueDate) Type() ActionType    { return ActionSetDueDate }
func (SetField) Type() ActionType      { return ActionSetField }
func (n Noop) Type() ActionType        { return ActionType(n.Kind) }

func (CompleteTask) Descriptor() ActionDescriptor {
	return ActionDescriptor{Type: string(ActionCompleteTask)}
}

func (a SetAssignee) Descriptor() ActionDescriptor {
	return ActionDescriptor{Type: string(ActionSetAssignee), Config: a.UserID}
}

func (a MoveToSection) Descriptor() ActionDescriptor {
	return ActionDescriptor{Type: string(ActionMoveToSection), Config: a.SectionID}
}

func (a AddComment) Descriptor() ActionDescriptor {
	return ActionDescriptor{Type: string(ActionAddComment), Config: a.Body}
}

func (a SetDueDate) Descriptor() ActionDescriptor {
	return ActionDescriptor{Type: string(ActionSetDueDate), Config: strconv.Itoa(a.OffsetDays)}
}

func (a SetField) Descriptor() ActionDescriptor {
	return ActionDescriptor{Type: string(ActionSetField), Config: a.FieldID + ":" + a.Value}
}

// Descriptor preserves the original descriptor so stored rules round-trip unchanged.
func (n Noop) Descriptor() ActionDescriptor {
	return ActionDescriptor{Type: n.Kind, Config: n.Config}
}

func (CompleteTask) isAction()  {}
func (SetAssignee) isAction()   {}
func (MoveToSection) isAction() {}
func (AddComment) isAction()    {}
func (SetDueDate) isAction()    {}
func (SetField) isAction()      {}
func (Noop) isAction()          {}

// ParseAction converts a persisted descriptor into a typed action. Configs that cannot be
// interpreted yield a Noop rather than an error.
func ParseAction(d ActionDescriptor) Action {
	noop := func(reason string) Action { return Noop{Kind: d.Type, Config: d.Config, Reason: reason} }
	switch ActionType(d.Type) {
	case ActionCompleteTask:
		return CompleteTask{}
	case ActionSetAssignee:
		if d.Config == "" {
			return noop("empty user id")
		}
		return SetAssignee{UserID: d.Config}
	case ActionMoveToSection:
		if d.Config == "" {
			return noop("empty section id")
		}
		return MoveToSection{SectionID: d.Config}
	case ActionAddComment:
		if d.Config == "" {
			return noop("empty comment")
		}
		return AddComment{Body: d.Config}
	case ActionSetDueDate:
		n, err := strconv.Atoi(strings.TrimSpace(d.Config))
		if err != nil {
			return noop("day offset is not an integer")
		}
		return SetDueDate{OffsetDays: n}
	case ActionSetField:
		fieldID, value, ok := strings.Cut(d.Config, ":")
		if !ok {
			return noop("missing ':' separator")
		}
		if fieldID == "" {
			return noop("empty field id")
		}
		if value == "" {
			return noop("empty value")
		}
		return SetField{FieldID: fieldID, Value: value}
	default:
		return noop("unknown action type")
	}
}

// ParseActions decodes a rule's actions column into typed actions, in order.
func ParseActions(raw string) ([]Action, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var descs []ActionDescriptor
	if err := json.Unmarshal([]byte(raw), &descs); err != nil {
		return nil, fmt.Errorf("invalid actions: %w", err)
	}
	out := make([]Action, 0, len(descs))
	for _, d := range descs {
		out = append(out, ParseAction(d))
	}
	return out, nil
}

// EncodeActions returns the JSON column value for actions.
func EncodeActions(actions []Action) (string, error) {
	descs := make([]ActionDescriptor, 0, len(actions))
	for _, a := range actions {
		descs = append(descs, a.Descriptor())
	}
	b, err := json.Marshal(descs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

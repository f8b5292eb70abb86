package automation

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sravan-boop/taskflow/internal/store"
)

// RuleSet is a YAML file of rules for one project, used by `taskflow rule import` and `rule export`.
//
//	rules:
//	  - name: Auto-assign new work
//	    trigger: TASK_ADDED
//	    actions:
//	      - {type: SET_ASSIGNEE, config: user-42}
type RuleSet struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec is one rule in a RuleSet.
type RuleSpec struct {
	Name          string          `yaml:"name"`
	Trigger       string          `yaml:"trigger"`
	TriggerConfig *string         `yaml:"trigger_config,omitempty"`
	Active        *bool           `yaml:"active,omitempty"`
	Logic         string          `yaml:"logic,omitempty"`
	Conditions    []ConditionSpec `yaml:"conditions,omitempty"`
	Actions       []ActionSpec    `yaml:"actions,omitempty"`
}

// ConditionSpec is the YAML form of a Condition.
type ConditionSpec struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    string `yaml:"value,omitempty"`
}

// ActionSpec is the YAML form of an ActionDescriptor.
type ActionSpec struct {
	Type   string `yaml:"type"`
	Config string `yaml:"config,omitempty"`
}

// LoadRuleSet decodes and validates a rule file.
func LoadRuleSet(r io.Reader) (*RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		if errors.Is(err, io.EOF) {
			return &rs, nil
		}
		return nil, fmt.Errorf("parse rule file: %w", err)
	}
	for i, spec := range rs.Rules {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i+1, spec.Name, err)
		}
	}
	return &rs, nil
}

// Validate rejects rules the editor would not save: unknown trigger, operator, logic or action type.
func (s RuleSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("name required")
	}
	if _, err := ParseTrigger(s.Trigger); err != nil {
		return err
	}
	if s.Logic != "" && !strings.EqualFold(s.Logic, LogicAnd) && !strings.EqualFold(s.Logic, LogicOr) {
		return fmt.Errorf("unknown logic %q", s.Logic)
	}
	for _, c := range s.Conditions {
		if c.Field == "" {
			return errors.New("condition field required")
		}
		if !knownOperator(Operator(c.Operator)) {
			return fmt.Errorf("unknown operator %q", c.Operator)
		}
	}
	for _, a := range s.Actions {
		if !knownActionType(ActionType(a.Type)) {
			return fmt.Errorf("unknown action type %q", a.Type)
		}
	}
	return nil
}

func knownOperator(op Operator) bool {
	for _, k := range Operators {
		if k == op {
			return true
		}
	}
	return false
}

func knownActionType(t ActionType) bool {
	for _, k := range ActionTypes {
		if k == t {
			return true
		}
	}
	return false
}

// ToRule converts the spec to a store rule for projectID, encoding conditions and actions
// into their persisted JSON shapes.
func (s RuleSpec) ToRule(projectID, createdBy string) (store.Rule, error) {
	group := ConditionGroup{Logic: strings.ToUpper(s.Logic)}
	for _, c := range s.Conditions {
		group.Conditions = append(group.Conditions, Condition{Field: c.Field, Operator: Operator(c.Operator), Value: c.Value})
	}
	conds, err := group.Encode()
	if err != nil {
		return store.Rule{}, err
	}
	actions := make([]Action, 0, len(s.Actions))
	for _, a := range s.Actions {
		actions = append(actions, ParseAction(ActionDescriptor(a)))
	}
	acts, err := EncodeActions(actions)
	if err != nil {
		return store.Rule{}, err
	}
	active := true
	if s.Active != nil {
		active = *s.Active
	}
	return store.Rule{
		ProjectID:     projectID,
		Name:          s.Name,
		TriggerType:   s.Trigger,
		TriggerConfig: s.TriggerConfig,
		Conditions:    conds,
		Actions:       acts,
		IsActive:      active,
		CreatedBy:     createdBy,
	}, nil
}

// SpecFromRule converts a stored rule back to its YAML form.
func SpecFromRule(r store.Rule) (RuleSpec, error) {
	group, err := ParseConditionGroup(r.Conditions)
	if err != nil {
		return RuleSpec{}, err
	}
	actions, err := ParseActions(r.Actions)
	if err != nil {
		return RuleSpec{}, err
	}
	active := r.IsActive
	spec := RuleSpec{Name: r.Name, Trigger: r.TriggerType, TriggerConfig: r.TriggerConfig, Active: &active, Logic: group.Logic}
	for _, c := range group.Conditions {
		spec.Conditions = append(spec.Conditions, ConditionSpec{Field: c.Field, Operator: string(c.Operator), Value: c.Value})
	}
	for _, a := range actions {
		d := a.Descriptor()
		spec.Actions = append(spec.Actions, ActionSpec{Type: d.Type, Config: d.Config})
	}
	return spec, nil
}

// WriteRuleSet encodes rs as YAML.
func WriteRuleSet(w io.Writer, rs *RuleSet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rs); err != nil {
		return err
	}
	return enc.Close()
}

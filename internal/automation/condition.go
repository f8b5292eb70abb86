package automation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Operator compares a resolved field value with a condition's literal value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
)

// Operators lists every operator the evaluator understands.
var Operators = []Operator{OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpContains, OpNotContains, OpIsEmpty, OpIsNotEmpty}

// Logic combines a group's conditions.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Condition is a single predicate: field operator value.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// ConditionGroup is the persisted {logic, conditions[]} document.
type ConditionGroup struct {
	Logic      string      `json:"logic"`
	Conditions []Condition `json:"conditions"`
}

// ParseConditionGroup decodes a rule's conditions column. A blank column is an empty group.
func ParseConditionGroup(raw string) (ConditionGroup, error) {
	var g ConditionGroup
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return g, nil
	}
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return ConditionGroup{}, fmt.Errorf("invalid conditions: %w", err)
	}
	return g, nil
}

// Encode returns the JSON column value for g.
func (g ConditionGroup) Encode() (string, error) {
	if g.Logic == "" {
		g.Logic = LogicAnd
	}
	if g.Conditions == nil {
		g.Conditions = []Condition{}
	}
	b, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Evaluate reports whether snap satisfies group. An empty group is true.
func Evaluate(group ConditionGroup, snap TaskSnapshot) bool {
	if len(group.Conditions) == 0 {
		return true
	}
	if strings.EqualFold(group.Logic, LogicOr) {
		for _, c := range group.Conditions {
			if EvaluateCondition(c, snap.Resolve(c.Field)) {
				return true
			}
		}
		return false
	}
	for _, c := range group.Conditions {
		if !EvaluateCondition(c, snap.Resolve(c.Field)) {
			return false
		}
	}
	return true
}

// EvaluateCondition applies c's operator to an already resolved value.
func EvaluateCondition(c Condition, v Value) bool {
	switch c.Operator {
	case OpIsEmpty:
		return v.Null() || v.String() == ""
	case OpIsNotEmpty:
		return !v.Null() && v.String() != ""
	case OpNotEquals:
		return v.Null() || v.String() != c.Value
	}
	if v.Null() {
		return false
	}
	switch c.Operator {
	case OpEquals:
		return v.String() == c.Value
	case OpGreaterThan, OpLessThan:
		a, errA := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
		if errA != nil || errB != nil {
			return false
		}
		if c.Operator == OpGreaterThan {
			return a > b
		}
		return a < b
	case OpContains:
		return strings.Contains(strings.ToLower(v.String()), strings.ToLower(c.Value))
	case OpNotContains:
		return !strings.Contains(strings.ToLower(v.String()), strings.ToLower(c.Value))
	default:
		return false
	}
}

package httpapi

import (
	"fmt"

	"github.com/sravan-boop/taskflow/internal/automation"
	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/pkg/models"
)

func projectToAPI(p store.Project) models.Project {
	return models.Project{ProjectID: p.ProjectID, Name: p.Name, CreatedAt: p.CreatedAt, TaskCount: p.TaskCount, RuleCount: p.RuleCount}
}

func sectionToAPI(s store.Section) models.Section {
	return models.Section{SectionID: s.SectionID, ProjectID: s.ProjectID, Name: s.Name, Position: s.Position, CreatedAt: s.CreatedAt}
}

func userToAPI(u store.User) models.User {
	return models.User{UserID: u.UserID, DisplayName: u.DisplayName, CreatedAt: u.CreatedAt}
}

func fieldToAPI(f store.CustomField) models.CustomField {
	return models.CustomField{FieldID: f.FieldID, ProjectID: f.ProjectID, Name: f.Name, FieldType: f.FieldType, CreatedAt: f.CreatedAt}
}

func commentToAPI(c store.TaskComment) models.TaskComment {
	return models.TaskComment{CommentID: c.CommentID, TaskID: c.TaskID, AuthorID: c.AuthorID, Body: c.Body, CreatedAt: c.CreatedAt}
}

func executionToAPI(e store.RuleExecution) models.RuleExecution {
	return models.RuleExecution{ExecutionID: e.ExecutionID, RuleID: e.RuleID, TaskID: e.TaskID, Status: e.Status, Message: e.Message, CreatedAt: e.CreatedAt}
}

func recurrenceToAPI(r *store.Recurrence) *models.Recurrence {
	if r == nil {
		return nil
	}
	out := models.Recurrence(*r)
	return &out
}

func recurrenceFromAPI(r *models.Recurrence) *store.Recurrence {
	if r == nil {
		return nil
	}
	out := store.Recurrence(*r)
	return &out
}

func taskToAPI(t store.Task) models.Task {
	out := models.Task{
		TaskID:       t.TaskID,
		Title:        t.Title,
		Status:       t.Status,
		AssigneeID:   t.AssigneeID,
		AssigneeName: t.AssigneeName,
		DueDate:      t.DueDate,
		StartDate:    t.StartDate,
		CompletedAt:  t.CompletedAt,
		IsRecurring:  t.IsRecurring,
		Recurrence:   recurrenceToAPI(t.Recurrence),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	for _, p := range t.Placements {
		out.Placements = append(out.Placements, models.Placement{ProjectID: p.ProjectID, SectionID: p.SectionID, SectionName: p.SectionName})
	}
	for _, v := range t.FieldValues {
		out.FieldValues = append(out.FieldValues, models.FieldValue{FieldID: v.FieldID, FieldName: v.FieldName, TextValue: v.TextValue, NumberValue: v.NumberValue})
	}
	return out
}

// ruleToAPI decodes the stored JSON columns. A rule whose columns no longer parse is still
// listed, with empty conditions and actions.
func ruleToAPI(r store.Rule) models.Rule {
	out := models.Rule{
		RuleID:        r.RuleID,
		ProjectID:     r.ProjectID,
		Name:          r.Name,
		Trigger:       r.TriggerType,
		TriggerConfig: r.TriggerConfig,
		Conditions:    models.ConditionGroup{Conditions: []models.Condition{}},
		Actions:       []models.Action{},
		IsActive:      r.IsActive,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if g, err := automation.ParseConditionGroup(r.Conditions); err == nil {
		out.Conditions.Logic = g.Logic
		for _, c := range g.Conditions {
			out.Conditions.Conditions = append(out.Conditions.Conditions, models.Condition{Field: c.Field, Operator: string(c.Operator), Value: c.Value})
		}
	}
	if acts, err := automation.ParseActions(r.Actions); err == nil {
		for _, a := range acts {
			d := a.Descriptor()
			out.Actions = append(out.Actions, models.Action{Type: d.Type, Config: d.Config})
		}
	}
	return out
}

// ruleRequest is the create and update body. IsActive shadows models.Rule's flag so an
// omitted is_active can be told apart from false.
type ruleRequest struct {
	models.Rule
	IsActive *bool `json:"is_active"`
}

// ruleFromAPI validates an editor-submitted rule the same way rule files are validated.
// A nil in.IsActive creates an active rule.
func ruleFromAPI(projectID, createdBy string, in ruleRequest) (store.Rule, error) {
	spec := automation.RuleSpec{
		Name:          in.Name,
		Trigger:       in.Trigger,
		TriggerConfig: in.TriggerConfig,
		Active:        in.IsActive,
		Logic:         in.Conditions.Logic,
	}
	for _, c := range in.Conditions.Conditions {
		spec.Conditions = append(spec.Conditions, automation.ConditionSpec{Field: c.Field, Operator: c.Operator, Value: c.Value})
	}
	for _, a := range in.Actions {
		spec.Actions = append(spec.Actions, automation.ActionSpec{Type: a.Type, Config: a.Config})
	}
	if err := spec.Validate(); err != nil {
		return store.Rule{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return spec.ToRule(projectID, createdBy)
}

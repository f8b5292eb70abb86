// Package models provides shared types for the taskflow HTTP API and external tools.
// These types mirror the API JSON and are stable for use by pkg/client and other consumers.
package models

import "time"

// Project is a container of sections, tasks, custom fields and automation rules.
type Project struct {
	ProjectID string    `json:"project_id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	TaskCount int       `json:"task_count,omitempty"`
	RuleCount int       `json:"rule_count,omitempty"`
}

// Section is an ordered column within a project.
type Section struct {
	SectionID string    `json:"section_id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// User is someone tasks can be assigned to.
type User struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Recurrence is the recurrence descriptor attached to a recurring task.
type Recurrence struct {
	Frequency           string     `json:"frequency"`
	Interval            int        `json:"interval"`
	DaysOfWeek          []int      `json:"daysOfWeek,omitempty"`
	DayOfMonth          *int       `json:"dayOfMonth,omitempty"`
	EndDate             *time.Time `json:"endDate,omitempty"`
	EndAfterOccurrences *int       `json:"endAfterOccurrences,omitempty"`
}

// Placement is a task's membership in a project, optionally within a section.
type Placement struct {
	ProjectID   string  `json:"project_id"`
	SectionID   *string `json:"section_id,omitempty"`
	SectionName *string `json:"section_name,omitempty"`
}

// FieldValue is a task's value for one custom field.
type FieldValue struct {
	FieldID     string   `json:"field_id"`
	FieldName   string   `json:"field_name"`
	TextValue   *string  `json:"text_value,omitempty"`
	NumberValue *float64 `json:"number_value,omitempty"`
}

// Task is a work item.
type Task struct {
	TaskID       string       `json:"task_id"`
	Title        string       `json:"title"`
	Status       string       `json:"status"`
	AssigneeID   *string      `json:"assignee_id,omitempty"`
	AssigneeName *string      `json:"assignee_name,omitempty"`
	DueDate      *time.Time   `json:"due_date,omitempty"`
	StartDate    *time.Time   `json:"start_date,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	IsRecurring  bool         `json:"is_recurring"`
	Recurrence   *Recurrence  `json:"recurrence,omitempty"`
	Placements   []Placement  `json:"placements,omitempty"`
	FieldValues  []FieldValue `json:"field_values,omitempty"`
	CreatedAt    time.Time    `json:"created_at,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at,omitempty"`
}

// CreateTaskRequest is the POST /projects/{project}/tasks body.
type CreateTaskRequest struct {
	Title       string      `json:"title"`
	Status      string      `json:"status,omitempty"`
	SectionID   *string     `json:"section_id,omitempty"`
	AssigneeID  *string     `json:"assignee_id,omitempty"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	StartDate   *time.Time  `json:"start_date,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	AlsoProject []string    `json:"also_projects,omitempty"`
}

// MoveTaskRequest is the POST /tasks/{task}/move body.
type MoveTaskRequest struct {
	ProjectID string `json:"project_id"`
	SectionID string `json:"section_id"`
}

// SetFieldRequest is the PUT /tasks/{task}/fields/{field} body. Exactly one of Text or Number is used.
type SetFieldRequest struct {
	Text   *string  `json:"text,omitempty"`
	Number *float64 `json:"number,omitempty"`
}

// CompleteTaskResponse reports the spawned occurrence, if any.
type CompleteTaskResponse struct {
	TaskID         string  `json:"task_id"`
	NextOccurrence *string `json:"next_occurrence,omitempty"`
}

// CustomField is a project-scoped typed attribute.
type CustomField struct {
	FieldID   string    `json:"field_id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	FieldType string    `json:"field_type"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// TaskComment is a comment on a task.
type TaskComment struct {
	CommentID string    `json:"comment_id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Condition is one predicate of a rule's condition group.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// ConditionGroup is the persisted {logic, conditions[]} shape.
type ConditionGroup struct {
	Logic      string      `json:"logic,omitempty"`
	Conditions []Condition `json:"conditions"`
}

// Action is the persisted {type, config} shape.
type Action struct {
	Type   string `json:"type"`
	Config string `json:"config,omitempty"`
}

// Rule is an automation rule owned by a project.
type Rule struct {
	RuleID        string         `json:"rule_id,omitempty"`
	ProjectID     string         `json:"project_id,omitempty"`
	Name          string         `json:"name"`
	Trigger       string         `json:"trigger"`
	TriggerConfig *string        `json:"trigger_config,omitempty"`
	Conditions    ConditionGroup `json:"conditions"`
	Actions       []Action       `json:"actions"`
	IsActive      bool           `json:"is_active"`
	CreatedBy     string         `json:"created_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at,omitempty"`
}

// RuleExecution is one execution-log row.
type RuleExecution struct {
	ExecutionID string    `json:"execution_id"`
	RuleID      string    `json:"rule_id"`
	TaskID      string    `json:"task_id"`
	Status      string    `json:"status"`
	Message     *string   `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stream event types sent on /stream.
const (
	EventTaskUpdate    = "task_update"
	EventProjectUpdate = "project_update"
)

// StreamEvent is one /stream message. ProjectIDs lists the projects the change touches.
type StreamEvent struct {
	Type       string   `json:"type"`
	Action     string   `json:"action,omitempty"`
	TaskID     string   `json:"task_id,omitempty"`
	ProjectIDs []string `json:"project_ids,omitempty"`
}

// Health is the /health response.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// CreateProjectRequest is the POST /projects body.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// CreateSectionRequest is the POST /projects/{project}/sections body.
type CreateSectionRequest struct {
	Name string `json:"name"`
}

// CreateUserRequest is the POST /users body.
type CreateUserRequest struct {
	DisplayName string `json:"display_name"`
}

// CreateFieldRequest is the POST /projects/{project}/fields body.
type CreateFieldRequest struct {
	Name      string `json:"name"`
	FieldType string `json:"field_type"`
}

// UpdateTaskRequest is the PATCH /tasks/{task} body. Omitted fields are left unchanged.
// An empty AssigneeID unassigns the task.
type UpdateTaskRequest struct {
	Status       *string    `json:"status,omitempty"`
	AssigneeID   *string    `json:"assignee_id,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ClearDueDate bool       `json:"clear_due_date,omitempty"`
}

// CreateCommentRequest is the POST /tasks/{task}/comments body.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// SetRuleActiveRequest is the PUT /rules/{rule}/active body.
type SetRuleActiveRequest struct {
	Active bool `json:"active"`
}

// ImportRulesResponse lists the rules created by POST /projects/{project}/rules/import.
type ImportRulesResponse struct {
	RuleIDs []string `json:"rule_ids"`
}

// IDResponse is returned by create endpoints that only report the new ID.
type IDResponse struct {
	ID string `json:"id"`
}

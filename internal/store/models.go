// Package store defines the persistence interface and shared models for projects, tasks, custom fields, and automation rules.
package store

import "time"

// Project is a container of sections, tasks, custom fields and automation rules.
type Project struct {
	ProjectID string
	Name      string
	CreatedAt time.Time
	TaskCount int
	RuleCount int
}

// Section is an ordered column within a project (e.g. "To do", "Done").
type Section struct {
	SectionID string
	ProjectID string
	Name      string
	Position  int
	CreatedAt time.Time
}

// User is someone tasks can be assigned to and comments attributed to.
type User struct {
	UserID      string
	DisplayName string
	CreatedAt   time.Time
}

// Recurrence describes how a completed recurring task spawns its next occurrence.
// It is persisted as JSON on the task row and copied verbatim onto every occurrence.
type Recurrence struct {
	Frequency           string     `json:"frequency"`
	Interval            int        `json:"interval"`
	DaysOfWeek          []int      `json:"daysOfWeek,omitempty"`
	DayOfMonth          *int       `json:"dayOfMonth,omitempty"`
	EndDate             *time.Time `json:"endDate,omitempty"`
	EndAfterOccurrences *int       `json:"endAfterOccurrences,omitempty"`
}

// Recurrence frequencies.
const (
	FrequencyDaily   = "DAILY"
	FrequencyWeekly  = "WEEKLY"
	FrequencyMonthly = "MONTHLY"
	FrequencyYearly  = "YEARLY"
)

// Task is a work item. GetTask populates Placements and FieldValues; ListProjectTasks sets only
// the placement in the listed project.
type Task struct {
	TaskID       string
	Title        string
	Status       string
	AssigneeID   *string
	AssigneeName *string // display name of AssigneeID, nil when unassigned or unknown user
	DueDate      *time.Time
	StartDate    *time.Time
	CompletedAt  *time.Time
	IsRecurring  bool
	Recurrence   *Recurrence
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Placements   []Placement
	FieldValues  []FieldValue
}

// Placement associates a task with a project and, optionally, one of its sections.
type Placement struct {
	ProjectID   string
	SectionID   *string
	SectionName *string
}

// NewTask is the input to CreateTask. Placements are written separately with AddTaskToProject.
type NewTask struct {
	Title       string
	Status      string
	AssigneeID  *string
	DueDate     *time.Time
	StartDate   *time.Time
	IsRecurring bool
	Recurrence  *Recurrence
}

// CustomField is a project-scoped typed attribute (text, number, date, select).
type CustomField struct {
	FieldID   string
	ProjectID string
	Name      string
	FieldType string
	CreatedAt time.Time
}

// FieldValue is a task's value for one custom field. Text and number are independent slots.
type FieldValue struct {
	TaskID      string
	FieldID     string
	FieldName   string
	TextValue   *string
	NumberValue *float64
	UpdatedAt   time.Time
}

// TaskComment is a comment on a task.
type TaskComment struct {
	CommentID string
	TaskID    string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// Rule is an automation rule owned by a project. Conditions and Actions hold the JSON documents
// written by the rule editor; the automation package parses them.
type Rule struct {
	RuleID        string
	ProjectID     string
	Name          string
	TriggerType   string
	TriggerConfig *string
	Conditions    string // {"logic":"AND","conditions":[...]}
	Actions       string // [{"type":"...","config":"..."}]
	IsActive      bool
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RuleExecution is one immutable execution-log row.
type RuleExecution struct {
	ExecutionID string
	RuleID      string
	TaskID      string
	Status      string // SUCCESS, FAILED, SKIPPED
	Message     *string
	CreatedAt   time.Time
}

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by writes that reference a missing row (section, task, rule, field).
var ErrNotFound = errors.New("not found")

// Store is the persistence interface for projects, tasks, custom fields, comments and automation rules.
// Implementations: the SQLite store returned by Open and *postgres.Store (PostgreSQL).
type Store interface {
	// Projects
	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, projectID string) (*Project, error)
	CreateProject(ctx context.Context, name string) (Project, error)
	DeleteProject(ctx context.Context, projectID string) error

	// Sections
	ListSections(ctx context.Context, projectID string) ([]Section, error)
	CreateSection(ctx context.Context, projectID, name string) (Section, error)

	// Users
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, displayName string) (User, error)

	// Custom fields
	ListCustomFields(ctx context.Context, projectID string) ([]CustomField, error)
	CreateCustomField(ctx context.Context, projectID, name, fieldType string) (CustomField, error)

	// Tasks
	CreateTask(ctx context.Context, t NewTask) (string, error)
	GetTask(ctx context.Context, taskID string) (*Task, error)
	ListProjectTasks(ctx context.Context, projectID string, limit int) ([]Task, error)
	AddTaskToProject(ctx context.Context, taskID, projectID string, sectionID *string) error
	MoveTaskToSection(ctx context.Context, taskID, projectID, sectionID string) (moved bool, err error)
	CompleteTask(ctx context.Context, taskID string, at time.Time) error
	SetTaskStatus(ctx context.Context, taskID, status string) error
	SetTaskAssignee(ctx context.Context, taskID string, assigneeID *string) error
	SetTaskDueDate(ctx context.Context, taskID string, due *time.Time) error
	UpsertFieldText(ctx context.Context, taskID, fieldID, value string) error
	UpsertFieldNumber(ctx context.Context, taskID, fieldID string, value float64) error
	ListTasksDueBetween(ctx context.Context, from, to time.Time, limit int) ([]Task, error)
	MarkDueSoonNotified(ctx context.Context, taskID string, at time.Time) (bool, error)

	// Comments
	CreateTaskComment(ctx context.Context, taskID, authorID, body string) (string, error)
	ListTaskComments(ctx context.Context, taskID string) ([]TaskComment, error)

	// Automation rules
	CreateRule(ctx context.Context, r Rule) (string, error)
	GetRule(ctx context.Context, ruleID string) (*Rule, error)
	ListRules(ctx context.Context, projectID string) ([]Rule, error)
	ListActiveRules(ctx context.Context, projectID string) ([]Rule, error)
	UpdateRule(ctx context.Context, r Rule) error
	SetRuleActive(ctx context.Context, ruleID string, active bool) error
	DeleteRule(ctx context.Context, ruleID string) error

	// Rule execution log (append-only)
	CreateRuleExecution(ctx context.Context, e RuleExecution) error
	ListRuleExecutions(ctx context.Context, ruleID string, limit int) ([]RuleExecution, error)

	// Lifecycle
	SeedDemo(ctx context.Context) error
	Close() error
}

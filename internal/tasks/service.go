// Package tasks implements the task mutations that raise automation triggers.
//
// Every Service method commits its own write first. Rules are dispatched afterwards and run
// detached, so a method's result never depends on what the rules do.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sravan-boop/taskflow/internal/automation"
	"github.com/sravan-boop/taskflow/internal/otel"
	"github.com/sravan-boop/taskflow/internal/recurrence"
	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/pkg/models"
)

// ErrInvalid marks errors caused by bad input rather than by the store.
var ErrInvalid = errors.New("invalid input")

// Publisher receives a stream event after each mutation. httpapi.SSEHub satisfies it.
type Publisher interface {
	Publish(ev models.StreamEvent)
}

// Service is the task write path used by the HTTP API and the CLI.
type Service struct {
	Store      store.Store
	Dispatcher *automation.Dispatcher
	Scheduler  *recurrence.Scheduler
	Publisher  Publisher        // optional
	Now        func() time.Time // nil uses time.Now
}

// New wires a service whose rules and recurrences use st.
func New(st store.Store) *Service {
	return &Service{
		Store:      st,
		Dispatcher: automation.NewDispatcher(automation.NewRunner(st)),
		Scheduler:  recurrence.New(st),
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateInput describes a new task and where to place it.
type CreateInput struct {
	Title        string
	Status       string
	AssigneeID   *string
	DueDate      *time.Time
	StartDate    *time.Time
	Recurrence   *store.Recurrence
	ProjectID    string
	SectionID    *string
	AlsoProjects []string // extra projects, placed without a section
}

// CreateTask creates the task, places it in ProjectID (and AlsoProjects), and raises
// TASK_ADDED once per project.
func (s *Service) CreateTask(ctx context.Context, actorID string, in CreateInput) (*store.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title required", ErrInvalid)
	}
	if in.ProjectID == "" {
		return nil, fmt.Errorf("%w: project required", ErrInvalid)
	}
	if in.Status != "" && !models.ValidStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, in.Status)
	}
	if in.Recurrence != nil && !recurrence.ValidFrequency(in.Recurrence.Frequency) {
		return nil, fmt.Errorf("%w: unknown recurrence frequency %q", ErrInvalid, in.Recurrence.Frequency)
	}
	projects := []string{in.ProjectID}
	for _, p := range in.AlsoProjects {
		if p != "" && p != in.ProjectID {
			projects = append(projects, p)
		}
	}
	for _, p := range projects {
		proj, err := s.Store.GetProject(ctx, p)
		if err != nil {
			return nil, err
		}
		if proj == nil {
			return nil, fmt.Errorf("project %s: %w", p, store.ErrNotFound)
		}
	}

	id, err := s.Store.CreateTask(ctx, store.NewTask{
		Title:       in.Title,
		Status:      in.Status,
		AssigneeID:  in.AssigneeID,
		DueDate:     in.DueDate,
		StartDate:   in.StartDate,
		IsRecurring: in.Recurrence != nil,
		Recurrence:  in.Recurrence,
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	for i, p := range projects {
		var section *string
		if i == 0 {
			section = in.SectionID
		}
		if err := s.Store.AddTaskToProject(ctx, id, p, section); err != nil {
			return nil, fmt.Errorf("place task %s in project %s: %w", id, p, err)
		}
	}
	t, err := s.Store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		otel.RecordTaskOp(ctx, "create", p, "ok")
		s.Dispatcher.Dispatch(ctx, automation.TriggerTaskAdded, automation.ExecContext{ProjectID: p, TaskID: id, ActorID: actorID})
	}
	s.publish("task_created", id, projects)
	return t, nil
}

// MoveTask moves the task to sectionID within projectID and raises TASK_MOVED for that project.
func (s *Service) MoveTask(ctx context.Context, actorID, taskID, projectID, sectionID string) error {
	if projectID == "" || sectionID == "" {
		return fmt.Errorf("%w: project and section required", ErrInvalid)
	}
	moved, err := s.Store.MoveTaskToSection(ctx, taskID, projectID, sectionID)
	if err != nil {
		otel.RecordTaskOp(ctx, "move", projectID, "error")
		return err
	}
	if !moved {
		otel.RecordTaskOp(ctx, "move", projectID, "error")
		return fmt.Errorf("task %s in project %s: %w", taskID, projectID, store.ErrNotFound)
	}
	otel.RecordTaskOp(ctx, "move", projectID, "ok")
	s.Dispatcher.Dispatch(ctx, automation.TriggerTaskMoved, automation.ExecContext{ProjectID: projectID, TaskID: taskID, ActorID: actorID})
	s.publish("task_moved", taskID, []string{projectID})
	return nil
}

// CompleteTask marks the task done, spawns its next occurrence when it recurs, and raises
// TASK_COMPLETED for every project the task is in. It returns the new occurrence's ID or "".
// A failed spawn is logged and does not undo the completion. Completing a task that is
// already done changes nothing and raises nothing.
func (s *Service) CompleteTask(ctx context.Context, actorID, taskID string) (string, error) {
	t, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
	}
	if t.Status == models.StatusDone {
		return "", nil
	}
	at := s.now().UTC()
	if err := s.Store.CompleteTask(ctx, taskID, at); err != nil {
		return "", err
	}
	t.Status = models.StatusDone
	t.CompletedAt = &at

	next, err := s.Scheduler.Spawn(ctx, t)
	if err != nil {
		slog.Error("tasks: spawn next occurrence failed", "task_id", taskID, "err", err)
		next = ""
	}
	for _, p := range t.ProjectIDs() {
		otel.RecordTaskOp(ctx, "complete", p, "ok")
		s.Dispatcher.Dispatch(ctx, automation.TriggerTaskCompleted, automation.ExecContext{ProjectID: p, TaskID: taskID, ActorID: actorID})
	}
	s.publish("task_completed", taskID, t.ProjectIDs())
	if next != "" {
		s.publish("task_created", next, t.ProjectIDs())
	}
	return next, nil
}

// SetFieldValue writes the text or number slot of a custom field and raises FIELD_CHANGED for
// every project the task is in. Exactly one of text and number must be set.
func (s *Service) SetFieldValue(ctx context.Context, actorID, taskID, fieldID string, text *string, number *float64) error {
	if (text == nil) == (number == nil) {
		return fmt.Errorf("%w: exactly one of text or number required", ErrInvalid)
	}
	t, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
	}
	if text != nil {
		err = s.Store.UpsertFieldText(ctx, taskID, fieldID, *text)
	} else {
		err = s.Store.UpsertFieldNumber(ctx, taskID, fieldID, *number)
	}
	if err != nil {
		return err
	}
	for _, p := range t.ProjectIDs() {
		otel.RecordTaskOp(ctx, "set_field", p, "ok")
		s.Dispatcher.Dispatch(ctx, automation.TriggerFieldChanged, automation.ExecContext{ProjectID: p, TaskID: taskID, ActorID: actorID})
	}
	s.publish("task_field_changed", taskID, t.ProjectIDs())
	return nil
}

// UpdateInput holds the plain task edits that raise no trigger. Nil fields are left alone.
type UpdateInput struct {
	Status       *string
	AssigneeID   *string // "" unassigns
	DueDate      *time.Time
	ClearDueDate bool
}

// UpdateTask applies in. Completion goes through CompleteTask so that recurrence and
// TASK_COMPLETED rules run.
func (s *Service) UpdateTask(ctx context.Context, taskID string, in UpdateInput) (*store.Task, error) {
	if in.Status != nil {
		if !models.ValidStatus(*in.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, *in.Status)
		}
		if *in.Status == models.StatusDone {
			return nil, fmt.Errorf("%w: use complete to finish a task", ErrInvalid)
		}
		if err := s.Store.SetTaskStatus(ctx, taskID, *in.Status); err != nil {
			return nil, err
		}
	}
	if in.AssigneeID != nil {
		var a *string
		if *in.AssigneeID != "" {
			a = in.AssigneeID
		}
		if err := s.Store.SetTaskAssignee(ctx, taskID, a); err != nil {
			return nil, err
		}
	}
	if in.DueDate != nil || in.ClearDueDate {
		if err := s.Store.SetTaskDueDate(ctx, taskID, in.DueDate); err != nil {
			return nil, err
		}
	}
	t, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
	}
	s.publish("task_updated", taskID, t.ProjectIDs())
	return t, nil
}

// AddComment attributes body to actorID.
func (s *Service) AddComment(ctx context.Context, actorID, taskID, body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("%w: comment body required", ErrInvalid)
	}
	t, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
	}
	id, err := s.Store.CreateTaskComment(ctx, taskID, actorID, body)
	if err != nil {
		return "", err
	}
	s.publish("task_commented", taskID, t.ProjectIDs())
	return id, nil
}

// Wait blocks until every rule run dispatched so far has finished.
func (s *Service) Wait() {
	s.Dispatcher.Wait()
}

func (s *Service) publish(action, taskID string, projectIDs []string) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish(models.StreamEvent{Type: models.EventTaskUpdate, Action: action, TaskID: taskID, ProjectIDs: projectIDs})
}

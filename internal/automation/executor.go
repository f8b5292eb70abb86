package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sravan-boop/taskflow/internal/otel"
)

// TaskWriter is the task write model actions mutate. store.Store satisfies it.
type TaskWriter interface {
	CompleteTask(ctx context.Context, taskID string, at time.Time) error
	SetTaskAssignee(ctx context.Context, taskID string, assigneeID *string) error
	MoveTaskToSection(ctx context.Context, taskID, projectID, sectionID string) (bool, error)
	CreateTaskComment(ctx context.Context, taskID, authorID, body string) (string, error)
	SetTaskDueDate(ctx context.Context, taskID string, due *time.Time) error
	UpsertFieldText(ctx context.Context, taskID, fieldID, value string) error
}

// Executor applies one action to the store. It never invokes rules.
type Executor struct {
	Store TaskWriter
	Now   func() time.Time // nil uses time.Now
}

// NewExecutor returns an executor writing to st.
func NewExecutor(st TaskWriter) *Executor {
	return &Executor{Store: st}
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Execute performs exactly one store mutation for a. Store failures are returned wrapped with the action type.
func (e *Executor) Execute(ctx context.Context, a Action, ec ExecContext) error {
	err := e.apply(ctx, a, ec)
	outcome := "ok"
	if _, ok := a.(Noop); ok {
		outcome = "noop"
	}
	if err != nil {
		outcome = "error"
		err = fmt.Errorf("%s: %w", a.Type(), err)
	}
	otel.RecordRuleAction(ctx, string(a.Type()), outcome)
	return err
}

func (e *Executor) apply(ctx context.Context, a Action, ec ExecContext) error {
	switch a := a.(type) {
	case CompleteTask:
		return e.Store.CompleteTask(ctx, ec.TaskID, e.now())
	case SetAssignee:
		uid := a.UserID
		return e.Store.SetTaskAssignee(ctx, ec.TaskID, &uid)
	case MoveToSection:
		moved, err := e.Store.MoveTaskToSection(ctx, ec.TaskID, ec.ProjectID, a.SectionID)
		if err != nil {
			return err
		}
		if !moved {
			slog.Debug("automation: task not in project, move skipped", "task_id", ec.TaskID, "project_id", ec.ProjectID)
		}
		return nil
	case AddComment:
		_, err := e.Store.CreateTaskComment(ctx, ec.TaskID, ec.ActorID, a.Body)
		return err
	case SetDueDate:
		due := e.now().AddDate(0, 0, a.OffsetDays)
		return e.Store.SetTaskDueDate(ctx, ec.TaskID, &due)
	case SetField:
		return e.Store.UpsertFieldText(ctx, ec.TaskID, a.FieldID, a.Value)
	case Noop:
		slog.Debug("automation: action ignored", "type", a.Kind, "reason", a.Reason, "task_id", ec.TaskID)
		return nil
	default:
		return fmt.Errorf("unsupported action %T", a)
	}
}

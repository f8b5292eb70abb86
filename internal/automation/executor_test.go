package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sravan-boop/taskflow/internal/store"
)

type fixture struct {
	st      store.Store
	project store.Project
	todo    store.Section
	done    store.Section
	field   store.CustomField
	taskID  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()
	f := &fixture{st: st}
	if f.project, err = st.CreateProject(ctx, "P"); err != nil {
		t.Fatal(err)
	}
	if f.todo, err = st.CreateSection(ctx, f.project.ProjectID, "To do"); err != nil {
		t.Fatal(err)
	}
	if f.done, err = st.CreateSection(ctx, f.project.ProjectID, "Done"); err != nil {
		t.Fatal(err)
	}
	if f.field, err = st.CreateCustomField(ctx, f.project.ProjectID, "Estimate", "number"); err != nil {
		t.Fatal(err)
	}
	f.taskID = f.newTask(t, &f.todo.SectionID)
	return f
}

func (f *fixture) newTask(t *testing.T, sectionID *string) string {
	t.Helper()
	ctx := context.Background()
	id, err := f.st.CreateTask(ctx, store.NewTask{Title: "task"})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.st.AddTaskToProject(ctx, id, f.project.ProjectID, sectionID); err != nil {
		t.Fatal(err)
	}
	return id
}

func (f *fixture) ec(taskID string) ExecContext {
	return ExecContext{ProjectID: f.project.ProjectID, TaskID: taskID, ActorID: "user-7"}
}

func (f *fixture) task(t *testing.T, id string) *store.Task {
	t.Helper()
	task, err := f.st.GetTask(context.Background(), id)
	if err != nil || task == nil {
		t.Fatalf("GetTask(%s): %v %v", id, task, err)
	}
	return task
}

func TestExecutorActions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	ex := &Executor{Store: f.st, Now: func() time.Time { return now }}
	ec := f.ec(f.taskID)

	steps := []Action{
		SetAssignee{UserID: "user-42"},
		MoveToSection{SectionID: f.done.SectionID},
		AddComment{Body: "Nice work!"},
		SetDueDate{OffsetDays: -3},
		SetField{FieldID: f.field.FieldID, Value: "42"},
		Noop{Kind: "SEND_EMAIL", Reason: "unknown action type"},
		CompleteTask{},
	}
	for _, a := range steps {
		if err := ex.Execute(ctx, a, ec); err != nil {
			t.Fatalf("Execute(%T): %v", a, err)
		}
	}

	task := f.task(t, f.taskID)
	if task.AssigneeID == nil || *task.AssigneeID != "user-42" {
		t.Errorf("assignee = %v", task.AssigneeID)
	}
	if task.FirstSectionName() != "Done" {
		t.Errorf("section = %q", task.FirstSectionName())
	}
	if want := now.AddDate(0, 0, -3); task.DueDate == nil || !task.DueDate.Equal(want) {
		t.Errorf("due = %v, want %v", task.DueDate, want)
	}
	if len(task.FieldValues) != 1 || task.FieldValues[0].TextValue == nil || *task.FieldValues[0].TextValue != "42" {
		t.Errorf("field values = %+v", task.FieldValues)
	}
	if task.Status != "done" || task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Errorf("status=%s completed=%v", task.Status, task.CompletedAt)
	}
	comments, _ := f.st.ListTaskComments(ctx, f.taskID)
	if len(comments) != 1 || comments[0].AuthorID != "user-7" || comments[0].Body != "Nice work!" {
		t.Errorf("comments = %+v", comments)
	}
}

func TestExecutorStoreFailuresPropagate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ex := NewExecutor(f.st)
	ctx := context.Background()

	err := ex.Execute(ctx, MoveToSection{SectionID: "no-such-section"}, f.ec(f.taskID))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("move to missing section: err = %v, want ErrNotFound", err)
	}
	err = ex.Execute(ctx, SetField{FieldID: "no-such-field", Value: "x"}, f.ec(f.taskID))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("set missing field: err = %v, want ErrNotFound", err)
	}
	err = ex.Execute(ctx, SetAssignee{UserID: "u"}, f.ec("no-such-task"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("assign missing task: err = %v, want ErrNotFound", err)
	}
}

func TestExecutorMoveOutsideProjectIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	other, _ := f.st.CreateProject(ctx, "Other")
	sec, _ := f.st.CreateSection(ctx, other.ProjectID, "Later")

	ec := ExecContext{ProjectID: other.ProjectID, TaskID: f.taskID, ActorID: "u"}
	if err := NewExecutor(f.st).Execute(ctx, MoveToSection{SectionID: sec.SectionID}, ec); err != nil {
		t.Fatalf("move in unplaced project: %v", err)
	}
	if got := f.task(t, f.taskID).FirstSectionName(); got != "To do" {
		t.Fatalf("section changed to %q", got)
	}
	// Unplaced project with a section from another project: still a no-op.
	if err := NewExecutor(f.st).Execute(ctx, MoveToSection{SectionID: f.done.SectionID}, ec); err != nil {
		t.Fatalf("move in unplaced project with foreign section: %v", err)
	}
	if got := f.task(t, f.taskID).FirstSectionName(); got != "To do" {
		t.Fatalf("section changed to %q", got)
	}
}

func TestSetFieldUpsertsWithOrWithoutPriorValue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	ex := NewExecutor(f.st)
	a := ParseAction(ActionDescriptor{Type: "SET_FIELD", Config: f.field.FieldID + ":42"})

	fresh := f.newTask(t, nil)
	prior := f.newTask(t, nil)
	if err := f.st.UpsertFieldText(ctx, prior, f.field.FieldID, "7"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{fresh, prior} {
		if err := ex.Execute(ctx, a, f.ec(id)); err != nil {
			t.Fatal(err)
		}
		vals := f.task(t, id).FieldValues
		if len(vals) != 1 || *vals[0].TextValue != "42" {
			t.Fatalf("task %s field values = %+v", id, vals)
		}
	}
}

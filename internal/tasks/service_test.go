package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/pkg/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.StreamEvent
}

func (p *recordingPublisher) Publish(ev models.StreamEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

type env struct {
	st      store.Store
	svc     *Service
	pub     *recordingPublisher
	project store.Project
	todo    store.Section
	done    store.Section
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()
	e := &env{st: st, pub: &recordingPublisher{}}
	if e.project, err = st.CreateProject(ctx, "P"); err != nil {
		t.Fatal(err)
	}
	if e.todo, err = st.CreateSection(ctx, e.project.ProjectID, "To do"); err != nil {
		t.Fatal(err)
	}
	if e.done, err = st.CreateSection(ctx, e.project.ProjectID, "Done"); err != nil {
		t.Fatal(err)
	}
	e.svc = New(st)
	e.svc.Publisher = e.pub
	return e
}

func (e *env) rule(t *testing.T, projectID, trig, conds, actions string) string {
	t.Helper()
	id, err := e.st.CreateRule(context.Background(), store.Rule{
		ProjectID:   projectID,
		Name:        trig + " rule",
		TriggerType: trig,
		Conditions:  conds,
		Actions:     actions,
		IsActive:    true,
		CreatedBy:   "owner",
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	return id
}

func (e *env) executions(t *testing.T, ruleID string) []store.RuleExecution {
	t.Helper()
	out, err := e.st.ListRuleExecutions(context.Background(), ruleID, 0)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func (e *env) create(t *testing.T, in CreateInput) *store.Task {
	t.Helper()
	if in.ProjectID == "" {
		in.ProjectID = e.project.ProjectID
	}
	if in.Title == "" {
		in.Title = "write report"
	}
	task, err := e.svc.CreateTask(context.Background(), "actor-1", in)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func TestCreateTaskRunsTaskAddedRules(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ruleID := e.rule(t, e.project.ProjectID, "TASK_ADDED", "", `[{"type":"SET_ASSIGNEE","config":"user-42"}]`)

	task := e.create(t, CreateInput{SectionID: &e.todo.SectionID})
	e.svc.Wait()

	got, err := e.st.GetTask(context.Background(), task.TaskID)
	if err != nil || got == nil {
		t.Fatalf("GetTask: %v %v", got, err)
	}
	if got.AssigneeID == nil || *got.AssigneeID != "user-42" {
		t.Fatalf("assignee = %v, want user-42", got.AssigneeID)
	}
	execs := e.executions(t, ruleID)
	if len(execs) != 1 || execs[0].Status != models.ExecutionSuccess {
		t.Fatalf("executions = %+v", execs)
	}
	if execs[0].TaskID != task.TaskID {
		t.Fatalf("execution task = %s", execs[0].TaskID)
	}
}

func TestCreateTaskAlsoProjectsFireEachProject(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	other, err := e.st.CreateProject(ctx, "Other")
	if err != nil {
		t.Fatal(err)
	}
	r1 := e.rule(t, e.project.ProjectID, "TASK_ADDED", "", `[]`)
	r2 := e.rule(t, other.ProjectID, "TASK_ADDED", "", `[]`)

	task := e.create(t, CreateInput{SectionID: &e.todo.SectionID, AlsoProjects: []string{other.ProjectID, e.project.ProjectID}})
	e.svc.Wait()

	if len(task.Placements) != 2 {
		t.Fatalf("placements = %+v", task.Placements)
	}
	for _, id := range []string{r1, r2} {
		if n := len(e.executions(t, id)); n != 1 {
			t.Fatalf("rule %s executions = %d, want 1", id, n)
		}
	}
}

func TestCreateTaskValidation(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	cases := []CreateInput{
		{Title: " ", ProjectID: e.project.ProjectID},
		{Title: "x"},
		{Title: "x", ProjectID: e.project.ProjectID, Status: "paused"},
		{Title: "x", ProjectID: e.project.ProjectID, Recurrence: &store.Recurrence{Frequency: "HOURLY"}},
	}
	for i, in := range cases {
		if _, err := e.svc.CreateTask(ctx, "a", in); !errors.Is(err, ErrInvalid) {
			t.Errorf("case %d: err = %v, want ErrInvalid", i, err)
		}
	}
	if _, err := e.svc.CreateTask(ctx, "a", CreateInput{Title: "x", ProjectID: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing project: err = %v", err)
	}
}

func TestMoveTask(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	ruleID := e.rule(t, e.project.ProjectID, "TASK_MOVED",
		`{"logic":"AND","conditions":[{"field":"section","operator":"equals","value":"Done"}]}`,
		`[{"type":"COMPLETE_TASK","config":""}]`)
	task := e.create(t, CreateInput{SectionID: &e.todo.SectionID})

	if err := e.svc.MoveTask(ctx, "actor-1", task.TaskID, e.project.ProjectID, e.done.SectionID); err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	e.svc.Wait()

	got, _ := e.st.GetTask(ctx, task.TaskID)
	if got.Status != models.StatusDone || got.FirstSectionName() != "Done" {
		t.Fatalf("task = status %s section %s", got.Status, got.FirstSectionName())
	}
	if n := len(e.executions(t, ruleID)); n != 1 {
		t.Fatalf("executions = %d", n)
	}

	other, _ := e.st.CreateProject(ctx, "Other")
	sec, _ := e.st.CreateSection(ctx, other.ProjectID, "Inbox")
	if err := e.svc.MoveTask(ctx, "actor-1", task.TaskID, other.ProjectID, sec.SectionID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("move outside placement: err = %v", err)
	}
	if err := e.svc.MoveTask(ctx, "actor-1", task.TaskID, e.project.ProjectID, sec.SectionID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign section: err = %v", err)
	}
}

func TestCompleteTaskCommentScenario(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	ruleID := e.rule(t, e.project.ProjectID, "TASK_COMPLETED",
		`{"logic":"AND","conditions":[{"field":"section","operator":"equals","value":"Done"}]}`,
		`[{"type":"ADD_COMMENT","config":"Nice work!"}]`)

	inTodo := e.create(t, CreateInput{SectionID: &e.todo.SectionID})
	inDone := e.create(t, CreateInput{SectionID: &e.done.SectionID})
	for _, id := range []string{inTodo.TaskID, inDone.TaskID} {
		if _, err := e.svc.CompleteTask(ctx, "actor-1", id); err != nil {
			t.Fatalf("CompleteTask: %v", err)
		}
	}
	e.svc.Wait()

	if c, _ := e.st.ListTaskComments(ctx, inTodo.TaskID); len(c) != 0 {
		t.Fatalf("todo task comments = %+v", c)
	}
	c, _ := e.st.ListTaskComments(ctx, inDone.TaskID)
	if len(c) != 1 || c[0].Body != "Nice work!" || c[0].AuthorID != "actor-1" {
		t.Fatalf("done task comments = %+v", c)
	}
	statuses := map[string]string{}
	for _, x := range e.executions(t, ruleID) {
		statuses[x.TaskID] = x.Status
	}
	if statuses[inTodo.TaskID] != models.ExecutionSkipped || statuses[inDone.TaskID] != models.ExecutionSuccess {
		t.Fatalf("statuses = %v", statuses)
	}
}

func TestCompleteTaskSpawnsOccurrence(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	other, _ := e.st.CreateProject(ctx, "Other")
	due := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	start := due.Add(-48 * time.Hour)
	task := e.create(t, CreateInput{
		SectionID:    &e.todo.SectionID,
		AlsoProjects: []string{other.ProjectID},
		DueDate:      &due,
		StartDate:    &start,
		Recurrence:   &store.Recurrence{Frequency: store.FrequencyWeekly, Interval: 2},
	})

	next, err := e.svc.CompleteTask(ctx, "actor-1", task.TaskID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	e.svc.Wait()
	if next == "" {
		t.Fatal("expected a next occurrence")
	}
	n, _ := e.st.GetTask(ctx, next)
	if n == nil {
		t.Fatal("next occurrence missing")
	}
	wantDue := due.AddDate(0, 0, 14)
	if n.DueDate == nil || !n.DueDate.Equal(wantDue) {
		t.Fatalf("next due = %v, want %v", n.DueDate, wantDue)
	}
	if n.StartDate == nil || !n.StartDate.Equal(wantDue.Add(-48*time.Hour)) {
		t.Fatalf("next start = %v", n.StartDate)
	}
	if n.Status != models.StatusTodo || !n.IsRecurring || len(n.Placements) != 2 {
		t.Fatalf("next = %+v", n)
	}

	again, err := e.svc.CompleteTask(ctx, "actor-1", task.TaskID)
	if err != nil || again != "" {
		t.Fatalf("second completion = %q, %v", again, err)
	}
}

func TestCompleteTaskSpawnFailureIsSwallowed(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	id, err := e.st.CreateTask(ctx, store.NewTask{Title: "broken", IsRecurring: true, Recurrence: &store.Recurrence{Frequency: "FORTNIGHTLY", Interval: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.st.AddTaskToProject(ctx, id, e.project.ProjectID, nil); err != nil {
		t.Fatal(err)
	}
	next, err := e.svc.CompleteTask(ctx, "actor-1", id)
	if err != nil || next != "" {
		t.Fatalf("CompleteTask = %q, %v", next, err)
	}
	got, _ := e.st.GetTask(ctx, id)
	if got.Status != models.StatusDone || got.CompletedAt == nil {
		t.Fatalf("completion rolled back: %+v", got)
	}
}

func TestCompleteTaskMissing(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	if _, err := e.svc.CompleteTask(context.Background(), "a", "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetFieldValue(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	field, err := e.st.CreateCustomField(ctx, e.project.ProjectID, "Estimate", models.FieldTypeNumber)
	if err != nil {
		t.Fatal(err)
	}
	ruleID := e.rule(t, e.project.ProjectID, "FIELD_CHANGED",
		`{"logic":"AND","conditions":[{"field":"Estimate","operator":"greater_than","value":"5"}]}`,
		`[{"type":"ADD_COMMENT","config":"Large estimate"}]`)
	task := e.create(t, CreateInput{})

	text := "3"
	num := 8.0
	if err := e.svc.SetFieldValue(ctx, "a", task.TaskID, field.FieldID, &text, &num); !errors.Is(err, ErrInvalid) {
		t.Fatalf("both slots: err = %v", err)
	}
	if err := e.svc.SetFieldValue(ctx, "a", task.TaskID, field.FieldID, nil, &num); err != nil {
		t.Fatalf("SetFieldValue: %v", err)
	}
	e.svc.Wait()

	execs := e.executions(t, ruleID)
	if len(execs) != 1 || execs[0].Status != models.ExecutionSuccess {
		t.Fatalf("executions = %+v", execs)
	}
	if err := e.svc.SetFieldValue(ctx, "a", task.TaskID, "no-such-field", &text, nil); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown field: err = %v", err)
	}
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	task := e.create(t, CreateInput{})

	status := models.StatusInProgress
	assignee := "user-9"
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	got, err := e.svc.UpdateTask(ctx, task.TaskID, UpdateInput{Status: &status, AssigneeID: &assignee, DueDate: &due})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got.Status != status || *got.AssigneeID != assignee || !got.DueDate.Equal(due) {
		t.Fatalf("task = %+v", got)
	}

	empty := ""
	got, err = e.svc.UpdateTask(ctx, task.TaskID, UpdateInput{AssigneeID: &empty, ClearDueDate: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.AssigneeID != nil || got.DueDate != nil {
		t.Fatalf("expected cleared assignee and due date: %+v", got)
	}

	done := models.StatusDone
	if _, err := e.svc.UpdateTask(ctx, task.TaskID, UpdateInput{Status: &done}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("status done: err = %v", err)
	}
	if _, err := e.svc.UpdateTask(ctx, "missing", UpdateInput{Status: &status}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing task: err = %v", err)
	}
}

func TestPublishesTaskUpdates(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	task := e.create(t, CreateInput{SectionID: &e.todo.SectionID})
	if _, err := e.svc.AddComment(ctx, "a", task.TaskID, "hello"); err != nil {
		t.Fatal(err)
	}
	if err := e.svc.MoveTask(ctx, "a", task.TaskID, e.project.ProjectID, e.done.SectionID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.CompleteTask(ctx, "a", task.TaskID); err != nil {
		t.Fatal(err)
	}
	e.svc.Wait()

	got := e.pub.actions()
	want := []string{"task_created", "task_commented", "task_moved", "task_completed"}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	e.pub.mu.Lock()
	defer e.pub.mu.Unlock()
	for _, ev := range e.pub.events {
		if ev.Type != models.EventTaskUpdate || len(ev.ProjectIDs) != 1 || ev.ProjectIDs[0] != e.project.ProjectID {
			t.Fatalf("event = %+v", ev)
		}
	}
}

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/sravan-boop/taskflow/internal/config"
	"github.com/sravan-boop/taskflow/internal/store"
)

func TestNewRootCmd_hasSubcommands(t *testing.T) {
	t.Parallel()
	root := NewRootCmd("test")
	if root == nil {
		t.Fatal("NewRootCmd returned nil")
	}
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "stop", "status", "project", "section", "user", "field", "task", "rule", "apikey"} {
		if !names[want] {
			t.Errorf("expected subcommand %q", want)
		}
	}
}

func TestNewRootCmd_versionFlag(t *testing.T) {
	t.Parallel()
	root := NewRootCmd("1.2.3")
	if root.Version != "1.2.3" {
		t.Errorf("Version: got %q", root.Version)
	}
}

func TestNewRootCmd_persistentFlags(t *testing.T) {
	t.Parallel()
	root := NewRootCmd("")
	for _, name := range []string{"home", "log-level", "actor"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s persistent flag", name)
		}
	}
}

// run executes the CLI against home and returns combined output.
func run(t *testing.T, home, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--home", home, "--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, home, stdin string, args ...string) string {
	t.Helper()
	out, err := run(t, home, stdin, args...)
	if err != nil {
		t.Fatalf("taskflow %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func openTestStore(t *testing.T, home string) store.Store {
	t.Helper()
	st, err := store.Open(home)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestApikeyGenerate(t *testing.T) {
	t.Parallel()
	out := mustRun(t, t.TempDir(), "", "apikey", "generate")
	hexKey := regexp.MustCompile(`(?m)^  ([a-f0-9]{64})$`)
	if !hexKey.MatchString(out) {
		t.Errorf("output should contain a 64-char hex key on its own line; got:\n%s", out)
	}
	if !strings.Contains(out, "TASKFLOW_API_KEY") {
		t.Errorf("output should mention TASKFLOW_API_KEY")
	}
	if !strings.Contains(out, "X-API-Key") {
		t.Errorf("output should mention X-API-Key")
	}
}

func TestApikeyGenerateSave(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	out := mustRun(t, home, "", "apikey", "generate", "--save")
	m := regexp.MustCompile(`(?m)^  ([a-f0-9]{64})$`).FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no key in output:\n%s", out)
	}
	s, err := config.LoadSettings(home)
	if err != nil {
		t.Fatal(err)
	}
	if s.APIKey != m[1] {
		t.Fatalf("saved api_key = %q, printed %q", s.APIKey, m[1])
	}
}

func TestNuke(t *testing.T) {
	t.Parallel()
	home := filepath.Join(t.TempDir(), "home")
	mustRun(t, home, "", "project", "add", "--name", "Keep me")

	out := mustRun(t, home, "no thanks\n", "nuke")
	if !strings.Contains(out, "Aborted.") {
		t.Fatalf("nuke without confirmation: %s", out)
	}
	if _, err := os.Stat(home); err != nil {
		t.Fatalf("home removed after abort: %v", err)
	}

	mustRun(t, home, "delete everything\n", "nuke")
	if _, err := os.Stat(home); !os.IsNotExist(err) {
		t.Fatalf("home still present: %v", err)
	}

	mustRun(t, home, "", "project", "add", "--name", "Again")
	mustRun(t, home, "", "nuke", "--yes")
	if _, err := os.Stat(home); !os.IsNotExist(err) {
		t.Fatalf("home still present after --yes: %v", err)
	}
}

func TestStatus_notRunning(t *testing.T) {
	t.Parallel()
	out := mustRun(t, t.TempDir(), "", "status")
	if !strings.Contains(out, "not running") {
		t.Errorf("status: got %q", out)
	}
}

func TestRequiredFlags(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	for _, args := range [][]string{
		{"project", "add"},
		{"task", "create", "--title", "x"},
		{"task", "complete"},
		{"rule", "import", "--project", "p"},
		{"field", "add", "--project", "p", "--name", "n", "--type", "color"},
	} {
		if _, err := run(t, home, "", args...); err == nil {
			t.Errorf("taskflow %s: expected error", strings.Join(args, " "))
		}
	}
}

const welcomeRules = `rules:
  - name: Auto-assign new work
    trigger: TASK_ADDED
    actions:
      - {type: SET_ASSIGNEE, config: USER}
      - {type: ADD_COMMENT, config: Welcome aboard}
  - name: Archive finished work
    trigger: TASK_COMPLETED
    active: false
    actions:
      - {type: ADD_COMMENT, config: never}
`

func TestTaskLifecycleRunsRules(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	ctx := context.Background()

	mustRun(t, home, "", "project", "add", "--name", "Board", "--section", "To do", "--section", "Done")
	mustRun(t, home, "", "user", "add", "--name", "Ada")

	st := openTestStore(t, home)
	projects, err := st.ListProjects(ctx)
	if err != nil || len(projects) != 1 {
		t.Fatalf("ListProjects: %v %v", projects, err)
	}
	projectID := projects[0].ProjectID
	users, err := st.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("ListUsers: %v %v", users, err)
	}
	userID := users[0].UserID

	out := mustRun(t, home, strings.ReplaceAll(welcomeRules, "USER", userID), "rule", "import", "--project", projectID, "--file", "-")
	if strings.Count(out, "Imported rule") != 2 {
		t.Fatalf("rule import output:\n%s", out)
	}

	mustRun(t, home, "", "--actor", "user-7", "task", "create", "--project", projectID, "--title", "Write docs", "--section", "To do")
	list, err := st.ListProjectTasks(ctx, projectID, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListProjectTasks: %v %v", list, err)
	}
	taskID := list[0].TaskID

	show := mustRun(t, home, "", "task", "show", "--id", taskID)
	for _, want := range []string{"Write docs", userID, "(Ada)", "To do", "user-7: Welcome aboard"} {
		if !strings.Contains(show, want) {
			t.Errorf("task show missing %q:\n%s", want, show)
		}
	}

	rules, err := st.ListRules(ctx, projectID)
	if err != nil || len(rules) != 2 {
		t.Fatalf("ListRules: %v %v", rules, err)
	}
	logs := mustRun(t, home, "", "rule", "logs", "--id", rules[0].RuleID)
	if !strings.Contains(logs, "SUCCESS") || !strings.Contains(logs, taskID) {
		t.Errorf("rule logs:\n%s", logs)
	}

	mustRun(t, home, "", "task", "move", "--id", taskID, "--project", projectID, "--section", "Done")
	mustRun(t, home, "", "task", "complete", "--id", taskID)
	got, err := st.GetTask(ctx, taskID)
	if err != nil || got == nil || got.Status != "done" || got.FirstSectionName() != "Done" {
		t.Fatalf("after complete: %+v %v", got, err)
	}
	if execs, _ := st.ListRuleExecutions(ctx, rules[1].RuleID, 10); len(execs) != 0 {
		t.Errorf("inactive rule ran: %+v", execs)
	}

	mustRun(t, home, "", "rule", "disable", "--id", rules[0].RuleID)
	export := mustRun(t, home, "", "rule", "export", "--project", projectID)
	for _, want := range []string{"name: Auto-assign new work", "trigger: TASK_ADDED", "active: false", "SET_ASSIGNEE"} {
		if !strings.Contains(export, want) {
			t.Errorf("rule export missing %q:\n%s", want, export)
		}
	}

	mustRun(t, home, "", "rule", "delete", "--id", rules[1].RuleID)
	if r, _ := st.GetRule(ctx, rules[1].RuleID); r != nil {
		t.Errorf("rule still present after delete")
	}
}

func TestTaskCompleteSpawnsNextOccurrence(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	ctx := context.Background()

	mustRun(t, home, "", "project", "add", "--name", "Chores", "--section", "Inbox")
	st := openTestStore(t, home)
	projects, _ := st.ListProjects(ctx)
	projectID := projects[0].ProjectID

	mustRun(t, home, "", "task", "create", "--project", projectID, "--title", "Water plants",
		"--due", "2026-03-02", "--recur", "weekly", "--interval", "2")
	list, _ := st.ListProjectTasks(ctx, projectID, 10)
	if len(list) != 1 {
		t.Fatalf("tasks: %+v", list)
	}

	out := mustRun(t, home, "", "task", "complete", "--id", list[0].TaskID)
	m := regexp.MustCompile(`Next occurrence: (\S+)`).FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("complete output has no next occurrence:\n%s", out)
	}
	next, err := st.GetTask(ctx, m[1])
	if err != nil || next == nil {
		t.Fatalf("GetTask next: %v %v", next, err)
	}
	if next.DueDate == nil || next.DueDate.Format("2006-01-02") != "2026-03-16" {
		t.Errorf("next due = %v, want 2026-03-16", next.DueDate)
	}
	if next.Status != "todo" || next.FirstSectionName() != "Inbox" {
		t.Errorf("next occurrence = %+v", next)
	}
}

func TestFieldAndSetField(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	ctx := context.Background()

	mustRun(t, home, "", "project", "add", "--name", "Sales")
	st := openTestStore(t, home)
	projects, _ := st.ListProjects(ctx)
	projectID := projects[0].ProjectID

	mustRun(t, home, "", "field", "add", "--project", projectID, "--name", "Deal size", "--type", "number")
	fields, err := st.ListCustomFields(ctx, projectID)
	if err != nil || len(fields) != 1 {
		t.Fatalf("fields: %+v %v", fields, err)
	}
	mustRun(t, home, "", "task", "create", "--project", projectID, "--title", "Acme")
	list, _ := st.ListProjectTasks(ctx, projectID, 10)

	if _, err := run(t, home, "", "task", "set-field", "--id", list[0].TaskID, "--field", fields[0].FieldID); err == nil {
		t.Error("set-field without a value: expected error")
	}
	mustRun(t, home, "", "task", "set-field", "--id", list[0].TaskID, "--field", fields[0].FieldID, "--number", "1500")
	show := mustRun(t, home, "", "task", "show", "--id", list[0].TaskID)
	if !strings.Contains(show, "1500") {
		t.Errorf("task show missing field value:\n%s", show)
	}
}

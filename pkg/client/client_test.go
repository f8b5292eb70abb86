package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sravan-boop/taskflow/internal/httpapi"
	"github.com/sravan-boop/taskflow/pkg/models"
)

func TestNew(t *testing.T) {
	c := New("http://127.0.0.1:4317", "")
	if c.BaseURL != "http://127.0.0.1:4317" || c.APIKey != "" {
		t.Errorf("New: %+v", c)
	}
	c2 := New("http://127.0.0.1:4317", "secret")
	if c2.APIKey != "secret" {
		t.Errorf("New with key: %+v", c2)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","version":"1.2.3"}`))
	}))
	defer srv.Close()

	h, err := New(srv.URL, "").Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "ok" || h.Version != "1.2.3" {
		t.Fatalf("Health = %+v", h)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"task not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").GetTask(context.Background(), "t1")
	if err == nil || !IsNotFound(err) {
		t.Fatalf("expected not-found APIError, got %v", err)
	}
	if !strings.Contains(err.Error(), "task not found") {
		t.Fatalf("error = %v", err)
	}
}

func TestClient_setsHeaders(t *testing.T) {
	var gotKey, gotActor string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotActor = r.Header.Get("X-Actor-ID")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "my-key")
	c.ActorID = "user-3"
	if _, err := c.ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if gotKey != "my-key" || gotActor != "user-3" {
		t.Fatalf("headers: key=%q actor=%q", gotKey, gotActor)
	}
}

func TestClientAgainstServer(t *testing.T) {
	t.Parallel()
	app, err := httpapi.NewApp(httpapi.ServerOptions{Home: t.TempDir()})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ts := httptest.NewServer(app.Server.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = app.Close()
	})
	ctx := context.Background()
	c := New(ts.URL, "")
	c.ActorID = "user-1"

	p, err := c.CreateProject(ctx, "Client")
	if err != nil {
		t.Fatal(err)
	}
	todo, err := c.CreateSection(ctx, p.ProjectID, "To do")
	if err != nil {
		t.Fatal(err)
	}
	est, err := c.CreateField(ctx, p.ProjectID, "Estimate", models.FieldTypeNumber)
	if err != nil {
		t.Fatal(err)
	}
	ids, err := c.ImportRules(ctx, p.ProjectID, strings.NewReader(`rules:
  - name: flag
    trigger: FIELD_CHANGED
    conditions:
      - {field: Estimate, operator: greater_than, value: "5"}
    actions:
      - {type: ADD_COMMENT, config: Too big}
`))
	if err != nil || len(ids) != 1 {
		t.Fatalf("ImportRules = %v, %v", ids, err)
	}

	task, err := c.CreateTask(ctx, p.ProjectID, models.CreateTaskRequest{Title: "Estimate me", SectionID: &todo.SectionID})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetFieldNumber(ctx, task.TaskID, est.FieldID, 13); err != nil {
		t.Fatal(err)
	}
	app.Tasks.Wait()

	comments, err := c.ListComments(ctx, task.TaskID)
	if err != nil || len(comments) != 1 || comments[0].Body != "Too big" {
		t.Fatalf("comments = %+v, %v", comments, err)
	}
	execs, err := c.ListExecutions(ctx, ids[0], 10)
	if err != nil || len(execs) != 1 || execs[0].Status != models.ExecutionSuccess {
		t.Fatalf("executions = %+v, %v", execs, err)
	}
	if _, err := c.SetRuleActive(ctx, ids[0], false); err != nil {
		t.Fatal(err)
	}
	doc, err := c.ExportRules(ctx, p.ProjectID)
	if err != nil || !strings.Contains(string(doc), "active: false") {
		t.Fatalf("export = %s, %v", doc, err)
	}
	res, err := c.CompleteTask(ctx, task.TaskID)
	if err != nil || res.NextOccurrence != nil {
		t.Fatalf("complete = %+v, %v", res, err)
	}
	if err := c.DeleteRule(ctx, ids[0]); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetRule(ctx, ids[0]); !IsNotFound(err) {
		t.Fatalf("GetRule after delete: %v", err)
	}
}

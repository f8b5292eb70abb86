package httpapi

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sravan-boop/taskflow/pkg/models"
)

func TestSSEHub_PublishNumbersAndFilters(t *testing.T) {
	hub := NewSSEHub()
	all := hub.Subscribe("")
	onlyA := hub.Subscribe("proj-a")

	hub.Publish(models.StreamEvent{Type: models.EventTaskUpdate, Action: "task_moved", TaskID: "t1", ProjectIDs: []string{"proj-b"}})
	hub.Publish(models.StreamEvent{Type: models.EventProjectUpdate, Action: "project_created", ProjectIDs: []string{"proj-a"}})
	hub.Publish(models.StreamEvent{Type: models.EventTaskUpdate, Action: "task_updated", TaskID: "t2"})

	var ids []uint64
	for i := 0; i < 3; i++ {
		f := <-all.C
		ids = append(ids, f.ID)
	}
	if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("ids = %v", ids)
	}

	f := <-onlyA.C
	if f.ID != 2 || f.Event != models.EventProjectUpdate || !strings.Contains(string(f.Data), `"project_created"`) {
		t.Fatalf("filtered frame = %+v (%s)", f, f.Data)
	}
	f = <-onlyA.C
	if f.ID != 3 {
		t.Fatalf("unscoped event should reach filtered subscriber, got %+v", f)
	}

	hub.Unsubscribe(all)
	hub.Unsubscribe(onlyA)
	if _, ok := <-all.C; ok {
		t.Error("expected channel closed after Unsubscribe")
	}
	hub.Unsubscribe(all)
	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("Subscribers = %d", n)
	}
}

func TestSSEHub_FullBufferDrops(t *testing.T) {
	hub := NewSSEHub()
	sub := hub.Subscribe("")
	defer hub.Unsubscribe(sub)
	for i := 0; i < models.DefaultSSEChannelBuffer+5; i++ {
		hub.Publish(models.StreamEvent{Type: models.EventTaskUpdate})
	}
	if got := sub.dropped.Load(); got != 5 {
		t.Fatalf("dropped = %d, want 5", got)
	}
}

func TestSSEHub_Handler(t *testing.T) {
	hub := NewSSEHub()
	handler := hub.Handler()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequestWithContext(ctx, http.MethodGet, "/stream", nil)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		handler(rec, req)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish(models.StreamEvent{Type: models.EventTaskUpdate, Action: "task_created", TaskID: "t1"})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	// Read the body only after the handler has finished writing.
	var lines []string
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	body := strings.Join(lines, "\n")
	for _, want := range []string{"event: connected", "id: 1", "event: task_update", `"task_created"`} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q:\n%s", want, body)
		}
	}
}

func TestSSEHub_TaskUpdatesFromAPI(t *testing.T) {
	t.Parallel()
	app, ts := newTestServer(t, ServerOptions{})
	sub := app.Hub.Subscribe("")
	defer app.Hub.Unsubscribe(sub)

	var p struct {
		ProjectID string `json:"project_id"`
	}
	call(t, ts, http.MethodPost, "/projects", map[string]string{"name": "Events"}, &p)
	call(t, ts, http.MethodPost, "/projects/"+p.ProjectID+"/tasks", map[string]string{"title": "ping"}, nil)

	var seen []Frame
	timeout := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case f := <-sub.C:
			seen = append(seen, f)
		case <-timeout:
			t.Fatalf("timed out, saw %d frames", len(seen))
		}
	}
	if seen[0].Event != models.EventProjectUpdate || seen[1].Event != models.EventTaskUpdate {
		t.Fatalf("events = %s, %s", seen[0].Event, seen[1].Event)
	}
	if !strings.Contains(string(seen[1].Data), `"task_created"`) || !strings.Contains(string(seen[1].Data), p.ProjectID) {
		t.Fatalf("task frame = %s", seen[1].Data)
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sravan-boop/taskflow/internal/otel"
	"github.com/sravan-boop/taskflow/pkg/models"
)

// keepaliveInterval is how often an idle stream gets a comment line.
const keepaliveInterval = 30 * time.Second

// Frame is one encoded stream event.
type Frame struct {
	ID    uint64
	Event string
	Data  []byte
}

// Subscription receives frames on C until Unsubscribe.
type Subscription struct {
	C       <-chan Frame
	ch      chan Frame
	project string
	dropped atomic.Int64
}

func (s *Subscription) wants(ev models.StreamEvent) bool {
	return s.project == "" || len(ev.ProjectIDs) == 0 || slices.Contains(ev.ProjectIDs, s.project)
}

// SSEHub numbers StreamEvents and fans them out to /stream subscribers.
// A subscriber whose buffer is full misses the event; publishers never block.
type SSEHub struct {
	mu   sync.RWMutex
	seq  uint64
	subs map[*Subscription]struct{}
}

func NewSSEHub() *SSEHub {
	return &SSEHub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber. A non-empty projectID limits it to events touching that
// project plus events that name no project.
func (h *SSEHub) Subscribe(projectID string) *Subscription {
	ch := make(chan Frame, models.DefaultSSEChannelBuffer)
	sub := &Subscription{C: ch, ch: ch, project: projectID}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	otel.AddSSEConnection()
	return sub
}

func (h *SSEHub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	if ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	otel.RemoveSSEConnection()
	if n := sub.dropped.Load(); n > 0 {
		slog.Debug("sse: subscriber missed events", "project_id", sub.project, "dropped", n)
	}
}

// Publish sends ev to every interested subscriber. tasks.Service uses it after each mutation.
func (h *SSEHub) Publish(ev models.StreamEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	otel.RecordSSEEvent(context.Background())
	h.mu.Lock()
	h.seq++
	f := Frame{ID: h.seq, Event: ev.Type, Data: data}
	for sub := range h.subs {
		if !sub.wants(ev) {
			continue
		}
		select {
		case sub.ch <- f:
		default:
			sub.dropped.Add(1)
		}
	}
	h.mu.Unlock()
}

// Subscribers returns the number of open subscriptions.
func (h *SSEHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Handler streams frames as named SSE events until the client disconnects.
// ?project=<id> narrows the stream to one project.
func (h *SSEHub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		sub := h.Subscribe(r.URL.Query().Get("project"))
		defer h.Unsubscribe(sub)

		_, _ = fmt.Fprint(w, "event: connected\ndata: {\"type\":\"connected\"}\n\n")
		flusher.Flush()

		keepalive := time.NewTicker(keepaliveInterval)
		defer keepalive.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepalive.C:
				_, _ = fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case f, ok := <-sub.C:
				if !ok {
					return
				}
				_, _ = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", f.ID, f.Event, f.Data)
				flusher.Flush()
			}
		}
	}
}

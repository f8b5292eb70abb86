// Package scanner raises DUE_DATE_APPROACHING for tasks whose due date enters a look-ahead window.
package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/sravan-boop/taskflow/internal/automation"
	"github.com/sravan-boop/taskflow/internal/otel"
	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/pkg/models"
)

// SystemActor is the actor recorded for triggers raised by the scanner.
const SystemActor = "system"

const (
	defaultInterval = time.Minute
	defaultWindow   = 24 * time.Hour
)

// Store is the task access the scanner needs. store.Store satisfies it.
type Store interface {
	ListTasksDueBetween(ctx context.Context, from, to time.Time, limit int) ([]store.Task, error)
	MarkDueSoonNotified(ctx context.Context, taskID string, at time.Time) (bool, error)
	GetTask(ctx context.Context, taskID string) (*store.Task, error)
}

// Dispatcher starts rule runs. *automation.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, trig automation.Trigger, ec automation.ExecContext)
}

// DueDateScanner polls for incomplete tasks due within Window and announces each one once.
// Changing a task's due date re-arms its announcement.
type DueDateScanner struct {
	Store      Store
	Dispatcher Dispatcher
	Interval   time.Duration    // between polls; default 1m
	Window     time.Duration    // look-ahead; default 24h
	Limit      int              // tasks per poll; default models.DefaultDueSoonScanLimit
	Now        func() time.Time // nil uses time.Now
}

// Run polls until ctx is cancelled.
func (s *DueDateScanner) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one poll and returns the number of tasks announced.
func (s *DueDateScanner) RunOnce(ctx context.Context) int {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	window := s.Window
	if window <= 0 {
		window = defaultWindow
	}
	limit := s.Limit
	if limit <= 0 {
		limit = models.DefaultDueSoonScanLimit
	}
	due, err := s.Store.ListTasksDueBetween(ctx, now, now.Add(window), limit)
	if err != nil {
		slog.Error("due date scanner list tasks failed", "err", err)
		return 0
	}
	announced := 0
	for _, t := range due {
		if s.announce(ctx, t.TaskID, now) {
			announced++
		}
	}
	if announced > 0 {
		slog.Info("due date scanner announced tasks", "count", announced)
	}
	return announced
}

func (s *DueDateScanner) announce(ctx context.Context, taskID string, now time.Time) bool {
	// Claim first so a concurrent scanner cannot announce the same task twice.
	claimed, err := s.Store.MarkDueSoonNotified(ctx, taskID, now)
	if err != nil {
		slog.Error("due date scanner mark notified failed", "task_id", taskID, "err", err)
		return false
	}
	if !claimed {
		return false
	}
	t, err := s.Store.GetTask(ctx, taskID)
	if err != nil || t == nil {
		slog.Error("due date scanner load task failed", "task_id", taskID, "err", err)
		return false
	}
	for _, p := range t.ProjectIDs() {
		otel.RecordDueSoon(ctx, p)
		s.Dispatcher.Dispatch(ctx, automation.TriggerDueDateApproaching, automation.ExecContext{
			ProjectID: p,
			TaskID:    taskID,
			ActorID:   SystemActor,
		})
	}
	return true
}

// Package recurrence materializes the next occurrence of a recurring task when it is completed.
package recurrence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sravan-boop/taskflow/internal/otel"
	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/pkg/models"
)

// ValidFrequency reports whether f is one of DAILY, WEEKLY, MONTHLY, YEARLY.
func ValidFrequency(f string) bool {
	switch f {
	case store.FrequencyDaily, store.FrequencyWeekly, store.FrequencyMonthly, store.FrequencyYearly:
		return true
	}
	return false
}

// Next advances from by one period of r. An interval below 1 counts as 1. MONTHLY with
// DayOfMonth lands on that day, clamped to the last day of the resulting month; without it,
// month overflow normalizes (Jan 31 + 1 month = Mar 3). DaysOfWeek does not affect the result.
// An unknown frequency returns from unchanged.
func Next(from time.Time, r store.Recurrence) time.Time {
	n := r.Interval
	if n < 1 {
		n = 1
	}
	switch r.Frequency {
	case store.FrequencyDaily:
		return from.AddDate(0, 0, n)
	case store.FrequencyWeekly:
		return from.AddDate(0, 0, 7*n)
	case store.FrequencyMonthly:
		if r.DayOfMonth == nil {
			return from.AddDate(0, n, 0)
		}
		first := time.Date(from.Year(), from.Month()+time.Month(n), 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
		day := *r.DayOfMonth
		if last := daysIn(first.Year(), first.Month(), first.Location()); day > last {
			day = last
		}
		if day < 1 {
			day = 1
		}
		return time.Date(first.Year(), first.Month(), day, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
	case store.FrequencyYearly:
		return from.AddDate(n, 0, 0)
	default:
		return from
	}
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// TaskStore is the task write model the scheduler needs. store.Store satisfies it.
type TaskStore interface {
	CreateTask(ctx context.Context, t store.NewTask) (string, error)
	AddTaskToProject(ctx context.Context, taskID, projectID string, sectionID *string) error
}

// Scheduler spawns follow-up occurrences. It writes to the store directly and never raises
// automation triggers.
type Scheduler struct {
	Store TaskStore
	Now   func() time.Time // nil uses time.Now
}

// New returns a scheduler writing to st.
func New(st TaskStore) *Scheduler {
	return &Scheduler{Store: st}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Spawn creates the next occurrence of the completed task t and places it in every project
// and section t belongs to. It returns "" when t is not recurring or the series has passed
// its end date. The task and its placements are written in separate steps; on a placement
// error the new task ID is returned together with the error.
func (s *Scheduler) Spawn(ctx context.Context, t *store.Task) (string, error) {
	if t == nil || !t.IsRecurring || t.Recurrence == nil {
		return "", nil
	}
	rec := *t.Recurrence
	if !ValidFrequency(rec.Frequency) {
		otel.RecordRecurrence(ctx, rec.Frequency, "failed")
		return "", fmt.Errorf("task %s: unknown recurrence frequency %q", t.TaskID, rec.Frequency)
	}

	base := s.now().UTC()
	if t.DueDate != nil {
		base = *t.DueDate
	}
	next := Next(base, rec)
	if rec.EndDate != nil && next.After(*rec.EndDate) {
		slog.Info("recurrence: series ended", "task_id", t.TaskID, "next_due", next, "end_date", *rec.EndDate)
		otel.RecordRecurrence(ctx, rec.Frequency, "ended")
		return "", nil
	}

	var start *time.Time
	if t.StartDate != nil && t.DueDate != nil {
		st := next.Add(-t.DueDate.Sub(*t.StartDate))
		start = &st
	}
	id, err := s.Store.CreateTask(ctx, store.NewTask{
		Title:       t.Title,
		Status:      models.StatusTodo,
		AssigneeID:  t.AssigneeID,
		DueDate:     &next,
		StartDate:   start,
		IsRecurring: true,
		Recurrence:  copyRecurrence(t.Recurrence),
	})
	if err != nil {
		otel.RecordRecurrence(ctx, rec.Frequency, "failed")
		return "", fmt.Errorf("create next occurrence of %s: %w", t.TaskID, err)
	}
	for _, p := range t.Placements {
		if err := s.Store.AddTaskToProject(ctx, id, p.ProjectID, p.SectionID); err != nil {
			otel.RecordRecurrence(ctx, rec.Frequency, "failed")
			return id, fmt.Errorf("place occurrence %s in project %s: %w", id, p.ProjectID, err)
		}
	}
	otel.RecordRecurrence(ctx, rec.Frequency, "spawned")
	slog.Info("recurrence: spawned next occurrence", "task_id", t.TaskID, "next_task_id", id, "due", next)
	return id, nil
}

func copyRecurrence(r *store.Recurrence) *store.Recurrence {
	c := *r
	if r.DaysOfWeek != nil {
		c.DaysOfWeek = append([]int(nil), r.DaysOfWeek...)
	}
	if r.DayOfMonth != nil {
		v := *r.DayOfMonth
		c.DayOfMonth = &v
	}
	if r.EndDate != nil {
		v := *r.EndDate
		c.EndDate = &v
	}
	if r.EndAfterOccurrences != nil {
		v := *r.EndAfterOccurrences
		c.EndAfterOccurrences = &v
	}
	return &c
}

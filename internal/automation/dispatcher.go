package automation

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher starts runner invocations without making the caller wait for them.
type Dispatcher struct {
	runner *Runner
	wg     sync.WaitGroup
}

// NewDispatcher returns a dispatcher for r.
func NewDispatcher(r *Runner) *Dispatcher {
	return &Dispatcher{runner: r}
}

// Dispatch runs the rules for trig on a new goroutine and returns immediately. The run keeps
// ctx's values but not its cancellation, so it survives the request that raised the event.
func (d *Dispatcher) Dispatch(ctx context.Context, trig Trigger, ec ExecContext) {
	if d == nil || d.runner == nil {
		return
	}
	runCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				slog.Error("automation: dispatch panicked", "trigger", trig, "task_id", ec.TaskID, "panic", p)
			}
		}()
		d.runner.Run(runCtx, trig, ec)
	}()
}

// Wait blocks until every dispatched run has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce     sync.Once
	taskOpsCounter      metric.Int64Counter
	ruleRunsCounter     metric.Int64Counter
	ruleActionsCounter  metric.Int64Counter
	ruleRunDuration     metric.Float64Histogram
	recurrenceCounter   metric.Int64Counter
	dueSoonCounter      metric.Int64Counter
	sseConnectionsGauge metric.Int64ObservableGauge
	sseEventsCounter    metric.Int64Counter
	sseConnections      int64
	sseConnectionsMu    sync.Mutex
)

// InitMetrics creates the meter instruments. Safe to call multiple times; only runs once.
// Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		taskOpsCounter, err = m.Int64Counter("taskflow_task_operations_total", metric.WithDescription("Total task operations (create, move, complete, set_field)"))
		if err != nil {
			return
		}
		ruleRunsCounter, err = m.Int64Counter("taskflow_rule_executions_total", metric.WithDescription("Rule executions by trigger and outcome"))
		if err != nil {
			return
		}
		ruleActionsCounter, err = m.Int64Counter("taskflow_rule_actions_total", metric.WithDescription("Rule actions executed by type and outcome"))
		if err != nil {
			return
		}
		ruleRunDuration, err = m.Float64Histogram("taskflow_rule_run_duration_seconds", metric.WithDescription("Duration of one runner invocation in seconds"))
		if err != nil {
			return
		}
		recurrenceCounter, err = m.Int64Counter("taskflow_recurrence_spawns_total", metric.WithDescription("Recurring task completions by frequency and outcome"))
		if err != nil {
			return
		}
		dueSoonCounter, err = m.Int64Counter("taskflow_due_soon_dispatched_total", metric.WithDescription("DUE_DATE_APPROACHING triggers dispatched by the scanner"))
		if err != nil {
			return
		}
		sseEventsCounter, err = m.Int64Counter("taskflow_sse_events_total", metric.WithDescription("Total SSE events published"))
		if err != nil {
			return
		}
		sseConnectionsGauge, err = m.Int64ObservableGauge("taskflow_sse_connections", metric.WithDescription("Current SSE subscriber count"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			sseConnectionsMu.Lock()
			n := sseConnections
			sseConnectionsMu.Unlock()
			o.ObserveInt64(sseConnectionsGauge, n)
			return nil
		}, sseConnectionsGauge)
	})
	return err
}

// RecordTaskOp records a task operation (create, move, complete, set_field).
func RecordTaskOp(ctx context.Context, op, project, status string) {
	if taskOpsCounter == nil {
		return
	}
	taskOpsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		AttrProject.String(project),
		AttrStatus.String(status),
	))
}

// RecordRuleExecution records one rule outcome (SUCCESS, FAILED, SKIPPED).
func RecordRuleExecution(ctx context.Context, trigger, status string) {
	if ruleRunsCounter != nil {
		ruleRunsCounter.Add(ctx, 1, metric.WithAttributes(AttrTrigger.String(trigger), AttrStatus.String(status)))
	}
}

// RecordRuleAction records one executed action.
func RecordRuleAction(ctx context.Context, action, outcome string) {
	if ruleActionsCounter != nil {
		ruleActionsCounter.Add(ctx, 1, metric.WithAttributes(AttrAction.String(action), AttrOutcome.String(outcome)))
	}
}

// RecordRuleRun records the duration of one runner invocation.
func RecordRuleRun(ctx context.Context, trigger string, duration time.Duration) {
	if ruleRunDuration != nil {
		ruleRunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrTrigger.String(trigger)))
	}
}

// RecordRecurrence records a recurring-task completion: spawned, ended, or failed.
func RecordRecurrence(ctx context.Context, frequency, outcome string) {
	if recurrenceCounter != nil {
		recurrenceCounter.Add(ctx, 1, metric.WithAttributes(AttrFrequency.String(frequency), AttrOutcome.String(outcome)))
	}
}

// RecordDueSoon records one DUE_DATE_APPROACHING dispatch.
func RecordDueSoon(ctx context.Context, project string) {
	if dueSoonCounter != nil {
		dueSoonCounter.Add(ctx, 1, metric.WithAttributes(AttrProject.String(project)))
	}
}

// RecordSSEEvent records one SSE event published.
func RecordSSEEvent(ctx context.Context) {
	if sseEventsCounter != nil {
		sseEventsCounter.Add(ctx, 1)
	}
}

// AddSSEConnection adds 1 to the SSE connection gauge (call on subscribe).
func AddSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections++
	sseConnectionsMu.Unlock()
}

// RemoveSSEConnection subtracts 1 from the SSE connection gauge (call on unsubscribe).
func RemoveSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections--
	if sseConnections < 0 {
		sseConnections = 0
	}
	sseConnectionsMu.Unlock()
}

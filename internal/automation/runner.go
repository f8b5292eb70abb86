package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/sravan-boop/taskflow/internal/otel"
	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/pkg/models"
)

// MsgConditionsNotMet is the message logged with SKIPPED outcomes.
const MsgConditionsNotMet = "Conditions not met"

// Store is the rule, task and log access the runner needs. store.Store satisfies it.
type Store interface {
	TaskWriter
	ListActiveRules(ctx context.Context, projectID string) ([]store.Rule, error)
	GetTask(ctx context.Context, taskID string) (*store.Task, error)
	CreateRuleExecution(ctx context.Context, e store.RuleExecution) error
}

// Notifier receives a one-line alert when a rule fails. capabilities.SlackWebhook satisfies it.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Runner evaluates a project's active rules for one trigger. Rules are read from the store on
// every call; nothing is cached between calls.
type Runner struct {
	Store    Store
	Executor *Executor
	Notifier Notifier // optional
}

// NewRunner returns a runner whose executor writes to the same store.
func NewRunner(st Store) *Runner {
	return &Runner{Store: st, Executor: NewExecutor(st)}
}

// Outcome is the result of one rule for one event.
type Outcome struct {
	RuleID  string
	Status  string
	Message string
}

// Run executes every active rule of ec.ProjectID whose trigger equals trig, sequentially in
// creation order. A rule's failure never stops later rules, and nothing is returned to the
// caller: outcomes are visible only through the execution log.
func (r *Runner) Run(ctx context.Context, trig Trigger, ec ExecContext) {
	_ = r.run(ctx, trig, ec)
}

// run is Run, returning the per-rule outcomes.
func (r *Runner) run(ctx context.Context, trig Trigger, ec ExecContext) []Outcome {
	start := time.Now()
	ctx, span := otel.Tracer().Start(ctx, "automation.run", trace.WithAttributes(
		otel.AttrTrigger.String(string(trig)),
		otel.AttrProject.String(ec.ProjectID),
		otel.AttrTaskID.String(ec.TaskID),
	))
	defer func() {
		span.End()
		otel.RecordRuleRun(ctx, string(trig), time.Since(start))
	}()

	rules, err := r.Store.ListActiveRules(ctx, ec.ProjectID)
	if err != nil {
		slog.Error("automation: list rules failed", "project_id", ec.ProjectID, "trigger", trig, "err", err)
		span.RecordError(err)
		return nil
	}

	var outcomes []Outcome
	for _, rule := range rules {
		if rule.TriggerType != string(trig) {
			continue
		}
		out := r.runRule(ctx, rule, ec)
		r.record(ctx, rule, ec, out)
		otel.RecordRuleExecution(ctx, string(trig), out.Status)
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// runRule evaluates and executes one rule inside its own fault boundary.
func (r *Runner) runRule(ctx context.Context, rule store.Rule, ec ExecContext) (out Outcome) {
	ctx, span := otel.Tracer().Start(ctx, "automation.rule", trace.WithAttributes(otel.AttrRuleID.String(rule.RuleID)))
	out.RuleID = rule.RuleID
	defer func() {
		if p := recover(); p != nil {
			slog.Error("automation: rule panicked", "rule_id", rule.RuleID, "task_id", ec.TaskID, "panic", p)
			out.Status = models.ExecutionFailed
			out.Message = fmt.Sprintf("panic: %v", p)
		}
		var err error
		if out.Status == models.ExecutionFailed {
			err = errors.New(out.Message)
		}
		otel.EndSpan(span, err)
	}()

	fail := func(err error) Outcome {
		out.Status = models.ExecutionFailed
		out.Message = err.Error()
		return out
	}

	group, err := ParseConditionGroup(rule.Conditions)
	if err != nil {
		return fail(err)
	}
	actions, err := ParseActions(rule.Actions)
	if err != nil {
		return fail(err)
	}
	task, err := r.Store.GetTask(ctx, ec.TaskID)
	if err != nil {
		return fail(fmt.Errorf("load task: %w", err))
	}
	if task == nil {
		return fail(errors.New("task not found"))
	}
	if !Evaluate(group, SnapshotFromTask(task)) {
		out.Status = models.ExecutionSkipped
		out.Message = MsgConditionsNotMet
		return out
	}
	for _, a := range actions {
		if err := r.Executor.Execute(ctx, a, ec); err != nil {
			return fail(err)
		}
	}
	out.Status = models.ExecutionSuccess
	return out
}

// record appends the execution-log row. Failures are logged and swallowed.
func (r *Runner) record(ctx context.Context, rule store.Rule, ec ExecContext, out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("automation: execution log panicked", "rule_id", rule.RuleID, "panic", p)
		}
	}()
	var msg *string
	if out.Message != "" {
		m := out.Message
		msg = &m
	}
	err := r.Store.CreateRuleExecution(ctx, store.RuleExecution{
		RuleID:  rule.RuleID,
		TaskID:  ec.TaskID,
		Status:  out.Status,
		Message: msg,
	})
	if err != nil {
		slog.Warn("automation: write execution log failed", "rule_id", rule.RuleID, "task_id", ec.TaskID, "status", out.Status, "err", err)
	}
	slog.Info("automation: rule executed", "rule_id", rule.RuleID, "rule", rule.Name, "task_id", ec.TaskID, "status", out.Status)

	if out.Status == models.ExecutionFailed && r.Notifier != nil {
		text := fmt.Sprintf("Automation rule %q failed on task %s: %s", rule.Name, ec.TaskID, out.Message)
		if err := r.Notifier.Notify(ctx, text); err != nil {
			slog.Warn("automation: failure alert not sent", "rule_id", rule.RuleID, "err", err)
		}
	}
}

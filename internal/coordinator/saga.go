// Package coordinator runs a sequence of compensatable steps as a saga.
//
// The order build uses it to make "persist order, reserve each line, clear
// cart" atomic at the business level: if any step fails, every step that
// already succeeded is compensated in reverse order before the error
// surfaces, so a failed build leaves no order and no debited stock behind.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/karigari/order-engine/internal/coordinator/buildlog"
)

// Step is a single unit of work with a compensating action to undo it.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Orchestrator runs the steps of one saga execution.
type Orchestrator struct {
	sagaID string
	steps  []Step
	log    buildlog.Repository // nil-safe: logging skipped when nil
}

// NewOrchestrator builds a saga for the given id. The order number is used
// as the saga id so the log joins with business data and the trace.
func NewOrchestrator(sagaID string, steps []Step, log buildlog.Repository) *Orchestrator {
	return &Orchestrator{sagaID: sagaID, steps: steps, log: log}
}

// Start runs the steps sequentially. On the first failure it compensates all
// previously successful steps (LIFO) and returns the failing step's error
// unchanged, so callers can inspect it with errors.As.
func (o *Orchestrator) Start(ctx context.Context, payload string) error {
	o.record(ctx, buildlog.StatusStarted, "", payload, nil)

	var done []Step
	for _, step := range o.steps {
		slog.DebugContext(ctx, "executing saga step", "saga_id", o.sagaID, "step", step.Name())

		if err := step.Execute(ctx); err != nil {
			slog.ErrorContext(ctx, "saga step failed, rolling back",
				"saga_id", o.sagaID, "step", step.Name(), "error", err)

			errs := []string{fmt.Sprintf("%s: %v", step.Name(), err)}
			o.record(ctx, buildlog.StatusCompensating, step.Name(), "", errs)

			errs = append(errs, o.rollback(ctx, done)...)
			o.record(ctx, buildlog.StatusFailed, step.Name(), "", errs)
			return err
		}

		done = append(done, step)
		o.record(ctx, buildlog.StatusStepDone, step.Name(), "", nil)
	}

	o.record(ctx, buildlog.StatusCompleted, "", "", nil)
	return nil
}

// rollback compensates the given steps in reverse order. Compensation errors
// are collected, not propagated: every compensation must be attempted.
func (o *Orchestrator) rollback(ctx context.Context, steps []Step) []string {
	var errs []string
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		slog.InfoContext(ctx, "compensating saga step", "saga_id", o.sagaID, "step", step.Name())

		if err := step.Compensate(ctx); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: failed to compensate saga step",
				"saga_id", o.sagaID, "step", step.Name(), "error", err)
			errs = append(errs, fmt.Sprintf("compensate %s: %v", step.Name(), err))
		}
	}
	return errs
}

func (o *Orchestrator) record(ctx context.Context, status buildlog.Status, step, payload string, errs []string) {
	if o.log == nil {
		return
	}
	entry := buildlog.NewEntry(ctx, o.sagaID, status, step, payload, errs)
	if err := o.log.Save(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "failed to persist build log entry",
			"saga_id", o.sagaID, "status", status, "error", err)
	}
}

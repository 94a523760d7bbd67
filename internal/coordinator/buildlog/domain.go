// Package buildlog defines the durable audit trail of order-build sagas.
//
// Every transition of a build (start, each step, completion, compensation,
// failure) is appended as an immutable row. It serves two purposes:
//
//  1. Observability: the trace_id column joins a build to its distributed
//     trace, and the row sequence shows exactly how far a build got.
//
//  2. Reconciliation: after a crash mid-build, the last row for an order
//     number tells an operator whether reservations may be outstanding.
package buildlog

import "time"

// Status is the lifecycle state of a build saga execution.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// Entry is a single row in the order_build_logs table.
type Entry struct {
	// OrderNumber identifies the build; it doubles as the saga id so log
	// rows join directly with business data.
	OrderNumber string

	Status Status

	// CurrentStep is the step that just executed or failed.
	CurrentStep string

	// Payload is the JSON-serialised build input, stored once on STARTED.
	Payload string

	// ErrorMessages is a JSON array of failure details, one per failed or
	// compensated step.
	ErrorMessages string

	// TraceID / SpanID come from the OTel span active when the row was
	// written (W3C hex), empty when no span is active.
	TraceID string
	SpanID  string

	CreatedAt time.Time
}

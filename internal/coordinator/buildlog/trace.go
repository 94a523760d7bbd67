package buildlog

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// NewEntry builds a log entry with trace identifiers taken from the span
// active in ctx. Without an active span (unit tests), both ids stay empty.
func NewEntry(ctx context.Context, orderNumber string, status Status, currentStep, payload string, errs []string) *Entry {
	sc := trace.SpanFromContext(ctx).SpanContext()

	traceID, spanID := "", ""
	if sc.IsValid() {
		traceID = sc.TraceID().String()
		spanID = sc.SpanID().String()
	}

	errJSON := "[]"
	if len(errs) > 0 {
		if b, err := json.Marshal(errs); err == nil {
			errJSON = string(b)
		}
	}

	return &Entry{
		OrderNumber:   orderNumber,
		Status:        status,
		CurrentStep:   currentStep,
		Payload:       payload,
		ErrorMessages: errJSON,
		TraceID:       traceID,
		SpanID:        spanID,
		CreatedAt:     time.Now().UTC(),
	}
}

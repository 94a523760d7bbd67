package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karigari/order-engine/internal/coordinator/buildlog"
)

type fakeStep struct {
	name          string
	executeErr    error
	compensateErr error

	trail *[]string
}

func (s *fakeStep) Name() string { return s.name }

func (s *fakeStep) Execute(context.Context) error {
	*s.trail = append(*s.trail, "exec:"+s.name)
	return s.executeErr
}

func (s *fakeStep) Compensate(context.Context) error {
	*s.trail = append(*s.trail, "comp:"+s.name)
	return s.compensateErr
}

type memLog struct {
	entries []*buildlog.Entry
	saveErr error
}

func (m *memLog) Save(_ context.Context, e *buildlog.Entry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLog) Latest(_ context.Context, orderNumber string) (*buildlog.Entry, error) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].OrderNumber == orderNumber {
			return m.entries[i], nil
		}
	}
	return nil, nil
}

func (m *memLog) statuses() []buildlog.Status {
	out := make([]buildlog.Status, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Status
	}
	return out
}

func steps(trail *[]string, s ...*fakeStep) []Step {
	out := make([]Step, len(s))
	for i, step := range s {
		step.trail = trail
		out[i] = step
	}
	return out
}

func TestStartRunsStepsInOrder(t *testing.T) {
	var trail []string
	log := &memLog{}
	o := NewOrchestrator("ORD-1", steps(&trail,
		&fakeStep{name: "a"},
		&fakeStep{name: "b"},
		&fakeStep{name: "c"},
	), log)

	require.NoError(t, o.Start(context.Background(), `{"items":[]}`))
	assert.Equal(t, []string{"exec:a", "exec:b", "exec:c"}, trail)

	assert.Equal(t, []buildlog.Status{
		buildlog.StatusStarted,
		buildlog.StatusStepDone,
		buildlog.StatusStepDone,
		buildlog.StatusStepDone,
		buildlog.StatusCompleted,
	}, log.statuses())
	assert.Equal(t, `{"items":[]}`, log.entries[0].Payload)
	assert.Equal(t, "ORD-1", log.entries[0].OrderNumber)
}

func TestStartCompensatesInReverseOnFailure(t *testing.T) {
	var trail []string
	boom := errors.New("boom")
	log := &memLog{}
	o := NewOrchestrator("ORD-1", steps(&trail,
		&fakeStep{name: "a"},
		&fakeStep{name: "b"},
		&fakeStep{name: "c", executeErr: boom},
		&fakeStep{name: "d"},
	), log)

	err := o.Start(context.Background(), "")
	assert.ErrorIs(t, err, boom)

	// d never ran; a and b compensated last-in first-out.
	assert.Equal(t, []string{"exec:a", "exec:b", "exec:c", "comp:b", "comp:a"}, trail)

	assert.Equal(t, []buildlog.Status{
		buildlog.StatusStarted,
		buildlog.StatusStepDone,
		buildlog.StatusStepDone,
		buildlog.StatusCompensating,
		buildlog.StatusFailed,
	}, log.statuses())

	failed := log.entries[len(log.entries)-1]
	assert.Equal(t, "c", failed.CurrentStep)
	assert.Contains(t, failed.ErrorMessages, "boom")
}

func TestStartReturnsStepErrorUnwrapped(t *testing.T) {
	var trail []string
	sentinel := errors.New("insufficient stock")
	o := NewOrchestrator("ORD-1", steps(&trail,
		&fakeStep{name: "a", executeErr: sentinel},
	), nil)

	err := o.Start(context.Background(), "")
	// Callers match on the step's error, so it must come back unchanged.
	assert.Same(t, sentinel, err)
}

func TestStartFirstStepFailureCompensatesNothing(t *testing.T) {
	var trail []string
	o := NewOrchestrator("ORD-1", steps(&trail,
		&fakeStep{name: "a", executeErr: errors.New("boom")},
		&fakeStep{name: "b"},
	), nil)

	require.Error(t, o.Start(context.Background(), ""))
	assert.Equal(t, []string{"exec:a"}, trail)
}

func TestStartCompensationErrorsAreCollectedNotFatal(t *testing.T) {
	var trail []string
	log := &memLog{}
	boom := errors.New("boom")
	o := NewOrchestrator("ORD-1", steps(&trail,
		&fakeStep{name: "a", compensateErr: errors.New("comp a failed")},
		&fakeStep{name: "b"},
		&fakeStep{name: "c", executeErr: boom},
	), log)

	err := o.Start(context.Background(), "")
	// The original failure surfaces, not the compensation error.
	assert.ErrorIs(t, err, boom)

	// Every compensation was still attempted.
	assert.Equal(t, []string{"exec:a", "exec:b", "exec:c", "comp:b", "comp:a"}, trail)

	failed := log.entries[len(log.entries)-1]
	assert.Contains(t, failed.ErrorMessages, "comp a failed")
}

func TestStartWithoutLog(t *testing.T) {
	var trail []string
	o := NewOrchestrator("ORD-1", steps(&trail, &fakeStep{name: "a"}), nil)
	assert.NoError(t, o.Start(context.Background(), ""))
}

func TestStartToleratesLogFailures(t *testing.T) {
	var trail []string
	o := NewOrchestrator("ORD-1",
		steps(&trail, &fakeStep{name: "a"}),
		&memLog{saveErr: errors.New("db gone")})

	assert.NoError(t, o.Start(context.Background(), ""))
	assert.Equal(t, []string{"exec:a"}, trail)
}

func TestNewEntryWithoutActiveSpan(t *testing.T) {
	ctx := context.Background()
	e := buildlog.NewEntry(ctx, "ORD-1", buildlog.StatusFailed, "step", "", []string{"boom"})

	assert.Empty(t, e.TraceID)
	assert.Empty(t, e.SpanID)
	assert.Equal(t, `["boom"]`, e.ErrorMessages)
	assert.False(t, e.CreatedAt.IsZero())

	empty := buildlog.NewEntry(ctx, "ORD-1", buildlog.StatusStarted, "", "", nil)
	assert.Equal(t, "[]", empty.ErrorMessages)
}

package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() RetryProfile {
	return RetryProfile{MaxAttempts: 5, BaseDelay: time.Millisecond}
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	mem := NewMemoryProvider(Column{ID: "c1", Title: "Backlog", Position: 1})
	mem.FailNext = 3

	wrapped := WithRetryProfile(mem, testProfile())
	cols, err := wrapped.GetColumns(context.Background())
	require.NoError(t, err)
	assert.Len(t, cols, 1)
	assert.Equal(t, 4, mem.Calls, "three failures plus the success")
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	mem := NewMemoryProvider(Column{ID: "c1", Title: "Backlog", Position: 1})
	mem.FailNext = 100

	wrapped := WithRetryProfile(mem, testProfile())
	_, err := wrapped.GetColumns(context.Background())
	require.Error(t, err)
	assert.Equal(t, 5, mem.Calls)
}

func TestRetryDoesNotRepeatPermanentErrors(t *testing.T) {
	mem := NewMemoryProvider(Column{ID: "c1", Title: "Backlog", Position: 1})
	wrapped := WithRetryProfile(mem, testProfile())

	_, err := wrapped.GetTask(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, mem.Calls, "not-found must not be retried")
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	mem := NewMemoryProvider(Column{ID: "c1", Title: "Backlog", Position: 1})
	mem.FailNext = 100
	wrapped := WithRetryProfile(mem, testProfile())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := wrapped.GetColumns(ctx)
	require.Error(t, err)
	assert.LessOrEqual(t, mem.Calls, 1)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", ErrNotFound, false},
		{"column not found", ErrColumnNotFound, false},
		{"validation", ErrValidation, false},
		{"ambiguous", &AmbiguousError{Ref: "x"}, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"transient", assert.AnError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.err))
		})
	}
}

func TestRetryToleratesZeroBaseDelay(t *testing.T) {
	mem := NewMemoryProvider(Column{ID: "c1", Title: "Backlog", Position: 1})
	mem.FailNext = 1

	wrapped := WithRetryProfile(mem, RetryProfile{MaxAttempts: 3, BaseDelay: 0})
	cols, err := wrapped.GetColumns(context.Background())
	require.NoError(t, err)
	assert.Len(t, cols, 1)
	assert.Equal(t, 2, mem.Calls)
}

package resilient_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/resilient-go/resilient-go"
	"github.com/resilient-go/resilient-go/internal/testutil"
	"github.com/resilient-go/resilient-go/retrypolicy"
)

var errTransient = errors.New("transient")

// TestAsyncResultOnCompleteAsyncDispatchesThroughScheduler confirms a listener registered via OnCompleteAsync, which is
// dispatched through the Scheduler, fires once the execution completes, using a Waiter instead of an arbitrary
// sleep-then-check to avoid a race between registration and publication.
func TestAsyncResultOnCompleteAsyncDispatchesThroughScheduler(t *testing.T) {
	waiter := testutil.NewWaiter()
	var fired bool

	attempts := 0
	rp := retrypolicy.Builder().WithMaxAttempts(2).WithDelay(50 * time.Millisecond).Build()
	future := resilient.With[any](rp).GetAsync(func() (any, error) {
		attempts++
		if attempts == 1 {
			return nil, errTransient
		}
		return "ok", nil
	})

	future.OnCompleteAsync(func(_ resilient.ExecutionDoneEvent[any]) {
		fired = true
		waiter.Resume()
	})

	waiter.Await(1, time.Second)
	assert.True(t, fired)

	result, err := future.Get()
	assert.Nil(t, err)
	assert.Equal(t, "ok", result)
}

// TestAsyncResultListenerRegisteredAfterCompletion confirms a listener registered once the terminal outcome has
// already been published still fires exactly once, rather than being silently dropped.
func TestAsyncResultListenerRegisteredAfterCompletion(t *testing.T) {
	future := resilient.With[any](retrypolicy.Builder().WithMaxAttempts(1).Build()).
		GetAsync(func() (any, error) { return "ok", nil })

	result, err := future.Get()
	assert.Nil(t, err)
	assert.Equal(t, "ok", result)

	completed := 0
	succeeded := 0
	failed := 0
	future.OnComplete(func(_ resilient.ExecutionDoneEvent[any]) { completed++ }).
		OnSuccess(func(_ resilient.ExecutionDoneEvent[any]) { succeeded++ }).
		OnFailure(func(_ resilient.ExecutionDoneEvent[any]) { failed++ })

	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, failed)
}

// TestAsyncResultGetWithTimeoutBlocksForTheFullTimeout uses the real wall clock (via Timed) to confirm
// GetWithTimeout actually waits out the timeout rather than returning early, when the execution never completes
// within it.
func TestAsyncResultGetWithTimeoutBlocksForTheFullTimeout(t *testing.T) {
	rp := retrypolicy.Builder().WithMaxAttempts(-1).WithDelay(time.Hour).Build()
	future := resilient.With[any](rp).GetAsync(func() (any, error) {
		return nil, errTransient
	})

	var err error
	elapsed := testutil.Timed(func() {
		_, err = future.GetWithTimeout(30 * time.Millisecond)
	})

	assert.ErrorIs(t, err, resilient.ErrTimeout)
	assert.True(t, elapsed >= 30*time.Millisecond, "elapsed %s should be at least the timeout", elapsed)

	future.Cancel()
}

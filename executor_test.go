package resilient_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/resilient-go/resilient-go"
	"github.com/resilient-go/resilient-go/circuitbreaker"
	"github.com/resilient-go/resilient-go/fallback"
	"github.com/resilient-go/resilient-go/internal/testutil"
	"github.com/resilient-go/resilient-go/retrypolicy"
)

var errTest = errors.New("test")

func TestGetSync(t *testing.T) {
	result, err := resilient.With[string](retrypolicy.BuilderForResult[string]().WithMaxAttempts(1).Build()).
		Get(func() (string, error) { return "ok", nil })

	assert.Nil(t, err)
	assert.Equal(t, "ok", result)
}

func TestGetAsync(t *testing.T) {
	future := resilient.With[string](retrypolicy.BuilderForResult[string]().WithMaxAttempts(1).Build()).
		GetAsync(func() (string, error) { return "ok", nil })

	result, err := future.Get()

	assert.Nil(t, err)
	assert.Equal(t, "ok", result)
}

// Composition order: resilient.With(fallback, retryPolicy) must wrap as Fallback(RetryPolicy(op)), so the retry
// policy retries first and the fallback only substitutes once retries are exhausted.
func TestCompositionOrder(t *testing.T) {
	attempts := 0
	rp := retrypolicy.BuilderForResult[string]().WithMaxAttempts(2).Build()
	fb := fallback.WithResult("fallback-value")

	result, err := resilient.With[string](fb, rp).Get(func() (string, error) {
		attempts++
		return "", errTest
	})

	assert.Nil(t, err)
	assert.Equal(t, "fallback-value", result)
	assert.Equal(t, 2, attempts)
}

func TestComposeIsEquivalentToWith(t *testing.T) {
	rp := retrypolicy.BuilderForResult[string]().WithMaxAttempts(2).Build()
	fb := fallback.WithResult("fallback-value")

	result, err := resilient.With[string](fb).Compose(rp).Get(func() (string, error) {
		return "", errTest
	})

	assert.Nil(t, err)
	assert.Equal(t, "fallback-value", result)
}

func TestContextCancellationAbortsWait(t *testing.T) {
	rp := retrypolicy.Builder().WithMaxAttempts(-1).WithDelay(time.Hour).Build()

	_, err := resilient.With[any](rp).
		WithContext(testutil.ContextWithCancel(10 * time.Millisecond)()).
		Get(func() (any, error) {
			return nil, errTest
		})

	assert.ErrorIs(t, err, resilient.ErrExecutionCancelled)
}

// TestPreCancelledContextShortCircuits confirms an already-cancelled Context prevents the operation from being
// invoked at all, rather than being invoked and then discarded.
func TestPreCancelledContextShortCircuits(t *testing.T) {
	attempts := 0
	rp := retrypolicy.Builder().WithMaxAttempts(3).Build()

	_, err := resilient.With[any](rp).
		WithContext(testutil.CanceledContextFn()).
		Get(func() (any, error) {
			attempts++
			return nil, nil
		})

	assert.ErrorIs(t, err, resilient.ErrExecutionCancelled)
	assert.Equal(t, 0, attempts)
}

func TestOnSuccessOnFailureNotification(t *testing.T) {
	var successEvents, failureEvents int

	executor := resilient.NewExecutor[any](retrypolicy.Builder().WithMaxAttempts(1).Build()).
		OnSuccess(func(_ resilient.ExecutionDoneEvent[any]) { successEvents++ }).
		OnFailure(func(_ resilient.ExecutionDoneEvent[any]) { failureEvents++ })

	_, _ = executor.Get(func() (any, error) { return nil, nil })
	_, _ = executor.Get(func() (any, error) { return nil, errTest })

	assert.Equal(t, 1, successEvents)
	assert.Equal(t, 1, failureEvents)
}

func TestBreakerRejectsWithoutInvokingOperation(t *testing.T) {
	invoked := false
	breaker := circuitbreaker.OfDefaults[any]()
	breaker.Open()

	_, err := resilient.With[any](breaker).Get(func() (any, error) {
		invoked = true
		return nil, nil
	})

	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.False(t, invoked)
}

// TestExecutionStartTimeUsesInjectedClock confirms WithClock is actually consulted for attempt timestamps, rather
// than always stamping with the real wall clock.
func TestExecutionStartTimeUsesInjectedClock(t *testing.T) {
	clock := &testutil.TestClock{CurrentTime: 12345}
	var gotStart time.Time

	_, _ = resilient.With[any](retrypolicy.Builder().WithMaxAttempts(1).Build()).
		WithClock(clock).
		GetWithExecution(func(exec resilient.Execution[any]) (any, error) {
			gotStart = exec.StartTime
			return nil, nil
		})

	assert.Equal(t, time.Unix(0, 12345), gotStart)
}

func TestDuplicatePolicyTypeRejected(t *testing.T) {
	rp1 := retrypolicy.Builder().Build()
	rp2 := retrypolicy.Builder().Build()

	defer func() {
		r := recover()
		cfgErr, ok := r.(*resilient.ConfigurationError)
		if assert.True(t, ok, "expected a *ConfigurationError panic") {
			assert.Contains(t, cfgErr.Error(), "already been configured")
		}
	}()

	resilient.With[any](rp1, rp2)
	t.Fatal("expected a panic")
}

func TestAsyncResultCancel(t *testing.T) {
	rp := retrypolicy.Builder().WithMaxAttempts(-1).WithDelay(time.Hour).Build()

	future := resilient.With[any](rp).GetAsync(func() (any, error) {
		return nil, errTest
	})

	assert.True(t, future.Cancel())

	_, err := future.Get()
	assert.ErrorIs(t, err, resilient.ErrExecutionCancelled)
}

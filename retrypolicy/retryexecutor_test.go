package retrypolicy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/resilient-go/resilient-go"
	"github.com/resilient-go/resilient-go/internal/testutil"
)

func TestAdjustForBackoff(t *testing.T) {
	config := &retryPolicyConfig[any]{maxDelay: time.Second, delayFactor: 2}

	// First attempt never backs off, since there's no previous delay to double.
	exec := &resilient.Execution[any]{ExecutionStats: resilient.ExecutionStats{Attempts: 1}}
	assert.Equal(t, 100*time.Millisecond, adjustForBackoff(config, exec, 100*time.Millisecond))

	exec = &resilient.Execution[any]{ExecutionStats: resilient.ExecutionStats{Attempts: 2}}
	assert.Equal(t, 200*time.Millisecond, adjustForBackoff(config, exec, 100*time.Millisecond))

	// Backoff is capped at maxDelay.
	assert.Equal(t, time.Second, adjustForBackoff(config, exec, 800*time.Millisecond))
}

func TestAdjustForMaxDuration(t *testing.T) {
	config := &retryPolicyConfig[any]{maxDuration: time.Second}

	assert.Equal(t, 400*time.Millisecond, adjustForMaxDuration(config, 400*time.Millisecond, 500*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, adjustForMaxDuration(config, 400*time.Millisecond, 900*time.Millisecond))
	assert.Equal(t, time.Duration(0), adjustForMaxDuration(config, 400*time.Millisecond, 2*time.Second))
}

func TestGetFixedOrRandomDelay(t *testing.T) {
	fixed := Builder().WithDelay(time.Second).Build().(*retryPolicy[any])
	assert.Equal(t, time.Second, getFixedOrRandomDelay(fixed.config, 0))

	random := Builder().WithRandomDelay(10*time.Millisecond, 100*time.Millisecond).Build().(*retryPolicy[any])
	for i := 0; i < 10; i++ {
		delay := getFixedOrRandomDelay(random.config, 0)
		assert.GreaterOrEqual(t, delay, 10*time.Millisecond)
		assert.Less(t, delay, 100*time.Millisecond)
	}
}

func TestRetryUntilSuccess(t *testing.T) {
	failures := 2
	attempts := 0

	rp := Builder().WithMaxAttempts(5).Build()
	err := resilient.With[any](rp).Run(func() error {
		attempts++
		if attempts <= failures {
			return errConnection
		}
		return nil
	})

	assert.Nil(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetriesExceeded(t *testing.T) {
	attempts := 0

	rp := Builder().WithMaxAttempts(3).Build()
	err := resilient.With[any](rp).Run(func() error {
		attempts++
		return errConnection
	})

	assert.ErrorIs(t, err, errConnection)
	assert.Equal(t, 3, attempts)
}

func TestAbortTakesPrecedenceOverRetry(t *testing.T) {
	attempts := 0

	rp := Builder().WithMaxAttempts(5).AbortOn(errInvalidArgument).Build()
	err := resilient.With[any](rp).Run(func() error {
		attempts++
		return errInvalidArgument
	})

	assert.ErrorIs(t, err, errInvalidArgument)
	assert.Equal(t, 1, attempts)
}

func TestOnRetryScheduledCarriesDelay(t *testing.T) {
	var gotDelay int64 = -1
	attempts := 0

	rp := Builder().
		WithMaxAttempts(2).
		WithDelay(50 * time.Millisecond).
		OnRetryScheduled(func(e resilient.ExecutionScheduledEvent[any]) {
			gotDelay = e.Delay
		}).
		Build()

	err := resilient.With[any](rp).Run(func() error {
		attempts++
		return errConnection
	})

	assert.ErrorIs(t, err, errConnection)
	assert.Equal(t, testutil.MillisToNanos(50), gotDelay)
}

// TestListenerCountsWithResultCondition walks an operation through two errors and two handled results before a
// success, counting every listener category along the way.
func TestListenerCountsWithResultCondition(t *testing.T) {
	outcomes := []func() (bool, error){
		func() (bool, error) { return false, errConnection },
		func() (bool, error) { return false, errConnection },
		func() (bool, error) { return false, nil },
		func() (bool, error) { return false, nil },
		func() (bool, error) { return true, nil },
	}
	attempts := 0
	failedAttempts := 0

	rp := BuilderForResult[bool]().
		HandleResult(false).
		WithMaxAttempts(-1).
		OnFailedAttempt(func(_ resilient.ExecutionAttemptedEvent[bool]) { failedAttempts++ }).
		Build()

	var successes, failures, completes int
	result, err := resilient.NewExecutor[bool](rp).
		OnSuccess(func(_ resilient.ExecutionDoneEvent[bool]) { successes++ }).
		OnFailure(func(_ resilient.ExecutionDoneEvent[bool]) { failures++ }).
		OnComplete(func(_ resilient.ExecutionDoneEvent[bool]) { completes++ }).
		Get(func() (bool, error) {
			attempts++
			return outcomes[attempts-1]()
		})

	assert.Nil(t, err)
	assert.True(t, result)
	assert.Equal(t, 5, attempts)
	assert.Equal(t, 4, failedAttempts)
	assert.Equal(t, 1, successes)
	assert.Equal(t, 0, failures)
	assert.Equal(t, 1, completes)
}

// TestListenerCountsWhenAttemptsExhaust is the failing counterpart: the same operation capped at 3 attempts ends on
// a handled result, so the terminal outcome is a failure even though no error is present.
func TestListenerCountsWhenAttemptsExhaust(t *testing.T) {
	attempts := 0
	failedAttempts := 0
	retriesExceeded := 0

	rp := BuilderForResult[bool]().
		HandleResult(false).
		WithMaxAttempts(3).
		OnFailedAttempt(func(_ resilient.ExecutionAttemptedEvent[bool]) { failedAttempts++ }).
		OnRetriesExceeded(func(_ resilient.ExecutionDoneEvent[bool]) { retriesExceeded++ }).
		Build()

	var successes, failures int
	result, err := resilient.NewExecutor[bool](rp).
		OnSuccess(func(_ resilient.ExecutionDoneEvent[bool]) { successes++ }).
		OnFailure(func(_ resilient.ExecutionDoneEvent[bool]) { failures++ }).
		Get(func() (bool, error) {
			attempts++
			if attempts <= 2 {
				return false, errConnection
			}
			return false, nil
		})

	assert.Nil(t, err)
	assert.False(t, result)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, failedAttempts)
	assert.Equal(t, 1, retriesExceeded)
	assert.Equal(t, 0, successes)
	assert.Equal(t, 1, failures)
}

// TestRetrySyncAsyncParity drives the same policy through both the sync and async runner via the shared test
// harness, confirming the retry loop's attempt count and outcome are identical regardless of which runner drives it.
func TestRetrySyncAsyncParity(t *testing.T) {
	attempts := 0
	rp := BuilderForResult[string]().WithMaxAttempts(3).Build()

	testutil.Test[string](t).
		Setup(func() { attempts = 0 }).
		With(rp).
		Get(func(_ resilient.Execution[string]) (string, error) {
			attempts++
			if attempts < 2 {
				return "", errors.New("transient")
			}
			return "ok", nil
		}).
		AssertSuccess(2, "ok")
}

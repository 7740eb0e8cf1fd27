package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/resilient-go/resilient-go"
	"github.com/resilient-go/resilient-go/internal/testutil"
)

var _ CircuitBreaker[any] = &circuitBreaker[any]{}

func TestDefaultOpensAfterSingleFailure(t *testing.T) {
	breaker := OfDefaults[any]()

	breaker.RecordFailure()

	assert.True(t, breaker.IsOpen())
}

func TestStaysClosedBelowFailureThreshold(t *testing.T) {
	breaker := Builder[any]().WithFailureThreshold(NewCountBasedThreshold(3, 5)).Build()

	breaker.RecordFailure()
	breaker.RecordFailure()

	assert.True(t, breaker.IsClosed())
	assert.Equal(t, uint(2), breaker.GetFailureCount())
}

func TestOpensOnceCountThresholdReached(t *testing.T) {
	breaker := Builder[any]().WithFailureThreshold(NewCountBasedThreshold(3, 3)).Build()

	breaker.RecordSuccess()
	breaker.RecordFailure()
	breaker.RecordFailure()
	assert.True(t, breaker.IsClosed())

	// Wraps the ring buffer, overwriting the earlier success with a failure, reaching the threshold.
	breaker.RecordFailure()

	assert.True(t, breaker.IsOpen())
}

func TestOpensOnceRateThresholdReached(t *testing.T) {
	breaker := Builder[any]().
		WithFailureThreshold(NewRateBasedThreshold(50, 4, 0)).
		Build()

	breaker.RecordFailure()
	breaker.RecordFailure()
	breaker.RecordSuccess()
	breaker.RecordSuccess()

	assert.True(t, breaker.IsOpen())
	assert.Equal(t, uint(50), breaker.GetFailureRate())
}

func TestHalfOpenAdmitsUpToProbeBudget(t *testing.T) {
	breaker := Builder[any]().WithDelay(0).Build()

	breaker.RecordFailure()
	assert.True(t, breaker.IsOpen())

	// The delay has already elapsed (WithDelay(0)), so the next permit check transitions straight to half-open.
	// The default success window has capacity 1, so the probe budget admits exactly one concurrent probe.
	assert.True(t, breaker.TryAcquirePermit())
	assert.True(t, breaker.IsHalfOpen())
	assert.False(t, breaker.TryAcquirePermit())
}

func TestHalfOpenProbeBudgetMatchesSuccessThresholdingCapacity(t *testing.T) {
	breaker := Builder[any]().WithDelay(0).WithSuccessThreshold(2, 3).Build()

	breaker.RecordFailure()
	breaker.TryAcquirePermit()
	assert.True(t, breaker.IsHalfOpen())

	// One probe was already admitted by the transition itself; two more fit the budget of 3.
	assert.True(t, breaker.TryAcquirePermit())
	assert.True(t, breaker.TryAcquirePermit())
	assert.False(t, breaker.TryAcquirePermit())

	// Recording an outcome releases a permit for another probe.
	breaker.RecordSuccess()
	assert.True(t, breaker.TryAcquirePermit())
}

func TestHalfOpenClosesOnSuccessfulProbe(t *testing.T) {
	breaker := Builder[any]().WithDelay(0).Build()

	breaker.RecordFailure()
	breaker.TryAcquirePermit()
	assert.True(t, breaker.IsHalfOpen())

	breaker.RecordSuccess()

	assert.True(t, breaker.IsClosed())
}

func TestHalfOpenReopensOnFailedProbe(t *testing.T) {
	breaker := Builder[any]().WithDelay(0).Build()

	breaker.RecordFailure()
	breaker.TryAcquirePermit()
	assert.True(t, breaker.IsHalfOpen())

	breaker.RecordFailure()

	assert.True(t, breaker.IsOpen())
}

func TestHalfOpenWithSuccessThreshold(t *testing.T) {
	breaker := Builder[any]().
		WithDelay(0).
		WithSuccessThreshold(2, 3).
		Build()

	breaker.RecordFailure()
	breaker.TryAcquirePermit()
	assert.True(t, breaker.IsHalfOpen())

	breaker.RecordSuccess()
	assert.True(t, breaker.IsHalfOpen())

	breaker.RecordSuccess()
	assert.True(t, breaker.IsClosed())
}

func TestManualOpenCloseHalfOpen(t *testing.T) {
	breaker := OfDefaults[any]()

	breaker.Open()
	assert.True(t, breaker.IsOpen())

	breaker.HalfOpen()
	assert.True(t, breaker.IsHalfOpen())

	breaker.Close()
	assert.True(t, breaker.IsClosed())
}

func TestRemainingDelay(t *testing.T) {
	breaker := Builder[any]().WithDelay(time.Minute).Build()

	breaker.RecordFailure()

	assert.True(t, breaker.GetRemainingDelay() > 0)
	assert.True(t, breaker.GetRemainingDelay() <= time.Minute)
}

func TestOpenRejectsExecutions(t *testing.T) {
	breaker := OfDefaults[any]()
	breaker.Open()

	assert.False(t, breaker.TryAcquirePermit())
}

var errUpstream = errors.New("upstream unavailable")

// TestRejectsWithoutInvokingOperationSyncAsyncParity runs the same open breaker through both the sync and async
// executor via the shared test harness, confirming an open breaker rejects the attempt identically either way and
// the operation is never invoked.
func TestRejectsWithoutInvokingOperationSyncAsyncParity(t *testing.T) {
	breaker := OfDefaults[any]()
	invoked := false

	testutil.Test[any](t).
		Setup(func() {
			invoked = false
			breaker.Reset()
			breaker.Open()
		}).
		With(breaker).
		Get(func(_ resilient.Execution[any]) (any, error) {
			invoked = true
			return nil, nil
		}).
		AssertFailure(0, ErrOpen, func() {
			assert.False(t, invoked, "operation should not have been invoked while breaker is open")
		})
}

// TestHalfOpenTransitionHonorsInjectedClock uses an injected TestClock to assert that the open-to-half-open
// transition genuinely waits out the configured delay, without actually sleeping for it.
func TestHalfOpenTransitionHonorsInjectedClock(t *testing.T) {
	clock := &testutil.TestClock{}
	breaker := Builder[any]().WithClock(clock).WithDelay(time.Minute).Build()

	breaker.RecordFailure()
	assert.True(t, breaker.IsOpen())

	// No simulated time has passed yet, so the breaker must still reject.
	assert.False(t, breaker.TryAcquirePermit())
	assert.True(t, breaker.IsOpen())

	clock.Sleep(30 * time.Second)
	assert.False(t, breaker.TryAcquirePermit())

	clock.Sleep(30 * time.Second)
	assert.True(t, breaker.TryAcquirePermit())
	assert.True(t, breaker.IsHalfOpen())
}

func TestCustomFailureCondition(t *testing.T) {
	breaker := Builder[any]().Handle(errUpstream).Build()

	breaker.RecordError(errors.New("some other error"))
	assert.True(t, breaker.IsClosed())

	breaker.RecordError(errUpstream)
	assert.True(t, breaker.IsOpen())
}

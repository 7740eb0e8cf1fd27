package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resilient-go/resilient-go"
)

type ContextFn func() context.Context
type WhenRun[R any] func(execution resilient.Execution[R]) error
type WhenGet[R any] func(execution resilient.Execution[R]) (R, error)

type Resettable interface {
	Reset()
}

// Tester drives a test's policies/executor through both the sync and async runners and asserts that both produce the
// same attempts, result, error, and success/failure notification, matching this module's commitment that every
// policy's semantics are runner-agnostic.
type Tester[R any] struct {
	T        *testing.T
	SetupFn  func()
	Ctx      ContextFn
	Policies []resilient.Policy[R]
	Executor resilient.Executor[R]
	run      WhenRun[R]
	get      WhenGet[R]
}

func Test[R any](t *testing.T) *Tester[R] {
	return &Tester[R]{T: t}
}

func (t *Tester[R]) Setup(fn func()) *Tester[R] {
	t.SetupFn = fn
	return t
}

func (t *Tester[R]) Context(fn func() context.Context) *Tester[R] {
	t.Ctx = fn
	return t
}

// Reset registers Resettable stats (e.g. a circuit breaker's window) to clear before each of the sync/async runs, so
// the two runs don't see each other's recorded outcomes.
func (t *Tester[R]) Reset(stats ...Resettable) *Tester[R] {
	t.SetupFn = func() {
		for _, s := range stats {
			s.Reset()
		}
	}
	return t
}

func (t *Tester[R]) With(policies ...resilient.Policy[R]) *Tester[R] {
	t.Policies = policies
	return t
}

func (t *Tester[R]) WithExecutor(executor resilient.Executor[R]) *Tester[R] {
	t.Executor = executor
	return t
}

func (t *Tester[R]) Run(when WhenRun[R]) *Tester[R] {
	t.run = when
	return t
}

func (t *Tester[R]) Get(when WhenGet[R]) *Tester[R] {
	t.get = when
	return t
}

func (t *Tester[R]) AssertSuccess(expectedAttempts int, expectedResult R, then ...func()) {
	t.assertResult(expectedAttempts, expectedResult, nil, true, then...)
}

func (t *Tester[R]) AssertFailure(expectedAttempts int, expectedErr error, then ...func()) {
	t.assertResult(expectedAttempts, *new(R), expectedErr, false, then...)
}

func (t *Tester[R]) assertResult(expectedAttempts int, expectedResult R, expectedErr error, expectedSuccess bool, then ...func()) {
	t.T.Helper()
	if t.Executor == nil {
		t.Executor = resilient.NewExecutor[R](t.Policies...)
	}

	run := func(async bool) {
		executorFn, assertFn := PrepareTest[R](t.T, t.SetupFn, t.Ctx, t.Executor)
		executor := executorFn()

		var result R
		var err error
		if t.run != nil {
			if async {
				_, err = executor.RunWithExecutionAsync(t.run).Get()
			} else {
				err = executor.RunWithExecution(t.run)
			}
		} else {
			if async {
				result, err = executor.GetWithExecutionAsync(t.get).Get()
			} else {
				result, err = executor.GetWithExecution(t.get)
			}
		}

		assertFn(expectedAttempts, expectedResult, result, expectedErr, err, expectedSuccess, then...)
	}

	fmt.Println("Testing sync")
	run(false)

	fmt.Println("Testing async")
	run(true)
}

type AssertFunc[R any] func(expectedAttempts int, expectedResult R, result R, expectedErr error, err error, expectedSuccess bool, thens ...func())

// PrepareTest wires OnComplete/OnSuccess/OnFailure listeners onto executor so assertFn can verify exactly one fired,
// and returns a function that reruns setupFn (e.g. stats resets between sync/async) and returns that same executor,
// bound to a fresh Context when contextFn is set.
func PrepareTest[R any](t *testing.T, setupFn func(), contextFn ContextFn, executor resilient.Executor[R]) (executorFn func() resilient.Executor[R], assertFn AssertFunc[R]) {
	var doneEvent atomic.Pointer[resilient.ExecutionDoneEvent[R]]
	var onSuccessCalled atomic.Bool
	var onFailureCalled atomic.Bool

	executorFn = func() resilient.Executor[R] {
		if setupFn != nil {
			setupFn()
		}
		result := executor
		if contextFn != nil {
			if ctx := contextFn(); ctx != nil {
				result = result.WithContext(ctx)
			}
		}
		return result.OnComplete(func(e resilient.ExecutionDoneEvent[R]) {
			doneEvent.Store(&e)
		}).OnSuccess(func(e resilient.ExecutionDoneEvent[R]) {
			onSuccessCalled.Store(true)
		}).OnFailure(func(e resilient.ExecutionDoneEvent[R]) {
			onFailureCalled.Store(true)
		})
	}

	assertFn = func(expectedAttempts int, expectedResult R, result R, expectedErr error, err error, expectedSuccess bool, thens ...func()) {
		for _, then := range thens {
			if then != nil {
				then()
			}
		}
		if doneEvent.Load() != nil && expectedAttempts != -1 {
			assert.Equal(t, expectedAttempts, doneEvent.Load().Attempts, "expected attempts did not match")
		}
		assert.Equal(t, expectedResult, result, "expected result did not match")
		if expectedErr == nil {
			assert.Nil(t, err, "error should be nil")
		} else {
			assert.ErrorIs(t, err, expectedErr, "expected error did not match")
		}
		if expectedSuccess {
			assert.True(t, onSuccessCalled.Load(), "onSuccess should have been called")
			assert.False(t, onFailureCalled.Load(), "onFailure should not have been called")
		} else {
			assert.False(t, onSuccessCalled.Load(), "onSuccess should not have been called")
			assert.True(t, onFailureCalled.Load(), "onFailure should have been called")
		}
	}

	return executorFn, assertFn
}

package resilient

import (
	"context"
	"fmt"
	"reflect"
)

/*
Executor drives one or more composed policies around a user operation. Policies are composed in the order given to
With/NewExecutor: the first is outermost, the last is innermost, with the user operation at the very center. For
example:

	resilient.With(fallback, retryPolicy, breaker).Get(fn)

results in the following composition when handling fn's outcome:

	Fallback(RetryPolicy(CircuitBreaker(fn)))
*/
type Executor[R any] interface {
	// Compose returns a new Executor that wraps the given innerPolicy around the previously configured policies, on
	// the inside. For example:
	//
	//	resilient.With(fallback).Compose(retryPolicy).Compose(breaker)
	//
	// produces the same composition as resilient.With(fallback, retryPolicy, breaker).
	Compose(innerPolicy Policy[R]) Executor[R]

	// WithContext configures a Context that can be used to cancel executions.
	WithContext(ctx context.Context) Executor[R]

	// WithScheduler configures the Scheduler used by the async runner. Defaults to DefaultScheduler.
	WithScheduler(scheduler Scheduler) Executor[R]

	// WithClock configures the Clock used to stamp Execution.StartTime/AttemptStartTime. Defaults to SystemClock;
	// primarily useful in tests that need deterministic timestamps without sleeping.
	WithClock(clock Clock) Executor[R]

	// OnComplete registers a listener called when an execution completes, successfully or not.
	OnComplete(listener func(ExecutionDoneEvent[R])) Executor[R]

	// OnSuccess registers a listener called when an execution completes successfully, meaning the outermost composed
	// policy classified the final outcome as a success (an inner policy may have classified it as a failure first).
	OnSuccess(listener func(ExecutionDoneEvent[R])) Executor[R]

	// OnFailure registers a listener called when an execution completes and was not a success.
	OnFailure(listener func(ExecutionDoneEvent[R])) Executor[R]

	// Run executes fn synchronously until successful or until the composed policies are exhausted.
	Run(fn func() error) error

	// RunWithExecution is like Run but provides fn a read-only Execution snapshot.
	RunWithExecution(fn func(exec Execution[R]) error) error

	// Get executes fn synchronously until a successful result is returned or the composed policies are exhausted.
	Get(fn func() (R, error)) (R, error)

	// GetWithExecution is like Get but provides fn a read-only Execution snapshot.
	GetWithExecution(fn func(exec Execution[R]) (R, error)) (R, error)

	// RunAsync is the async counterpart of Run; it returns immediately with an AsyncResult handle.
	RunAsync(fn func() error) *AsyncResult[R]

	// RunWithExecutionAsync is the async counterpart of RunWithExecution.
	RunWithExecutionAsync(fn func(exec Execution[R]) error) *AsyncResult[R]

	// GetAsync is the async counterpart of Get.
	GetAsync(fn func() (R, error)) *AsyncResult[R]

	// GetWithExecutionAsync is the async counterpart of GetWithExecution.
	GetWithExecutionAsync(fn func(exec Execution[R]) (R, error)) *AsyncResult[R]
}

type executor[R any] struct {
	policies   []Policy[R]
	ctx        context.Context
	scheduler  Scheduler
	clock      Clock
	onComplete func(ExecutionDoneEvent[R])
	onSuccess  func(ExecutionDoneEvent[R])
	onFailure  func(ExecutionDoneEvent[R])
}

// With creates an Executor for result type R that handles failures according to the given policies, outermost
// first. Panics with a *ConfigurationError if the same policy type is given more than once.
func With[R any](outerPolicy Policy[R], innerPolicies ...Policy[R]) Executor[R] {
	e := &executor[R]{
		scheduler: DefaultScheduler,
		clock:     SystemClock,
	}
	e.policies = addPolicies[R](e.policies, append([]Policy[R]{outerPolicy}, innerPolicies...)...)
	return e
}

// NewExecutor is an alias for With, matching the constructor name used by this library's listener-registration
// helpers and tests.
func NewExecutor[R any](policies ...Policy[R]) Executor[R] {
	e := &executor[R]{
		scheduler: DefaultScheduler,
		clock:     SystemClock,
	}
	e.policies = addPolicies[R](e.policies, policies...)
	return e
}

func (e *executor[R]) Compose(innerPolicy Policy[R]) Executor[R] {
	e.policies = addPolicies[R](e.policies, innerPolicy)
	return e
}

// addPolicies appends next to existing, panicking with a *ConfigurationError if any policy in next has the same
// concrete type as one already present on the same builder chain.
func addPolicies[R any](existing []Policy[R], next ...Policy[R]) []Policy[R] {
	for _, p := range next {
		t := reflect.TypeOf(p)
		for _, already := range existing {
			if reflect.TypeOf(already) == t {
				panic(&ConfigurationError{Message: fmt.Sprintf("a policy of type %s has already been configured on this executor", t)})
			}
		}
		existing = append(existing, p)
	}
	return existing
}

func (e *executor[R]) WithContext(ctx context.Context) Executor[R] {
	e.ctx = ctx
	return e
}

func (e *executor[R]) WithScheduler(scheduler Scheduler) Executor[R] {
	e.scheduler = scheduler
	return e
}

func (e *executor[R]) WithClock(clock Clock) Executor[R] {
	e.clock = clock
	return e
}

func (e *executor[R]) OnComplete(listener func(ExecutionDoneEvent[R])) Executor[R] {
	e.onComplete = listener
	return e
}

func (e *executor[R]) OnSuccess(listener func(ExecutionDoneEvent[R])) Executor[R] {
	e.onSuccess = listener
	return e
}

func (e *executor[R]) OnFailure(listener func(ExecutionDoneEvent[R])) Executor[R] {
	e.onFailure = listener
	return e
}

func (e *executor[R]) policyExecutors() []PolicyExecutor[R] {
	executors := make([]PolicyExecutor[R], len(e.policies))
	for i, p := range e.policies {
		executors[i] = p.ToExecutor()
	}
	return executors
}

func (e *executor[R]) Run(fn func() error) error {
	return e.RunWithExecution(func(_ Execution[R]) error { return fn() })
}

func (e *executor[R]) RunWithExecution(fn func(exec Execution[R]) error) error {
	_, err := e.GetWithExecution(func(exec Execution[R]) (R, error) {
		var zero R
		return zero, fn(exec)
	})
	return err
}

func (e *executor[R]) Get(fn func() (R, error)) (R, error) {
	return e.GetWithExecution(func(_ Execution[R]) (R, error) { return fn() })
}

func (e *executor[R]) GetWithExecution(fn func(exec Execution[R]) (R, error)) (R, error) {
	exec := newExecutionInternal[R](e.ctx, e.clock, e.scheduler)
	result := runPipeline(e.policyExecutors(), 0, exec, fn, syncWait[R])
	e.notify(exec, result)
	return result.Result, result.Err
}

func (e *executor[R]) RunAsync(fn func() error) *AsyncResult[R] {
	return e.RunWithExecutionAsync(func(_ Execution[R]) error { return fn() })
}

func (e *executor[R]) RunWithExecutionAsync(fn func(exec Execution[R]) error) *AsyncResult[R] {
	return e.GetWithExecutionAsync(func(exec Execution[R]) (R, error) {
		var zero R
		return zero, fn(exec)
	})
}

func (e *executor[R]) GetAsync(fn func() (R, error)) *AsyncResult[R] {
	return e.GetWithExecutionAsync(func(_ Execution[R]) (R, error) { return fn() })
}

func (e *executor[R]) GetWithExecutionAsync(fn func(exec Execution[R]) (R, error)) *AsyncResult[R] {
	exec := newExecutionInternal[R](e.ctx, e.clock, e.scheduler)
	future := newAsyncResult[R](exec, e.scheduler)
	policies := e.policyExecutors()
	go func() {
		result := runPipeline(policies, 0, exec, fn, asyncWait[R](e.scheduler))
		e.notify(exec, result)
		future.publish(result)
	}()
	return future
}

func (e *executor[R]) notify(exec *ExecutionInternal[R], result *ExecutionResult[R]) {
	if e.onSuccess == nil && e.onFailure == nil && e.onComplete == nil {
		return
	}
	event := newExecutionDoneEvent(result, exec.ExecutionStats)
	if result.Success {
		if e.onSuccess != nil {
			e.onSuccess(event)
		}
	} else if e.onFailure != nil {
		e.onFailure(event)
	}
	if e.onComplete != nil {
		e.onComplete(event)
	}
}

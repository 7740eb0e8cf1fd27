package resilient

import (
	"sync"
	"time"
)

// AsyncResult is the future-like handle returned by an Executor's async methods. It publishes the terminal outcome
// to Done/Get before dispatching any listeners, so listeners never observe a handle that looks incomplete.
type AsyncResult[R any] struct {
	exec      *ExecutionInternal[R]
	done      chan struct{}
	scheduler Scheduler

	mtx    sync.Mutex
	result *ExecutionResult[R]

	completeListeners  []func(ExecutionDoneEvent[R])
	successListeners   []func(ExecutionDoneEvent[R])
	failureListeners   []func(ExecutionDoneEvent[R])
	completeListenersA []func(ExecutionDoneEvent[R])
	successListenersA  []func(ExecutionDoneEvent[R])
	failureListenersA  []func(ExecutionDoneEvent[R])
}

func newAsyncResult[R any](exec *ExecutionInternal[R], scheduler Scheduler) *AsyncResult[R] {
	return &AsyncResult[R]{
		exec:      exec,
		done:      make(chan struct{}),
		scheduler: scheduler,
	}
}

// Done returns a channel that is closed once the execution reaches a terminal outcome.
func (a *AsyncResult[R]) Done() <-chan struct{} {
	return a.done
}

// IsDone reports whether the execution has reached a terminal outcome.
func (a *AsyncResult[R]) IsDone() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// Get blocks until the execution reaches a terminal outcome and returns its result and error.
func (a *AsyncResult[R]) Get() (R, error) {
	<-a.done
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.result.Result, a.result.Err
}

// GetWithTimeout blocks until the execution reaches a terminal outcome or the timeout elapses, whichever comes
// first. A timeout returns ErrTimeout and does not cancel the underlying execution, which continues running; a
// later call to Get or GetWithTimeout can still observe its eventual outcome.
func (a *AsyncResult[R]) GetWithTimeout(timeout time.Duration) (R, error) {
	select {
	case <-a.done:
		a.mtx.Lock()
		defer a.mtx.Unlock()
		return a.result.Result, a.result.Err
	case <-time.After(timeout):
		var zero R
		return zero, ErrTimeout
	}
}

// Cancel marks the execution cancelled, cancels any pending scheduled task, and publishes a terminal cancellation
// outcome once the currently in-flight attempt, if any, observes the cancellation. It returns true unless the
// execution had already completed.
func (a *AsyncResult[R]) Cancel() bool {
	if a.IsDone() {
		return false
	}
	a.exec.Cancel()
	return true
}

// listenOn selects which terminal classification a listener fires for.
type listenOn int

const (
	listenAlways listenOn = iota
	listenSuccess
	listenFailure
)

func (k listenOn) matches(success bool) bool {
	return k == listenAlways || (k == listenSuccess) == success
}

// register appends listener to the slice at list, or, if the terminal outcome has already been published, dispatches
// it right away (inline, or through the Scheduler when async), so a listener registered late still fires exactly
// once.
func (a *AsyncResult[R]) register(list *[]func(ExecutionDoneEvent[R]), listener func(ExecutionDoneEvent[R]), on listenOn, async bool) *AsyncResult[R] {
	a.mtx.Lock()
	if a.result == nil {
		*list = append(*list, listener)
		a.mtx.Unlock()
		return a
	}
	result := a.result
	a.mtx.Unlock()

	if !on.matches(result.Success) {
		return a
	}
	event := newExecutionDoneEvent(result, a.exec.ExecutionStats)
	if async {
		a.scheduler.Schedule(func() { listener(event) }, 0)
	} else {
		listener(event)
	}
	return a
}

// OnComplete registers a listener invoked, on the goroutine that publishes the terminal outcome, exactly once
// regardless of success or failure. A listener registered after publication runs on the registering goroutine.
func (a *AsyncResult[R]) OnComplete(listener func(ExecutionDoneEvent[R])) *AsyncResult[R] {
	return a.register(&a.completeListeners, listener, listenAlways, false)
}

// OnSuccess registers a listener invoked when the terminal outcome is a success.
func (a *AsyncResult[R]) OnSuccess(listener func(ExecutionDoneEvent[R])) *AsyncResult[R] {
	return a.register(&a.successListeners, listener, listenSuccess, false)
}

// OnFailure registers a listener invoked when the terminal outcome is a failure.
func (a *AsyncResult[R]) OnFailure(listener func(ExecutionDoneEvent[R])) *AsyncResult[R] {
	return a.register(&a.failureListeners, listener, listenFailure, false)
}

// OnCompleteAsync is like OnComplete but dispatches the listener through the Scheduler rather than on the publishing
// goroutine, so it never delays the handle's completion.
func (a *AsyncResult[R]) OnCompleteAsync(listener func(ExecutionDoneEvent[R])) *AsyncResult[R] {
	return a.register(&a.completeListenersA, listener, listenAlways, true)
}

// OnSuccessAsync is like OnSuccess but dispatches the listener through the Scheduler.
func (a *AsyncResult[R]) OnSuccessAsync(listener func(ExecutionDoneEvent[R])) *AsyncResult[R] {
	return a.register(&a.successListenersA, listener, listenSuccess, true)
}

// OnFailureAsync is like OnFailure but dispatches the listener through the Scheduler.
func (a *AsyncResult[R]) OnFailureAsync(listener func(ExecutionDoneEvent[R])) *AsyncResult[R] {
	return a.register(&a.failureListenersA, listener, listenFailure, true)
}

// publish stores the terminal result, closes done, and dispatches listeners. Must be called exactly once.
func (a *AsyncResult[R]) publish(result *ExecutionResult[R]) {
	a.mtx.Lock()
	a.result = result
	event := newExecutionDoneEvent(result, a.exec.ExecutionStats)
	complete, success, failure := a.completeListeners, a.successListeners, a.failureListeners
	completeA, successA, failureA := a.completeListenersA, a.successListenersA, a.failureListenersA
	a.mtx.Unlock()

	close(a.done)

	for _, l := range complete {
		l(event)
	}
	if result.Success {
		for _, l := range success {
			l(event)
		}
	} else {
		for _, l := range failure {
			l(event)
		}
	}
	for _, l := range completeA {
		l := l
		a.scheduler.Schedule(func() { l(event) }, 0)
	}
	if result.Success {
		for _, l := range successA {
			l := l
			a.scheduler.Schedule(func() { l(event) }, 0)
		}
	} else {
		for _, l := range failureA {
			l := l
			a.scheduler.Schedule(func() { l(event) }, 0)
		}
	}
}

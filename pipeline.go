package resilient

import "time"

// operation is the leaf of every pipeline: the user-supplied function, normalized to always receive a read-only
// Execution snapshot.
type operation[R any] func(exec Execution[R]) (R, error)

// waiter honors a requested delay before the runner re-invokes an inner policy/operation. It returns false if the
// execution was cancelled while waiting. Sync and async runners differ only in their waiter implementation; the
// pipeline-walking logic in runPipeline is identical either way.
type waiter[R any] func(exec *ExecutionInternal[R], delay time.Duration) bool

// invokeOperation performs one real attempt of the user operation, recording Attempts/AttemptStartTime and the
// result. If the execution was cancelled concurrently with the attempt running, the real outcome is discarded in
// favor of a cancellation result, per the "in-flight work completes but its outcome is discarded" cancellation rule.
func invokeOperation[R any](exec *ExecutionInternal[R], op operation[R]) *ExecutionResult[R] {
	if exec.IsCancelled() {
		return cancelledResult[R]()
	}
	exec.InitializeAttempt()
	snapshot := exec.CopyExecution()
	result, err := op(snapshot)
	if exec.IsCancelled() {
		return cancelledResult[R]()
	}
	er := &ExecutionResult[R]{Result: result, Err: err, Complete: true, Success: true}
	exec.recordAttempt(er)
	return er
}

// runPipeline walks the policy stack from index i (0 being the outermost policy) to its leaf, the user operation.
// It is the single trampoline that both the sync and async runners drive: the only difference between them is the
// waiter passed in. A policy that returns a non-terminal outcome from OnOutcome causes this function to wait the
// requested delay and re-invoke everything at or below this level; it never recurses back out to policy i-1, since
// only the policy that requested the delay is retrying.
func runPipeline[R any](policies []PolicyExecutor[R], i int, exec *ExecutionInternal[R], op operation[R], wait waiter[R]) *ExecutionResult[R] {
	if i >= len(policies) {
		return invokeOperation(exec, op)
	}
	p := policies[i]
	for {
		if rejected := p.OnBeforeAttempt(exec); rejected != nil {
			return rejected
		}
		inner := runPipeline(policies, i+1, exec, op, wait)
		outcome := p.OnOutcome(exec, inner)
		if outcome.Complete || exec.IsCancelled() {
			return outcome
		}
		if !wait(exec, time.Duration(outcome.WaitNanos)) {
			return cancelledResult[R]()
		}
	}
}

// syncWait blocks the calling goroutine for delay, racing the execution's Context (if any) so that an external
// cancellation aborts the wait. Go has no interruptible threads, so a Context is the cooperative substitute.
func syncWait[R any](exec *ExecutionInternal[R], delay time.Duration) bool {
	if delay <= 0 {
		return !exec.IsCancelled()
	}
	var ctxDone <-chan struct{}
	if exec.Context != nil {
		ctxDone = exec.Context.Done()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctxDone:
		exec.Cancel()
		return false
	case <-exec.CancelSignal():
		return false
	}
}

// asyncWait realizes a delay by submitting the next attempt as a scheduled task, then parking the driving goroutine
// (already off the caller's goroutine, see Executor.GetWithExecutionAsync) until the task fires, the Context
// completes, or the execution is cancelled. The scheduled handle is registered on exec via setPendingHandle, so an
// external Cancel (e.g. from AsyncResult.Cancel) reaches in and cancels the pending task itself; ctxDone routes
// through exec.Cancel for the same reason, rather than cancelling the handle directly.
func asyncWait[R any](scheduler Scheduler) waiter[R] {
	return func(exec *ExecutionInternal[R], delay time.Duration) bool {
		if delay <= 0 {
			return !exec.IsCancelled()
		}
		fired := make(chan struct{})
		handle := scheduler.Schedule(func() { close(fired) }, delay)
		exec.setPendingHandle(handle)
		defer exec.clearPendingHandle()

		var ctxDone <-chan struct{}
		if exec.Context != nil {
			ctxDone = exec.Context.Done()
		}
		select {
		case <-fired:
			return true
		case <-ctxDone:
			exec.Cancel()
			return false
		case <-exec.CancelSignal():
			return false
		}
	}
}

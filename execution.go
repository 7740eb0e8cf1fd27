package resilient

import (
	"context"
	"sync"
	"time"
)

// ExecutionStats contains stats for an execution that are safe to copy and hand to listeners or operations.
type ExecutionStats struct {
	// Attempts is the number of times the user operation has actually been invoked so far.
	Attempts int
	// StartTime is when the first execution attempt began.
	StartTime time.Time
}

// IsFirstAttempt returns true when Attempts is 1, meaning this is the first execution attempt.
func (s ExecutionStats) IsFirstAttempt() bool {
	return s.Attempts == 1
}

// IsRetry returns true when Attempts is greater than 1, meaning the execution is being retried.
func (s ExecutionStats) IsRetry() bool {
	return s.Attempts > 1
}

// GetElapsedTime returns the elapsed time since the first execution attempt began.
func (s ExecutionStats) GetElapsedTime() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime)
}

// Execution contains contextual, read-only information about an execution, as observed by a user operation or
// listener. Values of this type are snapshots: mutating them has no effect on the underlying execution.
type Execution[R any] struct {
	// Context is the context.Context the execution was configured with, if any.
	Context context.Context

	ExecutionStats

	// LastResult is the most recent attempt's result, or the zero value for R if none has occurred yet. When the last
	// attempt returned an error, it is whatever value accompanied that error.
	LastResult R
	// LastErr is the most recent attempt's error, or nil.
	LastErr error
	// AttemptStartTime is when the most recent attempt began.
	AttemptStartTime time.Time
	// Cancelled reports whether the execution had been cancelled as of when this snapshot was taken.
	Cancelled bool
}

// IsCancelled returns whether the execution was cancelled, either explicitly or via a done Context, as of this
// snapshot.
func (e *Execution[R]) IsCancelled() bool {
	return e.Cancelled || (e.Context != nil && e.Context.Err() != nil)
}

// GetElapsedAttemptTime returns the elapsed time since the most recent attempt began.
func (e *Execution[R]) GetElapsedAttemptTime() time.Duration {
	if e.AttemptStartTime.IsZero() {
		return 0
	}
	return time.Since(e.AttemptStartTime)
}

// ExecutionInternal is the mutable, concurrency-guarded record of one execution's progress. It is exclusive to a
// single execution and is discarded once a terminal outcome has been produced. Policies never construct this
// directly; the runner does.
type ExecutionInternal[R any] struct {
	Execution[R]

	mtx           sync.Mutex
	clock         Clock
	scheduler     Scheduler
	cancelled     bool
	cancelSignal  chan struct{}
	pendingHandle ScheduleHandle
}

func newExecutionInternal[R any](ctx context.Context, clock Clock, scheduler Scheduler) *ExecutionInternal[R] {
	return &ExecutionInternal[R]{
		Execution: Execution[R]{
			Context: ctx,
		},
		clock:        clock,
		scheduler:    scheduler,
		cancelSignal: make(chan struct{}),
	}
}

// Scheduler returns the Scheduler the owning Executor was configured with, for policies (such as an async fallback)
// that need to dispatch work outside the normal retry/wait cycle.
func (e *ExecutionInternal[R]) Scheduler() Scheduler {
	return e.scheduler
}

// InitializeAttempt prepares a new execution attempt: increments Attempts and resets AttemptStartTime. It is called
// exactly once per actual invocation of the user operation.
func (e *ExecutionInternal[R]) InitializeAttempt() {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.Attempts++
	now := e.clock.Now()
	e.AttemptStartTime = now
	if e.StartTime.IsZero() {
		e.StartTime = now
	}
}

// recordAttempt stores the result of the most recent attempt.
func (e *ExecutionInternal[R]) recordAttempt(result *ExecutionResult[R]) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.LastResult = result.Result
	e.LastErr = result.Err
}

// Cancel marks the execution as cancelled and cancels any handle registered via setPendingHandle, such as a pending
// scheduled retry wait. Safe to call more than once and from any goroutine.
func (e *ExecutionInternal[R]) Cancel() {
	e.mtx.Lock()
	if e.cancelled {
		e.mtx.Unlock()
		return
	}
	e.cancelled = true
	e.Cancelled = true
	pending := e.pendingHandle
	close(e.cancelSignal)
	e.mtx.Unlock()

	if pending != nil {
		pending.Cancel()
	}
}

// IsCancelled returns whether the execution has been cancelled, either explicitly or via a done Context.
func (e *ExecutionInternal[R]) IsCancelled() bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.cancelled || (e.Context != nil && e.Context.Err() != nil)
}

// CancelSignal returns a channel that is closed when the execution is cancelled via Cancel.
func (e *ExecutionInternal[R]) CancelSignal() <-chan struct{} {
	return e.cancelSignal
}

// setPendingHandle records the ScheduleHandle for a currently outstanding scheduled wait, so that a concurrent Cancel
// cancels it too. Only meaningful in async mode.
func (e *ExecutionInternal[R]) setPendingHandle(h ScheduleHandle) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.pendingHandle = h
}

func (e *ExecutionInternal[R]) clearPendingHandle() {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.pendingHandle = nil
}

// CopyExecution returns a read-only snapshot of the current execution state, safe to hand to a user operation or
// listener.
func (e *ExecutionInternal[R]) CopyExecution() Execution[R] {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	snap := e.Execution
	snap.Cancelled = e.cancelled
	return snap
}

// cancelledResult returns the terminal ExecutionResult produced when an execution is cancelled mid-wait.
func cancelledResult[R any]() *ExecutionResult[R] {
	return &ExecutionResult[R]{Err: ErrExecutionCancelled, Complete: true, Success: false}
}

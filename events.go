package resilient

// ExecutionAttemptedEvent indicates that an execution attempt occurred.
type ExecutionAttemptedEvent[R any] struct {
	Execution[R]
}

// ExecutionScheduledEvent indicates that a retry has been scheduled for execution.
type ExecutionScheduledEvent[R any] struct {
	Execution[R]
	// Delay is the time to wait before the next execution attempt.
	Delay int64
}

// ExecutionDoneEvent indicates that an execution has completed, successfully or not.
type ExecutionDoneEvent[R any] struct {
	ExecutionStats
	// Result is the final result. When Err is set, it is whatever value accompanied that error.
	Result R
	// Err is the final error, or nil.
	Err error
}

// Success returns whether the execution completed without error.
func (e ExecutionDoneEvent[R]) Success() bool {
	return e.Err == nil
}

func newExecutionDoneEvent[R any](result *ExecutionResult[R], stats ExecutionStats) ExecutionDoneEvent[R] {
	return ExecutionDoneEvent[R]{
		ExecutionStats: stats,
		Result:         result.Result,
		Err:            result.Err,
	}
}

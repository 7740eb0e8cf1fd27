package resilient

// ExecutionResult represents the outcome of an execution attempt as it is passed up the policy stack, before or after
// a policy has had a chance to handle it. A policy that is done handling a result, or that can no longer affect it,
// such as when retries are exhausted, must mark the result Complete.
//
// Exactly one of Result/Err is meaningful for any one outcome. Complete && Success implies WaitNanos is unused.
type ExecutionResult[R any] struct {
	Result R
	Err    error

	// Complete indicates whether this outcome is terminal, i.e. no further attempts will be made.
	Complete bool

	// Success indicates whether the outcome is classified as a success by the policy that produced it. Only
	// meaningful once Complete is true.
	Success bool

	// WaitNanos is the delay, in nanoseconds, to honor before the next attempt. Only meaningful when Complete is
	// false.
	WaitNanos int64
}

// withComplete returns a copy of the result with Complete/Success set as given.
func (er *ExecutionResult[R]) withComplete(complete, success bool) *ExecutionResult[R] {
	c := *er
	c.Complete = complete
	c.Success = success
	return &c
}

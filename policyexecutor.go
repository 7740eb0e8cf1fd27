package resilient

// PolicyExecutor is the stateful (or stateless) counterpart of a Policy that participates in a pipeline. A
// PolicyExecutor never invokes the inner policy or loops itself, it is a pure pair of hooks that the runner
// (resilient.runPipeline) drives, which is what lets the sync and async runners share identical policy logic and
// differ only in how they honor a requested delay.
type PolicyExecutor[R any] interface {
	// OnBeforeAttempt is consulted before the inner policy/operation is invoked. Returning nil admits the attempt.
	// Returning a non-nil result rejects it outright (e.g. an open circuit breaker); that result is always already
	// Complete and is returned to the enclosing policy without going through OnOutcome.
	OnBeforeAttempt(exec *ExecutionInternal[R]) *ExecutionResult[R]

	// OnOutcome is called with the result produced by the inner policy/operation, and returns either a terminal
	// result, or a non-terminal result carrying WaitNanos for the runner to honor before the inner is re-invoked.
	OnOutcome(exec *ExecutionInternal[R], inner *ExecutionResult[R]) *ExecutionResult[R]
}

// BasePolicyExecutor provides the common terminal-outcome handling shared by every policy: classifying the result as
// a failure via IsFailure, and firing the configured OnSuccess/OnFailure listeners exactly once when the outcome
// becomes Complete. Concrete executors embed this and override OnBeforeAttempt/OnOutcome as needed; their OnOutcome
// typically ends by delegating to FinishOutcome.
type BasePolicyExecutor[R any] struct {
	*BaseListenablePolicy[R]
	*BaseFailurePolicy[R]
}

func (b *BasePolicyExecutor[R]) OnBeforeAttempt(_ *ExecutionInternal[R]) *ExecutionResult[R] {
	return nil
}

// IsFailure reports whether result is a failure per the embedded BaseFailurePolicy, or per the default "any non-nil
// error" rule if none is embedded.
func (b *BasePolicyExecutor[R]) IsFailure(result *ExecutionResult[R]) bool {
	if b.BaseFailurePolicy != nil {
		return b.BaseFailurePolicy.IsFailure(result.Result, result.Err)
	}
	return result.Err != nil
}

// FinishOutcome marks result Complete, classifies it via IsFailure, and fires the configured listeners. It is the
// default terminal-outcome handling most policies delegate to once they've decided an outcome is final.
func (b *BasePolicyExecutor[R]) FinishOutcome(exec *ExecutionInternal[R], result *ExecutionResult[R]) *ExecutionResult[R] {
	failed := b.IsFailure(result)
	final := result.withComplete(true, !failed)
	if b.BaseListenablePolicy == nil {
		return final
	}
	event := newExecutionDoneEvent(final, exec.ExecutionStats)
	if failed {
		if b.FailureListener != nil {
			b.FailureListener(event)
		}
	} else if b.SuccessListener != nil {
		b.SuccessListener(event)
	}
	return final
}

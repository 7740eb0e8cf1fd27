package fallback

import "github.com/resilient-go/resilient-go"

// fallbackExecutor is a resilient.PolicyExecutor that substitutes an alternative outcome for a terminal failure.
type fallbackExecutor[R any] struct {
	*resilient.BasePolicyExecutor[R]
	fallback *fallback[R]
}

func newFallbackExecutor[R any](fb *fallback[R]) *fallbackExecutor[R] {
	return &fallbackExecutor[R]{
		BasePolicyExecutor: &resilient.BasePolicyExecutor[R]{
			BaseListenablePolicy: fb.config.BaseListenablePolicy,
			BaseFailurePolicy:    fb.config.BaseFailurePolicy,
		},
		fallback: fb,
	}
}

// OnOutcome substitutes the fallback's value or error for inner if inner is a failure, then reclassifies the result
// through FinishOutcome so listeners observe the fallback's own outcome rather than the original failure.
func (e *fallbackExecutor[R]) OnOutcome(exec *resilient.ExecutionInternal[R], inner *resilient.ExecutionResult[R]) *resilient.ExecutionResult[R] {
	if !e.IsFailure(inner) {
		return e.FinishOutcome(exec, inner)
	}

	snapshot := exec.CopyExecution()
	if e.fallback.config.failedAttemptListener != nil {
		e.fallback.config.failedAttemptListener(resilient.ExecutionAttemptedEvent[R]{Execution: snapshot})
	}

	var fbResult R
	var fbErr error
	if e.fallback.config.async {
		done := make(chan struct{})
		exec.Scheduler().Schedule(func() {
			fbResult, fbErr = e.fallback.config.fn(snapshot)
			close(done)
		}, 0)
		<-done
	} else {
		fbResult, fbErr = e.fallback.config.fn(snapshot)
	}

	substituted := &resilient.ExecutionResult[R]{Result: fbResult, Err: fbErr, Complete: true, Success: true}
	return e.FinishOutcome(exec, substituted)
}

package circuitbreaker

import "github.com/resilient-go/resilient-go"

// circuitBreakerExecutor is a resilient.PolicyExecutor that gates attempts on breaker admission and records each
// outcome back into the breaker.
type circuitBreakerExecutor[R any] struct {
	*resilient.BasePolicyExecutor[R]
	breaker *circuitBreaker[R]
}

func newCircuitBreakerExecutor[R any](cb *circuitBreaker[R]) *circuitBreakerExecutor[R] {
	return &circuitBreakerExecutor[R]{
		BasePolicyExecutor: &resilient.BasePolicyExecutor[R]{
			BaseListenablePolicy: cb.config.BaseListenablePolicy,
			BaseFailurePolicy:    cb.config.BaseFailurePolicy,
		},
		breaker: cb,
	}
}

// OnBeforeAttempt rejects the attempt outright with ErrOpen if the breaker does not admit it.
func (e *circuitBreakerExecutor[R]) OnBeforeAttempt(_ *resilient.ExecutionInternal[R]) *resilient.ExecutionResult[R] {
	if e.breaker.TryAcquirePermit() {
		return nil
	}
	return &resilient.ExecutionResult[R]{Err: ErrOpen, Complete: true, Success: false}
}

// OnOutcome records the inner outcome into the breaker's statistics, possibly transitioning its state, then
// classifies the outcome as this policy's terminal result.
func (e *circuitBreakerExecutor[R]) OnOutcome(exec *resilient.ExecutionInternal[R], inner *resilient.ExecutionResult[R]) *resilient.ExecutionResult[R] {
	snapshot := exec.CopyExecution()
	e.breaker.mtx.Lock()
	e.breaker.recordResult(inner.Result, inner.Err, &snapshot)
	e.breaker.mtx.Unlock()
	return e.FinishOutcome(exec, inner)
}

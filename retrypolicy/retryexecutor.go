package retrypolicy

import (
	"math/rand"
	"time"

	"github.com/resilient-go/resilient-go"
	"github.com/resilient-go/resilient-go/internal/util"
)

// retryPolicyExecutor is a resilient.PolicyExecutor that drives a RetryPolicy. One instance is created per execution,
// so its mutable state requires no locking.
type retryPolicyExecutor[R any] struct {
	*resilient.BasePolicyExecutor[R]
	config *retryPolicyConfig[R]

	lastDelay time.Duration
}

func newRetryPolicyExecutor[R any](rp *retryPolicy[R]) *retryPolicyExecutor[R] {
	return &retryPolicyExecutor[R]{
		BasePolicyExecutor: &resilient.BasePolicyExecutor[R]{
			BaseListenablePolicy: rp.config.BaseListenablePolicy,
			BaseFailurePolicy:    rp.config.BaseFailurePolicy,
		},
		config: rp.config,
	}
}

// OnOutcome implements the classification order: abort predicates take precedence over retry predicates, which are
// honored only while attempts and elapsed duration remain within bounds; otherwise the outcome is terminal.
func (rpe *retryPolicyExecutor[R]) OnOutcome(exec *resilient.ExecutionInternal[R], inner *resilient.ExecutionResult[R]) *resilient.ExecutionResult[R] {
	snapshot := exec.CopyExecution()

	if rpe.config.isAbort(inner.Result, inner.Err) {
		if (inner.Err != nil || rpe.IsFailure(inner)) && rpe.config.failedAttemptListener != nil {
			rpe.config.failedAttemptListener(resilient.ExecutionAttemptedEvent[R]{Execution: snapshot})
		}
		var final *resilient.ExecutionResult[R]
		if inner.Err != nil {
			// An aborted outcome carrying an error is a failure even when no Handle condition matches that error.
			c := *inner
			c.Complete, c.Success = true, false
			final = &c
			if rpe.FailureListener != nil {
				rpe.FailureListener(doneEvent(exec, final))
			}
		} else {
			final = rpe.FinishOutcome(exec, inner)
		}
		if rpe.config.abortListener != nil {
			rpe.config.abortListener(doneEvent(exec, final))
		}
		return final
	}

	isFailure := rpe.IsFailure(inner)
	if !isFailure {
		return rpe.FinishOutcome(exec, inner)
	}

	if rpe.config.failedAttemptListener != nil {
		rpe.config.failedAttemptListener(resilient.ExecutionAttemptedEvent[R]{Execution: snapshot})
	}

	elapsed := snapshot.GetElapsedTime()
	withinDuration := rpe.config.maxDuration == 0 || elapsed < rpe.config.maxDuration
	if rpe.config.allowsAttempts(snapshot.Attempts) && withinDuration {
		delay := rpe.getDelay(&snapshot)
		if rpe.config.retryScheduledListener != nil {
			rpe.config.retryScheduledListener(resilient.ExecutionScheduledEvent[R]{Execution: snapshot, Delay: delay.Nanoseconds()})
		}
		if rpe.config.retryListener != nil {
			rpe.config.retryListener(resilient.ExecutionAttemptedEvent[R]{Execution: snapshot})
		}
		c := *inner
		c.Complete = false
		c.WaitNanos = delay.Nanoseconds()
		return &c
	}

	final := rpe.FinishOutcome(exec, inner)
	if rpe.config.retriesExceededListener != nil {
		rpe.config.retriesExceededListener(doneEvent(exec, final))
	}
	return final
}

func doneEvent[R any](exec *resilient.ExecutionInternal[R], result *resilient.ExecutionResult[R]) resilient.ExecutionDoneEvent[R] {
	return resilient.ExecutionDoneEvent[R]{
		ExecutionStats: exec.ExecutionStats,
		Result:         result.Result,
		Err:            result.Err,
	}
}

// getDelay updates lastDelay and returns the delay to honor before the next attempt.
func (rpe *retryPolicyExecutor[R]) getDelay(exec *resilient.Execution[R]) time.Duration {
	var delay time.Duration
	computedDelay := rpe.config.ComputeDelay(exec)
	if computedDelay != -1 {
		delay = computedDelay
	} else {
		delay = getFixedOrRandomDelay(rpe.config, rpe.lastDelay)
		delay = adjustForBackoff(rpe.config, exec, delay)
		rpe.lastDelay = delay
	}
	if delay != 0 {
		delay = adjustForJitter(rpe.config, delay)
	}
	delay = adjustForMaxDuration(rpe.config, delay, exec.GetElapsedTime())
	return delay
}

func getFixedOrRandomDelay[R any](config *retryPolicyConfig[R], delay time.Duration) time.Duration {
	if delay == 0 && config.Delay != 0 {
		return config.Delay
	}
	if config.delayMin != 0 && config.delayMax != 0 {
		return util.RandomDelayInRange(config.delayMin.Nanoseconds(), config.delayMax.Nanoseconds(), rand.Float64())
	}
	return delay
}

func adjustForBackoff[R any](config *retryPolicyConfig[R], exec *resilient.Execution[R], delay time.Duration) time.Duration {
	if exec.Attempts != 1 && config.maxDelay != 0 {
		backoffDelay := time.Duration(float32(delay) * config.delayFactor)
		delay = util.Min(backoffDelay, config.maxDelay)
	}
	return delay
}

func adjustForJitter[R any](config *retryPolicyConfig[R], delay time.Duration) time.Duration {
	if config.jitter != 0 {
		delay = util.RandomDelay(delay, config.jitter, rand.Float64())
	} else if config.jitterFactor != 0 {
		delay = util.RandomDelayFactor(delay, config.jitterFactor, rand.Float32())
	}
	return delay
}

func adjustForMaxDuration[R any](config *retryPolicyConfig[R], delay time.Duration, elapsed time.Duration) time.Duration {
	if config.maxDuration != 0 {
		delay = util.Min(delay, config.maxDuration-elapsed)
	}
	return util.Max(0, delay)
}

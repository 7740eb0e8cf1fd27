// Package retrypolicy implements a policy that retries failed executions according to configurable backoff, jitter,
// attempt, and duration bounds.
package retrypolicy

import (
	"errors"
	"reflect"
	"time"

	"github.com/resilient-go/resilient-go"
	"github.com/resilient-go/resilient-go/internal/util"
)

const defaultMaxAttempts = 3

// RetryPolicy is a policy that retries failed executions according to the configuration built with
// RetryPolicyBuilder.
//
// This type is concurrency safe.
type RetryPolicy[R any] interface {
	resilient.Policy[R]
}

/*
RetryPolicyBuilder builds RetryPolicy instances.

  - By default, a RetryPolicy will retry up to 3 attempts total when any error is returned, with no delay between
    attempts.
  - By default, any error is considered a failure and will be handled by the policy. You can override this by
    specifying your own Handle conditions. The default error handling condition is only overridden by a condition
    that handles errors, such as Handle or HandleIf; a condition that only handles results, such as HandleResult or
    HandleResultIf, does not replace it.
  - If multiple Handle conditions are specified, any one matching triggers a retry.
  - The AbortOn, AbortWhen, and AbortIf methods describe when retries should be aborted outright, taking precedence
    over any matching retry condition.

This type is not concurrency safe.
*/
type RetryPolicyBuilder[R any] interface {
	resilient.ListenablePolicyBuilder[RetryPolicyBuilder[R], R]
	resilient.FailurePolicyBuilder[RetryPolicyBuilder[R], R]
	resilient.DelayablePolicyBuilder[RetryPolicyBuilder[R], R]

	// AbortOn specifies errors that, when matched via errors.Is, abort retries immediately.
	AbortOn(errs ...error) RetryPolicyBuilder[R]

	// AbortIf specifies a predicate against the execution's error that, when it matches, aborts retries immediately.
	AbortIf(predicate func(error) bool) RetryPolicyBuilder[R]

	// AbortWhen specifies a result value that, when matched via reflect.DeepEqual, aborts retries immediately.
	AbortWhen(result R) RetryPolicyBuilder[R]

	// WithMaxAttempts sets the max number of execution attempts to perform. -1 indicates no limit.
	WithMaxAttempts(maxAttempts int) RetryPolicyBuilder[R]

	// WithMaxRetries sets the max number of retries to perform after an initial failed attempt. -1 indicates no
	// limit. Equivalent to WithMaxAttempts(maxRetries + 1).
	WithMaxRetries(maxRetries int) RetryPolicyBuilder[R]

	// WithMaxDuration sets the max total elapsed time to perform retries for.
	WithMaxDuration(maxDuration time.Duration) RetryPolicyBuilder[R]

	// WithBackoff sets the delay between retries, exponentially backing off to maxDelay, doubling each time. Replaces
	// any previously configured fixed or random delay.
	WithBackoff(delay time.Duration, maxDelay time.Duration) RetryPolicyBuilder[R]

	// WithBackoffFactor is like WithBackoff but multiplies consecutive delays by delayFactor rather than 2.
	WithBackoffFactor(delay time.Duration, maxDelay time.Duration, delayFactor float32) RetryPolicyBuilder[R]

	// WithRandomDelay sets a uniformly random delay between retries, in [delayMin, delayMax). Replaces any previously
	// configured fixed or backoff delay.
	WithRandomDelay(delayMin time.Duration, delayMax time.Duration) RetryPolicyBuilder[R]

	// WithJitter sets an absolute jitter duration to randomly vary each retry delay by, plus or minus.
	WithJitter(jitter time.Duration) RetryPolicyBuilder[R]

	// WithJitterFactor sets a jitter factor, relative to the computed delay, to randomly vary each retry delay by.
	WithJitterFactor(jitterFactor float32) RetryPolicyBuilder[R]

	// OnAbort registers a listener called when retries are aborted via an abort condition.
	OnAbort(listener func(resilient.ExecutionDoneEvent[R])) RetryPolicyBuilder[R]

	// OnFailedAttempt registers a listener called every time an execution attempt fails, including ones that go on to
	// be retried.
	OnFailedAttempt(listener func(resilient.ExecutionAttemptedEvent[R])) RetryPolicyBuilder[R]

	// OnRetriesExceeded registers a listener called when an execution fails after the max attempts or max duration
	// have been exceeded.
	OnRetriesExceeded(listener func(resilient.ExecutionDoneEvent[R])) RetryPolicyBuilder[R]

	// OnRetryScheduled registers a listener called when a retry has been decided and its delay computed, before the
	// delay is honored.
	OnRetryScheduled(listener func(resilient.ExecutionScheduledEvent[R])) RetryPolicyBuilder[R]

	// OnRetry registers a listener called when a retry has been decided, right after the OnRetryScheduled listener. It
	// fires before the retry delay is honored, not after it.
	OnRetry(listener func(resilient.ExecutionAttemptedEvent[R])) RetryPolicyBuilder[R]

	// Build returns a new RetryPolicy using the builder's configuration.
	Build() RetryPolicy[R]
}

type retryPolicyConfig[R any] struct {
	*resilient.BaseListenablePolicy[R]
	*resilient.BaseFailurePolicy[R]
	*resilient.BaseDelayablePolicy[R]

	delayMin     time.Duration
	delayMax     time.Duration
	delayFactor  float32
	maxDelay     time.Duration
	jitter       time.Duration
	jitterFactor float32
	maxDuration  time.Duration
	maxAttempts  int

	abortConditions []func(result R, err error) bool

	abortListener           func(resilient.ExecutionDoneEvent[R])
	failedAttemptListener   func(resilient.ExecutionAttemptedEvent[R])
	retriesExceededListener func(resilient.ExecutionDoneEvent[R])
	retryListener           func(resilient.ExecutionAttemptedEvent[R])
	retryScheduledListener  func(resilient.ExecutionScheduledEvent[R])
}

var _ RetryPolicyBuilder[any] = &retryPolicyConfig[any]{}

type retryPolicy[R any] struct {
	config *retryPolicyConfig[R]
}

// OfDefaults returns a RetryPolicy with default configuration: 3 max attempts, no delay.
func OfDefaults[R any]() RetryPolicy[R] {
	return BuilderForResult[R]().Build()
}

// Builder creates a RetryPolicyBuilder for execution results of any type.
func Builder() RetryPolicyBuilder[any] {
	return BuilderForResult[any]()
}

// BuilderForResult creates a RetryPolicyBuilder for execution results of type R.
func BuilderForResult[R any]() RetryPolicyBuilder[R] {
	return &retryPolicyConfig[R]{
		BaseListenablePolicy: &resilient.BaseListenablePolicy[R]{},
		BaseFailurePolicy:    &resilient.BaseFailurePolicy[R]{},
		BaseDelayablePolicy:  &resilient.BaseDelayablePolicy[R]{},
		maxAttempts:          defaultMaxAttempts,
	}
}

func (c *retryPolicyConfig[R]) Build() RetryPolicy[R] {
	cfgCopy := *c
	return &retryPolicy[R]{config: &cfgCopy}
}

func (c *retryPolicyConfig[R]) AbortOn(errs ...error) RetryPolicyBuilder[R] {
	for _, target := range errs {
		c.abortConditions = append(c.abortConditions, func(_ R, err error) bool {
			return errors.Is(err, target)
		})
	}
	return c
}

func (c *retryPolicyConfig[R]) AbortIf(predicate func(error) bool) RetryPolicyBuilder[R] {
	c.abortConditions = append(c.abortConditions, func(_ R, err error) bool {
		return err != nil && predicate(err)
	})
	return c
}

func (c *retryPolicyConfig[R]) AbortWhen(result R) RetryPolicyBuilder[R] {
	c.abortConditions = append(c.abortConditions, func(r R, err error) bool {
		return err == nil && reflect.DeepEqual(r, result)
	})
	return c
}

func (c *retryPolicyConfig[R]) Handle(errs ...error) RetryPolicyBuilder[R] {
	c.BaseFailurePolicy.Handle(errs...)
	return c
}

func (c *retryPolicyConfig[R]) HandleIf(predicate func(error) bool) RetryPolicyBuilder[R] {
	c.BaseFailurePolicy.HandleIf(predicate)
	return c
}

func (c *retryPolicyConfig[R]) HandleResult(result R) RetryPolicyBuilder[R] {
	c.BaseFailurePolicy.HandleResult(result)
	return c
}

func (c *retryPolicyConfig[R]) HandleResultIf(predicate func(R) bool) RetryPolicyBuilder[R] {
	c.BaseFailurePolicy.HandleResultIf(predicate)
	return c
}

func (c *retryPolicyConfig[R]) HandleAllIf(predicate func(R, error) bool) RetryPolicyBuilder[R] {
	c.BaseFailurePolicy.HandleAllIf(predicate)
	return c
}

func (c *retryPolicyConfig[R]) WithDelay(delay time.Duration) RetryPolicyBuilder[R] {
	c.BaseDelayablePolicy.WithDelay(delay)
	return c
}

func (c *retryPolicyConfig[R]) WithDelayFn(delayFn resilient.DelayFunction[R]) RetryPolicyBuilder[R] {
	c.BaseDelayablePolicy.WithDelayFn(delayFn)
	return c
}

func (c *retryPolicyConfig[R]) WithMaxAttempts(maxAttempts int) RetryPolicyBuilder[R] {
	c.maxAttempts = maxAttempts
	return c
}

func (c *retryPolicyConfig[R]) WithMaxRetries(maxRetries int) RetryPolicyBuilder[R] {
	if maxRetries < 0 {
		c.maxAttempts = -1
	} else {
		c.maxAttempts = maxRetries + 1
	}
	return c
}

func (c *retryPolicyConfig[R]) WithMaxDuration(maxDuration time.Duration) RetryPolicyBuilder[R] {
	c.maxDuration = maxDuration
	return c
}

func (c *retryPolicyConfig[R]) WithBackoff(delay time.Duration, maxDelay time.Duration) RetryPolicyBuilder[R] {
	c.BaseDelayablePolicy.WithDelay(delay)
	c.delayMin, c.delayMax = 0, 0
	c.maxDelay = maxDelay
	c.delayFactor = 2
	return c
}

func (c *retryPolicyConfig[R]) WithBackoffFactor(delay time.Duration, maxDelay time.Duration, delayFactor float32) RetryPolicyBuilder[R] {
	c.BaseDelayablePolicy.WithDelay(delay)
	c.delayMin, c.delayMax = 0, 0
	c.maxDelay = maxDelay
	c.delayFactor = delayFactor
	return c
}

func (c *retryPolicyConfig[R]) WithRandomDelay(delayMin time.Duration, delayMax time.Duration) RetryPolicyBuilder[R] {
	c.delayMin = delayMin
	c.delayMax = delayMax
	c.BaseDelayablePolicy.WithDelay(0)
	c.maxDelay, c.delayFactor = 0, 0
	return c
}

func (c *retryPolicyConfig[R]) WithJitter(jitter time.Duration) RetryPolicyBuilder[R] {
	c.jitter = jitter
	return c
}

func (c *retryPolicyConfig[R]) WithJitterFactor(jitterFactor float32) RetryPolicyBuilder[R] {
	c.jitterFactor = jitterFactor
	return c
}

func (c *retryPolicyConfig[R]) OnSuccess(listener func(resilient.ExecutionDoneEvent[R])) RetryPolicyBuilder[R] {
	c.BaseListenablePolicy.OnSuccess(listener)
	return c
}

func (c *retryPolicyConfig[R]) OnFailure(listener func(resilient.ExecutionDoneEvent[R])) RetryPolicyBuilder[R] {
	c.BaseListenablePolicy.OnFailure(listener)
	return c
}

func (c *retryPolicyConfig[R]) OnAbort(listener func(resilient.ExecutionDoneEvent[R])) RetryPolicyBuilder[R] {
	c.abortListener = listener
	return c
}

func (c *retryPolicyConfig[R]) OnFailedAttempt(listener func(resilient.ExecutionAttemptedEvent[R])) RetryPolicyBuilder[R] {
	c.failedAttemptListener = listener
	return c
}

func (c *retryPolicyConfig[R]) OnRetriesExceeded(listener func(resilient.ExecutionDoneEvent[R])) RetryPolicyBuilder[R] {
	c.retriesExceededListener = listener
	return c
}

func (c *retryPolicyConfig[R]) OnRetryScheduled(listener func(resilient.ExecutionScheduledEvent[R])) RetryPolicyBuilder[R] {
	c.retryScheduledListener = listener
	return c
}

func (c *retryPolicyConfig[R]) OnRetry(listener func(resilient.ExecutionAttemptedEvent[R])) RetryPolicyBuilder[R] {
	c.retryListener = listener
	return c
}

func (c *retryPolicyConfig[R]) allowsAttempts(attempts int) bool {
	return c.maxAttempts == -1 || attempts < c.maxAttempts
}

func (c *retryPolicyConfig[R]) isAbort(result R, err error) bool {
	return util.AppliesToAny(c.abortConditions, result, err)
}

func (rp *retryPolicy[R]) ToExecutor() resilient.PolicyExecutor[R] {
	return newRetryPolicyExecutor(rp)
}

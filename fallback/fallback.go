// Package fallback implements a policy that substitutes an alternative result, error, or function outcome when the
// inner execution terminates in failure.
package fallback

import "github.com/resilient-go/resilient-go"

// Fallback is a Policy that substitutes an alternative outcome for a terminal failure.
//
// This type is concurrency safe.
type Fallback[R any] interface {
	resilient.Policy[R]
}

/*
FallbackBuilder builds Fallback instances.

  - By default, any error is considered a failure and will be handled by the policy. You can override this by
    specifying your own Handle conditions, following the same rules as RetryPolicyBuilder.
  - If multiple Handle conditions are specified, any one matching triggers the fallback.

This type is not concurrency safe.
*/
type FallbackBuilder[R any] interface {
	resilient.ListenablePolicyBuilder[FallbackBuilder[R], R]
	resilient.FailurePolicyBuilder[FallbackBuilder[R], R]

	// OnFailedAttempt registers a listener called when the last attempt before the fallback runs failed.
	OnFailedAttempt(listener func(resilient.ExecutionAttemptedEvent[R])) FallbackBuilder[R]

	// Async configures the fallback function to run as a task submitted to the Executor's Scheduler, rather than
	// inline on the goroutine that observed the failure. Meaningful in both sync and async execution modes.
	Async() FallbackBuilder[R]

	// Build returns a new Fallback using the builder's configuration.
	Build() Fallback[R]
}

type fallbackConfig[R any] struct {
	*resilient.BaseListenablePolicy[R]
	*resilient.BaseFailurePolicy[R]

	fn                    func(exec resilient.Execution[R]) (R, error)
	failedAttemptListener func(resilient.ExecutionAttemptedEvent[R])
	async                 bool
}

var _ FallbackBuilder[any] = &fallbackConfig[any]{}

type fallback[R any] struct {
	config *fallbackConfig[R]
}

// WithResult returns a Fallback that substitutes result on failure.
func WithResult[R any](result R) Fallback[R] {
	return BuilderWithResult[R](result).Build()
}

// WithError returns a Fallback that substitutes err on failure.
func WithError[R any](err error) Fallback[R] {
	return BuilderWithError[R](err).Build()
}

// WithFn returns a Fallback that invokes fn to compute a substitute outcome on failure.
func WithFn[R any](fn func(exec resilient.Execution[R]) (R, error)) Fallback[R] {
	return BuilderWithFn(fn).Build()
}

// BuilderWithResult returns a FallbackBuilder whose Fallback substitutes result on failure.
func BuilderWithResult[R any](result R) FallbackBuilder[R] {
	return BuilderWithFn(func(_ resilient.Execution[R]) (R, error) {
		return result, nil
	})
}

// BuilderWithError returns a FallbackBuilder whose Fallback substitutes err on failure.
func BuilderWithError[R any](err error) FallbackBuilder[R] {
	return BuilderWithFn(func(_ resilient.Execution[R]) (R, error) {
		var zero R
		return zero, err
	})
}

// BuilderWithFn returns a FallbackBuilder whose Fallback invokes fn to compute a substitute outcome on failure.
func BuilderWithFn[R any](fn func(exec resilient.Execution[R]) (R, error)) FallbackBuilder[R] {
	return &fallbackConfig[R]{
		BaseListenablePolicy: &resilient.BaseListenablePolicy[R]{},
		BaseFailurePolicy:    &resilient.BaseFailurePolicy[R]{},
		fn:                   fn,
	}
}

func (c *fallbackConfig[R]) Handle(errs ...error) FallbackBuilder[R] {
	c.BaseFailurePolicy.Handle(errs...)
	return c
}

func (c *fallbackConfig[R]) HandleIf(predicate func(error) bool) FallbackBuilder[R] {
	c.BaseFailurePolicy.HandleIf(predicate)
	return c
}

func (c *fallbackConfig[R]) HandleResult(result R) FallbackBuilder[R] {
	c.BaseFailurePolicy.HandleResult(result)
	return c
}

func (c *fallbackConfig[R]) HandleResultIf(predicate func(R) bool) FallbackBuilder[R] {
	c.BaseFailurePolicy.HandleResultIf(predicate)
	return c
}

func (c *fallbackConfig[R]) HandleAllIf(predicate func(R, error) bool) FallbackBuilder[R] {
	c.BaseFailurePolicy.HandleAllIf(predicate)
	return c
}

func (c *fallbackConfig[R]) OnFailedAttempt(listener func(resilient.ExecutionAttemptedEvent[R])) FallbackBuilder[R] {
	c.failedAttemptListener = listener
	return c
}

func (c *fallbackConfig[R]) Async() FallbackBuilder[R] {
	c.async = true
	return c
}

func (c *fallbackConfig[R]) OnSuccess(listener func(resilient.ExecutionDoneEvent[R])) FallbackBuilder[R] {
	c.BaseListenablePolicy.OnSuccess(listener)
	return c
}

func (c *fallbackConfig[R]) OnFailure(listener func(resilient.ExecutionDoneEvent[R])) FallbackBuilder[R] {
	c.BaseListenablePolicy.OnFailure(listener)
	return c
}

func (c *fallbackConfig[R]) Build() Fallback[R] {
	cfgCopy := *c
	return &fallback[R]{config: &cfgCopy}
}

func (fb *fallback[R]) ToExecutor() resilient.PolicyExecutor[R] {
	return newFallbackExecutor(fb)
}

package resilient

import (
	"errors"
	"reflect"
	"time"
)

// Policy handles execution outcomes according to some strategy: retrying, breaking a circuit, substituting a
// fallback, etc. A Policy is immutable configuration; ToExecutor produces the stateful (or stateless) PolicyExecutor
// that actually participates in a pipeline.
type Policy[R any] interface {
	ToExecutor() PolicyExecutor[R]
}

// ListenablePolicyBuilder configures listeners for a policy's terminal outcome.
type ListenablePolicyBuilder[S any, R any] interface {
	// OnSuccess registers a listener called when the policy's execution succeeds, meaning either the wrapped
	// execution succeeded outright, or the policy was able to produce a successful result (e.g. a fallback).
	OnSuccess(listener func(event ExecutionDoneEvent[R])) S

	// OnFailure registers a listener called when the policy is unable to produce a successful result.
	OnFailure(listener func(event ExecutionDoneEvent[R])) S
}

// FailurePolicyBuilder builds a Policy that allows configurable conditions to determine whether an execution outcome
// is a failure.
//
//   - By default, any non-nil error is considered a failure. Specifying a condition that only handles errors (Handle,
//     HandleIf) replaces this default; specifying a condition that only handles results (HandleResult,
//     HandleResultIf) does not.
//   - If multiple conditions are configured, any one matching marks the outcome as a failure.
type FailurePolicyBuilder[S any, R any] interface {
	// Handle specifies errors to treat as failures. An outcome is a failure if errors.Is matches the execution's
	// error against any of errs.
	Handle(errs ...error) S

	// HandleIf specifies a predicate against the execution's error; a match is treated as a failure.
	HandleIf(errorPredicate func(error) bool) S

	// HandleResult specifies a result value to treat as a failure. Only considered when the execution returned a
	// result rather than an error; matched via reflect.DeepEqual.
	HandleResult(result R) S

	// HandleResultIf specifies a predicate against the execution's result; a match is treated as a failure. Only
	// considered when the execution returned a result rather than an error.
	HandleResultIf(resultPredicate func(R) bool) S

	// HandleAllIf specifies a predicate against both the execution's result and error; a match is treated as a
	// failure.
	HandleAllIf(predicate func(R, error) bool) S
}

// DelayFunction computes a delay to wait before the next attempt, given the current execution.
type DelayFunction[R any] func(exec *Execution[R]) time.Duration

// DelayablePolicyBuilder builds a policy whose inter-attempt delay can be configured.
type DelayablePolicyBuilder[S any, R any] interface {
	// WithDelay configures a fixed delay between attempts.
	WithDelay(delay time.Duration) S

	// WithDelayFn configures a function that computes the delay before the next attempt.
	WithDelayFn(delayFn DelayFunction[R]) S
}

// BaseListenablePolicy is embedded by policy configs to implement ListenablePolicyBuilder.
type BaseListenablePolicy[R any] struct {
	SuccessListener func(ExecutionDoneEvent[R])
	FailureListener func(ExecutionDoneEvent[R])
}

func (p *BaseListenablePolicy[R]) OnSuccess(listener func(ExecutionDoneEvent[R])) {
	p.SuccessListener = listener
}

func (p *BaseListenablePolicy[R]) OnFailure(listener func(ExecutionDoneEvent[R])) {
	p.FailureListener = listener
}

// BaseFailurePolicy is embedded by policy configs to implement FailurePolicyBuilder.
type BaseFailurePolicy[R any] struct {
	// errorsChecked tracks whether an error-handling condition (as opposed to a result-only condition) has been
	// configured, which suppresses the "any non-nil error is a failure" default.
	errorsChecked     bool
	failureConditions []func(result R, err error) bool
}

func (p *BaseFailurePolicy[R]) Handle(errs ...error) {
	for _, target := range errs {
		p.failureConditions = append(p.failureConditions, func(_ R, err error) bool {
			return errors.Is(err, target)
		})
	}
	p.errorsChecked = true
}

func (p *BaseFailurePolicy[R]) HandleIf(predicate func(error) bool) {
	p.failureConditions = append(p.failureConditions, func(_ R, err error) bool {
		return err != nil && predicate(err)
	})
	p.errorsChecked = true
}

func (p *BaseFailurePolicy[R]) HandleResult(result R) {
	p.failureConditions = append(p.failureConditions, func(r R, err error) bool {
		return err == nil && reflect.DeepEqual(r, result)
	})
}

func (p *BaseFailurePolicy[R]) HandleResultIf(predicate func(R) bool) {
	p.failureConditions = append(p.failureConditions, func(r R, err error) bool {
		return err == nil && predicate(r)
	})
}

func (p *BaseFailurePolicy[R]) HandleAllIf(predicate func(R, error) bool) {
	p.failureConditions = append(p.failureConditions, predicate)
	p.errorsChecked = true
}

// IsFailure reports whether result/err is a failure per the configured conditions, any one matching being
// sufficient, with a default of "any non-nil error" when no error-handling condition has been configured.
func (p *BaseFailurePolicy[R]) IsFailure(result R, err error) bool {
	for _, cond := range p.failureConditions {
		if cond(result, err) {
			return true
		}
	}
	return err != nil && !p.errorsChecked
}

// BaseDelayablePolicy is embedded by policy configs to implement DelayablePolicyBuilder.
type BaseDelayablePolicy[R any] struct {
	Delay   time.Duration
	DelayFn DelayFunction[R]
}

func (d *BaseDelayablePolicy[R]) WithDelay(delay time.Duration) {
	d.Delay = delay
}

func (d *BaseDelayablePolicy[R]) WithDelayFn(delayFn DelayFunction[R]) {
	d.DelayFn = delayFn
}

// ComputeDelay returns the delay computed by a configured DelayFn, or -1 if none is configured or exec is nil.
func (d *BaseDelayablePolicy[R]) ComputeDelay(exec *Execution[R]) time.Duration {
	if exec != nil && d.DelayFn != nil {
		return d.DelayFn(exec)
	}
	return -1
}

package circuitbreaker

import (
	"time"

	"github.com/resilient-go/resilient-go"
)

/*
CircuitBreakerBuilder builds CircuitBreaker instances.

  - By default, any error is considered a failure and will be handled by the policy. You can override this by
    specifying your own Handle conditions, following the same rules as RetryPolicyBuilder.
  - If multiple Handle conditions are specified, any one matching triggers policy handling.

This type is not concurrency safe.
*/
type CircuitBreakerBuilder[R any] interface {
	resilient.ListenablePolicyBuilder[CircuitBreakerBuilder[R], R]
	resilient.FailurePolicyBuilder[CircuitBreakerBuilder[R], R]
	resilient.DelayablePolicyBuilder[CircuitBreakerBuilder[R], R]

	// OnClose calls the listener when the CircuitBreaker is closed.
	OnClose(listener func(StateChangedEvent)) CircuitBreakerBuilder[R]

	// OnOpen calls the listener when the CircuitBreaker is opened.
	OnOpen(listener func(StateChangedEvent)) CircuitBreakerBuilder[R]

	// OnHalfOpen calls the listener when the CircuitBreaker is half-opened.
	OnHalfOpen(listener func(StateChangedEvent)) CircuitBreakerBuilder[R]

	// WithFailureThreshold configures the failure threshold that must be reached, while CLOSED, in order to open
	// the circuit. If no success threshold is configured, this threshold is also used while HALF_OPEN to decide
	// whether to close the circuit or reopen it.
	WithFailureThreshold(threshold ThresholdConfig) CircuitBreakerBuilder[R]

	// WithSuccessThreshold configures the number of successful probes, out of successThresholdingCapacity total
	// probes, that must occur while HALF_OPEN in order to close the circuit.
	WithSuccessThreshold(successThreshold uint, successThresholdingCapacity uint) CircuitBreakerBuilder[R]

	// WithClock configures the Clock used for state-transition and window timing. Defaults to resilient.SystemClock;
	// primarily useful in tests that need to assert delay-dependent transitions without sleeping.
	WithClock(clock resilient.Clock) CircuitBreakerBuilder[R]

	// Build returns a new CircuitBreaker using the builder's configuration.
	Build() CircuitBreaker[R]
}

// ThresholdConfig describes the window a failure or success threshold is evaluated over: a fixed count of recent
// outcomes, a rolling time period, or a failure/success rate within either.
type ThresholdConfig struct {
	threshold            uint
	rateThreshold        uint
	thresholdingCapacity uint
	executionThreshold   uint
	thresholdingPeriod   time.Duration
}

// WithExecutionThreshold requires at least executionThreshold total outcomes to have been recorded before the
// threshold is evaluated at all. Only meaningful for time-based and rate-based configs.
func (c ThresholdConfig) WithExecutionThreshold(executionThreshold uint) ThresholdConfig {
	c.executionThreshold = executionThreshold
	return c
}

// NewCountBasedThreshold opens the circuit once threshold failures occur out of the last thresholdingCapacity
// outcomes.
func NewCountBasedThreshold(threshold uint, thresholdingCapacity uint) ThresholdConfig {
	return ThresholdConfig{threshold: threshold, thresholdingCapacity: thresholdingCapacity}
}

// NewTimeBasedThreshold opens the circuit once threshold failures occur within thresholdingPeriod.
func NewTimeBasedThreshold(threshold uint, thresholdingPeriod time.Duration) ThresholdConfig {
	return ThresholdConfig{
		threshold:            threshold,
		thresholdingCapacity: threshold,
		executionThreshold:   threshold,
		thresholdingPeriod:   thresholdingPeriod,
	}
}

// NewRateBasedThreshold opens the circuit once the failure rate, as a percentage out of 100, reaches rateThreshold
// within thresholdingPeriod, once at least executionThreshold outcomes have been recorded.
func NewRateBasedThreshold(rateThreshold uint, executionThreshold uint, thresholdingPeriod time.Duration) ThresholdConfig {
	return ThresholdConfig{
		rateThreshold:      rateThreshold,
		executionThreshold: executionThreshold,
		thresholdingPeriod: thresholdingPeriod,
	}
}

type circuitBreakerConfig[R any] struct {
	*resilient.BaseListenablePolicy[R]
	*resilient.BaseFailurePolicy[R]
	*resilient.BaseDelayablePolicy[R]

	clock            resilient.Clock
	openListener     func(StateChangedEvent)
	halfOpenListener func(StateChangedEvent)
	closeListener    func(StateChangedEvent)

	failureThresholdConfig ThresholdConfig

	successThreshold            uint
	successThresholdingCapacity uint
}

var _ CircuitBreakerBuilder[any] = &circuitBreakerConfig[any]{}

// OfDefaults creates a count-based CircuitBreaker that opens after a single failure, closes after a single
// successful probe, and waits 1 minute before probing again. Use Builder for further configuration.
func OfDefaults[R any]() CircuitBreaker[R] {
	return Builder[R]().Build()
}

// Builder creates a CircuitBreakerBuilder that, unless configured otherwise, builds a count-based circuit breaker
// that opens after a single failure, closes after a single successful probe, and waits 1 minute before probing again.
func Builder[R any]() CircuitBreakerBuilder[R] {
	return &circuitBreakerConfig[R]{
		BaseListenablePolicy: &resilient.BaseListenablePolicy[R]{},
		BaseFailurePolicy:    &resilient.BaseFailurePolicy[R]{},
		BaseDelayablePolicy: &resilient.BaseDelayablePolicy[R]{
			Delay: time.Minute,
		},
		clock:                  resilient.SystemClock,
		failureThresholdConfig: NewCountBasedThreshold(1, 1),
	}
}

func (c *circuitBreakerConfig[R]) Build() CircuitBreaker[R] {
	cfgCopy := *c
	breaker := &circuitBreaker[R]{config: &cfgCopy}
	breaker.state = newClosedState[R](breaker)
	return breaker
}

func (c *circuitBreakerConfig[R]) Handle(errs ...error) CircuitBreakerBuilder[R] {
	c.BaseFailurePolicy.Handle(errs...)
	return c
}

func (c *circuitBreakerConfig[R]) HandleIf(predicate func(error) bool) CircuitBreakerBuilder[R] {
	c.BaseFailurePolicy.HandleIf(predicate)
	return c
}

func (c *circuitBreakerConfig[R]) HandleResult(result R) CircuitBreakerBuilder[R] {
	c.BaseFailurePolicy.HandleResult(result)
	return c
}

func (c *circuitBreakerConfig[R]) HandleResultIf(predicate func(R) bool) CircuitBreakerBuilder[R] {
	c.BaseFailurePolicy.HandleResultIf(predicate)
	return c
}

func (c *circuitBreakerConfig[R]) HandleAllIf(predicate func(R, error) bool) CircuitBreakerBuilder[R] {
	c.BaseFailurePolicy.HandleAllIf(predicate)
	return c
}

func (c *circuitBreakerConfig[R]) WithDelay(delay time.Duration) CircuitBreakerBuilder[R] {
	c.BaseDelayablePolicy.WithDelay(delay)
	return c
}

func (c *circuitBreakerConfig[R]) WithDelayFn(delayFn resilient.DelayFunction[R]) CircuitBreakerBuilder[R] {
	c.BaseDelayablePolicy.WithDelayFn(delayFn)
	return c
}

func (c *circuitBreakerConfig[R]) WithFailureThreshold(threshold ThresholdConfig) CircuitBreakerBuilder[R] {
	c.failureThresholdConfig = threshold
	return c
}

func (c *circuitBreakerConfig[R]) WithSuccessThreshold(successThreshold uint, successThresholdingCapacity uint) CircuitBreakerBuilder[R] {
	c.successThreshold = successThreshold
	c.successThresholdingCapacity = successThresholdingCapacity
	return c
}

func (c *circuitBreakerConfig[R]) WithClock(clock resilient.Clock) CircuitBreakerBuilder[R] {
	c.clock = clock
	return c
}

func (c *circuitBreakerConfig[R]) OnSuccess(listener func(resilient.ExecutionDoneEvent[R])) CircuitBreakerBuilder[R] {
	c.BaseListenablePolicy.OnSuccess(listener)
	return c
}

func (c *circuitBreakerConfig[R]) OnFailure(listener func(resilient.ExecutionDoneEvent[R])) CircuitBreakerBuilder[R] {
	c.BaseListenablePolicy.OnFailure(listener)
	return c
}

func (c *circuitBreakerConfig[R]) OnClose(listener func(StateChangedEvent)) CircuitBreakerBuilder[R] {
	c.closeListener = listener
	return c
}

func (c *circuitBreakerConfig[R]) OnOpen(listener func(StateChangedEvent)) CircuitBreakerBuilder[R] {
	c.openListener = listener
	return c
}

func (c *circuitBreakerConfig[R]) OnHalfOpen(listener func(StateChangedEvent)) CircuitBreakerBuilder[R] {
	c.halfOpenListener = listener
	return c
}

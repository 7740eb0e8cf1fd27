package circuitbreaker

import (
	"time"

	"github.com/resilient-go/resilient-go"
	"github.com/resilient-go/resilient-go/internal/util"
)

// circuitState is the behavior that varies by State: admission, stats, and threshold checking. All methods require
// the owning circuitBreaker's mutex to already be held.
type circuitState[R any] interface {
	getState() State
	getStats() util.Window
	getRemainingDelay() time.Duration
	tryAcquirePermit() bool
	checkThresholdAndReleasePermit(exec *resilient.Execution[R])
}

func newWindow[R any](config *circuitBreakerConfig[R], supportsTimeBased bool, capacity uint, period time.Duration) util.Window {
	if supportsTimeBased && period != 0 {
		return util.NewTimedWindow(defaultBucketCount, period, config.clock.Now)
	}
	return util.NewCountingWindow(capacity)
}

const defaultBucketCount = 10

type closedState[R any] struct {
	breaker *circuitBreaker[R]
	stats   util.Window
}

var _ circuitState[any] = &closedState[any]{}

func newClosedState[R any](breaker *circuitBreaker[R]) *closedState[R] {
	cfg := breaker.config.failureThresholdConfig
	capacity := cfg.thresholdingCapacity
	if cfg.executionThreshold != 0 {
		capacity = cfg.executionThreshold
	}
	return &closedState[R]{
		breaker: breaker,
		stats:   newWindow[R](breaker.config, true, capacity, cfg.thresholdingPeriod),
	}
}

func (s *closedState[R]) getState() State {
	return ClosedState
}

func (s *closedState[R]) getStats() util.Window {
	return s.stats
}

func (s *closedState[R]) getRemainingDelay() time.Duration {
	return 0
}

func (s *closedState[R]) tryAcquirePermit() bool {
	return true
}

func (s *closedState[R]) checkThresholdAndReleasePermit(exec *resilient.Execution[R]) {
	cfg := s.breaker.config.failureThresholdConfig
	executionThreshold := cfg.executionThreshold
	if executionThreshold == 0 {
		executionThreshold = cfg.thresholdingCapacity
	}
	if s.stats.ExecutionCount() < executionThreshold {
		return
	}
	if cfg.rateThreshold != 0 {
		if s.stats.FailureRate() >= cfg.rateThreshold {
			s.breaker.open(exec)
		}
	} else if s.stats.FailureCount() >= cfg.threshold {
		s.breaker.open(exec)
	}
}

type openState[R any] struct {
	breaker   *circuitBreaker[R]
	stats     util.Window
	startTime time.Time
	delay     time.Duration
}

var _ circuitState[any] = &openState[any]{}

func newOpenState[R any](breaker *circuitBreaker[R], previous circuitState[R], delay time.Duration) *openState[R] {
	return &openState[R]{
		breaker:   breaker,
		stats:     previous.getStats(),
		startTime: breaker.config.clock.Now(),
		delay:     delay,
	}
}

func (s *openState[R]) getState() State {
	return OpenState
}

func (s *openState[R]) getStats() util.Window {
	return s.stats
}

func (s *openState[R]) getRemainingDelay() time.Duration {
	elapsed := s.breaker.config.clock.Now().Sub(s.startTime)
	return util.Max(0, s.delay-elapsed)
}

func (s *openState[R]) tryAcquirePermit() bool {
	if s.breaker.config.clock.Now().Sub(s.startTime) >= s.delay {
		s.breaker.transitionTo(HalfOpenState, nil, s.breaker.config.halfOpenListener)
		return s.breaker.state.tryAcquirePermit()
	}
	return false
}

func (s *openState[R]) checkThresholdAndReleasePermit(_ *resilient.Execution[R]) {}

type halfOpenState[R any] struct {
	breaker             *circuitBreaker[R]
	stats               util.Window
	permittedExecutions int
}

var _ circuitState[any] = &halfOpenState[any]{}

func newHalfOpenState[R any](breaker *circuitBreaker[R]) *halfOpenState[R] {
	capacity := breaker.config.successThresholdingCapacity
	if capacity == 0 {
		capacity = breaker.config.failureThresholdConfig.executionThreshold
	}
	if capacity == 0 {
		capacity = breaker.config.failureThresholdConfig.thresholdingCapacity
	}
	if capacity == 0 {
		capacity = 1
	}
	// The probe budget is the success window's capacity: at most that many probes may be admitted concurrently.
	return &halfOpenState[R]{
		breaker:             breaker,
		stats:               util.NewCountingWindow(capacity),
		permittedExecutions: int(capacity),
	}
}

func (s *halfOpenState[R]) getState() State {
	return HalfOpenState
}

func (s *halfOpenState[R]) getStats() util.Window {
	return s.stats
}

func (s *halfOpenState[R]) getRemainingDelay() time.Duration {
	return 0
}

func (s *halfOpenState[R]) tryAcquirePermit() bool {
	if s.permittedExecutions <= 0 {
		return false
	}
	s.permittedExecutions--
	return true
}

// checkThresholdAndReleasePermit determines whether enough probes have succeeded to close the circuit, or enough
// have failed to reopen it, and releases a permit for another probe either way.
func (s *halfOpenState[R]) checkThresholdAndReleasePermit(exec *resilient.Execution[R]) {
	var successesExceeded, failuresExceeded bool

	successThreshold := s.breaker.config.successThreshold
	if successThreshold != 0 {
		capacity := s.breaker.config.successThresholdingCapacity
		successesExceeded = s.stats.SuccessCount() >= successThreshold
		failuresExceeded = s.stats.FailureCount() > capacity-successThreshold
	} else {
		cfg := s.breaker.config.failureThresholdConfig
		if cfg.rateThreshold != 0 {
			executionThresholdExceeded := s.stats.ExecutionCount() >= cfg.executionThreshold
			failuresExceeded = executionThresholdExceeded && s.stats.FailureRate() >= cfg.rateThreshold
			successesExceeded = executionThresholdExceeded && s.stats.SuccessRate() > 100-cfg.rateThreshold
		} else {
			failuresExceeded = s.stats.FailureCount() >= cfg.threshold
			successesExceeded = s.stats.SuccessCount() > cfg.thresholdingCapacity-cfg.threshold
		}
	}

	if successesExceeded {
		s.breaker.transitionTo(ClosedState, nil, s.breaker.config.closeListener)
	} else if failuresExceeded {
		s.breaker.open(exec)
	}
	s.permittedExecutions++
}

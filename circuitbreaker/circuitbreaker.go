// Package circuitbreaker implements a policy that temporarily halts executions once a failure threshold is reached,
// periodically probing for recovery before resuming normal admission.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/resilient-go/resilient-go"
)

// ErrOpen is returned as the terminal failure of an execution rejected because the circuit is open.
var ErrOpen = errors.New("circuit breaker open")

// State is one of the circuit breaker's three states.
type State int

const (
	ClosedState State = iota
	OpenState
	HalfOpenState
)

func (s State) String() string {
	switch s {
	case ClosedState:
		return "closed"
	case OpenState:
		return "open"
	case HalfOpenState:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker gates executions based on recent outcome statistics, and can also be driven manually. See
// CircuitBreakerBuilder for configuration options.
//
// This type is concurrency safe.
type CircuitBreaker[R any] interface {
	resilient.Policy[R]

	Open()
	Close()
	HalfOpen()
	// Reset clears recorded statistics and returns the breaker to the closed state, as if newly built. Useful in
	// tests that reuse one breaker across multiple runs.
	Reset()
	IsClosed() bool
	IsOpen() bool
	IsHalfOpen() bool
	GetState() State

	TryAcquirePermit() bool
	RecordResult(result R)
	RecordError(err error)
	RecordSuccess()
	RecordFailure()

	GetExecutionCount() uint
	GetRemainingDelay() time.Duration
	GetFailureCount() uint
	GetFailureRate() uint
	GetSuccessCount() uint
	GetSuccessRate() uint
}

// StateChangedEvent indicates that the circuit breaker transitioned out of PreviousState.
type StateChangedEvent struct {
	PreviousState State
}

type circuitBreaker[R any] struct {
	config *circuitBreakerConfig[R]

	mtx sync.Mutex
	// state is guarded by mtx
	state circuitState[R]
}

var _ CircuitBreaker[any] = &circuitBreaker[any]{}

func (cb *circuitBreaker[R]) ToExecutor() resilient.PolicyExecutor[R] {
	return newCircuitBreakerExecutor(cb)
}

func (cb *circuitBreaker[R]) TryAcquirePermit() bool {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	return cb.state.tryAcquirePermit()
}

func (cb *circuitBreaker[R]) Open() {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	cb.open(nil)
}

func (cb *circuitBreaker[R]) Close() {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	cb.transitionTo(ClosedState, nil, cb.config.closeListener)
}

func (cb *circuitBreaker[R]) HalfOpen() {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	cb.transitionTo(HalfOpenState, nil, cb.config.halfOpenListener)
}

func (cb *circuitBreaker[R]) Reset() {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	cb.state = newClosedState[R](cb)
}

func (cb *circuitBreaker[R]) GetState() State {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	return cb.state.getState()
}

func (cb *circuitBreaker[R]) IsClosed() bool   { return cb.GetState() == ClosedState }
func (cb *circuitBreaker[R]) IsOpen() bool     { return cb.GetState() == OpenState }
func (cb *circuitBreaker[R]) IsHalfOpen() bool { return cb.GetState() == HalfOpenState }

func (cb *circuitBreaker[R]) GetExecutionCount() uint {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	return cb.state.getStats().ExecutionCount()
}

func (cb *circuitBreaker[R]) GetRemainingDelay() time.Duration {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	return cb.state.getRemainingDelay()
}

func (cb *circuitBreaker[R]) GetFailureCount() uint {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	return cb.state.getStats().FailureCount()
}

func (cb *circuitBreaker[R]) GetFailureRate() uint {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	return cb.state.getStats().FailureRate()
}

func (cb *circuitBreaker[R]) GetSuccessCount() uint {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	return cb.state.getStats().SuccessCount()
}

func (cb *circuitBreaker[R]) GetSuccessRate() uint {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	return cb.state.getStats().SuccessRate()
}

func (cb *circuitBreaker[R]) RecordFailure() {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	cb.recordFailure(nil)
}

func (cb *circuitBreaker[R]) RecordError(err error) {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	var zero R
	cb.recordResult(zero, err, nil)
}

func (cb *circuitBreaker[R]) RecordResult(result R) {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	cb.recordResult(result, nil, nil)
}

func (cb *circuitBreaker[R]) RecordSuccess() {
	cb.mtx.Lock()
	defer cb.mtx.Unlock()
	cb.recordSuccess()
}

// transitionTo requires mtx to already be held.
func (cb *circuitBreaker[R]) transitionTo(newState State, exec *resilient.Execution[R], listener func(StateChangedEvent)) {
	if cb.state.getState() == newState {
		return
	}
	previous := cb.state.getState()
	switch newState {
	case ClosedState:
		cb.state = newClosedState[R](cb)
	case OpenState:
		delay := cb.config.ComputeDelay(exec)
		if delay == -1 {
			delay = cb.config.Delay
		}
		cb.state = newOpenState[R](cb, cb.state, delay)
	case HalfOpenState:
		cb.state = newHalfOpenState[R](cb)
	}
	if listener != nil {
		listener(StateChangedEvent{PreviousState: previous})
	}
}

// open requires mtx to already be held.
func (cb *circuitBreaker[R]) open(exec *resilient.Execution[R]) {
	cb.transitionTo(OpenState, exec, cb.config.openListener)
}

// recordResult requires mtx to already be held.
func (cb *circuitBreaker[R]) recordResult(result R, err error, exec *resilient.Execution[R]) {
	if cb.config.IsFailure(result, err) {
		cb.recordFailure(exec)
	} else {
		cb.recordSuccess()
	}
}

// recordSuccess requires mtx to already be held.
func (cb *circuitBreaker[R]) recordSuccess() {
	cb.state.getStats().RecordSuccess()
	cb.state.checkThresholdAndReleasePermit(nil)
}

// recordFailure requires mtx to already be held.
func (cb *circuitBreaker[R]) recordFailure(exec *resilient.Execution[R]) {
	cb.state.getStats().RecordFailure()
	cb.state.checkThresholdAndReleasePermit(exec)
}

// Package util provides small numeric and predicate helpers shared by the retrypolicy and circuitbreaker packages.
package util

import "time"

// AppliesToAny reports whether any of the given predicates matches result/err. An empty predicate slice never
// matches.
func AppliesToAny[R any](predicates []func(result R, err error) bool, result R, err error) bool {
	for _, p := range predicates {
		if p(result, err) {
			return true
		}
	}
	return false
}

// Min returns the smaller of a and b.
func Min(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// RandomDelayInRange returns a uniformly random duration in [minNanos, maxNanos), using r as the source of
// randomness in [0, 1).
func RandomDelayInRange(minNanos, maxNanos int64, r float64) time.Duration {
	if maxNanos <= minNanos {
		return time.Duration(minNanos)
	}
	return time.Duration(minNanos + int64(r*float64(maxNanos-minNanos)))
}

// RandomDelay adds or subtracts, at random, up to jitter from delay, clamped at zero. r must be in [0, 1).
func RandomDelay(delay, jitter time.Duration, r float64) time.Duration {
	offset := time.Duration((r*2 - 1) * float64(jitter))
	return Max(0, delay+offset)
}

// RandomDelayFactor adds or subtracts, at random, up to delay*jitterFactor from delay, clamped at zero. r must be in
// [0, 1).
func RandomDelayFactor(delay time.Duration, jitterFactor float32, r float32) time.Duration {
	offset := time.Duration((r*2 - 1) * jitterFactor * float32(delay))
	return Max(0, delay+offset)
}

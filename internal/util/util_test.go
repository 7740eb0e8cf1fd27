package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMinMax(t *testing.T) {
	assert.Equal(t, time.Second, Min(time.Second, 2*time.Second))
	assert.Equal(t, 2*time.Second, Max(time.Second, 2*time.Second))
}

func TestRandomDelayInRange(t *testing.T) {
	assert.Equal(t, time.Duration(100), RandomDelayInRange(100, 200, 0))
	assert.Equal(t, time.Duration(200), RandomDelayInRange(100, 200, 1))
	// maxNanos <= minNanos is degenerate: the min bound is returned as-is.
	assert.Equal(t, time.Duration(200), RandomDelayInRange(200, 100, 0.5))
}

func TestRandomDelayClampsAtZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), RandomDelay(10, 100, 0))
	assert.Equal(t, time.Duration(0), RandomDelayFactor(10, 10, 0))
}

func TestAppliesToAny(t *testing.T) {
	predicates := []func(string, error) bool{
		func(s string, _ error) bool { return s == "match" },
	}

	assert.True(t, AppliesToAny(predicates, "match", nil))
	assert.False(t, AppliesToAny(predicates, "other", nil))
	assert.False(t, AppliesToAny[string](nil, "match", nil))
}

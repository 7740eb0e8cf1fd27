package retrypolicy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var _ RetryPolicy[any] = &retryPolicy[any]{}

var errConnection = errors.New("connection refused")
var errInvalidArgument = errors.New("invalid argument")

func TestIsAbortNil(t *testing.T) {
	rp := OfDefaults[any]().(*retryPolicy[any])

	assert.False(t, rp.config.isAbort(nil, nil))
}

func TestIsAbortOn(t *testing.T) {
	rp := Builder().AbortOn(errInvalidArgument).Build().(*retryPolicy[any])

	assert.True(t, rp.config.isAbort(nil, errInvalidArgument))
	assert.False(t, rp.config.isAbort(nil, errConnection))
}

func TestIsAbortIf(t *testing.T) {
	rp := Builder().AbortIf(func(err error) bool {
		return errors.Is(err, errInvalidArgument)
	}).Build().(*retryPolicy[any])

	assert.True(t, rp.config.isAbort(nil, errInvalidArgument))
	assert.False(t, rp.config.isAbort(nil, errConnection))
}

func TestIsAbortWhen(t *testing.T) {
	rp := BuilderForResult[int]().AbortWhen(110).Build().(*retryPolicy[int])

	assert.True(t, rp.config.isAbort(110, nil))
	assert.False(t, rp.config.isAbort(50, nil))
	assert.False(t, rp.config.isAbort(110, errConnection))
}

func TestAllowsAttempts(t *testing.T) {
	rp := Builder().WithMaxAttempts(3).Build().(*retryPolicy[any])

	assert.True(t, rp.config.allowsAttempts(1))
	assert.True(t, rp.config.allowsAttempts(2))
	assert.False(t, rp.config.allowsAttempts(3))
}

func TestAllowsAttemptsUnlimited(t *testing.T) {
	rp := Builder().WithMaxAttempts(-1).Build().(*retryPolicy[any])

	assert.True(t, rp.config.allowsAttempts(1000))
}

func TestWithMaxRetries(t *testing.T) {
	rp := Builder().WithMaxRetries(2).Build().(*retryPolicy[any])

	assert.Equal(t, 3, rp.config.maxAttempts)
}

func TestWithMaxRetriesUnlimited(t *testing.T) {
	rp := Builder().WithMaxRetries(-1).Build().(*retryPolicy[any])

	assert.Equal(t, -1, rp.config.maxAttempts)
}

func TestDefaultMaxAttempts(t *testing.T) {
	rp := OfDefaults[any]().(*retryPolicy[any])

	assert.Equal(t, defaultMaxAttempts, rp.config.maxAttempts)
}

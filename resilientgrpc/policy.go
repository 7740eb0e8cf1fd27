package resilientgrpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/resilient-go/resilient-go/retrypolicy"
)

var retryableStatusCodes = map[codes.Code]struct{}{
	codes.Unavailable:       {},
	codes.DeadlineExceeded:  {},
	codes.ResourceExhausted: {},
}

// UnaryCallRetryPolicyBuilder returns a RetryPolicyBuilder preconfigured to retry on the gRPC status codes generally
// considered transient (Unavailable, DeadlineExceeded, ResourceExhausted). Chain further configuration, such as
// WithMaxAttempts or WithBackoff, onto the returned builder.
func UnaryCallRetryPolicyBuilder() retrypolicy.RetryPolicyBuilder[any] {
	return retrypolicy.BuilderForResult[any]().HandleAllIf(func(_ any, err error) bool {
		return isRetryable(err)
	})
}

// StreamCallRetryPolicyBuilder is the grpc.ClientStream counterpart of UnaryCallRetryPolicyBuilder, for use with
// StreamClientInterceptor.
func StreamCallRetryPolicyBuilder() retrypolicy.RetryPolicyBuilder[grpc.ClientStream] {
	return retrypolicy.BuilderForResult[grpc.ClientStream]().HandleAllIf(func(_ grpc.ClientStream, err error) bool {
		return isRetryable(err)
	})
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	_, retryable := retryableStatusCodes[s.Code()]
	return retryable
}

// Package resilientgrpc wires an Executor into gRPC's client interceptor chain, so retry, circuit-breaking, and
// fallback policies can wrap outbound RPCs.
package resilientgrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/resilient-go/resilient-go"
)

// UnaryClientInterceptor returns a gRPC unary client interceptor that drives each call through executor. `any` in
// Executor[any] refers to the RPC's reply.
func UnaryClientInterceptor(executor resilient.Executor[any]) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		exec := executor.WithContext(ctx)

		operation := func(_ resilient.Execution[any]) (any, error) {
			if err := invoker(ctx, method, req, reply, cc, opts...); err != nil {
				return reply, err
			}
			return reply, nil
		}

		_, err := exec.GetWithExecution(operation)
		return err
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that drives stream establishment through
// executor. Policies see failures to establish the stream; messages exchanged after establishment are not observed
// unless the caller wraps the returned grpc.ClientStream itself.
func StreamClientInterceptor(executor resilient.Executor[grpc.ClientStream]) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		exec := executor.WithContext(ctx)

		operation := func(_ resilient.Execution[grpc.ClientStream]) (grpc.ClientStream, error) {
			return streamer(ctx, desc, cc, method, opts...)
		}

		return exec.GetWithExecution(operation)
	}
}

package interceptors

import (
	"context"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

// NewRequestIDInterceptor propagates the caller's request id or assigns one,
// and echoes it on the response.
func NewRequestIDInterceptor(header string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			requestID := req.Header().Get(header)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			ctx = context.WithValue(ctx, RequestIDKey, requestID)

			resp, err := next(ctx, req)
			if resp != nil {
				resp.Header().Set(header, requestID)
			}
			if cerr, ok := asConnectError(err); ok {
				cerr.Meta().Set(header, requestID)
			}
			return resp, err
		}
	}
}

package interceptors

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// NewLoggingInterceptor logs every RPC with its duration and JSON payload sizes.
func NewLoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			requestSize := payloadSize(req.Any())

			logger.DebugContext(ctx, "RPC started", appendLoggerFields(ctx,
				"procedure", req.Spec().Procedure,
				"peer", req.Peer().Addr,
				"request_size_bytes", requestSize,
			)...)

			resp, err := next(ctx, req)
			duration := time.Since(start)

			responseSize := 0
			// resp.Any() can be nil even when resp is not
			if resp != nil {
				if anyResp := resp.Any(); anyResp != nil {
					responseSize = payloadSize(anyResp)
				}
			}

			fields := appendLoggerFields(ctx,
				"procedure", req.Spec().Procedure,
				"duration_ms", duration.Milliseconds(),
				"request_size_bytes", requestSize,
				"response_size_bytes", responseSize,
			)
			if err != nil {
				code := connect.CodeOf(err)
				fields = append(fields, "code", code.String(), "error", err)
				// client mistakes are not server failures
				if isClientCode(code) {
					logger.WarnContext(ctx, "RPC rejected", fields...)
				} else {
					logger.ErrorContext(ctx, "RPC failed", fields...)
				}
			} else {
				logger.InfoContext(ctx, "RPC completed", fields...)
			}

			return resp, err
		}
	}
}

func payloadSize(msg any) int {
	if msg == nil {
		return 0
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return 0
	}
	return len(b)
}

func isClientCode(code connect.Code) bool {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeNotFound, connect.CodeAlreadyExists,
		connect.CodePermissionDenied, connect.CodeUnauthenticated, connect.CodeResourceExhausted,
		connect.CodeFailedPrecondition, connect.CodeCanceled:
		return true
	}
	return false
}

func asConnectError(err error) (*connect.Error, bool) {
	var cerr *connect.Error
	if err != nil && errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}

func appendLoggerFields(ctx context.Context, base ...any) []any {
	if requestID, ok := RequestIDFromContext(ctx); ok && requestID != "" {
		base = append(base, "request_id", requestID)
	}
	if userID, ok := GetUserIDFromContext(ctx); ok {
		base = append(base, "user_id", userID)
	}
	return base
}

package rpcerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

func TestToConnect(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code connect.Code
	}{
		{"not found", fmt.Errorf("load prompt: %w", types.ErrNotFound), connect.CodeNotFound},
		{"conflict", fmt.Errorf("insert: %w", types.ErrConflict), connect.CodeAlreadyExists},
		{"bad request", fmt.Errorf("%w: title required", types.ErrBadRequest), connect.CodeInvalidArgument},
		{"unauthenticated", types.ErrUnauthenticated, connect.CodeUnauthenticated},
		{"forbidden", types.ErrForbidden, connect.CodePermissionDenied},
		{"upgrade", fmt.Errorf("remix: %w", types.ErrUpgradeRequired), connect.CodePermissionDenied},
		{"unavailable", fmt.Errorf("llm: %w", types.ErrUnavailable), connect.CodeUnavailable},
		{"canceled", context.Canceled, connect.CodeCanceled},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), connect.CodeDeadlineExceeded},
		{"unknown", errors.New("boom"), connect.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, connect.CodeOf(ToConnect(tt.err)))
		})
	}
}

func TestToConnectNil(t *testing.T) {
	assert.NoError(t, ToConnect(nil))
}

func TestToConnectKeepsConnectErrors(t *testing.T) {
	in := connect.NewError(connect.CodeResourceExhausted, errors.New("slow down"))
	assert.Same(t, in, ToConnect(fmt.Errorf("wrapped: %w", in)))
}

func TestToConnectUpgradeHeader(t *testing.T) {
	err := ToConnect(types.SubscriptionFeatures{}.Require(types.FeatureRemix))
	var cerr *connect.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "pro", cerr.Meta().Get(UpgradeHeader))
}

func TestToConnectHidesInternalMessages(t *testing.T) {
	err := ToConnect(errors.New("pq: password authentication failed"))
	assert.NotContains(t, err.Error(), "password")
}

func TestParseID(t *testing.T) {
	_, err := ParseID("id", "nope")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	id, err := ParseID("id", "7f9c24e5-4a3b-4c1e-9f2a-0d3b8c6e1a52")
	require.NoError(t, err)
	assert.Equal(t, "7f9c24e5-4a3b-4c1e-9f2a-0d3b8c6e1a52", id.String())
}

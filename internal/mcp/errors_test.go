package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gperrors "github.com/Aman-CERP/gpsearch/internal/errors"
	"github.com/Aman-CERP/gpsearch/internal/store"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"index not found", ErrIndexNotFound, ErrCodeIndexNotFound, "Index not found"},
		{"unknown index from store", fmt.Errorf("info: %w", store.ErrUnknownIndex), ErrCodeIndexNotFound, "gpsearch create"},
		{"module missing", store.ErrModuleMissing, ErrCodeBackendUnavailable, "search module"},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout, "timed out"},
		{"canceled", context.Canceled, ErrCodeTimeout, "canceled"},
		{"tool not found", ErrToolNotFound, ErrCodeMethodNotFound, "Tool not found"},
		{"invalid params", ErrInvalidParams, ErrCodeInvalidParams, "Invalid"},
		{"unknown", errors.New("boom"), ErrCodeInternalError, "Internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)

			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Contains(t, got.Message, tt.wantMsg)
		})
	}
}

func TestMapError_CodedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"validation", gperrors.ValidationError("bad query", nil), ErrCodeInvalidParams},
		{"invalid query", gperrors.New(gperrors.ErrCodeInvalidQuery, "distance out of range", nil), ErrCodeInvalidParams},
		{"backend", gperrors.BackendError("redis down", nil), ErrCodeBackendUnavailable},
		{"backend timeout", gperrors.New(gperrors.ErrCodeBackendTimeout, "slow", nil), ErrCodeTimeout},
		{"internal", gperrors.New(gperrors.ErrCodeIndexCreateFailed, "create failed", nil), ErrCodeInternalError},
		{"wrapped", fmt.Errorf("outer: %w", gperrors.ValidationError("inner", nil)), ErrCodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, MapError(tt.err).Code)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := gperrors.BackendError("redis unreachable", nil).WithSuggestion("Check backend.addr.")

	got := MapError(err)

	assert.Equal(t, "redis unreachable Check backend.addr.", got.Message)
}

func TestMapError_PassesThroughMCPError(t *testing.T) {
	orig := NewInvalidParamsError("query is required")

	assert.Same(t, orig, MapError(orig))
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("search_code")

	assert.Equal(t, "MCP error -32601: Tool 'search_code' not found.", err.Error())
}

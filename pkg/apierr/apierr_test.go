package apierr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vizlake/vizlake/pkg/apierr"
)

func TestError_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    *apierr.Error
		code   apierr.Code
		status int
	}{
		{apierr.InvalidRequest("bad"), apierr.CodeInvalidRequest, 400},
		{apierr.DataTooLarge("big"), apierr.CodeDataTooLarge, 413},
		{apierr.SchemaValidationFailed("invalid"), apierr.CodeSchemaValidationFailed, 422},
		{apierr.ModelDecisionFailed("down"), apierr.CodeModelDecisionFailed, 424},
	}
	for _, tc := range cases {
		require.Equal(t, tc.code, tc.err.Code)
		require.Equal(t, tc.status, tc.err.Status)
	}
}

func TestError_From(t *testing.T) {
	t.Parallel()

	t.Run("coded errors pass through wrapping", func(t *testing.T) {
		t.Parallel()

		inner := apierr.InvalidRequest("bad input")
		wrapped := fmt.Errorf("handling request: %w", inner)
		got := apierr.From(wrapped)
		require.Equal(t, apierr.CodeInvalidRequest, got.Code)
		require.Equal(t, "bad input", got.Message)
	})

	t.Run("unknown errors map to INTERNAL", func(t *testing.T) {
		t.Parallel()

		got := apierr.From(errors.New("disk on fire"))
		require.Equal(t, apierr.CodeInternal, got.Code)
		require.Equal(t, 500, got.Status)
	})
}

func TestError_CauseChain(t *testing.T) {
	t.Parallel()

	cause := errors.New("root cause")
	err := apierr.ModelDecisionFailed("model request failed").WithCause(cause)
	require.ErrorIs(t, err, cause)
}

func TestError_Payload(t *testing.T) {
	t.Parallel()

	err := apierr.SchemaValidationFailed("invalid decision").WithDetails("score out of range")
	p := err.Payload("corr-123")
	require.Equal(t, apierr.CodeSchemaValidationFailed, p.Error)
	require.Equal(t, "invalid decision", p.Message)
	require.Equal(t, "score out of range", p.Details)
	require.Equal(t, "corr-123", p.CorrelationID)
}

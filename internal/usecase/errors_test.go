package usecase

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_PublicMessage(t *testing.T) {
	require.Equal(t, "Message is required", newError(ErrorInvalidInput, "r", "Message is required", nil).PublicMessage())
	require.Equal(t, "deadline exceeded", newError(ErrorUpstream, "r", "", errors.New("deadline exceeded")).PublicMessage())
	require.Equal(t, "Internal server error", newError(ErrorInternal, "r", "", errors.New("secret detail")).PublicMessage())
	require.Equal(t, "Not found", newError(ErrorNotFound, "r", "", nil).PublicMessage())
}

func TestError_UnwrapAndString(t *testing.T) {
	cause := errors.New("boom")
	err := newError(ErrorUpstream, "agent_error", "", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "usecase: UPSTREAM_ERROR (agent_error): boom", err.Error())
	require.Equal(t, "usecase: INVALID_INPUT (x)", newError(ErrorInvalidInput, "x", "", nil).Error())

	var nilErr *Error
	require.Empty(t, nilErr.Error())
	require.Nil(t, nilErr.Unwrap())
}

func TestAsError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", newError(ErrorNotFound, "audio_not_found", "", nil))
	require.Equal(t, ErrorNotFound, AsError(wrapped).Code)

	plain := AsError(errors.New("raw"))
	require.Equal(t, ErrorInternal, plain.Code)
	require.Equal(t, "Internal server error", plain.PublicMessage())
}

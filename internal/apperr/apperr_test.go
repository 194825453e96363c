package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesKind(t *testing.T) {
	err := Duplicate("username")
	require.True(t, Is(err, KindDuplicate))
	require.False(t, Is(err, KindNotFound))
}

func TestIsUnwrapsWrappedErrors(t *testing.T) {
	inner := NotAuthorized("delete project")
	wrapped := fmt.Errorf("handling request: %w", inner)
	require.True(t, Is(wrapped, KindNotAuthorized))
}

func TestIsRejectsPlainErrors(t *testing.T) {
	require.False(t, Is(errors.New("boom"), KindPersistence))
	require.False(t, Is(nil, KindPersistence))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("insert user", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "persistence_failure")
	require.Contains(t, err.Error(), "insert user")
	require.Contains(t, err.Error(), "connection reset")
}

func TestErrorMessageWithoutCause(t *testing.T) {
	err := NotFound("task")
	require.Equal(t, "not_found: task", err.Error())
}

package cachesim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("Config.Validate", "bad cache size")

	require.Equal(t, "Config.Validate", err.Op)
	require.Equal(t, ErrCodeConfig, err.Code)
	require.Equal(t, "cachesim: bad cache size (op=Config.Validate)", err.Error())
}

func TestTraceParseError(t *testing.T) {
	inner := errors.New("invalid opcode \"9\"")
	err := NewTraceParseError("FileSource.Next", "core_0.trace", 42, inner)

	require.Equal(t, ErrCodeTraceParse, err.Code)
	require.Equal(t, "core_0.trace", err.File)
	require.Equal(t, 42, err.Line)
	require.Equal(t, "cachesim: invalid opcode \"9\" (op=FileSource.Next)", err.Error())
	require.ErrorIs(t, err, inner)
}

func TestInvariantError(t *testing.T) {
	err := NewInvariantError("Bus.BroadcastInvalidate", "bus-owner-exclusivity", "unexpected snoop cost")

	require.Equal(t, ErrCodeInvariant, err.Code)
	require.Equal(t, "bus-owner-exclusivity", err.Invariant)
	require.Equal(t, "cachesim: unexpected snoop cost (op=Bus.BroadcastInvalidate)", err.Error())
}

func TestWrapErrorPreservesCode(t *testing.T) {
	original := NewConfigError("Config.Validate", "bad geometry")
	wrapped := WrapError("Simulator.New", original)

	require.Equal(t, "Simulator.New", wrapped.Op)
	require.Equal(t, ErrCodeConfig, wrapped.Code)
	require.True(t, errors.Is(wrapped, original))
}

func TestWrapErrorNil(t *testing.T) {
	require.Nil(t, WrapError("op", nil))
}

func TestWrapErrorPlainError(t *testing.T) {
	wrapped := WrapError("trace.Open", errors.New("file not found"))

	require.Equal(t, ErrCodeConfig, wrapped.Code)
	require.Equal(t, "file not found", wrapped.Msg)
}

func TestIsCode(t *testing.T) {
	err := NewConfigError("op", "msg")

	require.True(t, IsCode(err, ErrCodeConfig))
	require.False(t, IsCode(err, ErrCodeInvariant))
	require.False(t, IsCode(nil, ErrCodeConfig))
}

func TestErrorIsComparesByCode(t *testing.T) {
	a := NewConfigError("op-a", "msg-a")
	b := NewConfigError("op-b", "msg-b")

	require.True(t, errors.Is(a, b))
	require.False(t, errors.Is(a, NewInvariantError("op", "inv", "msg")))
}

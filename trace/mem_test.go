package trace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/cachesim/internal/proto"
)

func TestMemSourceReplaysInOrder(t *testing.T) {
	src := NewMemSource([]proto.Instruction{
		{Kind: proto.InstrLoad, Address: 0x10},
		{Kind: proto.InstrStore, Address: 0x20},
	})

	i1, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, proto.InstrLoad, i1.Kind)

	i2, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, proto.InstrStore, i2.Kind)

	_, err = src.Next()
	require.ErrorIs(t, err, ErrEndOfTrace)
}

func TestMemSourceReset(t *testing.T) {
	src := NewMemSource([]proto.Instruction{
		{Kind: proto.InstrOther, Cycles: 4},
	})

	_, err := src.Next()
	require.NoError(t, err)
	_, err = src.Next()
	require.ErrorIs(t, err, ErrEndOfTrace)

	require.NoError(t, src.Reset())

	instr, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, 4, instr.Cycles)
}

func TestMemSourceIsIndependentOfInputSlice(t *testing.T) {
	instrs := []proto.Instruction{{Kind: proto.InstrLoad, Address: 1}}
	src := NewMemSource(instrs)
	instrs[0].Address = 99

	instr, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(1), instr.Address)
}

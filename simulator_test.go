package cachesim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/cachesim/internal/proto"
)

// fakeSource is a scriptable TraceSource, the same role
// processor_test.go's fakeSource plays one layer down, reimplemented
// here so this file never needs to import the trace package (which
// imports this one, for *Error construction — importing it back here
// would be a cycle).
type fakeSource struct {
	instrs []proto.Instruction
	pos    int
}

func (f *fakeSource) Next() (proto.Instruction, error) {
	if f.pos >= len(f.instrs) {
		return proto.Instruction{Kind: proto.InstrEnd}, nil
	}
	instr := f.instrs[f.pos]
	f.pos++
	return instr, nil
}

func twoProcessorConfig() Config {
	cfg := DefaultConfig()
	cfg.NumProcessors = 2
	cfg.CacheSizeBytes = 64
	cfg.Associativity = 1
	cfg.BlockSizeBytes = 16
	cfg.InputPrefix = "unused-for-mem-sources"
	return cfg
}

func TestNewRejectsSourceCountMismatch(t *testing.T) {
	cfg := twoProcessorConfig()
	_, err := New(cfg, []TraceSource{&fakeSource{}})
	require.Error(t, err)
	require.True(t, IsCode(err, ErrCodeConfig))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := twoProcessorConfig()
	cfg.NumProcessors = 0
	_, err := New(cfg, nil)
	require.Error(t, err)
}

func TestRunTerminatesOnAllDone(t *testing.T) {
	cfg := twoProcessorConfig()
	sources := []TraceSource{
		&fakeSource{}, // immediately InstrEnd
		&fakeSource{},
	}

	sim, err := New(cfg, sources)
	require.NoError(t, err)

	cycles, err := sim.Run(context.Background())
	require.NoError(t, err)
	require.True(t, sim.Done())
	require.Greater(t, cycles, int64(0))
	require.Equal(t, cycles, sim.Now())
}

func TestRunWithComputeOnlyTraceAdvancesOneCyclePerInstruction(t *testing.T) {
	cfg := twoProcessorConfig()
	sources := []TraceSource{
		&fakeSource{instrs: []proto.Instruction{
			{Kind: proto.InstrOther, Cycles: 1},
			{Kind: proto.InstrOther, Cycles: 1},
		}},
		&fakeSource{instrs: []proto.Instruction{
			{Kind: proto.InstrOther, Cycles: 1},
		}},
	}

	sim, err := New(cfg, sources)
	require.NoError(t, err)

	_, err = sim.Run(context.Background())
	require.NoError(t, err)

	for id := 0; id < cfg.NumProcessors; id++ {
		p := sim.Stats().Processor(id)
		require.Equal(t, sim.Now(), p.TotalCycles())
	}
}

func TestRunWithLoadStoreExercisesCacheAndBus(t *testing.T) {
	cfg := twoProcessorConfig()
	sources := []TraceSource{
		&fakeSource{instrs: []proto.Instruction{
			{Kind: proto.InstrStore, Address: 0x0},
			{Kind: proto.InstrLoad, Address: 0x0},
		}},
		&fakeSource{instrs: []proto.Instruction{
			{Kind: proto.InstrLoad, Address: 0x0},
		}},
	}

	sim, err := New(cfg, sources)
	require.NoError(t, err)

	_, err = sim.Run(context.Background())
	require.NoError(t, err)
	require.True(t, sim.Done())
	require.True(t, sim.bus.Idle())

	for id := 0; id < cfg.NumProcessors; id++ {
		p := sim.Stats().Processor(id)
		require.Equal(t, sim.Now(), p.TotalCycles())
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	cfg := twoProcessorConfig()
	// A trace that never ends keeps the simulation from ever terminating
	// on its own, so cancellation is the only way Run returns.
	sources := []TraceSource{
		&fakeSource{instrs: repeatOther(10000)},
		&fakeSource{instrs: repeatOther(10000)},
	}

	sim, err := New(cfg, sources)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sim.Run(ctx)
	require.Error(t, err)
	require.False(t, sim.Done())
}

func repeatOther(n int) []proto.Instruction {
	instrs := make([]proto.Instruction, n)
	for i := range instrs {
		instrs[i] = proto.Instruction{Kind: proto.InstrOther, Cycles: 1}
	}
	return instrs
}

package trace

import (
	"sync"

	"github.com/behrlich/cachesim/internal/proto"
)

// MemSource is an in-memory, restartable instruction stream: a single
// mutex-guarded slice with a cursor standing in for a byte offset.
type MemSource struct {
	mu     sync.Mutex
	instrs []proto.Instruction
	pos    int
}

// NewMemSource builds a MemSource that replays instrs in order.
func NewMemSource(instrs []proto.Instruction) *MemSource {
	cp := make([]proto.Instruction, len(instrs))
	copy(cp, instrs)
	return &MemSource{instrs: cp}
}

// Next returns the next instruction, or ErrEndOfTrace once exhausted.
func (m *MemSource) Next() (proto.Instruction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pos >= len(m.instrs) {
		return proto.Instruction{}, ErrEndOfTrace
	}
	instr := m.instrs[m.pos]
	m.pos++
	return instr, nil
}

// Reset rewinds the cursor to the start of the stream.
func (m *MemSource) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = 0
	return nil
}

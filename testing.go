package cachesim

import (
	"sync"

	"github.com/behrlich/cachesim/internal/proto"
)

// MockTraceSource is a programmable TraceSource: a fixed instruction
// sequence with call-count tracking, for unit tests of code built on
// top of Simulator that need a trace without a fixture file.
type MockTraceSource struct {
	mu     sync.Mutex
	instrs []proto.Instruction
	pos    int
	calls  int
}

// NewMockTraceSource builds a MockTraceSource that replays instrs in
// order, then reports InstrEnd forever.
func NewMockTraceSource(instrs []proto.Instruction) *MockTraceSource {
	cp := make([]proto.Instruction, len(instrs))
	copy(cp, instrs)
	return &MockTraceSource{instrs: cp}
}

// Next implements TraceSource.
func (m *MockTraceSource) Next() (proto.Instruction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.pos >= len(m.instrs) {
		return proto.Instruction{Kind: proto.InstrEnd}, nil
	}
	instr := m.instrs[m.pos]
	m.pos++
	return instr, nil
}

// CallCount returns the number of times Next has been called.
func (m *MockTraceSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Remaining returns how many scripted instructions have not yet been
// consumed (not counting the trailing, unlimited InstrEnd).
func (m *MockTraceSource) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.instrs) {
		return 0
	}
	return len(m.instrs) - m.pos
}

// Reset rewinds the source to replay from the beginning, without
// resetting the call counter.
func (m *MockTraceSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = 0
}

var _ TraceSource = (*MockTraceSource)(nil)

// Package proto defines the wire-shaped vocabulary shared by the engine's
// components: the instruction stream's tagged variant, the two protocols'
// block states, and the bus signals exchanged between caches and the bus.
//
// It is a small, dependency-free package of constants and plain structs
// that every other engine package imports, with no behaviour of its own
// beyond parsing.
package proto

import (
	"errors"
	"fmt"
)

// ErrEndOfTrace is returned by a trace source's Next once its
// instruction stream is exhausted. Defined here, rather than in package
// trace or package processor, so both sides of the processor/trace-
// source boundary recognize the same sentinel without either package
// importing the other.
var ErrEndOfTrace = errors.New("proto: end of trace")

// Protocol identifies which coherence protocol a simulation run uses.
type Protocol int

const (
	MESI Protocol = iota
	Dragon
)

func (p Protocol) String() string {
	switch p {
	case MESI:
		return "MESI"
	case Dragon:
		return "Dragon"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ParseProtocol maps a CLI-supplied protocol name to a Protocol value.
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "MESI", "mesi":
		return MESI, nil
	case "Dragon", "dragon":
		return Dragon, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q", s)
	}
}

// Op is the instruction opcode used by the trace-line format.
type Op uint8

const (
	OpLoad  Op = 0
	OpStore Op = 1
	OpOther Op = 2
	// opcodes 3 and 4 are reserved and are parse errors.
)

// Instruction is the tagged variant of one trace event: Load(address),
// Store(address), Other(cycles), or End. Kind selects which fields are
// meaningful; End carries neither Address nor Cycles.
type Instruction struct {
	Kind    InstructionKind
	Address uint64
	Cycles  int
}

// InstructionKind discriminates an Instruction's variant.
type InstructionKind uint8

const (
	InstrLoad InstructionKind = iota
	InstrStore
	InstrOther
	InstrEnd
)

func (k InstructionKind) String() string {
	switch k {
	case InstrLoad:
		return "Load"
	case InstrStore:
		return "Store"
	case InstrOther:
		return "Other"
	case InstrEnd:
		return "End"
	default:
		return "Unknown"
	}
}

// MESIState is a cache block's coherence state under MESI/Illinois.
type MESIState uint8

const (
	MESIInvalid MESIState = iota
	MESIShared
	MESIExclusive
	MESIModified
)

func (s MESIState) String() string {
	switch s {
	case MESIInvalid:
		return "Invalid"
	case MESIShared:
		return "Shared"
	case MESIExclusive:
		return "Exclusive"
	case MESIModified:
		return "Modified"
	default:
		return "Unknown"
	}
}

// Dirty reports whether a block in this state must be flushed to memory
// before it can be safely discarded or shared without cache-to-cache
// transfer of the up-to-date copy.
func (s MESIState) Dirty() bool {
	return s == MESIModified
}

// DragonState is a cache block's coherence state under Dragon.
type DragonState uint8

const (
	DragonInvalid DragonState = iota
	DragonExclusive
	DragonSharedClean
	DragonSharedModified
	DragonModified
)

func (s DragonState) String() string {
	switch s {
	case DragonInvalid:
		return "Invalid"
	case DragonExclusive:
		return "Exclusive"
	case DragonSharedClean:
		return "SharedClean"
	case DragonSharedModified:
		return "SharedModified"
	case DragonModified:
		return "Modified"
	default:
		return "Unknown"
	}
}

// Dirty reports whether a block in this state holds data that has not
// been written back to memory.
func (s DragonState) Dirty() bool {
	return s == DragonModified || s == DragonSharedModified
}

// AccessKind distinguishes a processor signal to its cache: a read (load)
// or a write (store).
type AccessKind uint8

const (
	Read AccessKind = iota
	Write
)

func (k AccessKind) String() string {
	if k == Write {
		return "Write"
	}
	return "Read"
}

// SignalKind is the closed set of bus signals.
type SignalKind uint8

const (
	BusRd SignalKind = iota
	BusRdX
	BusUpd
	Flush
)

func (k SignalKind) String() string {
	switch k {
	case BusRd:
		return "BusRd"
	case BusRdX:
		return "BusRdX"
	case BusUpd:
		return "BusUpd"
	case Flush:
		return "Flush"
	default:
		return "Unknown"
	}
}

// Signal is a bus transmission: a signal kind, the block address it
// concerns, and the id of the cache that originated it.
type Signal struct {
	Kind    SignalKind
	Address uint64
	Origin  int
}

func (s Signal) String() string {
	return fmt.Sprintf("%s(addr=0x%x, origin=%d)", s.Kind, s.Address, s.Origin)
}

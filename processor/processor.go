// Package processor implements one core's instruction-stream cursor and
// the Ready/ExecutingOther/WaitingForCache/ReadyToProceed/Done state
// machine that drives it.
//
// A Processor is a loop that, each time it is given a turn, either
// advances on its own (ExecutingOther counting down cycles of
// non-memory work) or waits on a completion signal from its cache
// (WaitingForCache, resolved by a later call to OnWake). The driver
// calls Tick synchronously on every processor once per cycle rather
// than each processor running its own goroutine.
package processor

import (
	"errors"
	"fmt"

	"github.com/behrlich/cachesim/internal/dmq"
	"github.com/behrlich/cachesim/internal/logging"
	"github.com/behrlich/cachesim/internal/proto"
	"github.com/behrlich/cachesim/internal/stats"
)

// ErrEndOfTrace is returned by a Source once its instruction stream is
// exhausted. A Processor treats it as a single synthetic End
// instruction rather than an error condition. It is the same sentinel
// proto.ErrEndOfTrace that every trace.Source implementation returns,
// aliased here so callers of this package never need to import
// internal/proto themselves to check for it.
var ErrEndOfTrace = proto.ErrEndOfTrace

// Source is everything a Processor needs from its instruction stream.
// Defined locally so this package never imports the concrete trace
// package; the root package wires a trace.Source into it.
type Source interface {
	Next() (proto.Instruction, error)
}

// CacheHandle is everything a Processor needs from its own cache.
// Defined locally, structurally satisfied by *cache.Cache, so
// processor and cache share no import in either direction; the root
// package wires a concrete *cache.Cache into this role.
type CacheHandle interface {
	OnProcessorSignal(now int64, kind proto.AccessKind, address uint64)
}

// State is the processor control state machine.
type State uint8

const (
	Ready State = iota
	ExecutingOther
	WaitingForCache
	ReadyToProceed
	Done
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case ExecutingOther:
		return "ExecutingOther"
	case WaitingForCache:
		return "WaitingForCache"
	case ReadyToProceed:
		return "ReadyToProceed"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Options configures a Processor at construction.
type Options struct {
	ID     int
	Trace  Source
	Cache  CacheHandle
	Stats  *stats.Stats
	Logger *logging.Logger
}

// Processor drives one core's instruction stream against its cache.
type Processor struct {
	id int

	trace Source
	cache CacheHandle

	state  State
	otherK int

	stats  *stats.Stats
	logger *logging.Logger
}

// New builds a Processor per Options.
func New(opts Options) *Processor {
	p := &Processor{
		id:     opts.ID,
		trace:  opts.Trace,
		cache:  opts.Cache,
		stats:  opts.Stats,
		logger: opts.Logger,
	}
	if p.logger == nil {
		p.logger = logging.Default()
	}
	p.logger = p.logger.WithProcessor(opts.ID)
	return p
}

// ID returns the processor's (and its cache's) id.
func (p *Processor) ID() int { return p.id }

// State reports the processor's current control state.
func (p *Processor) State() State { return p.state }

// Done reports whether the processor has retired its End instruction,
// part of the driver's overall termination check.
func (p *Processor) Done() bool { return p.state == Done }

// OnWake is the DMQ delivery target for a cache's wake-up payload:
// WaitingForCache transitions to ReadyToProceed. Any other payload
// shape is a programmer error in the driver's DMQ wiring.
func (p *Processor) OnWake(payload interface{}) {
	if _, ok := payload.(dmq.WakeSignal); !ok {
		panic(fmt.Sprintf("processor %d: unexpected wake payload %T", p.id, payload))
	}
	if p.state != WaitingForCache {
		panic(fmt.Sprintf("processor %d: woken while in state %s", p.id, p.state))
	}
	p.state = ReadyToProceed
}

// Recipient identifies this processor as a DMQ destination, for
// drivers that route delivery generically by Recipient rather than by
// calling OnWake directly.
func (p *Processor) Recipient() dmq.Recipient {
	return dmq.Recipient{Kind: dmq.RecipientProcessor, ID: p.id}
}

// Tick advances the processor state machine exactly one cycle. now is
// the current simulation cycle, passed through to the cache on a
// Load/Store.
func (p *Processor) Tick(now int64) {
	switch p.state {
	case WaitingForCache:
		p.stats.RecordStall(p.id, 1)
		return
	case Done:
		p.stats.RecordIdle(p.id, 1)
		return
	case ReadyToProceed:
		p.state = Ready
	case ExecutingOther:
		p.stats.RecordCompute(p.id, 1)
		if p.otherK <= 1 {
			p.otherK = 0
			p.state = Ready
		} else {
			p.otherK--
		}
		return
	}

	if p.state != Ready {
		return
	}
	p.dispatch(now)
}

func (p *Processor) dispatch(now int64) {
	instr, err := p.trace.Next()
	if errors.Is(err, ErrEndOfTrace) {
		instr = proto.Instruction{Kind: proto.InstrEnd}
	} else if err != nil {
		panic(fmt.Sprintf("processor %d: trace read failed: %v", p.id, err))
	}

	switch instr.Kind {
	case proto.InstrOther:
		k := instr.Cycles
		if k <= 0 {
			k = 1
		}
		if k == 1 {
			p.stats.RecordCompute(p.id, 1)
			p.state = Ready
			return
		}
		p.otherK = k - 1
		p.state = ExecutingOther
		p.stats.RecordCompute(p.id, 1)
	case proto.InstrLoad:
		p.state = WaitingForCache
		p.stats.RecordStall(p.id, 1)
		p.cache.OnProcessorSignal(now, proto.Read, instr.Address)
	case proto.InstrStore:
		p.state = WaitingForCache
		p.stats.RecordStall(p.id, 1)
		p.cache.OnProcessorSignal(now, proto.Write, instr.Address)
	case proto.InstrEnd:
		p.state = Done
		p.stats.RecordIdle(p.id, 1)
		p.logger.Debug("processor done", "cycle", now)
	default:
		panic(fmt.Sprintf("processor %d: unknown instruction kind %v", p.id, instr.Kind))
	}
}

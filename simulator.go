package cachesim

import (
	"context"
	"fmt"

	"github.com/behrlich/cachesim/cache"
	"github.com/behrlich/cachesim/internal/bus"
	"github.com/behrlich/cachesim/internal/constants"
	"github.com/behrlich/cachesim/internal/dmq"
	"github.com/behrlich/cachesim/internal/logging"
	"github.com/behrlich/cachesim/internal/proto"
	"github.com/behrlich/cachesim/internal/stats"
	"github.com/behrlich/cachesim/processor"
)

// TraceSource is everything a Simulator needs from a processor's
// instruction stream. Defined locally, rather than importing package
// trace, so the engine has no dependency on how a trace is produced
// (file, directory, in-memory) — the same role processor.Source plays
// one layer down. Any *trace.FileSource or *trace.MemSource already
// satisfies this.
type TraceSource interface {
	Next() (proto.Instruction, error)
}

// Simulator is the cycle-accurate discrete-event driver: it owns the
// DMQ, the bus, and every processor/cache pair, and advances them in a
// fixed per-cycle order until every processor reports Done and the bus
// and DMQ have gone quiet.
type Simulator struct {
	cfg Config

	processors []*processor.Processor
	caches     []*cache.Cache
	bus        *bus.Bus
	queue      *dmq.Queue
	stats      *stats.Stats
	logger     *logging.Logger

	now int64
}

// New builds a Simulator from cfg and one TraceSource per processor.
// len(sources) must equal cfg.NumProcessors.
func New(cfg Config, sources []TraceSource) (*Simulator, error) {
	const op = "cachesim.New"

	if err := cfg.Validate(); err != nil {
		return nil, WrapError(op, err)
	}
	if len(sources) != cfg.NumProcessors {
		return nil, NewConfigError(op, fmt.Sprintf(
			"got %d trace sources, want %d (NumProcessors)", len(sources), cfg.NumProcessors))
	}

	logger := logging.Default()
	st := stats.New(cfg.NumProcessors)
	horizon := constants.MaxBusHoldCycles(cfg.BlockSizeBytes) + 1
	queue := dmq.New(horizon)
	b := bus.New(cfg.BlockSizeBytes, constants.WordSizeBytes, st, logger)

	sim := &Simulator{
		cfg:    cfg,
		queue:  queue,
		stats:  st,
		logger: logger,
		bus:    b,
	}

	for id := 0; id < cfg.NumProcessors; id++ {
		c := cache.New(cache.Options{
			ID:                           id,
			Protocol:                     cfg.Protocol,
			CacheSizeBytes:               cfg.CacheSizeBytes,
			Associativity:                cfg.Associativity,
			BlockSizeBytes:               cfg.BlockSizeBytes,
			ChargeExclusiveToSharedFlush: cfg.ChargeExclusiveToSharedFlush,
			Bus:                          b,
			DMQ:                          queue,
			Stats:                        st,
			Logger:                       logger,
		})
		b.Register(c)
		sim.caches = append(sim.caches, c)

		p := processor.New(processor.Options{
			ID:     id,
			Trace:  sources[id],
			Cache:  c,
			Stats:  st,
			Logger: logger,
		})
		sim.processors = append(sim.processors, p)
	}

	return sim, nil
}

// Stats exposes the live statistics sink, readable while a run is in
// progress or after it has finished.
func (s *Simulator) Stats() *stats.Stats { return s.stats }

// Now returns the current simulation cycle.
func (s *Simulator) Now() int64 { return s.now }

// Done reports whether every processor has retired its End instruction.
func (s *Simulator) Done() bool {
	for _, p := range s.processors {
		if !p.Done() {
			return false
		}
	}
	return true
}

// terminated is the full termination predicate: every processor Done,
// the bus Free with nothing queued, and no future DMQ entry
// outstanding.
func (s *Simulator) terminated() bool {
	return s.Done() && s.bus.Idle() && !s.queue.Pending(s.now)
}

// Run drives the simulation to completion, honoring ctx cancellation
// between cycles, and returns the final cycle count.
func (s *Simulator) Run(ctx context.Context) (int64, error) {
	for !s.terminated() {
		select {
		case <-ctx.Done():
			return s.now, WrapError("Simulator.Run", ctx.Err())
		default:
		}
		s.Tick()
	}
	return s.now, nil
}

// Tick advances the simulation exactly one cycle, in a fixed order:
// processors, then caches, then the bus; drain and dispatch due DMQ
// messages; then PostTick every component.
func (s *Simulator) Tick() {
	now := s.now

	for _, p := range s.processors {
		p.Tick(now)
	}
	for _, c := range s.caches {
		c.Tick(now)
	}
	s.bus.Tick()

	for _, e := range s.queue.DrainDue(now) {
		s.dispatch(e)
	}

	// PostTick: every handler invocation above already applied its
	// state mutation synchronously (Acquire/BusSig/ProcToCache collapsed
	// into direct calls per this engine's wiring), so there is no
	// further local-state-only step left to run here; the phase is kept
	// as an explicit no-op to preserve the five-step contract.

	s.now++
}

func (s *Simulator) dispatch(e dmq.Entry) {
	switch e.Recipient.Kind {
	case dmq.RecipientProcessor:
		s.processors[e.Recipient.ID].OnWake(e.Payload)
	default:
		panic(fmt.Sprintf("cachesim: unexpected DMQ recipient kind %v (only CacheToProc wake-ups are ever enqueued)", e.Recipient.Kind))
	}
}

// Package stats implements the simulator's statistics sink: atomic
// counters updated from within the engine on defined events, and a
// point-in-time Snapshot for reporting.
package stats

import "sync/atomic"

// ProcessorCounters holds the per-processor counters: total cycles,
// compute cycles, memory-stall cycles, idle cycles, hits, misses,
// private/shared access counts, and invalidations observed by that
// processor's cache.
type ProcessorCounters struct {
	ComputeCycles atomic.Int64
	StallCycles   atomic.Int64
	IdleCycles    atomic.Int64

	Loads  atomic.Int64
	Stores atomic.Int64

	Hits   atomic.Int64
	Misses atomic.Int64

	PrivateAccesses atomic.Int64
	SharedAccesses  atomic.Int64

	Invalidations atomic.Int64
}

// TotalCycles returns compute + stall + idle: every cycle a processor
// has lived through is accounted for in exactly one of the three.
func (c *ProcessorCounters) TotalCycles() int64 {
	return c.ComputeCycles.Load() + c.StallCycles.Load() + c.IdleCycles.Load()
}

// Stats is the simulation-wide statistics sink: one ProcessorCounters per
// processor plus the aggregate bus counters.
type Stats struct {
	processors []*ProcessorCounters

	BusTrafficBytes     atomic.Int64
	BusInvalidations    atomic.Int64
	BusUpdates          atomic.Int64
	BusTransmissions    atomic.Int64
	BusWritebacks       atomic.Int64
	BusAcquireCycles    atomic.Int64 // cumulative cycles the bus was Acquired
}

// New creates a Stats for the given number of processors.
func New(numProcessors int) *Stats {
	s := &Stats{processors: make([]*ProcessorCounters, numProcessors)}
	for i := range s.processors {
		s.processors[i] = &ProcessorCounters{}
	}
	return s
}

// Processor returns the counters for the given processor id.
func (s *Stats) Processor(id int) *ProcessorCounters {
	return s.processors[id]
}

// NumProcessors returns the number of processors tracked.
func (s *Stats) NumProcessors() int {
	return len(s.processors)
}

// RecordCompute charges compute cycles to a processor (Other instructions).
func (s *Stats) RecordCompute(proc int, cycles int) {
	s.processors[proc].ComputeCycles.Add(int64(cycles))
}

// RecordStall charges memory-stall cycles to a processor (time spent
// WaitingForCache).
func (s *Stats) RecordStall(proc int, cycles int) {
	s.processors[proc].StallCycles.Add(int64(cycles))
}

// RecordIdle charges idle cycles to a processor (ticks with nothing to do,
// e.g. once Done but other processors are still running).
func (s *Stats) RecordIdle(proc int, cycles int) {
	s.processors[proc].IdleCycles.Add(int64(cycles))
}

// RecordAccess records a load or store being issued.
func (s *Stats) RecordAccess(proc int, write bool) {
	if write {
		s.processors[proc].Stores.Add(1)
	} else {
		s.processors[proc].Loads.Add(1)
	}
}

// RecordHit records a cache hit, and whether the accessed block was held
// privately (Exclusive/Modified or Dragon Exclusive/Modified) or shared
// with at least one other cache at the time of access.
func (s *Stats) RecordHit(proc int, private bool) {
	s.processors[proc].Hits.Add(1)
	s.recordLocality(proc, private)
}

// RecordMiss records a cache miss.
func (s *Stats) RecordMiss(proc int, private bool) {
	s.processors[proc].Misses.Add(1)
	s.recordLocality(proc, private)
}

func (s *Stats) recordLocality(proc int, private bool) {
	if private {
		s.processors[proc].PrivateAccesses.Add(1)
	} else {
		s.processors[proc].SharedAccesses.Add(1)
	}
}

// RecordInvalidation records a snoop-driven invalidation of a block held
// by the given processor's cache.
func (s *Stats) RecordInvalidation(proc int) {
	s.processors[proc].Invalidations.Add(1)
	s.BusInvalidations.Add(1)
}

// RecordTransfer records a block-sized bus transmission (BusRd/BusRdX/
// Flush), each of which moves blockSizeBytes across the bus.
func (s *Stats) RecordTransfer(blockSizeBytes int) {
	s.BusTrafficBytes.Add(int64(blockSizeBytes))
	s.BusTransmissions.Add(1)
}

// RecordUpdate records a BusUpd transmission, which moves wordSizeBytes
// across the bus.
func (s *Stats) RecordUpdate(wordSizeBytes int) {
	s.BusTrafficBytes.Add(int64(wordSizeBytes))
	s.BusUpdates.Add(1)
}

// RecordWriteback records a flush-driven writeback (eviction or snoop).
func (s *Stats) RecordWriteback() {
	s.BusWritebacks.Add(1)
}

// RecordBusHold accumulates the number of cycles the bus spent
// Acquired, for utilisation reporting.
func (s *Stats) RecordBusHold(cycles int) {
	s.BusAcquireCycles.Add(int64(cycles))
}

// ProcessorSnapshot is a point-in-time copy of ProcessorCounters plus
// derived fields (total cycles, miss rate) for reporting.
type ProcessorSnapshot struct {
	ID              int
	TotalCycles     int64
	ComputeCycles   int64
	StallCycles     int64
	IdleCycles      int64
	Loads           int64
	Stores          int64
	Hits            int64
	Misses          int64
	MissRate        float64
	PrivateAccesses int64
	SharedAccesses  int64
	Invalidations   int64
}

// Snapshot is a point-in-time copy of the whole Stats, safe to format or
// serialise without racing further updates.
type Snapshot struct {
	Processors []ProcessorSnapshot

	BusTrafficBytes  int64
	BusInvalidations int64
	BusUpdates       int64
	BusTransmissions int64
	BusWritebacks    int64
	BusAcquireCycles int64
}

// Snapshot captures the current counter values.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Processors:       make([]ProcessorSnapshot, len(s.processors)),
		BusTrafficBytes:  s.BusTrafficBytes.Load(),
		BusInvalidations: s.BusInvalidations.Load(),
		BusUpdates:       s.BusUpdates.Load(),
		BusTransmissions: s.BusTransmissions.Load(),
		BusWritebacks:    s.BusWritebacks.Load(),
		BusAcquireCycles: s.BusAcquireCycles.Load(),
	}

	for i, p := range s.processors {
		hits := p.Hits.Load()
		misses := p.Misses.Load()
		total := hits + misses
		var missRate float64
		if total > 0 {
			missRate = float64(misses) / float64(total)
		}
		snap.Processors[i] = ProcessorSnapshot{
			ID:              i,
			TotalCycles:     p.TotalCycles(),
			ComputeCycles:   p.ComputeCycles.Load(),
			StallCycles:     p.StallCycles.Load(),
			IdleCycles:      p.IdleCycles.Load(),
			Loads:           p.Loads.Load(),
			Stores:          p.Stores.Load(),
			Hits:            hits,
			Misses:          misses,
			MissRate:        missRate,
			PrivateAccesses: p.PrivateAccesses.Load(),
			SharedAccesses:  p.SharedAccesses.Load(),
			Invalidations:   p.Invalidations.Load(),
		}
	}
	return snap
}

// Package cache implements one processor's private cache: a set-
// associative tag store plus the MESI/Illinois and Dragon coherence
// protocol state machines, and the control state machine (Idle /
// WaitingForBus / ResolvingRequest) that tracks an in-flight request.
//
// Bus and cache never import each other. The bus talks to a cache
// through bus.CacheHandle; a cache talks to the bus through BusHandle,
// defined here. The root package wires concrete *Cache and *bus.Bus
// values into both roles, de-cycling the two packages with interfaces
// instead of raw ids.
package cache

import (
	"fmt"

	"github.com/behrlich/cachesim/internal/constants"
	"github.com/behrlich/cachesim/internal/dmq"
	"github.com/behrlich/cachesim/internal/logging"
	"github.com/behrlich/cachesim/internal/proto"
	"github.com/behrlich/cachesim/internal/stats"
)

// BusHandle is everything a cache needs from the bus.
type BusHandle interface {
	RequestAcquire(id int)
	Transmit(origin int, sig proto.Signal)
	BroadcastInvalidate(origin int, sig proto.Signal)
	Query(requester int, address uint64) (present bool, dirty bool)
}

// controlState is the cache control state machine.
type controlState uint8

const (
	ctrlIdle controlState = iota
	ctrlWaitingForBus
	ctrlResolvingRequest
)

func (s controlState) String() string {
	switch s {
	case ctrlIdle:
		return "Idle"
	case ctrlWaitingForBus:
		return "WaitingForBus"
	case ctrlResolvingRequest:
		return "ResolvingRequest"
	default:
		return "Unknown"
	}
}

type pendingRequest struct {
	kind    proto.AccessKind
	address uint64

	// dragonPresent/dragonPriorState disambiguate which of Dragon's three
	// bus-grant formulas applies: absent/Invalid, SharedClean+Write, or
	// SharedModified+Write all enqueue an acquire, but each computes
	// overhead differently.
	dragonPresent    bool
	dragonPriorState proto.DragonState
}

// Options configures a Cache at construction.
type Options struct {
	ID             int
	Protocol       proto.Protocol
	CacheSizeBytes int
	Associativity  int
	BlockSizeBytes int

	// ChargeExclusiveToSharedFlush is a configurable policy flag: whether
	// MESI's Exclusive+BusRd→Shared transition charges a flush cost.
	// Defaults to false (no charge), the common convention.
	ChargeExclusiveToSharedFlush bool

	Bus    BusHandle
	DMQ    *dmq.Queue
	Stats  *stats.Stats
	Logger *logging.Logger
}

// Cache is one processor's private cache.
type Cache struct {
	id       int
	protocol proto.Protocol

	mesiStore   *TagStore[proto.MESIState]
	dragonStore *TagStore[proto.DragonState]

	ctrl    controlState
	pending pendingRequest

	resolvingRemaining int
	now                int64

	chargeExclusiveToSharedFlush bool

	bus    BusHandle
	queue  *dmq.Queue
	stats  *stats.Stats
	logger *logging.Logger
}

// New builds a Cache per Options.
func New(opts Options) *Cache {
	c := &Cache{
		id:                           opts.ID,
		protocol:                     opts.Protocol,
		chargeExclusiveToSharedFlush: opts.ChargeExclusiveToSharedFlush,
		bus:                          opts.Bus,
		queue:                        opts.DMQ,
		stats:                        opts.Stats,
		logger:                       opts.Logger,
	}
	if c.logger == nil {
		c.logger = logging.Default()
	}
	c.logger = c.logger.WithCache(opts.ID)

	switch opts.Protocol {
	case proto.MESI:
		c.mesiStore = NewTagStore[proto.MESIState](opts.CacheSizeBytes, opts.Associativity, opts.BlockSizeBytes)
	case proto.Dragon:
		c.dragonStore = NewTagStore[proto.DragonState](opts.CacheSizeBytes, opts.Associativity, opts.BlockSizeBytes)
	default:
		panic(fmt.Sprintf("cache: unknown protocol %v", opts.Protocol))
	}
	return c
}

// ID returns the cache's (and its owning processor's) id.
func (c *Cache) ID() int { return c.id }

// OnProcessorSignal is on_pr_sig: the processor's own cache calls this
// directly, since each processor exclusively owns its cache's control
// state and no arbitration is needed between a processor and its own
// cache. now is the current simulation cycle, needed to schedule the
// DMQ wake-up on a hit.
func (c *Cache) OnProcessorSignal(now int64, kind proto.AccessKind, address uint64) {
	c.now = now
	c.stats.RecordAccess(c.id, kind == proto.Write)

	if c.protocol == proto.MESI {
		c.onProcessorSignalMESI(now, kind, address)
		return
	}
	c.onProcessorSignalDragon(now, kind, address)
}

func (c *Cache) onProcessorSignalMESI(now int64, kind proto.AccessKind, address uint64) {
	state, present := c.mesiStore.Lookup(address)
	if !present {
		c.beginAcquire(kind, address, pendingRequest{kind: kind, address: address})
		return
	}

	switch {
	case state == proto.MESIShared && kind == proto.Read:
		c.mesiStore.Touch(address)
		c.completeHit(now, false)
	case state == proto.MESIShared && kind == proto.Write:
		c.bus.BroadcastInvalidate(c.id, proto.Signal{Kind: proto.BusRdX, Address: address, Origin: c.id})
		c.mesiStore.SetState(address, proto.MESIModified)
		c.mesiStore.Touch(address)
		c.completeHit(now, false)
	case state == proto.MESIExclusive && kind == proto.Read:
		c.mesiStore.Touch(address)
		c.completeHit(now, true)
	case state == proto.MESIExclusive && kind == proto.Write:
		c.mesiStore.SetState(address, proto.MESIModified)
		c.mesiStore.Touch(address)
		c.completeHit(now, true)
	case state == proto.MESIModified:
		c.mesiStore.Touch(address)
		c.completeHit(now, true)
	default:
		panic(fmt.Sprintf("cache: unreachable MESI present state %v", state))
	}
}

func (c *Cache) onProcessorSignalDragon(now int64, kind proto.AccessKind, address uint64) {
	state, present := c.dragonStore.Lookup(address)
	if !present {
		c.beginAcquire(kind, address, pendingRequest{kind: kind, address: address})
		return
	}

	switch {
	case state == proto.DragonExclusive && kind == proto.Read:
		c.dragonStore.Touch(address)
		c.completeHit(now, true)
	case state == proto.DragonExclusive && kind == proto.Write:
		c.dragonStore.SetState(address, proto.DragonModified)
		c.dragonStore.Touch(address)
		c.completeHit(now, true)
	case state == proto.DragonSharedClean && kind == proto.Read:
		c.dragonStore.Touch(address)
		c.completeHit(now, false)
	case state == proto.DragonSharedClean && kind == proto.Write:
		c.beginAcquire(kind, address, pendingRequest{kind: kind, address: address, dragonPresent: true, dragonPriorState: state})
	case state == proto.DragonSharedModified && kind == proto.Read:
		c.dragonStore.Touch(address)
		c.completeHit(now, false)
	case state == proto.DragonSharedModified && kind == proto.Write:
		c.beginAcquire(kind, address, pendingRequest{kind: kind, address: address, dragonPresent: true, dragonPriorState: state})
	case state == proto.DragonModified:
		c.dragonStore.Touch(address)
		c.completeHit(now, true)
	default:
		panic(fmt.Sprintf("cache: unreachable Dragon present state %v", state))
	}
}

func (c *Cache) beginAcquire(kind proto.AccessKind, address uint64, pending pendingRequest) {
	c.pending = pending
	c.ctrl = ctrlWaitingForBus
	c.bus.RequestAcquire(c.id)
}

// completeHit implements the "proceed immediately" path: dispatch
// ReadyToProceed to the owning processor via the DMQ with delay 1, and
// record the hit. private reports whether the block was held with no
// other sharer at the moment of the access.
func (c *Cache) completeHit(now int64, private bool) {
	c.stats.RecordHit(c.id, private)
	c.wakeProcessor(now)
}

func (c *Cache) wakeProcessor(now int64) {
	c.queue.Enqueue(now, 1, dmq.Recipient{Kind: dmq.RecipientProcessor, ID: c.id}, dmq.WakeSignal{})
}

// OnBusGranted is the bus-grant handler, invoked synchronously by the
// bus when it grants this cache ownership.
func (c *Cache) OnBusGranted() int {
	if c.protocol == proto.MESI {
		return c.onBusGrantedMESI()
	}
	return c.onBusGrantedDragon()
}

func (c *Cache) onBusGrantedMESI() int {
	pr := c.pending
	share, _ := c.bus.Query(c.id, pr.address)

	var t int
	var newState proto.MESIState
	switch pr.kind {
	case proto.Read:
		if share {
			t = constants.SnoopQueryCycles + constants.CacheToCacheCycles(c.blockSize())
			newState = proto.MESIShared
		} else {
			t = constants.SnoopQueryCycles + constants.MemoryFetchCycles
			newState = proto.MESIExclusive
		}
		c.bus.Transmit(c.id, proto.Signal{Kind: proto.BusRd, Address: pr.address, Origin: c.id})
	case proto.Write:
		if share {
			t = constants.SnoopQueryCycles + constants.CacheToCacheCycles(c.blockSize())
		} else {
			t = constants.SnoopQueryCycles + constants.MemoryFetchCycles
		}
		newState = proto.MESIModified
		c.bus.Transmit(c.id, proto.Signal{Kind: proto.BusRdX, Address: pr.address, Origin: c.id})
	}

	evicted, ok := c.mesiStore.Insert(pr.address, newState)
	if ok && evicted.State.Dirty() {
		t += constants.FlushCycles(c.blockSize())
		c.stats.RecordWriteback()
	}
	c.stats.RecordMiss(c.id, !share)

	c.pending = pendingRequest{}
	c.ctrl = ctrlResolvingRequest
	c.resolvingRemaining = t
	return t
}

func (c *Cache) onBusGrantedDragon() int {
	pr := c.pending

	if !pr.dragonPresent {
		return c.onBusGrantedDragonMiss(pr)
	}
	return c.onBusGrantedDragonWriteHit(pr)
}

func (c *Cache) onBusGrantedDragonMiss(pr pendingRequest) int {
	share, _ := c.bus.Query(c.id, pr.address)

	var t int
	var newState proto.DragonState
	switch pr.kind {
	case proto.Read:
		if share {
			t = constants.SnoopQueryCycles + constants.CacheToCacheCycles(c.blockSize())
			newState = proto.DragonSharedClean
		} else {
			t = constants.SnoopQueryCycles + constants.MemoryFetchCycles
			newState = proto.DragonExclusive
		}
		c.bus.Transmit(c.id, proto.Signal{Kind: proto.BusRd, Address: pr.address, Origin: c.id})
	case proto.Write:
		if share {
			t = constants.SnoopQueryCycles + constants.CacheToCacheCycles(c.blockSize())
			newState = proto.DragonSharedModified
			c.bus.Transmit(c.id, proto.Signal{Kind: proto.BusRd, Address: pr.address, Origin: c.id})
			c.bus.Transmit(c.id, proto.Signal{Kind: proto.BusUpd, Address: pr.address, Origin: c.id})
		} else {
			t = constants.SnoopQueryCycles + constants.MemoryFetchCycles
			newState = proto.DragonModified
			c.bus.Transmit(c.id, proto.Signal{Kind: proto.BusRd, Address: pr.address, Origin: c.id})
		}
	}

	evicted, ok := c.dragonStore.Insert(pr.address, newState)
	if ok && evicted.State.Dirty() {
		t += constants.FlushCycles(c.blockSize())
		c.stats.RecordWriteback()
	}
	c.stats.RecordMiss(c.id, !share)

	c.pending = pendingRequest{}
	c.ctrl = ctrlResolvingRequest
	c.resolvingRemaining = t
	return t
}

func (c *Cache) onBusGrantedDragonWriteHit(pr pendingRequest) int {
	share, _ := c.bus.Query(c.id, pr.address)
	t := constants.SnoopQueryCycles

	var newState proto.DragonState
	switch pr.dragonPriorState {
	case proto.DragonSharedClean:
		if share {
			newState = proto.DragonSharedModified
		} else {
			newState = proto.DragonModified
		}
		c.bus.Transmit(c.id, proto.Signal{Kind: proto.BusUpd, Address: pr.address, Origin: c.id})
	case proto.DragonSharedModified:
		if share {
			newState = proto.DragonSharedModified
		} else {
			newState = proto.DragonModified
		}
		c.bus.Transmit(c.id, proto.Signal{Kind: proto.BusUpd, Address: pr.address, Origin: c.id})
	default:
		panic(fmt.Sprintf("cache: unreachable Dragon write-hit prior state %v", pr.dragonPriorState))
	}

	c.dragonStore.SetState(pr.address, newState)
	c.dragonStore.Touch(pr.address)
	c.stats.RecordHit(c.id, !share)

	c.pending = pendingRequest{}
	c.ctrl = ctrlResolvingRequest
	c.resolvingRemaining = t
	return t
}

// OnBusSignal is the snoop handler, invoked on every cache other than the
// origin whenever a signal is broadcast.
func (c *Cache) OnBusSignal(origin int, sig proto.Signal) int {
	if c.protocol == proto.MESI {
		return c.onBusSignalMESI(sig)
	}
	return c.onBusSignalDragon(sig)
}

func (c *Cache) onBusSignalMESI(sig proto.Signal) int {
	state, present := c.mesiStore.Lookup(sig.Address)
	if !present {
		return 0
	}

	switch {
	case state == proto.MESIShared && sig.Kind == proto.BusRd:
		return 0
	case state == proto.MESIShared && sig.Kind == proto.BusRdX:
		c.mesiStore.Remove(sig.Address)
		c.stats.RecordInvalidation(c.id)
		return 0
	case state == proto.MESIExclusive && sig.Kind == proto.BusRd:
		c.mesiStore.SetState(sig.Address, proto.MESIShared)
		if c.chargeExclusiveToSharedFlush {
			c.stats.RecordWriteback()
			return constants.FlushCycles(c.blockSize())
		}
		return 0
	case state == proto.MESIExclusive && sig.Kind == proto.BusRdX:
		c.mesiStore.Remove(sig.Address)
		c.stats.RecordInvalidation(c.id)
		c.stats.RecordWriteback()
		return constants.FlushCycles(c.blockSize())
	case state == proto.MESIModified && sig.Kind == proto.BusRd:
		c.mesiStore.SetState(sig.Address, proto.MESIShared)
		c.stats.RecordWriteback()
		return constants.FlushCycles(c.blockSize())
	case state == proto.MESIModified && sig.Kind == proto.BusRdX:
		c.mesiStore.Remove(sig.Address)
		c.stats.RecordInvalidation(c.id)
		c.stats.RecordWriteback()
		return constants.FlushCycles(c.blockSize())
	default:
		return 0
	}
}

func (c *Cache) onBusSignalDragon(sig proto.Signal) int {
	state, present := c.dragonStore.Lookup(sig.Address)
	if !present {
		return 0
	}

	switch {
	case state == proto.DragonExclusive && sig.Kind == proto.BusRd:
		c.dragonStore.SetState(sig.Address, proto.DragonSharedClean)
		return 0
	case state == proto.DragonSharedClean:
		return 0
	case state == proto.DragonSharedModified && sig.Kind == proto.BusRd:
		c.stats.RecordWriteback()
		return constants.FlushCycles(c.blockSize())
	case state == proto.DragonSharedModified && sig.Kind == proto.BusUpd:
		c.dragonStore.SetState(sig.Address, proto.DragonSharedClean)
		return 0
	case state == proto.DragonModified && sig.Kind == proto.BusRd:
		c.dragonStore.SetState(sig.Address, proto.DragonSharedModified)
		return 0
	default:
		return 0
	}
}

// SnoopQuery answers the share? predicate for another cache's grant
// resolution: a dedicated read-only interface returning share/dirty
// booleans without mutating any state.
func (c *Cache) SnoopQuery(address uint64) (present bool, dirty bool) {
	if c.protocol == proto.MESI {
		state, ok := c.mesiStore.Lookup(address)
		return ok, ok && state.Dirty()
	}
	state, ok := c.dragonStore.Lookup(address)
	return ok, ok && state.Dirty()
}

// Tick advances the control state machine one cycle.
func (c *Cache) Tick(now int64) {
	c.now = now
	if c.ctrl != ctrlResolvingRequest {
		return
	}
	if c.resolvingRemaining <= 1 {
		c.wakeProcessor(now)
		c.ctrl = ctrlIdle
		c.resolvingRemaining = 0
		return
	}
	c.resolvingRemaining--
}

func (c *Cache) blockSize() int {
	if c.protocol == proto.MESI {
		return c.mesiStore.blockSizeBytes
	}
	return c.dragonStore.blockSizeBytes
}

// Package cachesim drives a cycle-accurate, discrete-event simulation of
// snooping cache-coherence traffic on a shared-bus multiprocessor. The
// public entry point is Simulator, configured by a Config and reporting
// through a Stats sink.
package cachesim

import (
	"fmt"

	"github.com/behrlich/cachesim/internal/constants"
	"github.com/behrlich/cachesim/internal/proto"
)

// Config holds everything needed to construct a Simulator: the
// coherence protocol, cache geometry, the processor count, and the
// input trace location.
type Config struct {
	// Protocol selects MESI/Illinois or Dragon.
	Protocol proto.Protocol

	// NumProcessors is the number of cores, each with its own
	// processor/cache pair sharing the one bus.
	NumProcessors int

	// CacheSizeBytes, Associativity, and BlockSizeBytes describe the
	// (identical) geometry of every processor's private cache.
	CacheSizeBytes int
	Associativity  int
	BlockSizeBytes int

	// InputPrefix resolves to a directory or filename stem holding one
	// trace file per processor; interpreted by trace.OpenDirSources.
	InputPrefix string

	// ChargeExclusiveToSharedFlush is a configurable policy flag:
	// whether MESI's Exclusive+BusRd→Shared transition charges a flush
	// cost.
	ChargeExclusiveToSharedFlush bool
}

// DefaultConfig returns a Config with the geometry defaults of
// internal/constants and a MESI protocol.
func DefaultConfig() Config {
	return Config{
		Protocol:       proto.MESI,
		NumProcessors:  2,
		CacheSizeBytes: constants.DefaultCacheSizeBytes,
		Associativity:  constants.DefaultAssociativity,
		BlockSizeBytes: constants.DefaultBlockSizeBytes,
	}
}

// Validate checks that a Config describes a buildable simulation:
// power-of-two cache size, associativity and block size, a divisible
// geometry, at least one processor, and a non-empty input prefix.
// Returns an *Error of code ErrCodeConfig on failure.
func (c Config) Validate() error {
	const op = "Config.Validate"

	if c.NumProcessors <= 0 {
		return NewConfigError(op, fmt.Sprintf("NumProcessors must be positive, got %d", c.NumProcessors))
	}
	if !isPowerOfTwo(c.CacheSizeBytes) {
		return NewConfigError(op, fmt.Sprintf("CacheSizeBytes must be a power of two, got %d", c.CacheSizeBytes))
	}
	if !isPowerOfTwo(c.Associativity) {
		return NewConfigError(op, fmt.Sprintf("Associativity must be a power of two, got %d", c.Associativity))
	}
	if !isPowerOfTwo(c.BlockSizeBytes) {
		return NewConfigError(op, fmt.Sprintf("BlockSizeBytes must be a power of two, got %d", c.BlockSizeBytes))
	}
	if c.CacheSizeBytes%(c.Associativity*c.BlockSizeBytes) != 0 {
		return NewConfigError(op, fmt.Sprintf(
			"CacheSizeBytes (%d) must be divisible by Associativity*BlockSizeBytes (%d)",
			c.CacheSizeBytes, c.Associativity*c.BlockSizeBytes))
	}
	if c.InputPrefix == "" {
		return NewConfigError(op, "InputPrefix must not be empty")
	}
	if c.Protocol != proto.MESI && c.Protocol != proto.Dragon {
		return NewConfigError(op, fmt.Sprintf("unknown protocol %v", c.Protocol))
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

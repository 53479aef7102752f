// Package trace provides pluggable instruction-stream sources: a small
// interface (Source) plus the standard implementations a caller plugs
// in (FileSource, directory/stem resolution via OpenDirSources, MemSource).
package trace

import (
	"github.com/behrlich/cachesim/internal/proto"
)

// ErrEndOfTrace is returned by Next once a source's instruction stream
// is exhausted: the engine still drives one synthetic End instruction
// from this signal so a processor's own state machine observes End.
// It is the same sentinel proto.ErrEndOfTrace, aliased here so callers
// of this package never need to import internal/proto themselves to
// check for it.
var ErrEndOfTrace = proto.ErrEndOfTrace

// Source is one processor's instruction stream.
type Source interface {
	// Next returns the next instruction, or ErrEndOfTrace once the
	// stream is exhausted.
	Next() (proto.Instruction, error)

	// Reset rewinds the cursor to the start: trace sources are
	// restartable, supporting re-running a simulation with identical
	// results without re-reading from disk.
	Reset() error
}

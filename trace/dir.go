package trace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/behrlich/cachesim"
)

// ResolveProcessorTracePath resolves an input prefix to the trace file
// for the given processor id: if prefix is a directory, try
// "<prefix>/core_<id>.trace" then
// "<prefix>/<prefix-base>_<id>.trace"; otherwise treat prefix as a
// filename stem and try "<prefix><id>.trace" then "<prefix>_<id>.trace".
func ResolveProcessorTracePath(prefix string, id int) (string, error) {
	if info, err := os.Stat(prefix); err == nil && info.IsDir() {
		candidates := []string{
			filepath.Join(prefix, fmt.Sprintf("core_%d.trace", id)),
			filepath.Join(prefix, fmt.Sprintf("%s_%d.trace", filepath.Base(prefix), id)),
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				return c, nil
			}
		}
		return "", cachesim.NewConfigError("ResolveProcessorTracePath",
			fmt.Sprintf("no trace file for processor %d under directory %q (tried %v)", id, prefix, candidates))
	}

	candidates := []string{
		fmt.Sprintf("%s%d.trace", prefix, id),
		fmt.Sprintf("%s_%d.trace", prefix, id),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", cachesim.NewConfigError("ResolveProcessorTracePath",
		fmt.Sprintf("no trace file for processor %d with stem %q (tried %v)", id, prefix, candidates))
}

// OpenDirSources resolves and opens one FileSource per processor id in
// [0, numProcessors). On any error, already-opened sources are closed
// before returning.
func OpenDirSources(prefix string, numProcessors int) ([]*FileSource, error) {
	sources := make([]*FileSource, 0, numProcessors)
	for id := 0; id < numProcessors; id++ {
		path, err := ResolveProcessorTracePath(prefix, id)
		if err != nil {
			closeAll(sources)
			return nil, err
		}
		fs, err := NewFileSource(path)
		if err != nil {
			closeAll(sources)
			return nil, err
		}
		sources = append(sources, fs)
	}
	return sources, nil
}

func closeAll(sources []*FileSource) {
	for _, s := range sources {
		_ = s.Close()
	}
}

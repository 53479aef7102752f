// Package report renders a stats.Snapshot as a fixed-width text table or
// a JSON document, using the standard library's text/tabwriter rather
// than pulling in a third-party table-writer.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/behrlich/cachesim/internal/stats"
)

// WriteText renders snap as a human-readable, column-aligned table: one
// row per processor followed by the aggregate bus counters.
func WriteText(w io.Writer, snap stats.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "PROC\tTOTAL\tCOMPUTE\tSTALL\tIDLE\tLOADS\tSTORES\tHITS\tMISSES\tMISS%\tPRIV\tSHARED\tINVAL")
	for _, p := range snap.Processors {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.1f\t%d\t%d\t%d\n",
			p.ID, p.TotalCycles, p.ComputeCycles, p.StallCycles, p.IdleCycles,
			p.Loads, p.Stores, p.Hits, p.Misses, p.MissRate*100,
			p.PrivateAccesses, p.SharedAccesses, p.Invalidations)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "bus traffic bytes:   %d\n", snap.BusTrafficBytes)
	fmt.Fprintf(w, "bus invalidations:   %d\n", snap.BusInvalidations)
	fmt.Fprintf(w, "bus updates:         %d\n", snap.BusUpdates)
	fmt.Fprintf(w, "bus transmissions:   %d\n", snap.BusTransmissions)
	fmt.Fprintf(w, "bus writebacks:      %d\n", snap.BusWritebacks)
	fmt.Fprintf(w, "bus acquired cycles: %d\n", snap.BusAcquireCycles)
	return nil
}

// WriteJSON renders snap as an indented JSON document, for machine
// consumption (the CLI's -json flag).
func WriteJSON(w io.Writer, snap stats.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

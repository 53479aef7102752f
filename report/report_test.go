package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/cachesim/internal/stats"
)

func sampleSnapshot() stats.Snapshot {
	s := stats.New(2)
	s.RecordCompute(0, 10)
	s.RecordStall(0, 2)
	s.RecordHit(0, true)
	s.RecordMiss(0, false)
	s.RecordCompute(1, 5)
	s.RecordIdle(1, 1)
	s.RecordTransfer(32)
	s.RecordInvalidation(1)
	return s.Snapshot()
}

func TestWriteTextIncludesEveryProcessorRow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleSnapshot()))

	out := buf.String()
	require.Contains(t, out, "PROC")
	require.Contains(t, out, "bus traffic bytes:   32")
	require.Contains(t, out, "0 ")
	require.Contains(t, out, "1 ")
}

func TestWriteJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	snap := sampleSnapshot()
	require.NoError(t, WriteJSON(&buf, snap))

	var decoded stats.Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Processors, 2)
	require.Equal(t, snap.BusTrafficBytes, decoded.BusTrafficBytes)
	require.Equal(t, snap.Processors[0].ComputeCycles, decoded.Processors[0].ComputeCycles)
}

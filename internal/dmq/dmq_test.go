package dmq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnqueueDrainDue(t *testing.T) {
	q := New(16)
	q.Enqueue(0, 3, Recipient{Kind: RecipientProcessor, ID: 0}, "hello")

	require.Empty(t, q.DrainDue(1))
	require.Empty(t, q.DrainDue(2))

	due := q.DrainDue(3)
	require.Len(t, due, 1)
	require.Equal(t, "hello", due[0].Payload)

	// Slot is reset; draining again at the same cycle yields nothing.
	require.Empty(t, q.DrainDue(3))
}

func TestDrainDueOrdering(t *testing.T) {
	q := New(16)
	// Enqueue out of recipient order; DrainDue must restore canonical
	// ordering: processors ascending, then caches ascending, then bus.
	q.Enqueue(0, 5, Recipient{Kind: RecipientBus}, "bus")
	q.Enqueue(0, 5, Recipient{Kind: RecipientCache, ID: 1}, "cache1")
	q.Enqueue(0, 5, Recipient{Kind: RecipientProcessor, ID: 1}, "proc1")
	q.Enqueue(0, 5, Recipient{Kind: RecipientCache, ID: 0}, "cache0")
	q.Enqueue(0, 5, Recipient{Kind: RecipientProcessor, ID: 0}, "proc0")

	due := q.DrainDue(5)
	require.Len(t, due, 5)

	got := make([]string, len(due))
	for i, e := range due {
		got[i] = e.Payload.(string)
	}
	require.Equal(t, []string{"proc0", "proc1", "cache0", "cache1", "bus"}, got)
}

func TestDrainDuePreservesInsertionOrderWithinRecipient(t *testing.T) {
	q := New(16)
	recipient := Recipient{Kind: RecipientProcessor, ID: 0}
	q.Enqueue(0, 2, recipient, "first")
	q.Enqueue(0, 2, recipient, "second")
	q.Enqueue(0, 2, recipient, "third")

	due := q.DrainDue(2)
	require.Len(t, due, 3)
	require.Equal(t, "first", due[0].Payload)
	require.Equal(t, "second", due[1].Payload)
	require.Equal(t, "third", due[2].Payload)
}

func TestRingBufferWraparound(t *testing.T) {
	q := New(4)
	// Cycle 10 and cycle 14 map to the same slot (10%4 == 14%4 == 2).
	// Draining cycle 10 must not observe the entry meant for cycle 14.
	q.Enqueue(8, 2, Recipient{Kind: RecipientBus}, "at10")
	require.Empty(t, q.DrainDue(9))
	due := q.DrainDue(10)
	require.Len(t, due, 1)
	require.Equal(t, "at10", due[0].Payload)

	q.Enqueue(11, 3, Recipient{Kind: RecipientBus}, "at14")
	due = q.DrainDue(14)
	require.Len(t, due, 1)
	require.Equal(t, "at14", due[0].Payload)
}

func TestNegativeDelayPanics(t *testing.T) {
	q := New(16)
	require.Panics(t, func() {
		q.Enqueue(0, -1, Recipient{Kind: RecipientBus}, nil)
	})
}

func TestDelayExceedingHorizonPanics(t *testing.T) {
	q := New(4)
	require.Panics(t, func() {
		q.Enqueue(0, 4, Recipient{Kind: RecipientBus}, nil)
	})
}

func TestPending(t *testing.T) {
	q := New(16)
	require.False(t, q.Pending(0))

	q.Enqueue(0, 5, Recipient{Kind: RecipientBus}, nil)
	require.True(t, q.Pending(0))
	require.True(t, q.Pending(4))

	q.DrainDue(5)
	require.False(t, q.Pending(5))
}

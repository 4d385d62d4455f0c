package auction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBook(t *testing.T) (*FourHeap, *SequenceAllocator) {
	t.Helper()
	ids := NewSequenceAllocator()
	return NewFourHeap(ids, WithBookChecks(true), WithBookLogger(DiscardLogger())), ids
}

func insertShout(t *testing.T, fh *FourHeap, ids IDAllocator, side Side, price float64, qty int64) *Shout {
	t.Helper()
	s := &Shout{
		ID:       ids.NextID(),
		Agent:    AgentID(price),
		Side:     side,
		Price:    price,
		Quantity: qty,
	}
	require.NoError(t, fh.Insert(s))
	return s
}

func prices(shouts []Shout) []float64 {
	result := make([]float64, 0, len(shouts))
	for _, s := range shouts {
		result = append(result, s.Price)
	}
	return result
}

func quantities(shouts []Shout) []int64 {
	result := make([]int64, 0, len(shouts))
	for _, s := range shouts {
		result = append(result, s.Quantity)
	}
	return result
}

func TestFourHeapInsert(t *testing.T) {
	t.Run("crossing bid and ask are matched", func(t *testing.T) {
		fh, ids := createTestBook(t)
		insertShout(t, fh, ids, Bid, 10, 1)
		insertShout(t, fh, ids, Ask, 8, 1)

		snap := fh.Snapshot()
		assert.Equal(t, []float64{10}, prices(snap.MatchedBids))
		assert.Equal(t, []float64{8}, prices(snap.MatchedAsks))
		assert.Empty(t, snap.UnmatchedBids)
		assert.Empty(t, snap.UnmatchedAsks)
		assert.Equal(t, int64(1), fh.MatchedQuantity())
	})

	t.Run("shouts that do not cross stay unmatched", func(t *testing.T) {
		fh, ids := createTestBook(t)
		insertShout(t, fh, ids, Bid, 5, 1)
		insertShout(t, fh, ids, Bid, 7, 1)
		insertShout(t, fh, ids, Ask, 10, 1)
		insertShout(t, fh, ids, Ask, 9, 1)

		snap := fh.Snapshot()
		assert.Empty(t, snap.MatchedBids)
		assert.Equal(t, []float64{7, 5}, prices(snap.UnmatchedBids))
		assert.Equal(t, []float64{9, 10}, prices(snap.UnmatchedAsks))
		assert.Equal(t, 7.0, fh.BestUnmatchedBid().Price)
		assert.Equal(t, 9.0, fh.BestUnmatchedAsk().Price)
		assert.Nil(t, fh.WorstMatchedBid())
		assert.Nil(t, fh.WorstMatchedAsk())
	})

	t.Run("partial match splits the larger shout", func(t *testing.T) {
		fh, ids := createTestBook(t)
		ask := insertShout(t, fh, ids, Ask, 8, 3)
		insertShout(t, fh, ids, Bid, 10, 1)

		snap := fh.Snapshot()
		require.Len(t, snap.MatchedAsks, 1)
		require.Len(t, snap.UnmatchedAsks, 1)

		matched := snap.MatchedAsks[0]
		remainder := snap.UnmatchedAsks[0]
		assert.Equal(t, ask.ID, matched.ID)
		assert.Equal(t, int64(1), matched.Quantity)
		assert.Equal(t, remainder.ID, matched.Child)
		assert.Equal(t, int64(2), remainder.Quantity)
		assert.Equal(t, ask.ID, remainder.Parent)
		assert.Equal(t, ask.ID, remainder.Origin)

		lineage := fh.Lineage(ask.ID)
		assert.Len(t, lineage, 2)
		assert.Equal(t, int64(3), lineage[0].Quantity+lineage[1].Quantity)
		assert.Equal(t, int64(3), fh.TotalQuantity(Ask))
		assert.Equal(t, int64(2), fh.UnmatchedQuantity(Ask))
	})

	t.Run("large bid walks up the unmatched asks", func(t *testing.T) {
		fh, ids := createTestBook(t)
		insertShout(t, fh, ids, Ask, 5, 1)
		insertShout(t, fh, ids, Ask, 6, 1)
		insertShout(t, fh, ids, Ask, 7, 1)
		insertShout(t, fh, ids, Bid, 10, 2)

		snap := fh.Snapshot()
		assert.Equal(t, []float64{10, 10}, prices(snap.MatchedBids))
		assert.Equal(t, []float64{6, 5}, prices(snap.MatchedAsks))
		assert.Equal(t, []float64{7}, prices(snap.UnmatchedAsks))
		assert.Equal(t, int64(2), fh.MatchedQuantity())
	})

	t.Run("better bid displaces the marginal matched bid", func(t *testing.T) {
		fh, ids := createTestBook(t)
		insertShout(t, fh, ids, Bid, 5, 1)
		insertShout(t, fh, ids, Ask, 4, 1)
		insertShout(t, fh, ids, Ask, 10, 1)
		insertShout(t, fh, ids, Bid, 12, 1)

		snap := fh.Snapshot()
		assert.Equal(t, []float64{12}, prices(snap.MatchedBids))
		assert.Equal(t, []float64{4}, prices(snap.MatchedAsks))
		assert.Equal(t, []float64{5}, prices(snap.UnmatchedBids))
		assert.Equal(t, []float64{10}, prices(snap.UnmatchedAsks))
	})

	t.Run("partial displacement splits the matched bid", func(t *testing.T) {
		fh, ids := createTestBook(t)
		low := insertShout(t, fh, ids, Bid, 5, 3)
		insertShout(t, fh, ids, Ask, 4, 3)
		insertShout(t, fh, ids, Bid, 6, 1)

		snap := fh.Snapshot()
		assert.Equal(t, []float64{5, 6}, prices(snap.MatchedBids))
		assert.Equal(t, []int64{2, 1}, quantities(snap.MatchedBids))
		require.Len(t, snap.UnmatchedBids, 1)
		assert.Equal(t, low.ID, snap.UnmatchedBids[0].Origin)
		assert.Equal(t, int64(1), snap.UnmatchedBids[0].Quantity)
		assert.Equal(t, int64(3), fh.MatchedQuantity())
	})

	t.Run("invalid input is rejected", func(t *testing.T) {
		fh, ids := createTestBook(t)

		err := fh.Insert(&Shout{ID: ids.NextID(), Side: Bid, Price: -1, Quantity: 1})
		assert.ErrorIs(t, err, ErrInvalidPrice)

		err = fh.Insert(&Shout{Side: Bid, Price: 1, Quantity: 1})
		assert.ErrorIs(t, err, ErrInvalidParam)

		s := insertShout(t, fh, ids, Bid, 1, 1)
		err = fh.Insert(&Shout{ID: s.ID, Side: Bid, Price: 1, Quantity: 1})
		assert.ErrorIs(t, err, ErrInvalidParam)
		assert.Equal(t, 1, fh.Len())
	})
}

func TestFourHeapRemove(t *testing.T) {
	t.Run("removing unmatched shout", func(t *testing.T) {
		fh, ids := createTestBook(t)
		bid := insertShout(t, fh, ids, Bid, 5, 1)
		insertShout(t, fh, ids, Ask, 10, 1)

		require.NoError(t, fh.Remove(bid.ID))
		assert.Nil(t, fh.BestUnmatchedBid())
		assert.Equal(t, 1, fh.Len())

		assert.ErrorIs(t, fh.Remove(bid.ID), ErrNotFound)
	})

	t.Run("removing matched bid demotes the highest matched ask", func(t *testing.T) {
		fh, ids := createTestBook(t)
		high := insertShout(t, fh, ids, Bid, 10, 1)
		low := insertShout(t, fh, ids, Bid, 9, 1)
		insertShout(t, fh, ids, Ask, 8, 1)
		insertShout(t, fh, ids, Ask, 7, 1)
		require.Equal(t, int64(2), fh.MatchedQuantity())

		require.NoError(t, fh.Remove(high.ID))
		snap := fh.Snapshot()
		assert.Equal(t, []float64{9}, prices(snap.MatchedBids))
		assert.Equal(t, []float64{7}, prices(snap.MatchedAsks))
		assert.Equal(t, []float64{8}, prices(snap.UnmatchedAsks))

		require.NoError(t, fh.Remove(low.ID))
		snap = fh.Snapshot()
		assert.Empty(t, snap.MatchedAsks)
		assert.Equal(t, []float64{7, 8}, prices(snap.UnmatchedAsks))
	})

	t.Run("removing matched ask lets the freed bid rematch", func(t *testing.T) {
		fh, ids := createTestBook(t)
		insertShout(t, fh, ids, Bid, 10, 1)
		insertShout(t, fh, ids, Bid, 6, 1)
		cheap := insertShout(t, fh, ids, Ask, 5, 1)
		insertShout(t, fh, ids, Ask, 8, 1)

		snap := fh.Snapshot()
		assert.Equal(t, []float64{5}, prices(snap.MatchedAsks))
		assert.Equal(t, []float64{8}, prices(snap.UnmatchedAsks))

		require.NoError(t, fh.Remove(cheap.ID))
		snap = fh.Snapshot()
		assert.Equal(t, []float64{10}, prices(snap.MatchedBids))
		assert.Equal(t, []float64{8}, prices(snap.MatchedAsks))
		assert.Equal(t, []float64{6}, prices(snap.UnmatchedBids))
		assert.Empty(t, snap.UnmatchedAsks)
	})

	t.Run("removing a matched fragment splits the counterpart", func(t *testing.T) {
		fh, ids := createTestBook(t)
		insertShout(t, fh, ids, Ask, 5, 3)
		bid := insertShout(t, fh, ids, Bid, 10, 1)
		insertShout(t, fh, ids, Bid, 9, 2)
		require.Equal(t, int64(3), fh.MatchedQuantity())

		require.NoError(t, fh.Remove(bid.ID))
		assert.Equal(t, int64(2), fh.MatchedQuantity())
		assert.Equal(t, int64(1), fh.UnmatchedQuantity(Ask))
		assert.Equal(t, int64(3), fh.TotalQuantity(Ask))
	})

	t.Run("withdrawing a lineage removes every fragment", func(t *testing.T) {
		fh, ids := createTestBook(t)
		ask := insertShout(t, fh, ids, Ask, 8, 3)
		insertShout(t, fh, ids, Bid, 10, 1)
		require.Len(t, fh.Lineage(ask.ID), 2)

		removed, err := fh.RemoveLineage(ask.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), removed)

		snap := fh.Snapshot()
		assert.Empty(t, snap.MatchedBids)
		assert.Equal(t, []float64{10}, prices(snap.UnmatchedBids))
		assert.Empty(t, fh.Lineage(ask.ID))

		_, err = fh.RemoveLineage(ask.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFourHeapMatchedPairs(t *testing.T) {
	fh, ids := createTestBook(t)
	ask := insertShout(t, fh, ids, Ask, 5, 3)
	high := insertShout(t, fh, ids, Bid, 10, 1)
	low := insertShout(t, fh, ids, Bid, 9, 2)

	it := fh.MatchedPairs()
	pairs := it.Collect()
	require.Len(t, pairs, 3)

	// Lowest matched bid first, against the highest matched ask.
	assert.Equal(t, low.ID, pairs[0].Bid.ID)
	assert.Equal(t, ask.ID, pairs[0].Ask.ID)
	assert.Equal(t, low.ID, pairs[1].Bid.ID)
	assert.Equal(t, ask.Child, pairs[1].Ask.ID)
	assert.Equal(t, high.ID, pairs[2].Bid.ID)

	var total int64
	for _, pair := range pairs {
		assert.Equal(t, int64(1), pair.Quantity)
		assert.GreaterOrEqual(t, pair.Bid.Price, pair.Ask.Price)
		total += pair.Quantity
	}
	assert.Equal(t, fh.MatchedQuantity(), total)

	// The iteration does not consume the book and can be restarted.
	assert.Equal(t, int64(3), fh.MatchedQuantity())
	_, ok := it.Next()
	assert.False(t, ok)
	it.Reset()
	assert.Equal(t, pairs, it.Collect())
}

func TestFourHeapSettle(t *testing.T) {
	fh, ids := createTestBook(t)
	insertShout(t, fh, ids, Ask, 5, 3)
	insertShout(t, fh, ids, Bid, 10, 1)
	insertShout(t, fh, ids, Bid, 9, 2)
	insertShout(t, fh, ids, Bid, 4, 1)

	for _, pair := range fh.MatchedPairs().Collect() {
		fh.settle(pair.Bid, pair.Quantity)
		fh.settle(pair.Ask, pair.Quantity)
	}
	require.NoError(t, fh.CheckInvariants())

	assert.Equal(t, int64(0), fh.MatchedQuantity())
	assert.Equal(t, 1, fh.Len())
	assert.Equal(t, 4.0, fh.BestUnmatchedBid().Price)
}

func TestFourHeapReset(t *testing.T) {
	fh, ids := createTestBook(t)
	insertShout(t, fh, ids, Ask, 5, 3)
	insertShout(t, fh, ids, Bid, 10, 1)

	fh.Reset()
	assert.Equal(t, 0, fh.Len())
	assert.Equal(t, int64(0), fh.MatchedQuantity())
	assert.Equal(t, int64(0), fh.TotalQuantity(Ask))
	assert.True(t, NewMarketQuote(fh).IsEmpty())
	assert.Empty(t, fh.MatchedPairs().Collect())
}

func TestFourHeapSnapshot(t *testing.T) {
	t.Run("restore keeps partitions", func(t *testing.T) {
		fh, ids := createTestBook(t)
		insertShout(t, fh, ids, Ask, 5, 3)
		insertShout(t, fh, ids, Bid, 10, 1)
		insertShout(t, fh, ids, Bid, 4, 1)
		snap := fh.Snapshot()

		restored, restoredIDs := createTestBook(t)
		require.NoError(t, restored.Restore(snap))
		assert.Equal(t, snap, restored.Snapshot())
		assert.Equal(t, fh.MatchedQuantity(), restored.MatchedQuantity())
		assert.Equal(t, ids.Last(), restoredIDs.Last())
		assert.Contains(t, snap.String(), "unmatched asks:")
	})

	t.Run("restore rejects a crossed book", func(t *testing.T) {
		fh, _ := createTestBook(t)
		err := fh.Restore(&BookSnapshot{
			SchemaVersion: SnapshotSchemaVersion,
			UnmatchedBids: []Shout{{ID: 1, Side: Bid, Price: 10, Quantity: 1}},
			UnmatchedAsks: []Shout{{ID: 2, Side: Ask, Price: 5, Quantity: 1}},
		})

		var invariantErr *InvariantError
		require.True(t, errors.As(err, &invariantErr))
		assert.Equal(t, "maximality", invariantErr.Rule)
		assert.ErrorIs(t, err, ErrInternal)
		assert.Equal(t, 0, fh.Len())
	})

	t.Run("restore rejects a shout in the wrong partition", func(t *testing.T) {
		fh, _ := createTestBook(t)
		err := fh.Restore(&BookSnapshot{
			SchemaVersion: SnapshotSchemaVersion,
			UnmatchedBids: []Shout{{ID: 1, Side: Ask, Price: 10, Quantity: 1}},
		})
		assert.ErrorIs(t, err, ErrInvalidParam)
	})

	t.Run("restore rejects unknown schema", func(t *testing.T) {
		fh, _ := createTestBook(t)
		assert.ErrorIs(t, fh.Restore(&BookSnapshot{SchemaVersion: 99}), ErrInvalidParam)
	})
}

func TestFourHeapInvariantViolationPanics(t *testing.T) {
	fh, ids := createTestBook(t)
	insertShout(t, fh, ids, Ask, 5, 1)
	insertShout(t, fh, ids, Bid, 10, 1)

	// Corrupt the accounting behind the book's back.
	fh.qty[partitionMatchedBids]++

	assert.Panics(t, func() {
		insertShout(t, fh, ids, Bid, 1, 1)
	})
}

package auction

import (
	"fmt"
	"sync/atomic"

	"github.com/0x5487/double-auction/protocol"
	"github.com/igrmk/treemap/v2"
	"github.com/shopspring/decimal"
)

// AggregatedBook maintains the supply and demand of a market: the total
// quantity offered at each price level, regardless of which shouts are
// currently matched. It is rebuilt from the AuctionLog stream, so it can
// live in a separate process from the auctioneer.
type AggregatedBook struct {
	seqID atomic.Uint64 // Last processed SequenceID for gap detection and deduplication
	ask   *treemap.TreeMap[decimal.Decimal, int64]
	bid   *treemap.TreeMap[decimal.Decimal, int64]
}

// Equilibrium is the competitive equilibrium of the aggregated supply and
// demand. Any price in [Low, High] clears Quantity units.
type Equilibrium struct {
	Quantity int64
	Low      decimal.Decimal
	High     decimal.Decimal
}

// Price returns the midpoint of the equilibrium price interval.
func (e Equilibrium) Price() decimal.Decimal {
	return e.Low.Add(e.High).Div(decimal.NewFromInt(2))
}

// NewAggregatedBook creates a new AggregatedBook instance with empty ask and bid sides.
func NewAggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		ask: newLevelTree(),
		bid: newLevelTree(),
	}
}

func newLevelTree() *treemap.TreeMap[decimal.Decimal, int64] {
	return treemap.NewWithKeyCompare[decimal.Decimal, int64](func(a, b decimal.Decimal) bool {
		return a.LessThan(b)
	})
}

// SequenceID returns the last processed sequence ID.
func (ab *AggregatedBook) SequenceID() uint64 {
	return ab.seqID.Load()
}

// Replay applies an AuctionLog event to the aggregated book.
// Events already seen are ignored. A Day event empties the book, matching
// the auctioneer dropping unmatched shouts at the end of the day.
func (ab *AggregatedBook) Replay(log *AuctionLog) error {
	last := ab.seqID.Load()
	if log.SequenceID <= last {
		return nil
	}
	if log.SequenceID != last+1 {
		return fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, last+1, log.SequenceID)
	}

	if log.Type == LogTypeDay {
		ab.ask.Clear()
		ab.bid.Clear()
	}
	for _, change := range CalculateDepthChanges(log) {
		ab.apply(change)
	}

	ab.seqID.Store(log.SequenceID)
	return nil
}

// ReplayAll applies logs in order and stops at the first error.
func (ab *AggregatedBook) ReplayAll(logs []*AuctionLog) error {
	for _, log := range logs {
		if err := ab.Replay(log); err != nil {
			return err
		}
	}
	return nil
}

func (ab *AggregatedBook) apply(change DepthChange) {
	tree := ab.tree(change.Side)
	qty, _ := tree.Get(change.Price)
	qty += change.QuantityDiff
	if qty <= 0 {
		tree.Del(change.Price)
		return
	}
	tree.Set(change.Price, qty)
}

// OnRebuild resets the aggregated book before replaying from seqID.
func (ab *AggregatedBook) OnRebuild(seqID uint64) {
	ab.ask.Clear()
	ab.bid.Clear()
	ab.seqID.Store(seqID)
}

// Depth returns the aggregated quantity at a specific price level for the given side.
// Returns zero if the price level does not exist.
func (ab *AggregatedBook) Depth(side Side, price decimal.Decimal) int64 {
	qty, _ := ab.tree(side).Get(price)
	return qty
}

// Levels returns up to limit price levels of side, best price first.
// A limit of zero returns every level.
func (ab *AggregatedBook) Levels(side Side, limit int) []*protocol.DepthItem {
	var items []*protocol.DepthItem
	ab.walk(side, func(price decimal.Decimal, qty int64) bool {
		items = append(items, &protocol.DepthItem{Price: price.String(), Quantity: qty})
		return limit == 0 || len(items) < limit
	})
	return items
}

// GetDepth returns the aggregated depth of both sides.
func (ab *AggregatedBook) GetDepth(limit int) *protocol.GetDepthResponse {
	return &protocol.GetDepthResponse{
		SequenceID: ab.SequenceID(),
		Bids:       ab.Levels(Bid, limit),
		Asks:       ab.Levels(Ask, limit),
	}
}

// Demand returns the number of units bid at price or above.
func (ab *AggregatedBook) Demand(price decimal.Decimal) int64 {
	var total int64
	for it := ab.bid.LowerBound(price); it.Valid(); it.Next() {
		total += it.Value()
	}
	return total
}

// Supply returns the number of units offered at price or below.
func (ab *AggregatedBook) Supply(price decimal.Decimal) int64 {
	var total int64
	for it := ab.ask.Iterator(); it.Valid() && !it.Key().GreaterThan(price); it.Next() {
		total += it.Value()
	}
	return total
}

// Equilibrium computes the competitive equilibrium. It returns false when no
// bid reaches any ask.
func (ab *AggregatedBook) Equilibrium() (Equilibrium, bool) {
	bids := ab.levels(Bid)
	asks := ab.levels(Ask)

	var eq Equilibrium
	var lastBid, lastAsk decimal.Decimal
	i, j := 0, 0
	for i < len(bids) && j < len(asks) && !bids[i].price.LessThan(asks[j].price) {
		q := min(bids[i].qty, asks[j].qty)
		eq.Quantity += q
		lastBid, lastAsk = bids[i].price, asks[j].price

		bids[i].qty -= q
		asks[j].qty -= q
		if bids[i].qty == 0 {
			i++
		}
		if asks[j].qty == 0 {
			j++
		}
	}
	if eq.Quantity == 0 {
		return Equilibrium{}, false
	}

	// The interval is bounded by the last matched units and the first units left out.
	eq.Low, eq.High = lastAsk, lastBid
	if i < len(bids) {
		eq.Low = decimal.Max(eq.Low, bids[i].price)
	}
	if j < len(asks) {
		eq.High = decimal.Min(eq.High, asks[j].price)
	}
	return eq, true
}

type level struct {
	price decimal.Decimal
	qty   int64
}

func (ab *AggregatedBook) levels(side Side) []level {
	var result []level
	ab.walk(side, func(price decimal.Decimal, qty int64) bool {
		result = append(result, level{price: price, qty: qty})
		return true
	})
	return result
}

func (ab *AggregatedBook) walk(side Side, fn func(price decimal.Decimal, qty int64) bool) {
	if side == Bid {
		for it := ab.bid.Reverse(); it.Valid(); it.Next() {
			if !fn(it.Key(), it.Value()) {
				return
			}
		}
		return
	}
	for it := ab.ask.Iterator(); it.Valid(); it.Next() {
		if !fn(it.Key(), it.Value()) {
			return
		}
	}
}

func (ab *AggregatedBook) tree(side Side) *treemap.TreeMap[decimal.Decimal, int64] {
	if side == Bid {
		return ab.bid
	}
	return ab.ask
}

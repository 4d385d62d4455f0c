package auction

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/0x5487/double-auction/structure"
)

// FourHeap is the order book of a double auction. Live shouts are kept in four
// partitions:
//
//   - bIn:  matched bids, lowest on top
//   - sIn:  matched asks, highest on top
//   - bOut: unmatched bids, highest on top
//   - sOut: unmatched asks, lowest on top
//
// The matched partitions always hold the largest set of bids and asks that can
// trade at a single price. Every mutation touches only the partition tops, so
// insertion and removal cost O(log n) per fragment moved.
//
// FourHeap is not safe for concurrent use.
type FourHeap struct {
	bIn  *structure.Heap[*Shout]
	sIn  *structure.Heap[*Shout]
	bOut *structure.Heap[*Shout]
	sOut *structure.Heap[*Shout]

	shouts  map[ShoutID]*Shout
	lineage map[ShoutID]map[ShoutID]struct{} // origin -> live fragments
	qty     [5]int64                         // live quantity per partition

	ids    IDAllocator
	checks bool
	logger *slog.Logger
}

// BookOption configures a FourHeap.
type BookOption func(*FourHeap)

// WithBookChecks verifies the book invariants after every mutation.
// A violation panics with *InvariantError.
func WithBookChecks(enabled bool) BookOption {
	return func(fh *FourHeap) {
		fh.checks = enabled
	}
}

// WithBookLogger sets the logger used to report invariant violations.
func WithBookLogger(l *slog.Logger) BookOption {
	return func(fh *FourHeap) {
		fh.logger = l
	}
}

// NewFourHeap creates an empty book. ids allocates the IDs of split fragments
// and must be the allocator used for submitted shouts; nil uses a fresh
// SequenceAllocator.
func NewFourHeap(ids IDAllocator, opts ...BookOption) *FourHeap {
	if ids == nil {
		ids = NewSequenceAllocator()
	}
	fh := &FourHeap{
		bIn:     structure.NewMinHeap[*Shout](),
		sIn:     structure.NewMaxHeap[*Shout](),
		bOut:    structure.NewMaxHeap[*Shout](),
		sOut:    structure.NewMinHeap[*Shout](),
		shouts:  make(map[ShoutID]*Shout),
		lineage: make(map[ShoutID]map[ShoutID]struct{}),
		ids:     ids,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(fh)
	}
	return fh
}

// Insert adds a validated shout to the book and restores the partition
// invariants. The book takes ownership of s.
func (fh *FourHeap) Insert(s *Shout) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.ID == 0 {
		return fmt.Errorf("%w: shout id must be set", ErrInvalidParam)
	}
	if _, ok := fh.shouts[s.ID]; ok {
		return fmt.Errorf("%w: duplicate shout id %d", ErrInvalidParam, s.ID)
	}
	if s.Origin == 0 {
		s.Origin = s.ID
	}
	s.loc = partitionNone

	fh.track(s)
	fh.insert(s)
	fh.verify("insert")
	return nil
}

// Remove deletes a single live fragment. If it was matched, the same quantity
// of the opposite matched side is demoted and re-inserted.
func (fh *FourHeap) Remove(id ShoutID) error {
	s, ok := fh.shouts[id]
	if !ok {
		return ErrNotFound
	}

	fh.remove([]*Shout{s})
	fh.verify("remove")
	return nil
}

// RemoveLineage deletes every live fragment split off the submitted shout
// origin and returns the quantity removed.
func (fh *FourHeap) RemoveLineage(origin ShoutID) (int64, error) {
	ids, ok := fh.lineage[origin]
	if !ok || len(ids) == 0 {
		return 0, ErrNotFound
	}

	fragments := make([]*Shout, 0, len(ids))
	var removed int64
	for id := range ids {
		s := fh.shouts[id]
		fragments = append(fragments, s)
		removed += s.Quantity
	}
	sort.Slice(fragments, func(i, j int) bool { return fragments[i].ID < fragments[j].ID })

	fh.remove(fragments)
	fh.verify("remove_lineage")
	return removed, nil
}

// BestUnmatchedBid returns the highest unmatched bid, nil if none.
func (fh *FourHeap) BestUnmatchedBid() *Shout {
	return top(fh.bOut)
}

// BestUnmatchedAsk returns the lowest unmatched ask, nil if none.
func (fh *FourHeap) BestUnmatchedAsk() *Shout {
	return top(fh.sOut)
}

// WorstMatchedBid returns the lowest matched bid, nil if none.
func (fh *FourHeap) WorstMatchedBid() *Shout {
	return top(fh.bIn)
}

// WorstMatchedAsk returns the highest matched ask, nil if none.
func (fh *FourHeap) WorstMatchedAsk() *Shout {
	return top(fh.sIn)
}

func top(h *structure.Heap[*Shout]) *Shout {
	s, ok := h.Top()
	if !ok {
		return nil
	}
	return s
}

// MatchedPairs returns a cursor over the current matched pairs. The book must
// not be modified while the cursor is in use.
func (fh *FourHeap) MatchedPairs() *PairIterator {
	return &PairIterator{
		bids: fh.bIn.Iter(),
		asks: fh.sIn.Iter(),
	}
}

// Get returns a copy of the live fragment id.
func (fh *FourHeap) Get(id ShoutID) (Shout, bool) {
	s, ok := fh.shouts[id]
	if !ok {
		return Shout{}, false
	}
	return *s, true
}

// Lineage returns copies of the live fragments of origin ordered by ID.
func (fh *FourHeap) Lineage(origin ShoutID) []Shout {
	ids := fh.lineage[origin]
	result := make([]Shout, 0, len(ids))
	for id := range ids {
		result = append(result, *fh.shouts[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// IsMatched reports whether the live fragment id is in a matched partition.
func (fh *FourHeap) IsMatched(id ShoutID) bool {
	s, ok := fh.shouts[id]
	return ok && (s.loc == partitionMatchedBids || s.loc == partitionMatchedAsks)
}

// Len returns the number of live fragments.
func (fh *FourHeap) Len() int {
	return len(fh.shouts)
}

// MatchedQuantity returns the number of units in the matched set on each side.
func (fh *FourHeap) MatchedQuantity() int64 {
	return fh.qty[partitionMatchedBids]
}

// UnmatchedQuantity returns the number of unmatched units on side.
func (fh *FourHeap) UnmatchedQuantity(side Side) int64 {
	return fh.qty[unmatchedOf(side)]
}

// TotalQuantity returns the number of live units on side.
func (fh *FourHeap) TotalQuantity(side Side) int64 {
	return fh.qty[matchedOf(side)] + fh.qty[unmatchedOf(side)]
}

// Reset empties the book.
func (fh *FourHeap) Reset() {
	fh.bIn.Clear()
	fh.sIn.Clear()
	fh.bOut.Clear()
	fh.sOut.Clear()
	fh.shouts = make(map[ShoutID]*Shout)
	fh.lineage = make(map[ShoutID]map[ShoutID]struct{})
	fh.qty = [5]int64{}
}

// CheckInvariants verifies the partition ordering, matching maximality and
// quantity accounting of the book.
func (fh *FourHeap) CheckInvariants() error {
	bIn, sIn, bOut, sOut := top(fh.bIn), top(fh.sIn), top(fh.bOut), top(fh.sOut)

	if bIn != nil && sIn != nil && bIn.Price < sIn.Price {
		return &InvariantError{Rule: "matched_cross", Detail: fmt.Sprintf("lowest matched bid %v below highest matched ask %v", bIn, sIn)}
	}
	if bOut != nil && bIn != nil && bOut.Price > bIn.Price {
		return &InvariantError{Rule: "bid_boundary", Detail: fmt.Sprintf("unmatched bid %v above matched bid %v", bOut, bIn)}
	}
	if sOut != nil && sIn != nil && sOut.Price < sIn.Price {
		return &InvariantError{Rule: "ask_boundary", Detail: fmt.Sprintf("unmatched ask %v below matched ask %v", sOut, sIn)}
	}
	if bOut != nil && sOut != nil && bOut.Price >= sOut.Price {
		return &InvariantError{Rule: "maximality", Detail: fmt.Sprintf("unmatched bid %v satisfies unmatched ask %v", bOut, sOut)}
	}
	if fh.qty[partitionMatchedBids] != fh.qty[partitionMatchedAsks] {
		return &InvariantError{Rule: "matched_balance", Detail: fmt.Sprintf("matched bid quantity %d, matched ask quantity %d", fh.qty[partitionMatchedBids], fh.qty[partitionMatchedAsks])}
	}
	if n := fh.bIn.Len() + fh.sIn.Len() + fh.bOut.Len() + fh.sOut.Len(); n != len(fh.shouts) {
		return &InvariantError{Rule: "accounting", Detail: fmt.Sprintf("%d fragments in partitions, %d tracked", n, len(fh.shouts))}
	}
	return nil
}

func (fh *FourHeap) verify(op string) {
	if !fh.checks {
		return
	}
	if err := fh.CheckInvariants(); err != nil {
		fh.logger.Error("order book invariant violated", "op", op, "error", err)
		panic(err)
	}
}

// insert places a detached shout, matching it against the opposite unmatched
// top or displacing the marginal matched shout of its own side.
func (fh *FourHeap) insert(s *Shout) {
	resting := fh.heap(unmatchedOf(s.Side.Opposite()))
	marginal := fh.heap(matchedOf(s.Side))

	for s != nil {
		r := top(resting)
		m := top(marginal)

		switch {
		case r != nil && s.Satisfies(r) && (m == nil || m.Satisfies(r)):
			s = fh.promote(s, r)
		case m != nil && improves(s, m):
			s = fh.displace(s, m)
		default:
			fh.place(s, unmatchedOf(s.Side))
			s = nil
		}
	}
}

// promote matches incoming with the resting unmatched top and returns the
// unfilled remainder of incoming.
func (fh *FourHeap) promote(incoming, resting *Shout) *Shout {
	var rest *Shout
	switch {
	case incoming.Quantity > resting.Quantity:
		rest = fh.split(incoming, incoming.Quantity-resting.Quantity)
	case incoming.Quantity < resting.Quantity:
		remainder := fh.split(resting, resting.Quantity-incoming.Quantity)
		fh.place(remainder, unmatchedOf(resting.Side))
	}

	fh.detach(resting)
	fh.place(resting, matchedOf(resting.Side))
	fh.place(incoming, matchedOf(incoming.Side))
	return rest
}

// displace moves units of the marginal matched shout out of the matched set
// to make room for incoming and returns the unfilled remainder of incoming.
func (fh *FourHeap) displace(incoming, marginal *Shout) *Shout {
	var rest *Shout
	switch {
	case incoming.Quantity > marginal.Quantity:
		rest = fh.split(incoming, incoming.Quantity-marginal.Quantity)
		fh.detach(marginal)
		fh.place(marginal, unmatchedOf(marginal.Side))
	case incoming.Quantity < marginal.Quantity:
		out := fh.split(marginal, incoming.Quantity)
		fh.place(out, unmatchedOf(marginal.Side))
	default:
		fh.detach(marginal)
		fh.place(marginal, unmatchedOf(marginal.Side))
	}

	fh.place(incoming, matchedOf(incoming.Side))
	return rest
}

func (fh *FourHeap) remove(fragments []*Shout) {
	var side Side
	var matched int64
	for _, s := range fragments {
		if s.loc == matchedOf(s.Side) {
			side = s.Side
			matched += s.Quantity
		}
		fh.detach(s)
		fh.forget(s)
	}

	if matched > 0 {
		fh.demote(side.Opposite(), matched)
	}
}

// demote takes q units off the marginal end of side's matched partition and
// re-inserts them.
func (fh *FourHeap) demote(side Side, q int64) {
	h := fh.heap(matchedOf(side))

	var freed []*Shout
	for q > 0 {
		s := top(h)
		if s == nil {
			panic(&InvariantError{Rule: "matched_balance", Detail: fmt.Sprintf("%d %s units missing from the matched set", q, side)})
		}
		if s.Quantity <= q {
			fh.detach(s)
			q -= s.Quantity
			freed = append(freed, s)
			continue
		}
		freed = append(freed, fh.split(s, q))
		q = 0
	}

	for _, s := range freed {
		fh.insert(s)
	}
}

// settle consumes q units of a matched fragment.
func (fh *FourHeap) settle(s *Shout, q int64) {
	if s.Quantity == q {
		fh.detach(s)
		fh.forget(s)
		return
	}
	fh.shrink(s, q)
}

// split moves q units of s into a new fragment of the same lineage. The new
// fragment is tracked but not placed in any partition.
func (fh *FourHeap) split(s *Shout, q int64) *Shout {
	frag := &Shout{
		ID:       fh.ids.NextID(),
		Agent:    s.Agent,
		Side:     s.Side,
		Price:    s.Price,
		Quantity: q,
		Origin:   s.Origin,
		Parent:   s.ID,
		Round:    s.Round,
		Day:      s.Day,
	}
	s.Child = frag.ID
	fh.shrink(s, q)
	fh.track(frag)
	return frag
}

func (fh *FourHeap) place(s *Shout, p partition) {
	s.loc = p
	fh.heap(p).Push(s.key(), s)
	fh.qty[p] += s.Quantity
}

func (fh *FourHeap) detach(s *Shout) {
	if s.loc == partitionNone {
		return
	}
	fh.heap(s.loc).Remove(uint64(s.ID))
	fh.qty[s.loc] -= s.Quantity
	s.loc = partitionNone
}

func (fh *FourHeap) shrink(s *Shout, q int64) {
	s.Quantity -= q
	if s.loc != partitionNone {
		fh.qty[s.loc] -= q
	}
}

func (fh *FourHeap) track(s *Shout) {
	fh.shouts[s.ID] = s
	ids, ok := fh.lineage[s.Origin]
	if !ok {
		ids = make(map[ShoutID]struct{})
		fh.lineage[s.Origin] = ids
	}
	ids[s.ID] = struct{}{}
}

func (fh *FourHeap) forget(s *Shout) {
	delete(fh.shouts, s.ID)
	if ids, ok := fh.lineage[s.Origin]; ok {
		delete(ids, s.ID)
		if len(ids) == 0 {
			delete(fh.lineage, s.Origin)
		}
	}
}

func (fh *FourHeap) heap(p partition) *structure.Heap[*Shout] {
	switch p {
	case partitionMatchedBids:
		return fh.bIn
	case partitionMatchedAsks:
		return fh.sIn
	case partitionUnmatchedBids:
		return fh.bOut
	case partitionUnmatchedAsks:
		return fh.sOut
	}
	panic(fmt.Sprintf("auction: no heap for partition %s", p))
}

func matchedOf(side Side) partition {
	if side == Bid {
		return partitionMatchedBids
	}
	return partitionMatchedAsks
}

func unmatchedOf(side Side) partition {
	if side == Bid {
		return partitionUnmatchedBids
	}
	return partitionUnmatchedAsks
}

// improves reports whether s has a strictly better price than the marginal
// matched shout m of the same side.
func improves(s, m *Shout) bool {
	if s.IsBid() {
		return s.Price > m.Price
	}
	return s.Price < m.Price
}

// PairIterator walks the matched set, pairing the lowest matched bid with the
// highest matched ask. It never mutates the book.
type PairIterator struct {
	bids     *structure.Iterator[*Shout]
	asks     *structure.Iterator[*Shout]
	bid      *Shout
	ask      *Shout
	bidLeft  int64
	askLeft  int64
	finished bool
}

// Next returns the next matched pair.
func (it *PairIterator) Next() (MatchedPair, bool) {
	if it.finished {
		return MatchedPair{}, false
	}
	if it.bidLeft == 0 {
		bid, ok := it.bids.Next()
		if !ok {
			it.finished = true
			return MatchedPair{}, false
		}
		it.bid, it.bidLeft = bid, bid.Quantity
	}
	if it.askLeft == 0 {
		ask, ok := it.asks.Next()
		if !ok {
			it.finished = true
			return MatchedPair{}, false
		}
		it.ask, it.askLeft = ask, ask.Quantity
	}

	q := min(it.bidLeft, it.askLeft)
	it.bidLeft -= q
	it.askLeft -= q
	return MatchedPair{Bid: it.bid, Ask: it.ask, Quantity: q}, true
}

// Reset restarts the iteration from the first pair.
func (it *PairIterator) Reset() {
	it.bids.Reset()
	it.asks.Reset()
	it.bid, it.ask = nil, nil
	it.bidLeft, it.askLeft = 0, 0
	it.finished = false
}

// Collect drains the iterator into a slice.
func (it *PairIterator) Collect() []MatchedPair {
	var pairs []MatchedPair
	for pair, ok := it.Next(); ok; pair, ok = it.Next() {
		pairs = append(pairs, pair)
	}
	return pairs
}

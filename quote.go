package auction

import (
	"fmt"
	"math"

	"github.com/0x5487/double-auction/protocol"
)

// QuoteSource exposes the book boundary shouts a quote is derived from.
type QuoteSource interface {
	BestUnmatchedBid() *Shout
	BestUnmatchedAsk() *Shout
	WorstMatchedBid() *Shout
	WorstMatchedAsk() *Shout
}

// MarketQuote is the public quote of a market.
// Ask is the price a new bid must reach to be guaranteed a match; Bid is the
// price a new ask must not exceed to be guaranteed a match.
type MarketQuote struct {
	Bid float64
	Ask float64
}

// EmptyQuote returns the quote of an empty book, (-Inf, +Inf).
func EmptyQuote() MarketQuote {
	return MarketQuote{Bid: math.Inf(-1), Ask: math.Inf(1)}
}

// NewMarketQuote derives the quote from the book boundaries:
//
//	ask = min(best unmatched ask, lowest matched bid)
//	bid = max(best unmatched bid, highest matched ask)
func NewMarketQuote(book QuoteSource) MarketQuote {
	q := EmptyQuote()

	if s := book.BestUnmatchedAsk(); s != nil {
		q.Ask = s.Price
	}
	if s := book.WorstMatchedBid(); s != nil {
		q.Ask = math.Min(q.Ask, s.Price)
	}
	if s := book.BestUnmatchedBid(); s != nil {
		q.Bid = s.Price
	}
	if s := book.WorstMatchedAsk(); s != nil {
		q.Bid = math.Max(q.Bid, s.Price)
	}
	return q
}

// IsEmpty reports whether both sides are unbounded.
func (q MarketQuote) IsEmpty() bool {
	return math.IsInf(q.Bid, -1) && math.IsInf(q.Ask, 1)
}

// Spread returns Ask - Bid. It is +Inf when either side is unbounded.
func (q MarketQuote) Spread() float64 {
	return q.Ask - q.Bid
}

// Midpoint returns the middle of the quote, NaN when either side is unbounded.
func (q MarketQuote) Midpoint() float64 {
	if math.IsInf(q.Bid, 0) || math.IsInf(q.Ask, 0) {
		return math.NaN()
	}
	return (q.Bid + q.Ask) / 2
}

// Response converts the quote for transport, dropping unbounded sides.
func (q MarketQuote) Response(marketID string) *protocol.QuoteResponse {
	resp := &protocol.QuoteResponse{MarketID: marketID}
	if !math.IsInf(q.Bid, 0) {
		bid := q.Bid
		resp.Bid = &bid
	}
	if !math.IsInf(q.Ask, 0) {
		ask := q.Ask
		resp.Ask = &ask
	}
	return resp
}

func (q MarketQuote) String() string {
	return fmt.Sprintf("(bid:%g ask:%g)", q.Bid, q.Ask)
}

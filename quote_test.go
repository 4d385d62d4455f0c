package auction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketQuote(t *testing.T) {
	t.Run("empty book", func(t *testing.T) {
		fh, _ := createTestBook(t)
		q := NewMarketQuote(fh)
		assert.True(t, q.IsEmpty())
		assert.True(t, math.IsInf(q.Spread(), 1))
		assert.True(t, math.IsNaN(q.Midpoint()))

		resp := q.Response("btc")
		assert.Equal(t, "btc", resp.MarketID)
		assert.Nil(t, resp.Bid)
		assert.Nil(t, resp.Ask)
	})

	t.Run("unmatched shouts only", func(t *testing.T) {
		fh, ids := createTestBook(t)
		insertShout(t, fh, ids, Bid, 5, 1)
		insertShout(t, fh, ids, Ask, 10, 1)

		q := NewMarketQuote(fh)
		assert.Equal(t, MarketQuote{Bid: 5, Ask: 10}, q)
		assert.Equal(t, 5.0, q.Spread())
		assert.Equal(t, 7.5, q.Midpoint())
		assert.Equal(t, "(bid:5 ask:10)", q.String())

		resp := q.Response("btc")
		require.NotNil(t, resp.Bid)
		require.NotNil(t, resp.Ask)
		assert.Equal(t, 5.0, *resp.Bid)
		assert.Equal(t, 10.0, *resp.Ask)
	})

	t.Run("matched boundary bounds the quote", func(t *testing.T) {
		fh, ids := createTestBook(t)
		insertShout(t, fh, ids, Bid, 5, 1)
		insertShout(t, fh, ids, Ask, 4, 1)
		insertShout(t, fh, ids, Ask, 10, 1)

		// ask = min(10, 5), bid = max(none, 4)
		assert.Equal(t, MarketQuote{Bid: 4, Ask: 5}, NewMarketQuote(fh))
	})

	t.Run("matched and unmatched boundaries", func(t *testing.T) {
		fh, ids := createTestBook(t)
		insertShout(t, fh, ids, Bid, 500, 1)
		insertShout(t, fh, ids, Bid, 400, 1)
		insertShout(t, fh, ids, Ask, 900, 2)
		insertShout(t, fh, ids, Bid, 920, 1)
		insertShout(t, fh, ids, Bid, 950, 1)

		assert.Equal(t, MarketQuote{Bid: 900, Ask: 920}, NewMarketQuote(fh))
	})
}

type fixedQuoteSource struct {
	bestBid, bestAsk, worstBid, worstAsk *Shout
}

func (f fixedQuoteSource) BestUnmatchedBid() *Shout { return f.bestBid }
func (f fixedQuoteSource) BestUnmatchedAsk() *Shout { return f.bestAsk }
func (f fixedQuoteSource) WorstMatchedBid() *Shout  { return f.worstBid }
func (f fixedQuoteSource) WorstMatchedAsk() *Shout  { return f.worstAsk }

func TestNewMarketQuoteTakesTighterBoundary(t *testing.T) {
	src := fixedQuoteSource{
		bestBid:  &Shout{Side: Bid, Price: 3},
		bestAsk:  &Shout{Side: Ask, Price: 12},
		worstBid: &Shout{Side: Bid, Price: 11},
		worstAsk: &Shout{Side: Ask, Price: 6},
	}
	assert.Equal(t, MarketQuote{Bid: 6, Ask: 11}, NewMarketQuote(src))
}

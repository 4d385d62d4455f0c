package auction

import (
	"math"
	"sync"
	"time"

	"github.com/0x5487/double-auction/protocol"
	"github.com/shopspring/decimal"
)

type LogType = protocol.LogType

const (
	LogTypeOpen     LogType = protocol.LogTypeOpen
	LogTypeWithdraw LogType = protocol.LogTypeWithdraw
	LogTypeTrade    LogType = protocol.LogTypeTrade
	LogTypeReject   LogType = protocol.LogTypeReject
	LogTypeQuote    LogType = protocol.LogTypeQuote
	LogTypeRound    LogType = protocol.LogTypeRound
	LogTypeDay      LogType = protocol.LogTypeDay
	LogTypeClose    LogType = protocol.LogTypeClose
)

type RejectReason = protocol.RejectReason

// AuctionLog represents an event in an auction.
// SequenceID increases by one for every event of a market, so downstream
// consumers can order, deduplicate and rebuild state from the stream.
// Open, Withdraw and Trade events change the book; the others do not.
type AuctionLog struct {
	SequenceID     uint64              `json:"seq_id"`
	TradeID        uint64              `json:"trade_id,omitempty"` // Only set for Trade events
	Type           LogType             `json:"type"`
	MarketID       string              `json:"market_id"`
	Round          int                 `json:"round"`
	Day            int                 `json:"day"`
	Side           Side                `json:"side,omitempty"`
	Price          decimal.Decimal     `json:"price"`
	Quantity       int64               `json:"quantity,omitempty"`
	Amount         decimal.Decimal     `json:"amount,omitempty"` // Price * Quantity, only set for Trade events
	ShoutID        ShoutID             `json:"shout_id,omitempty"`
	AgentID        AgentID             `json:"agent_id,omitempty"`
	CounterShoutID ShoutID             `json:"counter_shout_id,omitempty"` // Ask side of a Trade event
	CounterAgentID AgentID             `json:"counter_agent_id,omitempty"`
	BidPrice       decimal.Decimal     `json:"bid_price,omitempty"` // Only set for Trade events
	AskPrice       decimal.Decimal     `json:"ask_price,omitempty"` // Only set for Trade events
	QuoteBid       decimal.NullDecimal `json:"quote_bid"`           // Null when unbounded
	QuoteAsk       decimal.NullDecimal `json:"quote_ask"`           // Null when unbounded
	RejectReason   RejectReason        `json:"reject_reason,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

var auctionLogPool = sync.Pool{
	New: func() any {
		return new(AuctionLog)
	},
}

func acquireAuctionLog() *AuctionLog {
	return auctionLogPool.Get().(*AuctionLog)
}

func releaseAuctionLog(log *AuctionLog) {
	// decimal.Decimal zero value represents 0, so the reset log is valid.
	*log = AuctionLog{}
	auctionLogPool.Put(log)
}

func NewOpenLog(seqID uint64, marketID string, shout *Shout) *AuctionLog {
	log := acquireAuctionLog()
	log.SequenceID = seqID
	log.Type = LogTypeOpen
	log.MarketID = marketID
	log.Round = shout.Round
	log.Day = shout.Day
	log.Side = shout.Side
	log.Price = decimal.NewFromFloat(shout.Price)
	log.Quantity = shout.Quantity
	log.ShoutID = shout.ID
	log.AgentID = shout.Agent
	log.CreatedAt = time.Now().UTC()
	return log
}

func NewWithdrawLog(seqID uint64, marketID string, shout *Shout, quantity int64) *AuctionLog {
	log := acquireAuctionLog()
	log.SequenceID = seqID
	log.Type = LogTypeWithdraw
	log.MarketID = marketID
	log.Round = shout.Round
	log.Day = shout.Day
	log.Side = shout.Side
	log.Price = decimal.NewFromFloat(shout.Price)
	log.Quantity = quantity
	log.ShoutID = shout.ID
	log.AgentID = shout.Agent
	log.CreatedAt = time.Now().UTC()
	return log
}

func NewTradeLog(seqID uint64, trade *Trade) *AuctionLog {
	log := acquireAuctionLog()
	log.SequenceID = seqID
	log.TradeID = trade.ID
	log.Type = LogTypeTrade
	log.MarketID = trade.MarketID
	log.Round = trade.Round
	log.Day = trade.Day
	log.Side = Bid
	log.Price = decimal.NewFromFloat(trade.Price)
	log.Quantity = trade.Quantity
	log.Amount = log.Price.Mul(decimal.NewFromInt(trade.Quantity))
	log.ShoutID = trade.BidID
	log.AgentID = trade.Buyer
	log.CounterShoutID = trade.AskID
	log.CounterAgentID = trade.Seller
	log.BidPrice = decimal.NewFromFloat(trade.BidPrice)
	log.AskPrice = decimal.NewFromFloat(trade.AskPrice)
	log.CreatedAt = time.Now().UTC()
	return log
}

func NewQuoteLog(seqID uint64, marketID string, round, day int, quote MarketQuote) *AuctionLog {
	log := acquireAuctionLog()
	log.SequenceID = seqID
	log.Type = LogTypeQuote
	log.MarketID = marketID
	log.Round = round
	log.Day = day
	log.QuoteBid = nullDecimal(quote.Bid)
	log.QuoteAsk = nullDecimal(quote.Ask)
	log.CreatedAt = time.Now().UTC()
	return log
}

func NewRejectLog(seqID uint64, marketID string, shout *Shout, reason RejectReason) *AuctionLog {
	log := acquireAuctionLog()
	log.SequenceID = seqID
	log.Type = LogTypeReject
	log.MarketID = marketID
	log.Round = shout.Round
	log.Day = shout.Day
	log.Side = shout.Side
	log.Quantity = shout.Quantity
	log.ShoutID = shout.ID
	log.AgentID = shout.Agent
	log.RejectReason = reason
	if !math.IsNaN(shout.Price) && !math.IsInf(shout.Price, 0) {
		log.Price = decimal.NewFromFloat(shout.Price)
	}
	log.CreatedAt = time.Now().UTC()
	return log
}

// NewMarketLog records a round, day or close transition.
func NewMarketLog(seqID uint64, typ LogType, marketID string, round, day int) *AuctionLog {
	log := acquireAuctionLog()
	log.SequenceID = seqID
	log.Type = typ
	log.MarketID = marketID
	log.Round = round
	log.Day = day
	log.CreatedAt = time.Now().UTC()
	return log
}

func nullDecimal(v float64) decimal.NullDecimal {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
}

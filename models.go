package auction

import (
	"github.com/0x5487/double-auction/protocol"
)

type Side = protocol.Side

const (
	Bid Side = protocol.SideBid
	Ask Side = protocol.SideAsk
)

type Role = protocol.Role

const (
	RoleAny    Role = protocol.RoleAny
	RoleBuyer  Role = protocol.RoleBuyer
	RoleSeller Role = protocol.RoleSeller
)

type ClearingMode = protocol.ClearingMode

const (
	ClearContinuous ClearingMode = protocol.ClearContinuous
	ClearEndOfRound ClearingMode = protocol.ClearEndOfRound
	ClearEndOfDay   ClearingMode = protocol.ClearEndOfDay
)

// ShoutID is the arena handle of a shout. IDs are never reused within one auctioneer.
type ShoutID uint64

// AgentID identifies the trader owning a shout.
type AgentID uint64

// State is the lifecycle state of an auctioneer.
type State uint8

const (
	StateOpen     State = 0
	StateClearing State = 1
	StateClosed   State = 2
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClearing:
		return "clearing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// partition identifies which of the four book heaps holds a shout.
type partition uint8

const (
	partitionNone partition = iota
	partitionMatchedBids
	partitionMatchedAsks
	partitionUnmatchedBids
	partitionUnmatchedAsks
)

func (p partition) String() string {
	switch p {
	case partitionMatchedBids:
		return "matched_bids"
	case partitionMatchedAsks:
		return "matched_asks"
	case partitionUnmatchedBids:
		return "unmatched_bids"
	case partitionUnmatchedAsks:
		return "unmatched_asks"
	}
	return "none"
}

// MatchedPair is one provisional match produced by the book.
type MatchedPair struct {
	Bid      *Shout
	Ask      *Shout
	Quantity int64
}

// Trade is a settled matched pair.
type Trade struct {
	ID       uint64  `json:"id"`
	MarketID string  `json:"market_id"`
	Round    int     `json:"round"`
	Day      int     `json:"day"`
	Buyer    AgentID `json:"buyer"`
	Seller   AgentID `json:"seller"`
	BidID    ShoutID `json:"bid_id"`
	AskID    ShoutID `json:"ask_id"`
	BidPrice float64 `json:"bid_price"`
	AskPrice float64 `json:"ask_price"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

package protocol

// Side represents the shout side (Bid/Ask).
type Side int8

const (
	SideBid Side = 1
	SideAsk Side = 2
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	}
	return "unknown"
}

// Opposite returns the counterparty side.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// Role restricts which side an agent may shout on.
type Role uint8

const (
	RoleAny    Role = 0
	RoleBuyer  Role = 1
	RoleSeller Role = 2
)

// ClearingMode decides when matched pairs are settled.
type ClearingMode uint8

const (
	// ClearContinuous clears after every accepted shout.
	ClearContinuous ClearingMode = 0
	// ClearEndOfRound clears when the round ends.
	ClearEndOfRound ClearingMode = 1
	// ClearEndOfDay clears only when the trading day ends.
	ClearEndOfDay ClearingMode = 2
)

func (m ClearingMode) String() string {
	switch m {
	case ClearContinuous:
		return "continuous"
	case ClearEndOfRound:
		return "end_of_round"
	case ClearEndOfDay:
		return "end_of_day"
	}
	return "unknown"
}

// LogType represents the type of event log.
type LogType string

const (
	LogTypeOpen     LogType = "open"
	LogTypeWithdraw LogType = "withdraw"
	LogTypeTrade    LogType = "trade"
	LogTypeReject   LogType = "reject"
	LogTypeQuote    LogType = "quote"
	LogTypeRound    LogType = "round"
	LogTypeDay      LogType = "day"
	LogTypeClose    LogType = "close"
)

// RejectReason represents the reason why a shout was rejected.
type RejectReason string

const (
	RejectReasonNone            RejectReason = ""
	RejectReasonInvalidPrice    RejectReason = "invalid_price"
	RejectReasonInvalidQuantity RejectReason = "invalid_quantity"
	RejectReasonInvalidSide     RejectReason = "invalid_side"
	RejectReasonSideMismatch    RejectReason = "side_mismatch" // Side does not fit the agent's role
	RejectReasonShoutNotFound   RejectReason = "shout_not_found"
	RejectReasonAuctionClosed   RejectReason = "auction_closed"
	RejectReasonInvalidPayload  RejectReason = "invalid_payload"
)

// QuoteResponse is the public bid/ask quote of a market.
// Infinite sides are omitted.
type QuoteResponse struct {
	MarketID string   `json:"market_id"`
	Bid      *float64 `json:"bid,omitempty"`
	Ask      *float64 `json:"ask,omitempty"`
}

type DepthItem struct {
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
}

// GetDepthResponse represents the aggregated supply and demand of a market.
type GetDepthResponse struct {
	SequenceID uint64       `json:"seq_id"`
	Asks       []*DepthItem `json:"asks"`
	Bids       []*DepthItem `json:"bids"`
}

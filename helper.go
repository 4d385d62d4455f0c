package auction

import "github.com/shopspring/decimal"

// DepthChange represents a change of aggregated quantity at one price level.
type DepthChange struct {
	Side         Side
	Price        decimal.Decimal
	QuantityDiff int64
}

// CalculateDepthChanges returns the price level updates implied by an
// auction log. A Trade consumes liquidity on both sides: the bid at
// BidPrice and the ask at AskPrice.
func CalculateDepthChanges(log *AuctionLog) []DepthChange {
	switch log.Type {
	case LogTypeOpen:
		return []DepthChange{{
			Side:         log.Side,
			Price:        log.Price,
			QuantityDiff: log.Quantity,
		}}
	case LogTypeWithdraw:
		return []DepthChange{{
			Side:         log.Side,
			Price:        log.Price,
			QuantityDiff: -log.Quantity,
		}}
	case LogTypeTrade:
		return []DepthChange{
			{
				Side:         Bid,
				Price:        log.BidPrice,
				QuantityDiff: -log.Quantity,
			},
			{
				Side:         Ask,
				Price:        log.AskPrice,
				QuantityDiff: -log.Quantity,
			},
		}
	}

	// Rejects never reached the book; quote and market logs carry no depth.
	return nil
}

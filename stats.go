package auction

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MarketStats accumulates transaction statistics of a market. It implements
// TradeListener so it can be attached with WithTradeListener.
//
// Surplus is only counted for agents whose private valuation has been set.
type MarketStats struct {
	Count      int64
	Volume     int64
	Turnover   decimal.Decimal
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
	LastPrice  decimal.Decimal
	LastQuote  MarketQuote
	QuoteCount int64

	BuyerSurplus  decimal.Decimal
	SellerSurplus decimal.Decimal

	valuations map[AgentID]decimal.Decimal
}

func NewMarketStats() *MarketStats {
	return &MarketStats{
		LastQuote:  EmptyQuote(),
		valuations: make(map[AgentID]decimal.Decimal),
	}
}

// SetValuation records the private value of a buyer or the cost of a seller.
func (s *MarketStats) SetValuation(agent AgentID, value float64) {
	s.valuations[agent] = decimal.NewFromFloat(value)
}

func (s *MarketStats) OnTrade(trade Trade) {
	price := decimal.NewFromFloat(trade.Price)
	qty := decimal.NewFromInt(trade.Quantity)

	if s.Count == 0 || price.LessThan(s.MinPrice) {
		s.MinPrice = price
	}
	if s.Count == 0 || price.GreaterThan(s.MaxPrice) {
		s.MaxPrice = price
	}
	s.Count++
	s.Volume += trade.Quantity
	s.Turnover = s.Turnover.Add(price.Mul(qty))
	s.LastPrice = price

	if value, ok := s.valuations[trade.Buyer]; ok {
		s.BuyerSurplus = s.BuyerSurplus.Add(value.Sub(price).Mul(qty))
	}
	if cost, ok := s.valuations[trade.Seller]; ok {
		s.SellerSurplus = s.SellerSurplus.Add(price.Sub(cost).Mul(qty))
	}
}

func (s *MarketStats) OnQuoteChanged(quote MarketQuote) {
	s.LastQuote = quote
	s.QuoteCount++
}

// MeanPrice returns the volume weighted mean transaction price.
func (s *MarketStats) MeanPrice() decimal.Decimal {
	if s.Volume == 0 {
		return decimal.Zero
	}
	return s.Turnover.Div(decimal.NewFromInt(s.Volume))
}

// TotalSurplus returns the surplus realised by buyers and sellers.
func (s *MarketStats) TotalSurplus() decimal.Decimal {
	return s.BuyerSurplus.Add(s.SellerSurplus)
}

// Efficiency returns the realised surplus as a fraction of maxSurplus.
func (s *MarketStats) Efficiency(maxSurplus decimal.Decimal) decimal.Decimal {
	if !maxSurplus.IsPositive() {
		return decimal.Zero
	}
	return s.TotalSurplus().Div(maxSurplus)
}

// Reset clears the accumulated statistics but keeps the valuations.
func (s *MarketStats) Reset() {
	valuations := s.valuations
	*s = MarketStats{
		LastQuote:  EmptyQuote(),
		valuations: valuations,
	}
}

// MaxSurplus returns the surplus of the competitive allocation for unit
// buyers with the given values and unit sellers with the given costs.
func MaxSurplus(values, costs []float64) decimal.Decimal {
	v := append([]float64(nil), values...)
	c := append([]float64(nil), costs...)
	sort.Sort(sort.Reverse(sort.Float64Slice(v)))
	sort.Float64s(c)

	total := decimal.Zero
	for i := 0; i < len(v) && i < len(c) && v[i] >= c[i]; i++ {
		total = total.Add(decimal.NewFromFloat(v[i]).Sub(decimal.NewFromFloat(c[i])))
	}
	return total
}

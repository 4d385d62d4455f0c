package auction

import "sync"

// TradeListener is notified of settlements and quote changes. Listeners are
// called synchronously from the clearing pass.
type TradeListener interface {
	OnTrade(trade Trade)
	OnQuoteChanged(quote MarketQuote)
}

// TradeListenerFuncs adapts plain functions to TradeListener. Nil fields are skipped.
type TradeListenerFuncs struct {
	Trade        func(Trade)
	QuoteChanged func(MarketQuote)
}

func (f TradeListenerFuncs) OnTrade(trade Trade) {
	if f.Trade != nil {
		f.Trade(trade)
	}
}

func (f TradeListenerFuncs) OnQuoteChanged(quote MarketQuote) {
	if f.QuoteChanged != nil {
		f.QuoteChanged(quote)
	}
}

// MemoryTradeListener records every notification.
type MemoryTradeListener struct {
	mu     sync.RWMutex
	trades []Trade
	quotes []MarketQuote
}

func NewMemoryTradeListener() *MemoryTradeListener {
	return &MemoryTradeListener{
		trades: make([]Trade, 0),
	}
}

func (m *MemoryTradeListener) OnTrade(trade Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trade)
}

func (m *MemoryTradeListener) OnQuoteChanged(quote MarketQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes = append(m.quotes, quote)
}

func (m *MemoryTradeListener) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trades)
}

func (m *MemoryTradeListener) Get(index int) Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.trades[index]
}

// Trades returns a copy of the recorded trades.
func (m *MemoryTradeListener) Trades() []Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trades := make([]Trade, len(m.trades))
	copy(trades, m.trades)
	return trades
}

// Quotes returns a copy of the recorded quotes.
func (m *MemoryTradeListener) Quotes() []MarketQuote {
	m.mu.RLock()
	defer m.mu.RUnlock()

	quotes := make([]MarketQuote, len(m.quotes))
	copy(quotes, m.quotes)
	return quotes
}

type DiscardTradeListener struct {
}

func NewDiscardTradeListener() *DiscardTradeListener {
	return &DiscardTradeListener{}
}

func (p *DiscardTradeListener) OnTrade(trade Trade) {

}

func (p *DiscardTradeListener) OnQuoteChanged(quote MarketQuote) {

}

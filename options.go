package auction

import (
	"log/slog"

	"github.com/0x5487/double-auction/protocol"
)

// Option configures an Auctioneer.
type Option func(*Auctioneer)

// WithClearingMode sets when matched pairs are settled. Default: ClearContinuous.
func WithClearingMode(mode ClearingMode) Option {
	return func(a *Auctioneer) {
		a.mode = mode
	}
}

// WithPricing selects the pricing policy by configuration. Default:
// discriminatory pricing with K = 0.5.
func WithPricing(cfg PricingConfig) Option {
	return func(a *Auctioneer) {
		a.pricing = &cfg
		a.policy = nil
	}
}

// WithPricingPolicy installs a ready-made pricing policy.
func WithPricingPolicy(p PricingPolicy) Option {
	return func(a *Auctioneer) {
		a.policy = p
		a.pricing = nil
	}
}

// WithMarketID names the market. Default: a fresh xid.
func WithMarketID(id string) Option {
	return func(a *Auctioneer) {
		a.marketID = id
	}
}

// WithIDAllocator sets the shout ID allocator. Default: a SequenceAllocator.
func WithIDAllocator(ids IDAllocator) Option {
	return func(a *Auctioneer) {
		a.ids = ids
	}
}

// WithPublishLog sets the event sink. Default: DiscardPublishLog.
func WithPublishLog(p PublishLog) Option {
	return func(a *Auctioneer) {
		a.publishLog = p
	}
}

// WithTradeListener registers a listener. It may be given more than once.
func WithTradeListener(l TradeListener) Option {
	return func(a *Auctioneer) {
		a.listeners = append(a.listeners, l)
	}
}

// WithLogger sets the logger. Default: the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Auctioneer) {
		a.logger = l
	}
}

// WithMaxRounds ends the trading day automatically after n rounds. Zero disables it.
func WithMaxRounds(n int) Option {
	return func(a *Auctioneer) {
		a.maxRounds = n
	}
}

// WithMaxDays closes the auction automatically after n days. Zero disables it.
func WithMaxDays(n int) Option {
	return func(a *Auctioneer) {
		a.maxDays = n
	}
}

// WithInvariantChecks verifies the book after every mutation.
func WithInvariantChecks(enabled bool) Option {
	return func(a *Auctioneer) {
		a.checks = enabled
	}
}

// WithSerializer sets the payload codec used by Execute. Default: JSON.
func WithSerializer(s protocol.Serializer) Option {
	return func(a *Auctioneer) {
		a.serializer = s
	}
}

package auction

import (
	"fmt"
	"math"

	"github.com/0x5487/double-auction/structure"
)

// PricingKind selects a pricing policy.
type PricingKind string

const (
	PricingDiscriminatory PricingKind = "discriminatory"
	PricingUniform        PricingKind = "uniform"
	PricingNPeriod        PricingKind = "n_period"
)

// PricingPolicy determines the transaction price of a matched pair.
type PricingPolicy interface {
	// ClearingPrice is called once per matched pair, before the pair leaves the book.
	// quote is the market quote taken at the start of the clearing pass.
	ClearingPrice(bid, ask *Shout, quote MarketQuote) float64
	// Reset drops any accumulated history.
	Reset()
	Kind() PricingKind
}

// PricingConfig describes a pricing policy.
//
// K weights the bid side for discriminatory pricing and the ask quote for
// uniform pricing. N is the number of past transactions averaged by
// n-period pricing.
type PricingConfig struct {
	Kind PricingKind `json:"kind"`
	K    float64     `json:"k"`
	N    int         `json:"n"`
}

// NewPricingPolicy builds the policy described by cfg.
func NewPricingPolicy(cfg PricingConfig) (PricingPolicy, error) {
	switch cfg.Kind {
	case PricingDiscriminatory:
		return NewDiscriminatoryPricing(cfg.K)
	case PricingUniform:
		return NewUniformPricing(cfg.K)
	case PricingNPeriod:
		return NewNPeriodPricing(cfg.N)
	}
	return nil, fmt.Errorf("%w: unknown pricing kind %q", ErrInvalidParam, cfg.Kind)
}

func validateK(k float64) error {
	if math.IsNaN(k) || k < 0 || k > 1 {
		return fmt.Errorf("%w: k must be in [0, 1], got %v", ErrInvalidParam, k)
	}
	return nil
}

// DiscriminatoryPricing prices each pair at K*bid + (1-K)*ask, so pairs of
// the same clearing pass may trade at different prices.
type DiscriminatoryPricing struct {
	K float64
}

func NewDiscriminatoryPricing(k float64) (*DiscriminatoryPricing, error) {
	if err := validateK(k); err != nil {
		return nil, err
	}
	return &DiscriminatoryPricing{K: k}, nil
}

func (p *DiscriminatoryPricing) ClearingPrice(bid, ask *Shout, _ MarketQuote) float64 {
	return p.K*bid.Price + (1-p.K)*ask.Price
}

func (p *DiscriminatoryPricing) Reset() {}

func (p *DiscriminatoryPricing) Kind() PricingKind {
	return PricingDiscriminatory
}

// UniformPricing settles every pair of a clearing pass at one price inside the
// marginal interval of the clearing quote: K*ask + (1-K)*bid.
// K=0 prices at the bid quote, which is the seller-side price that a
// k-double auction with k=1 produces.
type UniformPricing struct {
	K float64
}

func NewUniformPricing(k float64) (*UniformPricing, error) {
	if err := validateK(k); err != nil {
		return nil, err
	}
	return &UniformPricing{K: k}, nil
}

func (p *UniformPricing) ClearingPrice(bid, ask *Shout, quote MarketQuote) float64 {
	// The quote is bounded on both sides whenever a matched pair exists.
	lo, hi := quote.Bid, quote.Ask
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		lo, hi = ask.Price, bid.Price
	}
	return p.K*hi + (1-p.K)*lo
}

func (p *UniformPricing) Reset() {}

func (p *UniformPricing) Kind() PricingKind {
	return PricingUniform
}

// NPeriodPricing averages the bid and ask prices of the last N matched pairs,
// the one being priced included, and clamps the mean to that pair's
// [ask, bid] interval.
type NPeriodPricing struct {
	N       int
	history *structure.FixedQueue[float64]
}

func NewNPeriodPricing(n int) (*NPeriodPricing, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n must be at least 1, got %d", ErrInvalidParam, n)
	}
	return &NPeriodPricing{
		N:       n,
		history: structure.NewFixedQueue[float64](2 * n),
	}, nil
}

func (p *NPeriodPricing) ClearingPrice(bid, ask *Shout, _ MarketQuote) float64 {
	p.history.Push(bid.Price)
	p.history.Push(ask.Price)

	mean := p.Mean()
	switch {
	case mean >= bid.Price:
		return bid.Price
	case mean <= ask.Price:
		return ask.Price
	}
	return mean
}

// Mean returns the average of the recorded prices, NaN if none.
func (p *NPeriodPricing) Mean() float64 {
	if p.history.Len() == 0 {
		return math.NaN()
	}
	var sum float64
	p.history.Each(func(price float64) {
		sum += price
	})
	return sum / float64(p.history.Len())
}

func (p *NPeriodPricing) Reset() {
	p.history.Reset()
}

func (p *NPeriodPricing) Kind() PricingKind {
	return PricingNPeriod
}

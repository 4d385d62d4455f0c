package auction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pair(bid, ask float64) (*Shout, *Shout) {
	return &Shout{Side: Bid, Price: bid, Quantity: 1}, &Shout{Side: Ask, Price: ask, Quantity: 1}
}

func TestDiscriminatoryPricing(t *testing.T) {
	tests := []struct {
		k        float64
		expected float64
	}{
		{k: 0, expected: 4},
		{k: 0.5, expected: 4.5},
		{k: 1, expected: 5},
	}

	for _, tt := range tests {
		p, err := NewDiscriminatoryPricing(tt.k)
		require.NoError(t, err)
		bid, ask := pair(5, 4)
		assert.InDelta(t, tt.expected, p.ClearingPrice(bid, ask, EmptyQuote()), 1e-9, "k=%v", tt.k)
	}

	_, err := NewDiscriminatoryPricing(1.5)
	assert.ErrorIs(t, err, ErrInvalidParam)
	_, err = NewDiscriminatoryPricing(math.NaN())
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestUniformPricing(t *testing.T) {
	t.Run("priced inside the clearing quote", func(t *testing.T) {
		p, err := NewUniformPricing(0.5)
		require.NoError(t, err)

		quote := MarketQuote{Bid: 900, Ask: 920}
		bid, ask := pair(950, 800)
		assert.Equal(t, 910.0, p.ClearingPrice(bid, ask, quote))

		// Every pair of the pass gets the same price.
		bid, ask = pair(920, 900)
		assert.Equal(t, 910.0, p.ClearingPrice(bid, ask, quote))
	})

	t.Run("k selects the end of the interval", func(t *testing.T) {
		quote := MarketQuote{Bid: 900, Ask: 920}
		bid, ask := pair(950, 800)

		low, err := NewUniformPricing(0)
		require.NoError(t, err)
		assert.Equal(t, 900.0, low.ClearingPrice(bid, ask, quote))

		high, err := NewUniformPricing(1)
		require.NoError(t, err)
		assert.Equal(t, 920.0, high.ClearingPrice(bid, ask, quote))
	})

	t.Run("unbounded quote falls back to the pair", func(t *testing.T) {
		p, err := NewUniformPricing(0.5)
		require.NoError(t, err)
		bid, ask := pair(10, 6)
		assert.Equal(t, 8.0, p.ClearingPrice(bid, ask, EmptyQuote()))
	})

	_, err := NewUniformPricing(-0.1)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestNPeriodPricing(t *testing.T) {
	t.Run("single period averages the current pair", func(t *testing.T) {
		p, err := NewNPeriodPricing(1)
		require.NoError(t, err)

		bid, ask := pair(10, 6)
		assert.Equal(t, 8.0, p.ClearingPrice(bid, ask, EmptyQuote()))
		bid, ask = pair(7, 5)
		assert.Equal(t, 6.0, p.ClearingPrice(bid, ask, EmptyQuote()))
	})

	t.Run("mean is clamped to the current pair", func(t *testing.T) {
		p, err := NewNPeriodPricing(2)
		require.NoError(t, err)

		bid, ask := pair(10, 6)
		assert.Equal(t, 8.0, p.ClearingPrice(bid, ask, EmptyQuote()))

		// history 10 6 7 5, mean 7 reaches the bid
		bid, ask = pair(7, 5)
		assert.Equal(t, 7.0, p.ClearingPrice(bid, ask, EmptyQuote()))

		// history 7 5 20 18, mean 12.5 is below the ask
		bid, ask = pair(20, 18)
		assert.Equal(t, 18.0, p.ClearingPrice(bid, ask, EmptyQuote()))
		assert.Equal(t, 12.5, p.Mean())
	})

	t.Run("reset drops history", func(t *testing.T) {
		p, err := NewNPeriodPricing(3)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(p.Mean()))

		bid, ask := pair(10, 6)
		p.ClearingPrice(bid, ask, EmptyQuote())
		assert.Equal(t, 8.0, p.Mean())

		p.Reset()
		assert.True(t, math.IsNaN(p.Mean()))
	})

	_, err := NewNPeriodPricing(0)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestNewPricingPolicy(t *testing.T) {
	tests := []struct {
		cfg  PricingConfig
		kind PricingKind
	}{
		{cfg: PricingConfig{Kind: PricingDiscriminatory, K: 0.5}, kind: PricingDiscriminatory},
		{cfg: PricingConfig{Kind: PricingUniform, K: 0}, kind: PricingUniform},
		{cfg: PricingConfig{Kind: PricingNPeriod, N: 4}, kind: PricingNPeriod},
	}
	for _, tt := range tests {
		p, err := NewPricingPolicy(tt.cfg)
		require.NoError(t, err)
		assert.Equal(t, tt.kind, p.Kind())
	}

	_, err := NewPricingPolicy(PricingConfig{Kind: "vickrey"})
	assert.ErrorIs(t, err, ErrInvalidParam)
}

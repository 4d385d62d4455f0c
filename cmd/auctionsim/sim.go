package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	auction "github.com/0x5487/double-auction"
	"github.com/rs/xid"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"
)

type config struct {
	Buyers       int
	Sellers      int
	Rounds       int
	Days         int
	Replications int
	Mode         auction.ClearingMode
	Pricing      auction.PricingConfig
	MinValue     int // lowest private value or cost
	MaxValue     int // highest private value or cost
	MaxPrice     float64
	Seed         int64
	MarketID     string // scenario replay only
}

func (c *config) validate() error {
	switch {
	case c.Buyers < 1 || c.Sellers < 1:
		return errors.New("at least one buyer and one seller are required")
	case c.Rounds < 1 || c.Days < 1:
		return errors.New("rounds and days must be at least 1")
	case c.Replications < 1:
		return errors.New("replications must be at least 1")
	case c.MinValue < 0 || c.MaxValue < c.MinValue:
		return fmt.Errorf("invalid value range [%d, %d]", c.MinValue, c.MaxValue)
	case c.MaxPrice < float64(c.MaxValue):
		return fmt.Errorf("max price %g is below the highest value %d", c.MaxPrice, c.MaxValue)
	}
	return nil
}

// trader is a zero-intelligence constrained agent with unit demand per day:
// it shouts uniformly at random without ever risking a loss.
type trader struct {
	id     auction.AgentID
	side   auction.Side
	value  float64 // private value of a buyer, cost of a seller
	shout  auction.ShoutID
	traded bool
}

func (tr *trader) price(rng *rand.Rand, maxPrice float64) float64 {
	if tr.side == auction.Bid {
		return tr.value * rng.Float64()
	}
	return tr.value + (maxPrice-tr.value)*rng.Float64()
}

type result struct {
	ID         string
	Seed       int64
	Trades     int64
	Volume     int64
	MeanPrice  decimal.Decimal
	Surplus    decimal.Decimal
	MaxSurplus decimal.Decimal
	Efficiency decimal.Decimal
	Quote      auction.MarketQuote
}

// run executes every replication in parallel. Each replication owns its
// auctioneer, traders and random source.
func run(ctx context.Context, cfg config, logger *slog.Logger) ([]*result, error) {
	results := make([]*result, cfg.Replications)
	t, ctx := tomb.WithContext(ctx)

	t.Go(func() error {
		for i := 0; i < cfg.Replications; i++ {
			i := i
			t.Go(func() error {
				res, err := runReplication(ctx, cfg, i, logger)
				if err != nil {
					return fmt.Errorf("replication %d: %w", i, err)
				}
				results[i] = res
				return nil
			})
		}
		return nil
	})

	if err := t.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runReplication(ctx context.Context, cfg config, index int, logger *slog.Logger) (*result, error) {
	seed := cfg.Seed + int64(index)
	rng := rand.New(rand.NewSource(seed))
	id := xid.New().String()
	logger = logger.With("replication", id, "seed", seed)

	traders := make([]*trader, 0, cfg.Buyers+cfg.Sellers)
	byAgent := make(map[auction.AgentID]*trader, cfg.Buyers+cfg.Sellers)
	stats := auction.NewMarketStats()
	var values, costs []float64

	for i := 0; i < cfg.Buyers+cfg.Sellers; i++ {
		tr := &trader{
			id:    auction.AgentID(i + 1),
			side:  auction.Bid,
			value: float64(cfg.MinValue + rng.Intn(cfg.MaxValue-cfg.MinValue+1)),
		}
		if i < cfg.Buyers {
			values = append(values, tr.value)
		} else {
			tr.side = auction.Ask
			costs = append(costs, tr.value)
		}
		traders = append(traders, tr)
		byAgent[tr.id] = tr
		stats.SetValuation(tr.id, tr.value)
	}

	a, err := auction.NewAuctioneer(
		auction.WithMarketID(id),
		auction.WithClearingMode(cfg.Mode),
		auction.WithPricing(cfg.Pricing),
		auction.WithMaxRounds(cfg.Rounds),
		auction.WithMaxDays(cfg.Days),
		auction.WithLogger(logger),
		auction.WithTradeListener(stats),
		auction.WithTradeListener(auction.TradeListenerFuncs{
			Trade: func(trade auction.Trade) {
				byAgent[trade.Buyer].traded = true
				byAgent[trade.Seller].traded = true
			},
		}),
	)
	if err != nil {
		return nil, err
	}
	for _, tr := range traders {
		role := auction.RoleBuyer
		if tr.side == auction.Ask {
			role = auction.RoleSeller
		}
		a.RegisterAgent(tr.id, role)
	}

	for a.State() != auction.StateClosed {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		day := a.Day()
		for _, i := range rng.Perm(len(traders)) {
			tr := traders[i]
			if tr.traded {
				continue
			}
			if tr.shout != 0 {
				if err := a.Withdraw(tr.shout); err != nil {
					return nil, err
				}
			}
			shoutID, err := a.Submit(auction.Shout{
				Agent:    tr.id,
				Side:     tr.side,
				Price:    tr.price(rng, cfg.MaxPrice),
				Quantity: 1,
			})
			if err != nil {
				return nil, err
			}
			tr.shout = shoutID
			if tr.traded {
				tr.shout = 0
			}
		}

		if err := a.EndOfRound(); err != nil {
			return nil, err
		}
		for _, tr := range traders {
			if tr.traded {
				tr.shout = 0
			}
		}
		if a.Day() != day {
			for _, tr := range traders {
				tr.traded = false
				tr.shout = 0
			}
		}
	}

	maxSurplus := auction.MaxSurplus(values, costs).Mul(decimal.NewFromInt(int64(cfg.Days)))
	res := &result{
		ID:         id,
		Seed:       seed,
		Trades:     stats.Count,
		Volume:     stats.Volume,
		MeanPrice:  stats.MeanPrice(),
		Surplus:    stats.TotalSurplus(),
		MaxSurplus: maxSurplus,
		Efficiency: stats.Efficiency(maxSurplus),
		Quote:      stats.LastQuote,
	}
	logger.Debug("replication finished", "trades", res.Trades, "efficiency", res.Efficiency.StringFixed(4))
	return res, nil
}

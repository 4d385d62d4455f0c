package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	auction "github.com/0x5487/double-auction"
	"github.com/0x5487/double-auction/protocol"
	"github.com/shopspring/decimal"
)

func main() {
	var cfg config
	flag.IntVar(&cfg.Buyers, "buyers", 10, "Number of buyers")
	flag.IntVar(&cfg.Sellers, "sellers", 10, "Number of sellers")
	flag.IntVar(&cfg.Rounds, "rounds", 20, "Rounds per trading day")
	flag.IntVar(&cfg.Days, "days", 5, "Trading days per replication")
	flag.IntVar(&cfg.Replications, "replications", 8, "Independent replications run in parallel")
	flag.IntVar(&cfg.MinValue, "min-value", 50, "Lowest private value or cost")
	flag.IntVar(&cfg.MaxValue, "max-value", 150, "Highest private value or cost")
	flag.Float64Var(&cfg.MaxPrice, "max-price", 200, "Highest price a seller may ask")
	flag.Int64Var(&cfg.Seed, "seed", 1, "Seed of the first replication")
	mode := flag.String("mode", "continuous", "Clearing mode: ['continuous', 'end_of_round', 'end_of_day']")
	pricing := flag.String("pricing", "discriminatory", "Pricing policy: ['discriminatory', 'uniform', 'n_period']")
	k := flag.Float64("k", 0.5, "K of discriminatory and uniform pricing")
	n := flag.Int("n", 1, "Number of periods averaged by n_period pricing")
	flag.StringVar(&cfg.MarketID, "market", "", "Market ID commands of a scenario are addressed to (default: generated)")
	scenario := flag.String("scenario", "", "JSON file of commands to replay instead of simulating")
	level := flag.String("log-level", "warn", "Log level: ['debug', 'info', 'warn', 'error']")
	flag.Parse()

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(*level)); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})).With("component", "auctionsim")

	var err error
	cfg.Mode, err = parseMode(*mode)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}
	cfg.Pricing = auction.PricingConfig{Kind: auction.PricingKind(*pricing), K: *k, N: *n}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(*scenario) > 0 {
		if err := replayScenario(*scenario, cfg, logger); err != nil {
			logger.Error("scenario failed", "file", *scenario, "error", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	results, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
	printResults(results)
}

func parseMode(s string) (auction.ClearingMode, error) {
	for _, mode := range []auction.ClearingMode{auction.ClearContinuous, auction.ClearEndOfRound, auction.ClearEndOfDay} {
		if strings.EqualFold(s, mode.String()) {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown clearing mode %q", s)
}

// replayScenario executes a recorded list of commands against one auctioneer.
// Rejected commands are reported and skipped.
func replayScenario(path string, cfg config, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var commands []*protocol.Command
	if err := json.Unmarshal(data, &commands); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	// The aggregated depth is rebuilt from the event stream on its own goroutine.
	depth := auction.NewAggregatedBook()
	var replayErr error
	sink := auction.NewAsyncPublishLog(1024, func(log *auction.AuctionLog) {
		if err := depth.Replay(log); err != nil && replayErr == nil {
			replayErr = err
		}
	})

	trades := auction.NewMemoryTradeListener()
	a, err := auction.NewAuctioneer(
		auction.WithMarketID(cfg.MarketID),
		auction.WithClearingMode(cfg.Mode),
		auction.WithPricing(cfg.Pricing),
		auction.WithPublishLog(sink),
		auction.WithTradeListener(trades),
		auction.WithLogger(logger),
		auction.WithInvariantChecks(true),
	)
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		if err := a.Execute(cmd); err != nil {
			logger.Warn("command rejected", "seq_id", cmd.SeqID, "type", cmd.Type.String(), "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sink.Shutdown(ctx); err != nil {
		return err
	}
	if replayErr != nil {
		return replayErr
	}

	for _, trade := range trades.Trades() {
		fmt.Printf("trade %d  round %d day %d  buyer %d seller %d  price %s qty %d\n",
			trade.ID, trade.Round, trade.Day, trade.Buyer, trade.Seller,
			decimal.NewFromFloat(trade.Price).String(), trade.Quantity)
	}
	fmt.Printf("quote %s\n", a.GenerateQuote())

	for _, level := range depth.Levels(auction.Bid, 10) {
		fmt.Printf("bid %10s x %d\n", level.Price, level.Quantity)
	}
	for _, level := range depth.Levels(auction.Ask, 10) {
		fmt.Printf("ask %10s x %d\n", level.Price, level.Quantity)
	}
	if eq, ok := depth.Equilibrium(); ok {
		fmt.Printf("equilibrium %d units in [%s, %s]\n", eq.Quantity, eq.Low, eq.High)
	}
	return nil
}

func printResults(results []*result) {
	fmt.Printf("%-22s %6s %6s %8s %10s %10s %10s\n", "replication", "seed", "trades", "volume", "mean", "surplus", "efficiency")

	total := decimal.Zero
	for _, res := range results {
		fmt.Printf("%-22s %6d %6d %8d %10s %10s %10s\n",
			res.ID, res.Seed, res.Trades, res.Volume,
			res.MeanPrice.StringFixed(2), res.Surplus.StringFixed(2), res.Efficiency.StringFixed(4))
		total = total.Add(res.Efficiency)
	}
	mean := total.Div(decimal.NewFromInt(int64(len(results))))
	fmt.Printf("mean efficiency %s over %d replications\n", mean.StringFixed(4), len(results))
}

package auction

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/0x5487/double-auction/protocol"
	"github.com/rs/xid"
)

// Auctioneer runs one double-auction market: it admits shouts into a
// FourHeap, decides when to clear and settles matched pairs through a
// pricing policy.
//
// An Auctioneer is not safe for concurrent use. Parallel simulations create
// one Auctioneer per goroutine.
type Auctioneer struct {
	marketID   string
	mode       ClearingMode
	state      State
	book       *FourHeap
	policy     PricingPolicy
	pricing    *PricingConfig
	ids        IDAllocator
	publishLog PublishLog
	listeners  []TradeListener
	serializer protocol.Serializer
	logger     *slog.Logger
	checks     bool

	quote     MarketQuote
	roles     map[AgentID]Role
	lastBid   *Shout
	lastAsk   *Shout
	round     int
	day       int
	maxRounds int
	maxDays   int
	seqID     uint64
	tradeID   uint64
}

// NewAuctioneer creates an open market.
func NewAuctioneer(opts ...Option) (*Auctioneer, error) {
	a := &Auctioneer{
		mode:  ClearContinuous,
		state: StateOpen,
		quote: EmptyQuote(),
		roles: make(map[AgentID]Role),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.mode > ClearEndOfDay {
		return nil, fmt.Errorf("%w: unknown clearing mode %d", ErrInvalidParam, a.mode)
	}
	if a.maxRounds < 0 || a.maxDays < 0 {
		return nil, fmt.Errorf("%w: round and day limits must not be negative", ErrInvalidParam)
	}
	if a.policy == nil {
		cfg := PricingConfig{Kind: PricingDiscriminatory, K: 0.5}
		if a.pricing != nil {
			cfg = *a.pricing
		}
		policy, err := NewPricingPolicy(cfg)
		if err != nil {
			return nil, err
		}
		a.policy = policy
	}
	if len(a.marketID) == 0 {
		a.marketID = xid.New().String()
	}
	if a.ids == nil {
		a.ids = NewSequenceAllocator()
	}
	if a.publishLog == nil {
		a.publishLog = NewDiscardPublishLog()
	}
	if a.serializer == nil {
		a.serializer = &protocol.DefaultJSONSerializer{}
	}
	if a.logger == nil {
		a.logger = logger
	}
	a.logger = a.logger.With("market_id", a.marketID)

	a.book = NewFourHeap(a.ids, WithBookChecks(a.checks), WithBookLogger(a.logger))
	return a, nil
}

// Submit validates a new shout and inserts it into the book. Only Agent,
// Side, Price and Quantity of s are used. In continuous mode the book is
// cleared as soon as it holds a matched pair.
func (a *Auctioneer) Submit(s Shout) (ShoutID, error) {
	shout := &Shout{
		ID:       a.ids.NextID(),
		Agent:    s.Agent,
		Side:     s.Side,
		Price:    s.Price,
		Quantity: s.Quantity,
		Round:    a.round,
		Day:      a.day,
	}
	shout.Origin = shout.ID

	if a.state == StateClosed {
		a.reject(shout, ErrAuctionClosed)
		return 0, ErrAuctionClosed
	}
	if err := a.validate(shout); err != nil {
		a.reject(shout, err)
		return 0, err
	}

	// Insert may split the shout and shrink it in place.
	submitted := copyShout(shout)
	if err := a.book.Insert(shout); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if shout.IsBid() {
		a.lastBid = submitted
	} else {
		a.lastAsk = submitted
	}

	a.logger.Debug("shout accepted",
		"shout_id", shout.ID,
		"agent_id", shout.Agent,
		"side", shout.Side.String(),
		"price", shout.Price,
		"quantity", submitted.Quantity,
		"matched", a.book.IsMatched(shout.ID),
	)
	a.emit(NewOpenLog(a.nextSeqID(), a.marketID, submitted))

	if a.mode == ClearContinuous && a.book.MatchedQuantity() > 0 {
		a.Clear()
	}
	return shout.ID, nil
}

// Withdraw removes a shout and every fragment split off it. id may be the
// ID returned by Submit or the ID of any live fragment.
func (a *Auctioneer) Withdraw(id ShoutID) error {
	if a.state == StateClosed {
		return ErrAuctionClosed
	}

	origin := id
	if s, ok := a.book.Get(id); ok {
		origin = s.Origin
	}
	fragments := a.book.Lineage(origin)
	if len(fragments) == 0 {
		a.reject(&Shout{ID: id, Round: a.round, Day: a.day}, ErrNotFound)
		return fmt.Errorf("%w: shout %d", ErrNotFound, id)
	}

	removed, err := a.book.RemoveLineage(origin)
	if err != nil {
		return err
	}

	head := fragments[0]
	head.ID = origin
	a.logger.Debug("shout withdrawn", "shout_id", origin, "agent_id", head.Agent, "quantity", removed)
	a.emit(NewWithdrawLog(a.nextSeqID(), a.marketID, &head, removed))
	return nil
}

// Quote returns the quote computed by the last clearing pass or GenerateQuote.
func (a *Auctioneer) Quote() MarketQuote {
	return a.quote
}

// GenerateQuote recomputes the quote from the current book.
func (a *Auctioneer) GenerateQuote() MarketQuote {
	a.quote = NewMarketQuote(a.book)
	return a.quote
}

// Clear settles every matched pair at the price chosen by the pricing
// policy, then refreshes the quote. It returns the trades in settlement order.
func (a *Auctioneer) Clear() []Trade {
	if a.state != StateOpen {
		return nil
	}
	a.state = StateClearing

	clearingQuote := NewMarketQuote(a.book)
	pairs := a.book.MatchedPairs().Collect()

	trades := make([]Trade, 0, len(pairs))
	logs := make([]*AuctionLog, 0, len(pairs)+1)
	var volume int64
	for _, pair := range pairs {
		price := a.policy.ClearingPrice(pair.Bid, pair.Ask, clearingQuote)
		a.tradeID++
		trade := Trade{
			ID:       a.tradeID,
			MarketID: a.marketID,
			Round:    a.round,
			Day:      a.day,
			Buyer:    pair.Bid.Agent,
			Seller:   pair.Ask.Agent,
			BidID:    pair.Bid.Origin,
			AskID:    pair.Ask.Origin,
			BidPrice: pair.Bid.Price,
			AskPrice: pair.Ask.Price,
			Price:    price,
			Quantity: pair.Quantity,
		}
		a.book.settle(pair.Bid, pair.Quantity)
		a.book.settle(pair.Ask, pair.Quantity)

		trades = append(trades, trade)
		logs = append(logs, NewTradeLog(a.nextSeqID(), &trade))
		volume += trade.Quantity
	}
	a.book.verify("clear")

	a.quote = NewMarketQuote(a.book)
	logs = append(logs, NewQuoteLog(a.nextSeqID(), a.marketID, a.round, a.day, a.quote))
	a.emit(logs...)

	// Listeners may submit shouts, which must be able to clear again.
	a.state = StateOpen
	for _, l := range a.listeners {
		for _, trade := range trades {
			l.OnTrade(trade)
		}
		l.OnQuoteChanged(a.quote)
	}

	if len(trades) > 0 {
		a.logger.Info("clearing pass",
			"round", a.round,
			"day", a.day,
			"trades", len(trades),
			"volume", volume,
			"quote", a.quote.String(),
		)
	}
	return trades
}

// EndOfRound closes the current round. The book is cleared unless the market
// only clears at the end of the day. Reaching the round limit ends the day.
func (a *Auctioneer) EndOfRound() error {
	if a.state == StateClosed {
		return ErrAuctionClosed
	}

	if a.mode == ClearEndOfDay {
		a.GenerateQuote()
	} else {
		a.Clear()
	}
	a.emit(NewMarketLog(a.nextSeqID(), LogTypeRound, a.marketID, a.round, a.day))
	a.round++

	if a.maxRounds > 0 && a.round >= a.maxRounds {
		return a.EndOfDay()
	}
	return nil
}

// EndOfDay clears the book, drops whatever is left unmatched and starts a new
// trading day. Reaching the day limit closes the auction.
func (a *Auctioneer) EndOfDay() error {
	if a.state == StateClosed {
		return ErrAuctionClosed
	}

	a.Clear()
	a.emit(NewMarketLog(a.nextSeqID(), LogTypeDay, a.marketID, a.round, a.day))
	a.logger.Info("end of day", "day", a.day, "rounds", a.round, "unmatched", a.book.Len())
	a.ResetForNewDay()
	a.day++

	if a.maxDays > 0 && a.day >= a.maxDays {
		a.Close()
	}
	return nil
}

// ResetForNewDay empties the book, resets the pricing policy history and the
// quote, and restarts the round counter.
func (a *Auctioneer) ResetForNewDay() {
	a.book.Reset()
	a.policy.Reset()
	a.quote = EmptyQuote()
	a.round = 0
	a.lastBid = nil
	a.lastAsk = nil
}

// Close stops the market. Further submissions fail with ErrAuctionClosed.
func (a *Auctioneer) Close() {
	if a.state == StateClosed {
		return
	}
	a.state = StateClosed
	a.emit(NewMarketLog(a.nextSeqID(), LogTypeClose, a.marketID, a.round, a.day))
	a.logger.Info("auction closed", "day", a.day, "round", a.round, "trades", a.tradeID)
}

// RegisterAgent declares which side an agent may shout on.
func (a *Auctioneer) RegisterAgent(id AgentID, role Role) {
	a.roles[id] = role
}

// Execute decodes a command envelope and applies it.
func (a *Auctioneer) Execute(cmd *protocol.Command) error {
	if len(cmd.MarketID) > 0 && cmd.MarketID != a.marketID {
		return fmt.Errorf("%w: market %s", ErrNotFound, cmd.MarketID)
	}

	switch cmd.Type {
	case protocol.CmdSubmitShout:
		var payload protocol.SubmitShoutCommand
		if err := a.serializer.Unmarshal(cmd.Payload, &payload); err != nil {
			a.emit(NewRejectLog(a.nextSeqID(), a.marketID, &Shout{Round: a.round, Day: a.day}, protocol.RejectReasonInvalidPayload))
			return fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		_, err := a.Submit(Shout{
			Agent:    AgentID(payload.AgentID),
			Side:     payload.Side,
			Price:    payload.Price,
			Quantity: payload.Quantity,
		})
		return err
	case protocol.CmdWithdrawShout:
		var payload protocol.WithdrawShoutCommand
		if err := a.serializer.Unmarshal(cmd.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		return a.Withdraw(ShoutID(payload.ShoutID))
	case protocol.CmdRegister:
		var payload protocol.RegisterAgentCommand
		if err := a.serializer.Unmarshal(cmd.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		a.RegisterAgent(AgentID(payload.AgentID), payload.Role)
		return nil
	case protocol.CmdClear:
		if a.state == StateClosed {
			return ErrAuctionClosed
		}
		a.Clear()
		return nil
	case protocol.CmdEndOfRound:
		return a.EndOfRound()
	case protocol.CmdEndOfDay:
		return a.EndOfDay()
	case protocol.CmdClose:
		a.Close()
		return nil
	}
	return fmt.Errorf("%w: unknown command type %d", ErrInvalidParam, cmd.Type)
}

func (a *Auctioneer) MarketID() string {
	return a.marketID
}

func (a *Auctioneer) Mode() ClearingMode {
	return a.mode
}

func (a *Auctioneer) State() State {
	return a.state
}

// Round returns the round within the current day, starting at 0.
func (a *Auctioneer) Round() int {
	return a.round
}

// Day returns the trading day, starting at 0.
func (a *Auctioneer) Day() int {
	return a.day
}

// Book gives read access to the order book. Callers must not mutate it.
func (a *Auctioneer) Book() *FourHeap {
	return a.book
}

func (a *Auctioneer) Policy() PricingPolicy {
	return a.policy
}

// Shout returns a copy of the live fragment id.
func (a *Auctioneer) Shout(id ShoutID) (Shout, bool) {
	return a.book.Get(id)
}

// LastBid returns the most recent bid accepted today.
func (a *Auctioneer) LastBid() (Shout, bool) {
	if a.lastBid == nil {
		return Shout{}, false
	}
	return *a.lastBid, true
}

// LastAsk returns the most recent ask accepted today.
func (a *Auctioneer) LastAsk() (Shout, bool) {
	if a.lastAsk == nil {
		return Shout{}, false
	}
	return *a.lastAsk, true
}

func (a *Auctioneer) validate(s *Shout) error {
	if err := s.Validate(); err != nil {
		return err
	}

	switch a.roles[s.Agent] {
	case RoleBuyer:
		if s.Side != Bid {
			return fmt.Errorf("%w: agent %d is a buyer", ErrSideMismatch, s.Agent)
		}
	case RoleSeller:
		if s.Side != Ask {
			return fmt.Errorf("%w: agent %d is a seller", ErrSideMismatch, s.Agent)
		}
	}
	return nil
}

func (a *Auctioneer) reject(s *Shout, err error) {
	reason := rejectReason(err)
	a.logger.Warn("shout rejected",
		"shout_id", s.ID,
		"agent_id", s.Agent,
		"reason", string(reason),
		"error", err,
	)
	a.emit(NewRejectLog(a.nextSeqID(), a.marketID, s, reason))
}

func rejectReason(err error) RejectReason {
	switch {
	case errors.Is(err, ErrInvalidPrice):
		return protocol.RejectReasonInvalidPrice
	case errors.Is(err, ErrInvalidQuantity):
		return protocol.RejectReasonInvalidQuantity
	case errors.Is(err, ErrInvalidSide):
		return protocol.RejectReasonInvalidSide
	case errors.Is(err, ErrSideMismatch):
		return protocol.RejectReasonSideMismatch
	case errors.Is(err, ErrNotFound):
		return protocol.RejectReasonShoutNotFound
	case errors.Is(err, ErrAuctionClosed):
		return protocol.RejectReasonAuctionClosed
	}
	return protocol.RejectReasonInvalidPayload
}

func (a *Auctioneer) emit(logs ...*AuctionLog) {
	a.publishLog.Publish(logs...)
	for _, log := range logs {
		releaseAuctionLog(log)
	}
}

func (a *Auctioneer) nextSeqID() uint64 {
	a.seqID++
	return a.seqID
}

func copyShout(s *Shout) *Shout {
	cpy := *s
	cpy.loc = partitionNone
	return &cpy
}

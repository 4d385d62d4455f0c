package auction

import (
	"fmt"
	"math"

	"github.com/0x5487/double-auction/structure"
)

// Shout is a single bid or ask.
// Shouts held by the book are owned by it; callers receive copies or read-only pointers.
type Shout struct {
	ID       ShoutID `json:"id"`
	Agent    AgentID `json:"agent"`
	Side     Side    `json:"side"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`

	// Origin is the submitted shout this fragment descends from. It equals ID
	// for a shout that has never been split off another one.
	Origin ShoutID `json:"origin"`
	Parent ShoutID `json:"parent,omitempty"`
	Child  ShoutID `json:"child,omitempty"`

	Round int `json:"round"`
	Day   int `json:"day"`

	loc partition
}

// Validate checks the shout can be admitted to a book.
func (s *Shout) Validate() error {
	if s.Side != Bid && s.Side != Ask {
		return fmt.Errorf("%w: got %d", ErrInvalidSide, s.Side)
	}
	if math.IsNaN(s.Price) || math.IsInf(s.Price, 0) || s.Price < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidPrice, s.Price)
	}
	if s.Quantity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, s.Quantity)
	}
	return nil
}

func (s *Shout) IsBid() bool {
	return s.Side == Bid
}

func (s *Shout) IsAsk() bool {
	return s.Side == Ask
}

// Satisfies reports whether s can trade against other at a price acceptable
// to both.
func (s *Shout) Satisfies(other *Shout) bool {
	if other == nil || s.Side == other.Side {
		return false
	}
	if s.IsBid() {
		return s.Price >= other.Price
	}
	return s.Price <= other.Price
}

func (s *Shout) key() structure.Key {
	return structure.Key{Price: s.Price, Seq: uint64(s.ID)}
}

func (s *Shout) String() string {
	return fmt.Sprintf("(%s id:%d agent:%d price:%g qty:%d)", s.Side, s.ID, s.Agent, s.Price, s.Quantity)
}

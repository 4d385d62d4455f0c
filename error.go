package auction

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidShout    = errors.New("the shout is invalid")
	ErrInvalidPrice    = fmt.Errorf("%w: price must be a finite non-negative number", ErrInvalidShout)
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be at least 1", ErrInvalidShout)
	ErrInvalidSide     = fmt.Errorf("%w: side must be bid or ask", ErrInvalidShout)
	ErrSideMismatch    = fmt.Errorf("%w: side does not match the agent role", ErrInvalidShout)
	ErrInvalidParam    = errors.New("the param is invalid")
	ErrInternal        = errors.New("internal error")
	ErrNotFound        = errors.New("not found")
	ErrAuctionClosed   = errors.New("auction is closed")
	ErrSequenceGap     = errors.New("log sequence gap")
)

// InvariantError reports a broken order book invariant. It is raised with
// panic because it can only be caused by a bug in the book itself.
type InvariantError struct {
	Rule   string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("order book invariant %q violated: %s", e.Rule, e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrInternal
}

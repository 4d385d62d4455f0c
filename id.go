package auction

// IDAllocator hands out shout IDs. Each auctioneer owns its allocator so that
// independent markets produce reproducible IDs.
// IDs keep increasing across trading days.
type IDAllocator interface {
	NextID() ShoutID
}

// SequenceAllocator allocates increasing IDs starting at 1.
// It is not safe for concurrent use.
type SequenceAllocator struct {
	last ShoutID
}

func NewSequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{}
}

func (a *SequenceAllocator) NextID() ShoutID {
	a.last++
	return a.last
}

// Last returns the most recently allocated ID, zero if none.
func (a *SequenceAllocator) Last() ShoutID {
	return a.last
}

// Observe makes sure id is never handed out again.
func (a *SequenceAllocator) Observe(id ShoutID) {
	if id > a.last {
		a.last = id
	}
}

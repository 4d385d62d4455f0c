package auction

import (
	"context"

	"github.com/0x5487/double-auction/structure"
)

// AsyncPublishLog hands copies of published logs to handler on its own
// goroutine through a ring buffer. Consumers such as an AggregatedBook replica
// then never run on the clearing path.
type AsyncPublishLog struct {
	ring *structure.RingBuffer[*AuctionLog]
}

// NewAsyncPublishLog starts the consumer. capacity must be a power of 2.
func NewAsyncPublishLog(capacity int64, handler func(*AuctionLog)) *AsyncPublishLog {
	p := &AsyncPublishLog{
		ring: structure.NewRingBuffer[*AuctionLog](capacity, structure.HandlerFunc[*AuctionLog](handler)),
	}
	p.ring.Start()
	return p
}

// Publish enqueues copies of logs. Logs published after Shutdown are dropped.
func (p *AsyncPublishLog) Publish(logs ...*AuctionLog) {
	for _, log := range logs {
		cpy := new(AuctionLog)
		*cpy = *log
		if !p.ring.Publish(cpy) {
			return
		}
	}
}

// Pending returns the number of logs not yet handled.
func (p *AsyncPublishLog) Pending() int64 {
	return p.ring.Pending()
}

// Shutdown waits until every log published so far has been handled.
func (p *AsyncPublishLog) Shutdown(ctx context.Context) error {
	return p.ring.Shutdown(ctx)
}

package structure

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
)

// ErrShutdownTimeout is returned when a RingBuffer cannot drain before the
// shutdown deadline.
var ErrShutdownTimeout = errors.New("ring buffer: shutdown timeout")

// Handler consumes events on the consumer goroutine, in publish order.
type Handler[T any] interface {
	OnEvent(event T)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(event T)

func (f HandlerFunc[T]) OnEvent(event T) {
	f(event)
}

// RingBuffer is a bounded multi-producer single-consumer queue.
// Publish spins while the buffer is full. Publish must not race with Shutdown.
type RingBuffer[T any] struct {
	// Padding keeps the producer and consumer cursors on separate cache lines.
	_        [56]byte
	claimed  atomic.Int64
	_        [56]byte
	consumed atomic.Int64
	_        [56]byte

	slots []T
	ready []atomic.Int64 // sequence last written to each slot
	mask  int64

	handler Handler[T]
	closed  atomic.Bool
	done    chan struct{}
}

// NewRingBuffer creates a ring buffer. capacity must be a power of 2.
func NewRingBuffer[T any](capacity int64, handler Handler[T]) *RingBuffer[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("ring buffer: capacity must be a power of 2")
	}

	rb := &RingBuffer[T]{
		slots:   make([]T, capacity),
		ready:   make([]atomic.Int64, capacity),
		mask:    capacity - 1,
		handler: handler,
		done:    make(chan struct{}),
	}
	rb.claimed.Store(-1)
	rb.consumed.Store(-1)
	for i := range rb.ready {
		rb.ready[i].Store(-1)
	}
	return rb
}

// Publish enqueues event. It returns false once the buffer is shut down.
func (rb *RingBuffer[T]) Publish(event T) bool {
	if rb.closed.Load() {
		return false
	}

	var seq int64
	for {
		last := rb.claimed.Load()
		seq = last + 1
		if seq-int64(len(rb.slots)) > rb.consumed.Load() {
			// full
			runtime.Gosched()
			continue
		}
		if rb.claimed.CompareAndSwap(last, seq) {
			break
		}
	}

	slot := seq & rb.mask
	rb.slots[slot] = event
	rb.ready[slot].Store(seq)
	return true
}

// Start runs the consumer on a new goroutine.
func (rb *RingBuffer[T]) Start() {
	go rb.run()
}

func (rb *RingBuffer[T]) run() {
	defer close(rb.done)

	next := rb.consumed.Load() + 1
	for {
		closed := rb.closed.Load()
		last := rb.claimed.Load()

		for ; next <= last; next++ {
			slot := next & rb.mask
			for rb.ready[slot].Load() != next {
				runtime.Gosched()
			}
			rb.handler.OnEvent(rb.slots[slot])

			var zero T
			rb.slots[slot] = zero
			rb.consumed.Store(next)
		}

		if closed {
			return
		}
		runtime.Gosched()
	}
}

// Shutdown stops accepting events and waits until the consumer has handled
// everything published before.
func (rb *RingBuffer[T]) Shutdown(ctx context.Context) error {
	rb.closed.Store(true)
	select {
	case <-rb.done:
		return nil
	case <-ctx.Done():
		return ErrShutdownTimeout
	}
}

// Pending returns the number of published events not yet handled.
func (rb *RingBuffer[T]) Pending() int64 {
	return rb.claimed.Load() - rb.consumed.Load()
}

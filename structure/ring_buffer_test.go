package structure

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_PublishInOrder(t *testing.T) {
	var processed []int64
	rb := NewRingBuffer[int64](16, HandlerFunc[int64](func(v int64) {
		processed = append(processed, v)
	}))
	rb.Start()

	// More events than slots so the producer has to wait for the consumer.
	for i := int64(1); i <= 100; i++ {
		require.True(t, rb.Publish(i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rb.Shutdown(ctx))

	require.Len(t, processed, 100)
	for i := int64(1); i <= 100; i++ {
		assert.Equal(t, i, processed[i-1])
	}
	assert.Equal(t, int64(0), rb.Pending())
}

func TestRingBuffer_MultipleProducers(t *testing.T) {
	const producers = 8
	const perProducer = 500

	var count atomic.Int64
	var sum atomic.Int64
	rb := NewRingBuffer[int64](64, HandlerFunc[int64](func(v int64) {
		count.Add(1)
		sum.Add(v)
	}))
	rb.Start()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := int64(1); i <= perProducer; i++ {
				rb.Publish(i)
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rb.Shutdown(ctx))

	assert.Equal(t, int64(producers*perProducer), count.Load())
	assert.Equal(t, int64(producers*perProducer*(perProducer+1)/2), sum.Load())
}

func TestRingBuffer_PublishAfterShutdown(t *testing.T) {
	rb := NewRingBuffer[int](4, HandlerFunc[int](func(int) {}))
	rb.Start()
	require.NoError(t, rb.Shutdown(context.Background()))

	assert.False(t, rb.Publish(1))
	assert.Equal(t, int64(0), rb.Pending())
}

func TestRingBuffer_ShutdownTimeout(t *testing.T) {
	block := make(chan struct{})
	rb := NewRingBuffer[int](4, HandlerFunc[int](func(int) {
		<-block
	}))
	rb.Start()
	rb.Publish(1)
	rb.Publish(2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rb.Shutdown(ctx), ErrShutdownTimeout)
	assert.Positive(t, rb.Pending())

	close(block)
	require.NoError(t, rb.Shutdown(context.Background()))
	assert.Equal(t, int64(0), rb.Pending())
}

func TestRingBuffer_InvalidCapacity(t *testing.T) {
	assert.Panics(t, func() {
		NewRingBuffer[int](3, HandlerFunc[int](func(int) {}))
	})
}

package structure

// FixedQueue is a bounded FIFO. Pushing into a full queue evicts the oldest value.
type FixedQueue[T any] struct {
	buffer []T
	head   int // index of the oldest value
	size   int
}

// NewFixedQueue creates a queue holding at most capacity values.
// capacity must be positive.
func NewFixedQueue[T any](capacity int) *FixedQueue[T] {
	if capacity <= 0 {
		panic("structure: fixed queue capacity must be positive")
	}
	return &FixedQueue[T]{
		buffer: make([]T, capacity),
	}
}

// Push appends v. It returns the evicted value when the queue was full.
func (q *FixedQueue[T]) Push(v T) (T, bool) {
	var evicted T
	if q.size < len(q.buffer) {
		q.buffer[(q.head+q.size)%len(q.buffer)] = v
		q.size++
		return evicted, false
	}

	evicted = q.buffer[q.head]
	q.buffer[q.head] = v
	q.head = (q.head + 1) % len(q.buffer)
	return evicted, true
}

// Len returns the number of stored values.
func (q *FixedQueue[T]) Len() int {
	return q.size
}

// Cap returns the maximum number of values.
func (q *FixedQueue[T]) Cap() int {
	return len(q.buffer)
}

// Full reports whether the next push evicts a value.
func (q *FixedQueue[T]) Full() bool {
	return q.size == len(q.buffer)
}

// Each calls fn for every value from oldest to newest.
func (q *FixedQueue[T]) Each(fn func(v T)) {
	for i := 0; i < q.size; i++ {
		fn(q.buffer[(q.head+i)%len(q.buffer)])
	}
}

// Values returns the stored values from oldest to newest.
func (q *FixedQueue[T]) Values() []T {
	values := make([]T, 0, q.size)
	q.Each(func(v T) {
		values = append(values, v)
	})
	return values
}

// Reset empties the queue.
func (q *FixedQueue[T]) Reset() {
	var zero T
	for i := range q.buffer {
		q.buffer[i] = zero
	}
	q.head = 0
	q.size = 0
}

package structure

import (
	"github.com/huandu/skiplist"
)

// Key orders heap entries. Entries are ranked by Price and, at equal price,
// by Seq (lower sequence first).
type Key struct {
	Price float64
	Seq   uint64
}

// Heap is an ordered set backed by a skip list. It supports O(log n) push,
// O(log n) removal of an arbitrary entry by sequence and O(1) access to the top.
type Heap[V any] struct {
	list  *skiplist.SkipList
	elems map[uint64]*skiplist.Element
}

// NewMinHeap creates a heap whose top is the entry with the lowest price.
func NewMinHeap[V any]() *Heap[V] {
	return &Heap[V]{
		list: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			k1, _ := lhs.(Key)
			k2, _ := rhs.(Key)

			if k1.Price > k2.Price {
				return 1
			} else if k1.Price < k2.Price {
				return -1
			}

			return compareSeq(k1, k2)
		})),
		elems: make(map[uint64]*skiplist.Element),
	}
}

// NewMaxHeap creates a heap whose top is the entry with the highest price.
func NewMaxHeap[V any]() *Heap[V] {
	return &Heap[V]{
		list: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			k1, _ := lhs.(Key)
			k2, _ := rhs.(Key)

			if k1.Price < k2.Price {
				return 1
			} else if k1.Price > k2.Price {
				return -1
			}

			return compareSeq(k1, k2)
		})),
		elems: make(map[uint64]*skiplist.Element),
	}
}

func compareSeq(k1, k2 Key) int {
	if k1.Seq > k2.Seq {
		return 1
	} else if k1.Seq < k2.Seq {
		return -1
	}
	return 0
}

// Push inserts value under key. A value already stored under the same
// sequence is replaced.
func (h *Heap[V]) Push(key Key, value V) {
	if el, ok := h.elems[key.Seq]; ok {
		h.list.RemoveElement(el)
	}
	h.elems[key.Seq] = h.list.Set(key, value)
}

// Top returns the highest priority value without removing it.
func (h *Heap[V]) Top() (V, bool) {
	el := h.list.Front()
	if el == nil {
		var zero V
		return zero, false
	}
	v, _ := el.Value.(V)
	return v, true
}

// TopKey returns the key of the highest priority value.
func (h *Heap[V]) TopKey() (Key, bool) {
	el := h.list.Front()
	if el == nil {
		return Key{}, false
	}
	k, _ := el.Key().(Key)
	return k, true
}

// Pop removes and returns the highest priority value.
func (h *Heap[V]) Pop() (V, bool) {
	el := h.list.Front()
	if el == nil {
		var zero V
		return zero, false
	}
	k, _ := el.Key().(Key)
	h.list.RemoveElement(el)
	delete(h.elems, k.Seq)

	v, _ := el.Value.(V)
	return v, true
}

// Remove deletes the value stored under seq.
func (h *Heap[V]) Remove(seq uint64) (V, bool) {
	el, ok := h.elems[seq]
	if !ok {
		var zero V
		return zero, false
	}
	h.list.RemoveElement(el)
	delete(h.elems, seq)

	v, _ := el.Value.(V)
	return v, true
}

// Contains reports whether a value is stored under seq.
func (h *Heap[V]) Contains(seq uint64) bool {
	_, ok := h.elems[seq]
	return ok
}

// Len returns the number of stored values.
func (h *Heap[V]) Len() int {
	return h.list.Len()
}

// Clear removes every value.
func (h *Heap[V]) Clear() {
	h.list.Init()
	h.elems = make(map[uint64]*skiplist.Element)
}

// Ascend calls fn for each value in priority order until fn returns false.
func (h *Heap[V]) Ascend(fn func(key Key, value V) bool) {
	for el := h.list.Front(); el != nil; el = el.Next() {
		k, _ := el.Key().(Key)
		v, _ := el.Value.(V)
		if !fn(k, v) {
			return
		}
	}
}

// Iter returns a cursor positioned before the top value.
// The heap must not be modified while the cursor is in use.
func (h *Heap[V]) Iter() *Iterator[V] {
	return &Iterator[V]{heap: h}
}

// Iterator walks a heap in priority order.
type Iterator[V any] struct {
	heap    *Heap[V]
	next    *skiplist.Element
	started bool
}

// Next returns the next value in priority order.
func (it *Iterator[V]) Next() (V, bool) {
	if !it.started {
		it.next = it.heap.list.Front()
		it.started = true
	}
	if it.next == nil {
		var zero V
		return zero, false
	}
	el := it.next
	it.next = el.Next()

	v, _ := el.Value.(V)
	return v, true
}

// Reset rewinds the cursor to the top of the heap.
func (it *Iterator[V]) Reset() {
	it.next = nil
	it.started = false
}

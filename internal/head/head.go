// Package head implements the atomic head cell: a single memory location
// holding a reference-counted pointer to the currently published value.
//
// Load is wait-free. Swap is a single atomic exchange. Reclamation of a
// retired Box is the caller's responsibility, driven by RefCount reaching
// zero after the caller's own Release — and, once it reaches zero, the
// caller is free to mutate Value in place, so Load must never resurrect a
// Box whose count already hit zero.
package head

import "sync/atomic"

// Box is a reference-counted holder of a value V.
//
// The count tracked here is logical, not a memory-safety mechanism: Go's
// garbage collector keeps a Box reachable for as long as any goroutine holds
// a pointer to it, acquired or not. What the count guards against is a
// holder observing Value while a Writer is mutating it in place after
// reclaiming it — a retired Box (count reached zero) must never be acquired
// again, since the Writer is free to treat Value as exclusively its own from
// that point on, mirroring dacapoday-smol/internal/heap's checkpoint.
type Box[V any] struct {
	ref   atomic.Int64
	Value V
}

// NewBox returns a Box with an initial reference count of one.
func NewBox[V any](v V) *Box[V] {
	b := &Box[V]{Value: v}
	b.ref.Store(1)
	return b
}

// Acquire records one more holder of this Box. Only safe when the caller
// already holds (or otherwise knows the Box is not retired) — e.g. a Box it
// just created, or one reachable through its own live reference. Code that
// only has a bare pointer to a Box that may have already been retired (the
// pointer last read from a Cell) must use the Cell's Load instead, which
// acquires conditionally.
func (b *Box[V]) Acquire() {
	b.ref.Add(1)
}

// tryAcquire records one more holder, but only if the Box has not already
// been retired (count reached zero). Returns false if the Box is retired;
// the caller must not read Value in that case.
func (b *Box[V]) tryAcquire() bool {
	for {
		n := b.ref.Load()
		if n <= 0 {
			return false
		}
		if b.ref.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release records that one holder is done with this Box, returning the
// count remaining afterward.
func (b *Box[V]) Release() int64 {
	return b.ref.Add(-1)
}

// RefCount returns the current number of holders.
func (b *Box[V]) RefCount() int64 {
	return b.ref.Load()
}

// Cell is a single atomic slot holding the currently published Box.
type Cell[V any] struct {
	ptr atomic.Pointer[Box[V]]
}

// NewCell returns a Cell initialized to hold the given Box. The Box's
// reference count is not touched; the caller hands over its own reference.
func NewCell[V any](initial *Box[V]) *Cell[V] {
	c := new(Cell[V])
	c.ptr.Store(initial)
	return c
}

// Load acquires a fresh reference to the currently published Box. This is
// wait-free in the uncontended case: a single atomic load followed by a
// single conditional increment. The caller must call Release on the
// returned Box when done observing it.
//
// The pointer read and the refcount increment are two separate atomic
// operations, so a Box can be swapped out and have its count reach zero in
// between them — at which point its owning Writer is free to start
// reclaiming it, mutating Value in place. tryAcquire fails in that case
// instead of resurrecting a retired Box, so Load retries: the next
// c.ptr.Load() is guaranteed to observe the Box that replaced it (the Swap
// that can drive a Box's count to zero always installs its replacement
// first), never the one being reclaimed.
func (c *Cell[V]) Load() *Box[V] {
	for {
		b := c.ptr.Load()
		if b.tryAcquire() {
			return b
		}
	}
}

// Peek returns the currently published Box without acquiring a reference.
// Useful only for identity comparisons (e.g. "has anything changed since I
// last looked"); the returned Box must not be dereferenced after Peek
// returns unless the caller independently holds a reference to it.
func (c *Cell[V]) Peek() *Box[V] {
	return c.ptr.Load()
}

// Swap atomically replaces the published Box and returns the previous one.
// The caller takes ownership of exactly one reference to the returned Box
// (the reference the Cell itself held).
func (c *Cell[V]) Swap(next *Box[V]) (previous *Box[V]) {
	return c.ptr.Swap(next)
}

package handoff

import "github.com/dacapoday/handoff/internal/head"

// Cloneable is the constraint satisfied by payload types held in a Commit.
// Clone must return an independent copy that can diverge from the original
// without sharing mutable state, standing in for the blanket T: Clone bound
// the source crate this package is modeled on relies on — Go has no
// language-level Clone trait to borrow, so the bound is explicit on the type
// parameter instead, in the same style as dacapoday-smol's Iter.Clone.
type Cloneable[T any] interface {
	Clone() T
}

type payload[T Cloneable[T]] struct {
	timestamp uint64
	value     T
}

// Commit is an immutable (timestamp, value) snapshot of T. Two concrete
// forms exist: OwnedCommit, exclusively held, and SharedCommit,
// reference-counted and observed by any number of readers. Both satisfy
// this interface. Ordering and equality are defined strictly by timestamp:
// two Commits sharing a timestamp are expected to carry equal values,
// provided all Patches applied are deterministic.
type Commit[T Cloneable[T]] interface {
	Timestamp() uint64
	Value() T
}

// OwnedCommit is a Commit exclusively held by its creator (typically the
// Writer's local buffer).
type OwnedCommit[T Cloneable[T]] struct {
	payload[T]
}

// Timestamp returns the Commit's version number.
func (c OwnedCommit[T]) Timestamp() uint64 { return c.payload.timestamp }

// Value returns the Commit's data.
func (c OwnedCommit[T]) Value() T { return c.payload.value }

// Ahead reports whether c's timestamp is strictly greater than other's.
func (c OwnedCommit[T]) Ahead(other Commit[T]) bool { return c.payload.timestamp > other.Timestamp() }

// Behind reports whether c's timestamp is strictly less than other's.
func (c OwnedCommit[T]) Behind(other Commit[T]) bool { return c.payload.timestamp < other.Timestamp() }

// SharedCommit is a reference-counted Commit visible to any number of
// readers. Callers must call Release exactly once when done observing it,
// mirroring the Acquire/Release discipline of dacapoday-smol's atom.Ref and
// atom.Own: "caller must call ckpt.Release() when done."
type SharedCommit[T Cloneable[T]] struct {
	box *head.Box[payload[T]]
}

// Timestamp returns the Commit's version number.
func (c SharedCommit[T]) Timestamp() uint64 { return c.box.Value.timestamp }

// Value returns the Commit's data. The returned value must not be retained
// past the matching Release call if T contains data Release's reclamation
// path may mutate in place.
func (c SharedCommit[T]) Value() T { return c.box.Value.value }

// Ahead reports whether c's timestamp is strictly greater than other's.
func (c SharedCommit[T]) Ahead(other Commit[T]) bool {
	return c.box.Value.timestamp > other.Timestamp()
}

// Behind reports whether c's timestamp is strictly less than other's.
func (c SharedCommit[T]) Behind(other Commit[T]) bool {
	return c.box.Value.timestamp < other.Timestamp()
}

// RefCount returns the current number of holders of this Commit, including
// the caller. Never zero while the Writer is alive (invariant P4).
func (c SharedCommit[T]) RefCount() int64 { return c.box.RefCount() }

// Release records that the caller is done observing this Commit. Must be
// called exactly once per SharedCommit obtained from Reader.Head or
// Writer.Head.
func (c SharedCommit[T]) Release() { c.box.Release() }

// IntoOwned consumes the SharedCommit, converting it into an OwnedCommit.
// This is cheap (no value copy) when the caller is the sole remaining
// holder; otherwise the value is cloned. Either way, Release is implied —
// callers must not call Release separately after IntoOwned.
func (c SharedCommit[T]) IntoOwned() OwnedCommit[T] {
	if c.box.RefCount() == 1 {
		v := c.box.Value
		c.box.Release()
		return OwnedCommit[T]{payload: v}
	}
	v := payload[T]{timestamp: c.box.Value.timestamp, value: c.box.Value.value.Clone()}
	c.box.Release()
	return OwnedCommit[T]{payload: v}
}

func newSharedBox[T Cloneable[T]](p payload[T]) *head.Box[payload[T]] {
	return head.NewBox(p)
}

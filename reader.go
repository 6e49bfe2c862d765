package handoff

import (
	"sync/atomic"
	"time"

	"github.com/dacapoday/handoff/internal/head"
)

// Reader observes a versioned snapshot of T published by a single Writer.
// Readers are forged only by a Writer (Writer.Reader) or by cloning an
// existing Reader; cloning is cheap (a handle copy, no allocation of T).
//
// Every method on Reader is safe to call concurrently from any number of
// goroutines, and none of them ever block the Writer.
//
// Go has no destructor to mirror the source's Arc-based reader count, so
// liveness is tracked with an explicit counter instead: Reader and Clone
// increment it, Close decrements it. A Reader a caller never closes simply
// stays counted forever, the same outcome the source gets from a reader an
// Rust caller mem::forget's — not calling Close is the Go-native way to
// "leak" a reader on purpose.
type Reader[T Cloneable[T]] struct {
	cell    *head.Cell[payload[T]]
	token   *writerToken
	readers *atomic.Int64
	closed  bool
}

// Head atomically loads the current shared Commit. Never blocks the writer;
// lock-free and wait-free. The caller must call Release on the returned
// SharedCommit when done observing it.
func (r *Reader[T]) Head() SharedCommit[T] {
	return SharedCommit[T]{box: r.cell.Load()}
}

// Reclaiming reports whether the Writer very recently pushed new data and is
// currently attempting to reclaim the old Commit. If this is true, calling
// Head still returns the latest data immediately: the new Commit is
// published before this flag is raised, so Head acquires the new Commit,
// not the one being reclaimed.
func (r *Reader[T]) Reclaiming() bool {
	return r.token.reclaiming.Load()
}

// HeadWait is like Head, but if the Writer is currently trying to reclaim
// old data, waits up to duration before acquiring anyway, giving the Writer
// a chance to finish reclaiming uncontended.
func (r *Reader[T]) HeadWait(duration time.Duration) SharedCommit[T] {
	if !r.Reclaiming() {
		return r.Head()
	}
	time.Sleep(duration)
	return r.Head()
}

// HeadSpin is like Head, but busy-spins while the Writer is reclaiming
// instead of acquiring immediately. The window lasts from publish to the end
// of the reclaim attempt, which includes PushWait's sleep and PushDo's
// callback when those variants are used.
func (r *Reader[T]) HeadSpin() SharedCommit[T] {
	for r.Reclaiming() {
	}
	return r.Head()
}

// HeadTry is like Head, but returns false instead of acquiring while the
// Writer is reclaiming.
func (r *Reader[T]) HeadTry() (SharedCommit[T], bool) {
	if r.Reclaiming() {
		var zero SharedCommit[T]
		return zero, false
	}
	return r.Head(), true
}

// HeadDo is like Head, but also runs f. If the Writer is currently
// reclaiming, f runs first and the head is acquired afterward, letting the
// caller get useful work done while waiting instead of idly spinning or
// sleeping; otherwise the head is acquired first and f runs after.
func (r *Reader[T]) HeadDo(f func(*Reader[T])) SharedCommit[T] {
	if !r.Reclaiming() {
		head := r.Head()
		f(r)
		return head
	}
	f(r)
	return r.Head()
}

// Timestamp returns the version number of the current head Commit.
func (r *Reader[T]) Timestamp() uint64 {
	h := r.Head()
	defer h.Release()
	return h.Timestamp()
}

// AheadOf reports whether the Reader's head Commit is strictly ahead of the
// given Commit.
func (r *Reader[T]) AheadOf(commit Commit[T]) bool {
	h := r.Head()
	defer h.Release()
	return h.Ahead(commit)
}

// Behind reports whether the Reader's head Commit is strictly behind the
// given Commit.
func (r *Reader[T]) Behind(commit Commit[T]) bool {
	h := r.Head()
	defer h.Release()
	return h.Behind(commit)
}

// Connected reports whether r and other share the same Atomic Head Cell
// identity — i.e. whether they are reading the same writer's history. This
// is pointer equality on the handle, not value equality: it asks "are these
// the same channel", not "do they currently hold equal data".
func (r *Reader[T]) Connected(other *Reader[T]) bool {
	return r.cell == other.cell
}

// ConnectedWriter reports whether r reads from w's Atomic Head Cell.
func (r *Reader[T]) ConnectedWriter(w *Writer[T]) bool {
	return r.cell == w.cell
}

// WriterDead reports whether the Writer that produced this Reader (or any
// Reader forked from it) is gone: consumed by IntoInner or by another
// Writer's Merge, or disconnected from this Reader by Disconnect.
func (r *Reader[T]) WriterDead() bool {
	return r.token.isDead()
}

// Clone returns a new Reader sharing the same Atomic Head Cell and writer
// liveness token. Cheap: a handle copy, no allocation of T.
func (r *Reader[T]) Clone() *Reader[T] {
	r.readers.Add(1)
	return &Reader[T]{cell: r.cell, token: r.token, readers: r.readers}
}

// Close releases this Reader's contribution to ReaderCount. Idempotent: a
// second call is a no-op. Calling Close does not invalidate the Reader —
// its methods remain usable, since the underlying Atomic Head Cell is owned
// by the Writer, not by any one Reader.
func (r *Reader[T]) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.readers.Add(-1)
}

// TryIntoWriter attempts to become the new writer for this Reader's
// history. It succeeds only if the previous Writer is dead and no other
// Reader wins the same race first; on success it consumes r and returns a
// Writer reconstituted from the current head Commit. On failure it returns
// ErrSuccessionRace (the previous writer may be alive, or another reader
// already won).
func (r *Reader[T]) TryIntoWriter() (*Writer[T], error) {
	guard, ok := r.token.tryRevive()
	if !ok {
		return nil, ErrSuccessionRace
	}
	defer guard.abandon()

	h := r.Head()
	local := h.IntoOwned()
	w := newWriterFromCell[T](r.cell, r.token, local, r.readers)
	guard.revived()
	return w, nil
}

// Cache is a caller-owned optimization over repeated Reader.Head calls: it
// only reloads the head Commit when the published pointer differs from the
// last one it observed. This is strictly an optimization and never changes
// observable semantics versus calling Reader.Head directly every time.
type Cache[T Cloneable[T]] struct {
	reader *Reader[T]
	last   SharedCommit[T]
	have   bool
}

// NewCache returns an empty Cache bound to r.
func NewCache[T Cloneable[T]](r *Reader[T]) *Cache[T] {
	return &Cache[T]{reader: r}
}

// Head returns the cached Commit if the Writer has not published since the
// last call, reloading (and replacing the cached Commit, releasing the old
// one) otherwise.
func (c *Cache[T]) Head() SharedCommit[T] {
	current := c.reader.cell.Peek()
	if c.have && c.last.box == current {
		return c.last
	}
	if c.have {
		c.last.Release()
	}
	c.last = c.reader.Head()
	c.have = true
	return c.last
}

// Close releases the cached Commit, if any. Must be called when the Cache
// is no longer needed.
func (c *Cache[T]) Close() {
	if c.have {
		c.last.Release()
		c.have = false
	}
}

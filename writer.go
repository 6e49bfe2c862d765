package handoff

import (
	"sync/atomic"
	"time"

	"github.com/dacapoday/handoff/internal/head"
)

// Writer is the sole owner of the local (unpublished) Commit, the staged
// and committed patch queues, and the reclamation machinery. There is only
// ever one Writer for a given history at a time; a second one can only come
// into existence through Fork (an independent history) or through
// Reader.TryIntoWriter after the original Writer is gone.
type Writer[T Cloneable[T]] struct {
	token *writerToken
	cell  *head.Cell[payload[T]]

	// local is the writer's working copy. nil only for the instant inside
	// pushCore between taking it and reinstalling it, and for good once this
	// Writer has been consumed by another Writer's Merge; any access while
	// it is nil (after a panic unwinding through pushCore, or after Merge)
	// panics with ErrWriterPoisoned.
	local  *payload[T]
	remote SharedCommit[T]

	staged       []Patch[T]
	committedLog []Patch[T]

	readers *atomic.Int64
}

func newWriter[T Cloneable[T]](initial payload[T]) *Writer[T] {
	box := head.NewBox(initial)
	box.Acquire()
	return &Writer[T]{
		token:   newWriterToken(),
		cell:    head.NewCell(box),
		local:   &payload[T]{timestamp: initial.timestamp, value: initial.value.Clone()},
		remote:  SharedCommit[T]{box: box},
		readers: new(atomic.Int64),
	}
}

func newWriterFromCell[T Cloneable[T]](cell *head.Cell[payload[T]], token *writerToken, local OwnedCommit[T], readers *atomic.Int64) *Writer[T] {
	box := cell.Load()
	return &Writer[T]{
		token:   token,
		cell:    cell,
		local:   &payload[T]{timestamp: local.Timestamp(), value: local.Value()},
		remote:  SharedCommit[T]{box: box},
		readers: readers,
	}
}

func (w *Writer[T]) localRef() *payload[T] {
	if w.local == nil {
		panic(ErrWriterPoisoned)
	}
	return w.local
}

func (w *Writer[T]) takeLocal() payload[T] {
	v := *w.localRef()
	w.local = nil
	return v
}

// Reader constructs a new Reader connected to this Writer. There is no
// limit on concurrent Readers.
func (w *Writer[T]) Reader() *Reader[T] {
	w.readers.Add(1)
	return &Reader[T]{cell: w.cell, token: w.token, readers: w.readers}
}

// Add stages a Patch for later application. It does not mutate local or
// remote data immediately; Commit applies everything staged so far.
func (w *Writer[T]) Add(p Patch[T]) {
	w.staged = append(w.staged, p)
}

// Staged returns the patches added but not yet committed. The caller may
// freely reorder, inspect, or drop entries from the returned slice; mutating
// it through the returned slice header is reflected back onto the Writer.
func (w *Writer[T]) Staged() []Patch[T] {
	return w.staged
}

// CommittedPatches returns the patches already committed but not yet
// pushed. Unlike Staged, these must not be mutated: the Writer may still
// need to replay them during reclamation.
func (w *Writer[T]) CommittedPatches() []Patch[T] {
	return w.committedLog
}

// Data returns the Writer's local value: the working copy, which may be
// ahead of what Readers currently see.
func (w *Writer[T]) Data() T {
	return w.localRef().value
}

// DataRemote returns the value currently visible to Readers.
func (w *Writer[T]) DataRemote() T {
	return w.remote.box.Value.value
}

// Head returns the Writer's local head Commit.
func (w *Writer[T]) Head() OwnedCommit[T] {
	local := w.localRef()
	return OwnedCommit[T]{payload: payload[T]{timestamp: local.timestamp, value: local.value}}
}

// HeadRemote returns the Commit currently visible to Readers.
func (w *Writer[T]) HeadRemote() Commit[T] {
	return w.remote
}

// HeadRemoteRef cheaply acquires a SharedCommit referencing the same
// Commit Readers currently see. The caller must Release it when done.
func (w *Writer[T]) HeadRemoteRef() SharedCommit[T] {
	w.remote.box.Acquire()
	return w.remote
}

// Timestamp returns the Writer's local timestamp.
func (w *Writer[T]) Timestamp() uint64 {
	return w.localRef().timestamp
}

// TimestampRemote returns the timestamp currently visible to Readers.
func (w *Writer[T]) TimestampRemote() uint64 {
	return w.remote.box.Value.timestamp
}

// TimestampDiff returns how many commits the Writer is ahead of the
// Readers: Timestamp() - TimestampRemote().
func (w *Writer[T]) TimestampDiff() uint64 {
	return w.Timestamp() - w.TimestampRemote()
}

// Synced reports whether the Writer and Readers share the same timestamp.
func (w *Writer[T]) Synced() bool {
	return w.TimestampDiff() == 0
}

// Ahead reports whether the Writer's local timestamp is strictly greater
// than the Readers'.
func (w *Writer[T]) Ahead() bool {
	return w.Timestamp() > w.TimestampRemote()
}

// AheadOf reports whether the Writer's local timestamp is strictly greater
// than the given Commit's.
func (w *Writer[T]) AheadOf(commit Commit[T]) bool {
	return w.Timestamp() > commit.Timestamp()
}

// Behind reports whether the Writer's local timestamp is strictly less than
// the given Commit's.
func (w *Writer[T]) Behind(commit Commit[T]) bool {
	return w.Timestamp() < commit.Timestamp()
}

// Diff reports whether the Writer's local value differs from the Readers'
// visible value, as judged by eq. Timestamps alone should be sufficient to
// tell data apart when all Patches are deterministic; this exists mainly to
// catch a broken (non-deterministic) Patch during debugging.
func (w *Writer[T]) Diff(eq func(a, b T) bool) bool {
	return !eq(w.Data(), w.DataRemote())
}

// HeadCount returns how many holders currently reference the Commit
// Readers can see, including the Writer's own remote reference. Always at
// least two: one for the Atomic Head Cell, one for the Writer's own
// HeadRemoteRef-equivalent bookkeeping reference.
func (w *Writer[T]) HeadCount() int64 {
	return w.remote.box.RefCount()
}

// ReaderCount returns how many Reader handles exist, including the Writer
// itself (which always counts as one). See the note on Reader about Close
// and why this is only as accurate as callers' Close discipline.
func (w *Writer[T]) ReaderCount() int64 {
	return w.readers.Load() + 1
}

// ReadersExist reports whether any Reader handle besides the Writer itself
// exists.
func (w *Writer[T]) ReadersExist() bool {
	return w.ReaderCount() > 1
}

// Connected reports whether r reads from this Writer's history.
func (w *Writer[T]) Connected(r *Reader[T]) bool {
	return w.cell == r.cell
}

// Status gathers a snapshot of the Writer's current bookkeeping.
func (w *Writer[T]) Status() StatusInfo[T] {
	return StatusInfo[T]{
		StagedPatches:    len(w.staged),
		CommittedPatches: len(w.committedLog),
		Head:             w.Head(),
		HeadRemote:       w.HeadRemote(),
		HeadCount:        w.HeadCount(),
		ReaderCount:      w.ReaderCount(),
		Timestamp:        w.Timestamp(),
		TimestampRemote:  w.TimestampRemote(),
	}
}

// Info gathers a snapshot describing the Writer's identity and liveness.
func (w *Writer[T]) Info() WriterInfo[T] {
	return WriterInfo[T]{
		Timestamp:    w.Timestamp(),
		ReaderCount:  w.ReaderCount(),
		ReadersExist: w.ReadersExist(),
		Synced:       w.Synced(),
	}
}

// ShrinkToFit releases excess capacity from the staged and committed patch
// queues.
func (w *Writer[T]) ShrinkToFit() {
	if len(w.staged) == 0 {
		w.staged = nil
	} else if cap(w.staged) > len(w.staged) {
		w.staged = append(make([]Patch[T], 0, len(w.staged)), w.staged...)
	}
	if len(w.committedLog) == 0 {
		w.committedLog = nil
	} else if cap(w.committedLog) > len(w.committedLog) {
		w.committedLog = append(make([]Patch[T], 0, len(w.committedLog)), w.committedLog...)
	}
}

// ReserveExact ensures the staged patch queue can accept at least n more
// patches without reallocating.
func (w *Writer[T]) ReserveExact(n int) {
	if cap(w.staged)-len(w.staged) >= n {
		return
	}
	grown := make([]Patch[T], len(w.staged), len(w.staged)+n)
	copy(grown, w.staged)
	w.staged = grown
}

// Disconnect severs every Reader currently connected to this Writer: their
// WriterDead will report true from this point on, even though the Writer
// keeps running. Disconnected Readers continue to observe the
// last-published Commit forever; flipping the token to dead also permits
// one of them to race for succession via TryIntoWriter. The Writer gets a
// fresh Atomic Head Cell (seeded with a clone of the current remote
// Commit), a fresh token and a fresh reader counter, so readers created
// after Disconnect are unaffected.
func (w *Writer[T]) Disconnect() {
	w.token.kill()
	w.token = newWriterToken()
	w.readers = new(atomic.Int64)

	remote := w.remote.box.Value
	box := head.NewBox(payload[T]{timestamp: remote.timestamp, value: remote.value.Clone()})
	box.Acquire()
	w.remote.Release()
	w.cell = head.NewCell(box)
	w.remote = SharedCommit[T]{box: box}
}

// IntoInner consumes the Writer, marking its token dead (so existing
// Readers may race to succeed it via TryIntoWriter) and returning its local
// Commit. Releases the Writer's own reference on the published Commit, so
// that afterward only the Atomic Head Cell and live Readers hold it.
func (w *Writer[T]) IntoInner() OwnedCommit[T] {
	w.token.kill()
	w.remote.Release()
	local := w.localRef()
	return OwnedCommit[T]{payload: payload[T]{timestamp: local.timestamp, value: local.value}}
}

// Commit applies every staged Patch to the local value, in order, and moves
// them into the committed log for possible replay during reclamation. Does
// nothing (and leaves the timestamp unchanged) if nothing was staged.
func (w *Writer[T]) Commit() CommitInfo {
	n := len(w.staged)
	if n == 0 {
		return CommitInfo{Patches: 0, TimestampDiff: w.TimestampDiff()}
	}

	local := w.localRef()
	local.timestamp++
	w.committedLog = append(w.committedLog, w.staged...)
	remoteValue := w.remote.box.Value.value
	for i := range w.staged {
		w.staged[i].apply(&local.value, remoteValue)
	}
	w.staged = w.staged[:0]

	return CommitInfo{Patches: n, TimestampDiff: w.TimestampDiff()}
}

type pushMode int

const (
	pushModeNormal pushMode = iota
	pushModeWait
	pushModeClone
)

// Push publishes every committed patch to Readers, if there are any to
// publish. If the previously published Commit has no remaining holders, it
// is reclaimed and brought forward by replaying the committed log onto it;
// otherwise the new head is deep-cloned into the fresh local buffer. Either
// way the committed log is cleared.
func (w *Writer[T]) Push() PushInfo {
	return w.pushCore(pushModeNormal, 0, nil)
}

// PushWait is like Push, but if the old Commit cannot be reclaimed
// immediately, sleeps for duration and checks once more before falling back
// to a clone.
func (w *Writer[T]) PushWait(duration time.Duration) PushInfo {
	return w.pushCore(pushModeWait, duration, nil)
}

// PushClone is like Push, but always deep-clones the newly published value
// into the new local buffer instead of attempting reclamation. Useful when
// Readers are known to hold onto Commits for a long time, making
// reclamation unlikely to pay off.
func (w *Writer[T]) PushClone() PushInfo {
	return w.pushCore(pushModeClone, 0, nil)
}

// PushDo is like Push, but runs f while the old Commit's readers are given
// a chance to release it, before attempting reclamation. This lets the
// caller get useful work done instead of idly waiting.
func PushDo[T Cloneable[T], R any](w *Writer[T], f func() R) (PushInfo, R) {
	var result R
	info := w.pushCore(pushModeNormal, 0, func() { result = f() })
	return info, result
}

func (w *Writer[T]) pushCore(mode pushMode, duration time.Duration, during func()) PushInfo {
	if w.Synced() {
		if during != nil {
			during()
		}
		return PushInfo{Timestamp: w.Timestamp(), Commits: 0, Reclaimed: false}
	}

	published := w.takeLocal()
	newBox := head.NewBox(published)
	newBox.Acquire()
	newRemote := SharedCommit[T]{box: newBox}

	oldRemote := w.remote
	w.remote = newRemote
	oldBox := w.cell.Swap(newBox)

	commits := newBox.Value.timestamp - oldBox.Value.timestamp

	if mode == pushModeClone {
		oldBox.Release()
		oldRemote.Release()
		if during != nil {
			during()
		}
		w.local = &payload[T]{timestamp: newBox.Value.timestamp, value: newBox.Value.value.Clone()}
		w.committedLog = w.committedLog[:0]
		return PushInfo{Timestamp: newBox.Value.timestamp, Commits: commits, Reclaimed: false}
	}

	w.token.reclaiming.Store(true)
	if during != nil {
		during()
	}

	oldBox.Release()
	remaining := oldRemote.box.Release()
	reclaimed := remaining == 0

	if !reclaimed && mode == pushModeWait {
		time.Sleep(duration)
		reclaimed = oldBox.RefCount() == 0
	}
	w.token.reclaiming.Store(false)

	var fresh payload[T]
	if reclaimed {
		fresh = oldBox.Value
		remoteValue := newBox.Value.value
		for i := range w.committedLog {
			w.committedLog[i].apply(&fresh.value, remoteValue)
		}
		fresh.timestamp = newBox.Value.timestamp
	} else {
		fresh = payload[T]{timestamp: newBox.Value.timestamp, value: newBox.Value.value.Clone()}
	}
	w.committedLog = w.committedLog[:0]
	w.local = &fresh

	return PushInfo{Timestamp: newBox.Value.timestamp, Commits: commits, Reclaimed: reclaimed}
}

// AddCommit applies patch directly to the local value (bypassing the
// staged-patch queue) and records it as committed, returning the CommitInfo
// for the implied commit together with patch's own return value.
func AddCommit[T Cloneable[T], Output any](w *Writer[T], patch func(writer *T, reader T) Output) (CommitInfo, Output) {
	info := w.Commit()
	if info.Patches == 0 {
		w.localRef().timestamp++
		info.TimestampDiff = w.TimestampDiff()
	}
	info.Patches++

	local := w.localRef()
	remoteValue := w.remote.box.Value.value
	out := patch(&local.value, remoteValue)
	w.committedLog = append(w.committedLog, ClosurePatch(func(writer *T, reader T) {
		patch(writer, reader)
	}))

	return info, out
}

// AddCommitPush applies patch to the local value as one new commit and then
// pushes, like AddCommit followed by Push except that patches still in the
// staged queue are not committed and stay staged. If the Writer
// reclaims the old Commit, patch could not simply be replayed from the log
// without losing its return value, so it is re-run once more against the
// reclaimed buffer; the second Output is non-nil only in that case.
func AddCommitPush[T Cloneable[T], Output any](w *Writer[T], patch func(writer *T, reader T) Output) (PushInfo, Output, *Output) {
	w.localRef().timestamp++
	remoteValue := w.remote.box.Value.value
	out := patch(&w.localRef().value, remoteValue)

	info := w.Push()

	var replay *Output
	if info.Reclaimed {
		remoteValue = w.remote.box.Value.value
		second := patch(&w.localRef().value, remoteValue)
		replay = &second
	}

	return info, out, replay
}

package handoff

import "sync/atomic"

// Fork creates a brand new, completely disconnected Writer branching off of
// this Writer's current local value. The new Writer:
//   - carries no staged or committed patches
//   - has its own Atomic Head Cell, liveness token, and reader counter
//   - is seeded with a clone of this Writer's local Commit
//
// Readers produced from the fork have no relation whatsoever to this
// Writer's Readers.
func (w *Writer[T]) Fork() *Writer[T] {
	local := w.localRef()
	seed := payload[T]{timestamp: local.timestamp, value: local.value.Clone()}
	return newWriter(seed)
}

// Merge folds other's local history into this Writer's, using merge to
// combine the two values, then consumes other. merge is applied once now
// (to bring this Writer's local value up to date) and is also retained as
// a replay patch, so that if this Writer's published Commit is later
// reclaimed, the merge is redone against the then-current remote value
// instead of being silently skipped.
//
// If other is not strictly ahead of this Writer (by timestamp), Merge does
// nothing (other is left untouched) and returns ErrNotNewer together with
// the timestamp gap (this Writer's timestamp minus other's).
func (w *Writer[T]) Merge(other *Writer[T], merge func(local *T, incoming T)) (uint64, error) {
	timestamp := w.Timestamp()
	if other.Timestamp() <= timestamp {
		return timestamp - other.Timestamp(), ErrNotNewer
	}

	otherLocal := other.takeLocal()

	local := w.localRef()
	merge(&local.value, otherLocal.value)
	local.timestamp = otherLocal.timestamp

	incoming := otherLocal.value
	w.committedLog = append(w.committedLog, ClosurePatch(func(writer *T, _ T) {
		merge(writer, incoming)
	}))

	other.token.kill()
	other.readers = new(atomic.Int64)

	return w.Timestamp(), nil
}

// Package handoff provides a single-writer, many-reader concurrent value
// container.
//
// Any number of reader goroutines can observe a versioned snapshot of a
// value without ever blocking and without ever taking a lock, while a single
// writer accumulates changes locally and atomically publishes them. The
// writer owns one copy, readers share the other through a reference-counted
// handle that is atomically swapped on publish, and whenever the writer's
// just-published copy has no remaining readers the writer reclaims that
// allocation and replays the same patches onto it to catch it up — avoiding
// a clone of the payload on the common path.
package handoff

import "errors"

// Sentinel errors surfaced by recoverable conditions. Callers compare with
// errors.Is.
var (
	// ErrSynced is returned by Pull when the Writer is already in sync with
	// its Readers. This is a benign "nothing to do" signal. Push does not
	// return it; a push with nothing to publish reports zero Commits.
	ErrSynced = errors.New("handoff: already synced")

	// ErrNotNewer is returned by Merge when the other Writer's timestamp is
	// not strictly greater than this Writer's.
	ErrNotNewer = errors.New("handoff: other writer is not newer")

	// ErrAbortRefused is returned by Transaction.Abort when a mutable
	// borrow has already occurred.
	ErrAbortRefused = errors.New("handoff: transaction has already been borrowed, abort refused")

	// ErrWriterPoisoned is the panic value raised when a Writer's local
	// commit was vacated by a push that panicked and never completed.
	ErrWriterPoisoned = errors.New("handoff: writer local data is poisoned")

	// ErrSuccessionRace is returned by Reader.TryIntoWriter when another
	// goroutine won the revival race first.
	ErrSuccessionRace = errors.New("handoff: another reader already revived the writer")
)

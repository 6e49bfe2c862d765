package handoff

// Pull reverts the Writer's local value back to whatever Readers currently
// see, discarding every committed (but not yet pushed) patch. Staged
// patches that have not been committed are left alone. Returns
// ErrSynced if the Writer and Readers are already in sync — there being
// nothing to revert.
//
// This resets the Writer's local timestamp down to the Readers' timestamp;
// like a forced revert to the last published state.
func (w *Writer[T]) Pull() (PullInfo[T], error) {
	if w.Synced() {
		return PullInfo[T]{}, ErrSynced
	}

	commitsReverted := w.TimestampDiff()
	old := w.takeLocal()

	remote := w.remote.box.Value
	w.local = &payload[T]{timestamp: remote.timestamp, value: remote.value.Clone()}
	w.committedLog = w.committedLog[:0]

	return PullInfo[T]{
		CommitsReverted: commitsReverted,
		OldWriterCommit: OwnedCommit[T]{payload: old},
	}, nil
}

// Overwrite replaces the Writer's local value with data outright, bumping
// the local timestamp by one and discarding the committed log (staged, not
// yet committed, patches are kept). A single patch that clones the
// then-current remote value is installed into the committed log in their
// place, so that if this buffer is later reclaimed on push, the reclaimed
// (stale) buffer is brought in sync with the overwrite rather than left
// behind. Returns the displaced local Commit.
func (w *Writer[T]) Overwrite(data T) OwnedCommit[T] {
	w.committedLog = w.committedLog[:0]

	timestamp := w.Timestamp() + 1
	old := w.takeLocal()
	w.local = &payload[T]{timestamp: timestamp, value: data}

	w.committedLog = append(w.committedLog, FnPatch(func(writer *T, reader T) {
		*writer = reader.Clone()
	}))

	return OwnedCommit[T]{payload: old}
}

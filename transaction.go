package handoff

// Transaction grants direct mutable access to a Writer's local value,
// bypassing the Patch/staged-patch machinery entirely. It exists for
// mutations that were always going to require a clone of T anyway, where
// paying that clone cost once at push time is cheaper than recording and
// later replaying a patch.
//
// Go has no destructor to run "on drop" the way the source's Transaction
// does, so Tx takes the role a `tx()` + implicit drop would play in the
// source: it hands f a Transaction, runs it, and finalizes the
// transaction's bookkeeping once f returns — unconditionally, even if f
// panics, mirroring bbolt-style callback transactions.
func (w *Writer[T]) Tx(f func(tx *Transaction[T])) {
	tx := &Transaction[T]{writer: w, originalTimestamp: w.Timestamp()}
	defer tx.finalize()
	f(tx)
}

// Transaction is the handle Writer.Tx hands to its callback.
type Transaction[T Cloneable[T]] struct {
	writer            *Writer[T]
	originalTimestamp uint64
	mutated           bool
}

// Data immutably borrows the Writer's local value. Does not advance the
// timestamp.
func (tx *Transaction[T]) Data() T {
	return tx.writer.localRef().value
}

// DataMut mutably borrows the Writer's local value. Every call bumps the
// Writer's local timestamp by one, regardless of whether the borrow is
// actually used to mutate anything.
func (tx *Transaction[T]) DataMut() *T {
	local := tx.writer.localRef()
	local.timestamp++
	tx.mutated = true
	return &local.value
}

// OriginalTimestamp returns the Writer's timestamp as it stood when the
// Transaction began.
func (tx *Transaction[T]) OriginalTimestamp() uint64 {
	return tx.originalTimestamp
}

// CurrentTimestamp returns the Writer's timestamp right now.
func (tx *Transaction[T]) CurrentTimestamp() uint64 {
	return tx.writer.Timestamp()
}

// Abort discards the effect of this Transaction's mutations on the
// committed-patch bookkeeping, provided DataMut was never called. Returns
// ErrAbortRefused if a mutable borrow already happened — at that point the
// data may already have changed, so there is nothing left to abort.
func (tx *Transaction[T]) Abort() error {
	if tx.mutated {
		return ErrAbortRefused
	}
	return nil
}

// finalize runs once Writer.Tx's callback returns. If any DataMut call
// happened, the staged queue is discarded (it no longer applies to the
// post-mutation value) and the committed log is replaced outright with a
// single sync patch that clones the then-current remote value, so that a
// later reclaim has exactly one patch to replay instead of none.
func (tx *Transaction[T]) finalize() {
	if tx.originalTimestamp == tx.CurrentTimestamp() {
		return
	}
	w := tx.writer
	w.staged = w.staged[:0]
	w.committedLog = append(w.committedLog[:0], CloneFromRemote[T]())
}

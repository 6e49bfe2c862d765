package handoff

// New constructs a Reader/Writer pair seeded with initial at timestamp
// zero.
func New[T Cloneable[T]](initial T) (*Reader[T], *Writer[T]) {
	w := newWriter(payload[T]{timestamp: 0, value: initial})
	return w.Reader(), w
}

// FromCommit constructs a Reader/Writer pair seeded from an existing
// OwnedCommit, preserving its timestamp instead of resetting to zero.
// Useful for resuming a history persisted elsewhere.
func FromCommit[T Cloneable[T]](commit OwnedCommit[T]) (*Reader[T], *Writer[T]) {
	w := newWriter(payload[T]{timestamp: commit.Timestamp(), value: commit.Value()})
	return w.Reader(), w
}

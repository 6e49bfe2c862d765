package handoff

// CommitInfo describes the result of a Writer.Commit call.
type CommitInfo struct {
	// Patches is the number of staged patches that were applied.
	Patches int
	// TimestampDiff is the writer's timestamp lead over the remote after
	// the commit.
	TimestampDiff uint64
}

// PushInfo describes the result of a Writer.Push (or variant) call.
type PushInfo struct {
	// Timestamp is the writer's timestamp after the push.
	Timestamp uint64
	// Commits is the number of commits that were published by this push.
	Commits uint64
	// Reclaimed reports whether the previously published Commit was
	// reclaimed for reuse (true) or the new local buffer was obtained by
	// cloning the freshly published value (false).
	Reclaimed bool
}

// PullInfo describes the result of a Writer.Pull call.
type PullInfo[T Cloneable[T]] struct {
	// CommitsReverted is the number of commits discarded by the pull.
	// Always greater than zero; Pull returns ErrSynced instead of a
	// PullInfo when there is nothing to revert.
	CommitsReverted uint64
	// OldWriterCommit is the writer's local Commit as it stood immediately
	// before the pull overwrote it.
	OldWriterCommit OwnedCommit[T]
}

// StatusInfo is a snapshot of a Writer's bookkeeping, gathered by
// Writer.Status. Useful for diagnostics and tests; every field is also
// obtainable individually through its own Writer method.
type StatusInfo[T Cloneable[T]] struct {
	StagedPatches    int
	CommittedPatches int
	Head             OwnedCommit[T]
	HeadRemote       Commit[T]
	HeadCount        int64
	ReaderCount      int64
	Timestamp        uint64
	TimestampRemote  uint64
}

// WriterInfo is a snapshot describing a Writer's identity and liveness,
// gathered by Writer.Info. Distinct from StatusInfo: this is metadata about
// the Writer itself rather than about its current data.
type WriterInfo[T Cloneable[T]] struct {
	Timestamp    uint64
	ReaderCount  int64
	ReadersExist bool
	Synced       bool
}

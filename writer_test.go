package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCommitBypassesStaged(t *testing.T) {
	_, w := New[stringValue]("")

	info, out := AddCommit[stringValue, int](w, func(writer *stringValue, _ stringValue) int {
		*writer += "a"
		return 7
	})

	assert.Equal(t, 1, info.Patches)
	assert.Equal(t, 7, out)
	assert.Equal(t, stringValue("a"), w.Data())
	assert.Equal(t, uint64(1), w.Timestamp())
	assert.Equal(t, 1, len(w.CommittedPatches()))
}

func TestAddCommitPushReplaysOnReclaim(t *testing.T) {
	_, w := New[stringValue]("")

	pushInfo, out, replay := AddCommitPush[stringValue, int](w, func(writer *stringValue, _ stringValue) int {
		*writer += "a"
		return 1
	})

	assert.Equal(t, 1, out)
	assert.True(t, pushInfo.Reclaimed, "nothing is retaining the prior generation")
	require.NotNil(t, replay)
	assert.Equal(t, 1, *replay)
	assert.Equal(t, stringValue("a"), w.Data())
}

func TestStatusAndInfoSnapshot(t *testing.T) {
	r, w := New[stringValue]("x")
	defer r.Close()

	w.Add(FnPatch(func(writer *stringValue, _ stringValue) { *writer += "y" }))
	w.Commit()

	status := w.Status()
	assert.Equal(t, 0, status.StagedPatches)
	assert.Equal(t, 1, status.CommittedPatches)
	assert.Equal(t, stringValue("xy"), status.Head.Value())
	assert.Equal(t, stringValue("x"), status.HeadRemote.Value())
	assert.Equal(t, uint64(1), status.Timestamp)
	assert.Equal(t, uint64(0), status.TimestampRemote)

	info := w.Info()
	assert.False(t, info.Synced)
	assert.True(t, info.ReadersExist)
	assert.Equal(t, int64(2), info.ReaderCount)

	w.Push()
	assert.True(t, w.Info().Synced)
}

func TestShrinkToFitAndReserveExact(t *testing.T) {
	_, w := New[stringValue]("")

	w.ReserveExact(4)
	assert.GreaterOrEqual(t, cap(w.Staged()), 4)

	w.Add(FnPatch(func(writer *stringValue, _ stringValue) { *writer += "a" }))
	w.Commit()
	w.ShrinkToFit()
	assert.Equal(t, 0, cap(w.Staged()))
}

func TestDisconnectSeversExistingReadersOnly(t *testing.T) {
	r, w := New[stringValue]("a")

	w.Disconnect()
	assert.True(t, r.WriterDead())

	fresh := w.Reader()
	assert.False(t, fresh.WriterDead())

	w.Add(FnPatch(func(writer *stringValue, _ stringValue) { *writer += "b" }))
	w.Commit()
	w.Push()

	head := r.Head()
	assert.Equal(t, stringValue("a"), head.Value(), "disconnected readers keep observing the last-published Commit")
	head.Release()
}

func TestIntoInnerKillsTokenAndReturnsLocal(t *testing.T) {
	r, w := New[stringValue]("a")

	w.Add(FnPatch(func(writer *stringValue, _ stringValue) { *writer += "b" }))
	w.Commit()

	assert.False(t, r.WriterDead())
	inner := w.IntoInner()

	assert.True(t, r.WriterDead())
	assert.Equal(t, stringValue("ab"), inner.Value())
	assert.Equal(t, uint64(1), inner.Timestamp())
}

func TestMergeFoldsNewerWriter(t *testing.T) {
	_, w1 := New[stringValue]("base")
	_, w2 := New[stringValue]("base")

	AddCommit[stringValue, struct{}](w2, func(writer *stringValue, _ stringValue) struct{} {
		*writer += "-incoming"
		return struct{}{}
	})

	merged, err := w1.Merge(w2, func(local *stringValue, incoming stringValue) {
		*local = *local + "+" + incoming
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), merged)
	assert.Equal(t, stringValue("base+base-incoming"), w1.Data())
}

func TestMergeRejectsNonNewer(t *testing.T) {
	_, w1 := New[stringValue]("base")
	AddCommit[stringValue, struct{}](w1, func(writer *stringValue, _ stringValue) struct{} {
		*writer += "-ahead"
		return struct{}{}
	})
	_, w2 := New[stringValue]("base")

	gap, err := w1.Merge(w2, func(local *stringValue, incoming stringValue) {
		*local = incoming
	})
	assert.ErrorIs(t, err, ErrNotNewer)
	assert.Equal(t, uint64(1), gap)

	// A rejected merge must leave other untouched, not poisoned.
	assert.Equal(t, stringValue("base"), w2.Data())
	assert.Equal(t, uint64(0), w2.Timestamp())
	w2.Add(FnPatch(func(writer *stringValue, _ stringValue) { *writer += "-later" }))
	w2.Commit()
	assert.Equal(t, stringValue("base-later"), w2.Data())
}

func TestOverwriteDiscardsCommittedLog(t *testing.T) {
	_, w := New[stringValue]("a")

	w.Add(FnPatch(func(writer *stringValue, _ stringValue) { *writer += "b" }))
	w.Commit()
	assert.Equal(t, 1, len(w.CommittedPatches()))

	old := w.Overwrite("z")
	assert.Equal(t, stringValue("ab"), old.Value())
	assert.Equal(t, stringValue("z"), w.Data())
	assert.Equal(t, uint64(2), w.Timestamp())
	assert.Equal(t, 1, len(w.CommittedPatches()), "overwrite installs its own sync-from-remote replay patch")
}

package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderCloneAndClose(t *testing.T) {
	r0, w := New[stringValue]("x")
	defer r0.Close()

	assert.Equal(t, int64(2), w.ReaderCount()) // r0 plus the writer itself

	r1 := w.Reader()
	assert.Equal(t, int64(3), w.ReaderCount())

	r2 := r1.Clone()
	assert.Equal(t, int64(4), w.ReaderCount())

	r1.Close()
	assert.Equal(t, int64(3), w.ReaderCount())

	r1.Close() // idempotent
	assert.Equal(t, int64(3), w.ReaderCount())

	r2.Close()
	assert.Equal(t, int64(2), w.ReaderCount())
}

func TestReaderReclaimingAndHeadTry(t *testing.T) {
	r, _ := New[stringValue]("")

	assert.False(t, r.Reclaiming())

	head, ok := r.HeadTry()
	require.True(t, ok)
	head.Release()
}

func TestReaderConnected(t *testing.T) {
	_, w := New[stringValue]("a")
	_, w2 := New[stringValue]("b")

	r := w.Reader()
	r2 := w2.Reader()

	assert.True(t, r.ConnectedWriter(w))
	assert.False(t, r.ConnectedWriter(w2))
	assert.False(t, r.Connected(r2))
	assert.True(t, r.Connected(w.Reader()))
}

func TestReaderWriterDeadAndDisconnect(t *testing.T) {
	r, w := New[stringValue]("a")
	assert.False(t, r.WriterDead())

	w.Disconnect()
	assert.True(t, r.WriterDead())

	// A reader created after Disconnect is unaffected.
	fresh := w.Reader()
	assert.False(t, fresh.WriterDead())
}

func TestReaderTryIntoWriterSucceeds(t *testing.T) {
	r, w := New[stringValue]("a")

	w.Add(FnPatch(func(writer *stringValue, _ stringValue) { *writer += "b" }))
	w.Commit()
	w.Push()

	w.IntoInner()

	w2, err := r.TryIntoWriter()
	require.NoError(t, err)
	assert.Equal(t, stringValue("ab"), w2.Data())
	assert.Equal(t, uint64(1), w2.Timestamp())
}

func TestReaderTryIntoWriterFailsWhileAlive(t *testing.T) {
	r, w := New[stringValue]("a")
	_ = w

	_, err := r.TryIntoWriter()
	assert.ErrorIs(t, err, ErrSuccessionRace)
}

func TestCacheReloadsOnlyAfterPush(t *testing.T) {
	r, w := New[stringValue]("a")
	cache := NewCache[stringValue](r)
	defer cache.Close()

	first := cache.Head()
	assert.Equal(t, stringValue("a"), first.Value())

	again := cache.Head()
	assert.Equal(t, stringValue("a"), again.Value())

	w.Add(FnPatch(func(writer *stringValue, _ stringValue) { *writer += "b" }))
	w.Commit()
	w.Push()

	updated := cache.Head()
	assert.Equal(t, stringValue("ab"), updated.Value())
}

package handoff

import "sync/atomic"

// writerToken communicates a Writer's liveness to any number of Readers.
// Modeled directly on original_source/src/writer/token.rs: an atomic flag,
// set dead on drop (here: on Writer.IntoInner, on Writer.Disconnect for the
// Readers it severs, and on the Writer consumed by Merge), with a revive
// token guarding
// against a panicked or early-returning revival leaving the flag stuck.
//
// reclaiming additionally flags the brief window between a Writer publishing
// a new Commit and either reclaiming the old one or giving up and falling
// back to a clone; Readers consult it through Reclaiming to decide whether
// to back off (see Reader.HeadWait/HeadSpin/HeadDo).
type writerToken struct {
	dead       atomic.Bool
	reclaiming atomic.Bool
}

func newWriterToken() *writerToken {
	return new(writerToken)
}

// kill marks the writer dead. Called once, when the Writer is discarded.
func (t *writerToken) kill() {
	t.dead.Store(true)
}

// isDead reports whether the writer holding this token is gone.
func (t *writerToken) isDead() bool {
	return t.dead.Load()
}

// tryRevive attempts a dead -> alive transition. On success the caller holds
// exclusive permission to become the new writer and must call revived() on
// the returned guard once the succession is complete; if the guard is
// discarded (panic, early return) without that call, it restores the token
// to dead so another reader may try again.
func (t *writerToken) tryRevive() (*reviveGuard, bool) {
	if t.dead.CompareAndSwap(true, false) {
		return &reviveGuard{token: t, restoreDead: true}, true
	}
	return nil, false
}

type reviveGuard struct {
	token       *writerToken
	restoreDead bool
}

// revived marks the succession complete: the guard will leave the token
// alive when it is later discarded.
func (g *reviveGuard) revived() {
	g.restoreDead = false
}

// abandon must be deferred by every caller of tryRevive, immediately after
// obtaining the guard, so that a panic mid-succession restores the token to
// dead instead of leaving it permanently (and incorrectly) alive.
func (g *reviveGuard) abandon() {
	if g.restoreDead {
		g.token.dead.Store(true)
	}
}

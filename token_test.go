package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterTokenDeadOnKill(t *testing.T) {
	tok := newWriterToken()
	assert.False(t, tok.isDead())

	tok.kill()
	assert.True(t, tok.isDead())
}

func TestWriterTokenTryRevive(t *testing.T) {
	tok := newWriterToken()

	_, ok := tok.tryRevive()
	assert.False(t, ok, "cannot revive a token that was never killed")

	tok.kill()
	guard, ok := tok.tryRevive()
	require.True(t, ok)
	assert.False(t, tok.isDead(), "a successful revive clears dead immediately")

	_, ok = tok.tryRevive()
	assert.False(t, ok, "a second concurrent revive attempt must fail")

	guard.revived()
	guard.abandon()
	assert.False(t, tok.isDead(), "completed revival leaves the token alive")
}

func TestWriterTokenAbandonedReviveRestoresDead(t *testing.T) {
	tok := newWriterToken()
	tok.kill()

	guard, ok := tok.tryRevive()
	require.True(t, ok)
	// Simulate a panic or early return: abandon without calling revived().
	guard.abandon()

	assert.True(t, tok.isDead(), "an abandoned revival must restore dead")

	_, ok = tok.tryRevive()
	assert.True(t, ok, "a subsequent revive attempt must succeed")
}

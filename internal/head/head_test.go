package head_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dacapoday/handoff/internal/head"
)

func TestBoxAcquireRelease(t *testing.T) {
	b := head.NewBox(42)
	require.EqualValues(t, 1, b.RefCount())

	b.Acquire()
	require.EqualValues(t, 2, b.RefCount())

	require.EqualValues(t, 1, b.Release())
	require.EqualValues(t, 0, b.Release())
}

func TestCellLoadAcquiresReference(t *testing.T) {
	cell := head.NewCell(head.NewBox("a"))

	first := cell.Load()
	assert.Equal(t, "a", first.Value)
	assert.EqualValues(t, 2, first.RefCount())
	first.Release()
}

func TestCellSwapHandsOverOwnReference(t *testing.T) {
	cell := head.NewCell(head.NewBox("a"))

	old := cell.Swap(head.NewBox("b"))
	require.EqualValues(t, 1, old.RefCount())

	fresh := cell.Load()
	assert.Equal(t, "b", fresh.Value)
	fresh.Release()
}

// TestReclaimDoesNotRaceWithLateLoad reproduces the shape of Writer.pushCore's
// reclaim path: once a retired Box's count reaches zero, the value is
// mutated in place and handed to the next generation. A reader that loaded
// the cell's pointer just before the swap but only acquires afterward must
// never be able to resurrect that retired Box — if it could, it would be
// ranging over the same map this loop is concurrently mutating, which Go's
// runtime detects and panics on even without the race detector.
func TestReclaimDoesNotRaceWithLateLoad(t *testing.T) {
	box := head.NewBox(map[string]int{"a": 0})
	box.Acquire()
	cell := head.NewCell(box)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				b := cell.Load()
				sum := 0
				for _, v := range b.Value {
					sum += v
				}
				b.Release()
			}
		}()
	}

	remote := box
	for i := 0; i < 2000; i++ {
		newBox := head.NewBox(map[string]int{"a": i})
		newBox.Acquire()

		oldBox := cell.Swap(newBox)
		oldBox.Release()
		if remaining := remote.Release(); remaining == 0 {
			for k := range remote.Value {
				remote.Value[k] = i
			}
		}
		remote = newBox
	}

	close(stop)
	wg.Wait()
}

func TestCellConcurrentLoadsDoNotRace(t *testing.T) {
	cell := head.NewCell(head.NewBox(0))

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				b := cell.Load()
				_ = b.Value
				b.Release()
			}
		}()
	}

	for i := 1; i <= 100; i++ {
		old := cell.Swap(head.NewBox(i))
		old.Release()
	}
	wg.Wait()

	final := cell.Load()
	assert.Equal(t, 100, final.Value)
	final.Release()
}

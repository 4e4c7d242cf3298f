package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Run("work in progress is the other slot of the pair", func(t *testing.T) {
		s := NewStore()
		current := s.createFiber(KindHostComponent, Props{"a": 1}, "k", NoMode)
		current.Type = HostType("div")
		current.ExpirationTime = 40

		wip := s.createWorkInProgress(current, Props{"a": 2})

		assert.Same(t, wip, current.Alternate())
		assert.Same(t, current, wip.Alternate())
		assert.Equal(t, "k", wip.Key)
		assert.Equal(t, HostType("div"), wip.Type)
		assert.Equal(t, ExpirationTime(40), wip.ExpirationTime)
		assert.Equal(t, Props{"a": 2}, wip.PendingProps)
		assert.Equal(t, 1, s.Live())

		again := s.createWorkInProgress(current, nil)
		assert.Same(t, wip, again)
		assert.Equal(t, 1, s.Live())
	})

	t.Run("released nodes invalidate their handles", func(t *testing.T) {
		s := NewStore()
		f := s.createFiber(KindFunction, nil, "", NoMode)
		h := handleOf(f)

		require.Same(t, f, h.resolve())

		s.release(f)
		assert.Nil(t, h.resolve())
		assert.Equal(t, 0, s.Live())

		// the pair is reused, the old handle stays dead
		g := s.createFiber(KindFunction, nil, "", NoMode)
		assert.Same(t, f, g)
		assert.Nil(t, h.resolve())
		assert.Same(t, g, handleOf(g).resolve())
	})

	t.Run("abort releases only the pairs of the pass", func(t *testing.T) {
		s := NewStore()
		root := s.createHostRootFiber(NoMode)
		kept := s.createFiber(KindHostText, "a", "", NoMode)
		s.commitPass()

		s.createFiber(KindHostText, "b", "", NoMode)
		s.createFiber(KindHostText, "c", "", NoMode)
		s.createWorkInProgress(kept, "a")
		assert.Equal(t, 4, s.Live())

		s.abortPass()

		assert.Equal(t, 2, s.Live())
		assert.NotNil(t, handleOf(root).resolve())
		assert.NotNil(t, handleOf(kept).resolve())
	})

	t.Run("release subtree", func(t *testing.T) {
		s := NewStore()
		parent := s.createFiber(KindHostComponent, nil, "", NoMode)
		a := s.createFiber(KindHostComponent, nil, "", NoMode)
		b := s.createFiber(KindHostText, "b", "", NoMode)
		c := s.createFiber(KindHostText, "c", "", NoMode)
		parent.Child = a
		a.Sibling = b
		a.Child = c

		s.releaseSubtree(parent)

		assert.Equal(t, 0, s.Live())
	})

	t.Run("abandoned attempt keeps clones and frees fresh nodes", func(t *testing.T) {
		s := NewStore()
		current := s.createFiber(KindHostComponent, nil, "", NoMode)
		currentChild := s.createFiber(KindHostText, "x", "", NoMode)
		current.Child = currentChild
		s.commitPass()

		clone := s.createWorkInProgress(current, nil)
		fresh := s.createFiber(KindHostText, "y", "", NoMode)
		clone.Child = fresh
		clone.Sibling = s.createFiber(KindHostComponent, nil, "", NoMode)
		assert.Equal(t, 4, s.Live())

		s.releaseAbandoned(clone)

		assert.Equal(t, 2, s.Live())
		assert.Same(t, clone, current.Alternate())
		assert.NotNil(t, handleOf(currentChild).resolve())
	})

	t.Run("slots keep their address across chunks", func(t *testing.T) {
		s := NewStore()
		first := s.createFiber(KindFunction, nil, "", NoMode)
		for range chunkSize * 2 {
			s.createFiber(KindFunction, nil, "", NoMode)
		}

		assert.Equal(t, KindFunction, first.Kind)
		assert.Same(t, first, handleOf(first).resolve())
		assert.Equal(t, chunkSize*2+1, s.Live())
	})
}

package internal

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootQueue(t *testing.T) {
	roots := func(q *RootQueue) []*FiberRoot {
		return slices.Collect(q.All())
	}

	t.Run("keeps insertion order and ignores duplicates", func(t *testing.T) {
		q := NewRootQueue()
		a, b, c := &FiberRoot{}, &FiberRoot{}, &FiberRoot{}

		q.Insert(a)
		q.Insert(b)
		q.Insert(a)
		q.Insert(c)

		assert.Equal(t, []*FiberRoot{a, b, c}, roots(q))
		assert.Equal(t, 3, q.Len())
	})

	t.Run("removes head, middle and tail", func(t *testing.T) {
		q := NewRootQueue()
		a, b, c, d := &FiberRoot{}, &FiberRoot{}, &FiberRoot{}, &FiberRoot{}
		for _, r := range []*FiberRoot{a, b, c, d} {
			q.Insert(r)
		}

		q.Remove(b)
		assert.Equal(t, []*FiberRoot{a, c, d}, roots(q))
		q.Remove(a)
		assert.Equal(t, []*FiberRoot{c, d}, roots(q))
		q.Remove(d)
		assert.Equal(t, []*FiberRoot{c}, roots(q))

		q.Insert(a)
		assert.Equal(t, []*FiberRoot{c, a}, roots(q))

		q.Remove(c)
		q.Remove(a)
		assert.Empty(t, roots(q))
		assert.False(t, q.Has(a))
	})

	t.Run("highest picks the most urgent and drops idle roots", func(t *testing.T) {
		q := NewRootQueue()
		idle := &FiberRoot{expirationTime: NoWork}
		slow := &FiberRoot{expirationTime: 500}
		fast := &FiberRoot{expirationTime: 20}
		tie := &FiberRoot{expirationTime: 20}

		for _, r := range []*FiberRoot{idle, slow, fast, tie} {
			q.Insert(r)
		}

		assert.Same(t, fast, q.Highest())
		assert.False(t, q.Has(idle))
		assert.Equal(t, 3, q.Len())
	})
}

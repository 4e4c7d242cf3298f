package fiber

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asyncText(d *Deferred) *FunctionType {
	return Func("AsyncText", func(ctx *RenderContext, props Props) (Node, error) {
		v, err := d.Value()
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// resolve resolves d from another goroutine and flushes the retry.
func (f *fixture) resolve(t *testing.T, d *Deferred, value any) {
	t.Helper()

	go d.Resolve(value)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.rt.Wait(ctx))
	require.NoError(t, f.rt.FlushAll())
}

func countMatching(log []string, suffix string) int {
	n := 0
	for _, entry := range log {
		if strings.HasSuffix(entry, suffix) {
			n++
		}
	}
	return n
}

func TestSuspense(t *testing.T) {
	t.Run("fallback is shown until the data resolves", func(t *testing.T) {
		log := []string{}
		f := setup(t, false)
		d := NewDeferred()
		Item := trackedClass(&log)

		f.render(t, Suspense("Loading...",
			H("span", nil, E(Item, Props{"name": "primary", "text": "mounted"})),
			E(asyncText(d), nil),
		))

		assert.Equal(t, "Loading...", f.container.String())
		assert.Zero(t, countMatching(log, " mounted"))
		assert.Equal(t, countFibers(f.root.Current()), f.rt.Store().Live())

		f.resolve(t, d, "data")

		assert.Equal(t, "<span>mounted</span>data", f.container.String())
		assert.Equal(t, 1, countMatching(log, " mounted"))
		assert.Zero(t, countMatching(log, " unmounted"))
		assert.Equal(t, countFibers(f.root.Current()), f.rt.Store().Live())
	})

	t.Run("timed out update keeps the primary host nodes", func(t *testing.T) {
		f := setup(t, false)
		d := NewDeferred()
		Async := asyncText(d)

		tree := func(withAsync bool) Node {
			var async Node
			if withAsync {
				async = E(Async, nil)
			}
			return H("div", nil, Suspense("Loading...", H("input", Props{"value": "x"}), async))
		}

		f.render(t, tree(false))
		input := f.container.Children[0].Children[0]
		assert.Equal(t, `<div><input value="x"></input></div>`, f.container.String())

		f.render(t, tree(true))
		assert.Equal(t, `<div>Loading...</div>`, f.container.String())
		assert.Same(t, input, f.container.Children[0].Children[0])
		assert.True(t, input.Hidden)

		f.host.Reset()
		f.resolve(t, d, "data")

		assert.Equal(t, `<div><input value="x"></input>data</div>`, f.container.String())
		assert.Same(t, input, f.container.Children[0].Children[0])
		assert.False(t, input.Hidden)
		assert.Contains(t, f.host.Ops, "unhide input#2")
		assert.Equal(t, countFibers(f.root.Current()), f.rt.Store().Live())
	})

	t.Run("concurrent root retries at async priority", func(t *testing.T) {
		f := setup(t, true)
		d := NewDeferred()

		f.render(t, H("main", nil, Suspense("Loading...", E(asyncText(d), nil))))
		assert.Equal(t, "<main>Loading...</main>", f.container.String())

		f.resolve(t, d, "ready")
		assert.Equal(t, "<main>ready</main>", f.container.String())
		assert.False(t, f.rt.HasPendingWork())
	})

	t.Run("inner boundary captures the suspension", func(t *testing.T) {
		f := setup(t, false)
		d := NewDeferred()

		f.render(t, Suspense("outer",
			"a",
			Suspense("inner", E(asyncText(d), nil)),
		))
		assert.Equal(t, "ainner", f.container.String())

		f.resolve(t, d, "b")
		assert.Equal(t, "ab", f.container.String())
	})

	t.Run("render prop children see the timeout", func(t *testing.T) {
		f := setup(t, false)
		d := NewDeferred()
		Async := asyncText(d)
		seen := []bool{}

		f.render(t, Suspense(nil, func(timedOut bool) Node {
			seen = append(seen, timedOut)
			if timedOut {
				return "waiting"
			}
			return E(Async, nil)
		}))
		assert.Equal(t, "waiting", f.container.String())

		f.resolve(t, d, "done")
		assert.Equal(t, "done", f.container.String())
		assert.True(t, slices.Contains(seen, true))
		assert.False(t, seen[len(seen)-1])
	})

	t.Run("suspending without a boundary fails the render", func(t *testing.T) {
		f := setup(t, false)

		err := f.root.Render(H("div", nil, E(asyncText(NewDeferred()), nil)), nil)

		assert.ErrorIs(t, err, ErrNoSuspenseBoundary)
		assert.Contains(t, err.Error(), "AsyncText")
		assert.Equal(t, "", f.container.String())
	})
}

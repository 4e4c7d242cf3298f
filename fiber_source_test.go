package fiber

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceReader(name string, src *Source, renders *int) *FunctionType {
	return Func(name, func(ctx *RenderContext, props Props) (Node, error) {
		*renders++
		v, err := ReadSource(ctx, src, func() string { return src.Get().(string) })
		if err != nil {
			return nil, err
		}
		return name + ":" + v, nil
	})
}

func TestMutableSource(t *testing.T) {
	t.Run("changes from another goroutine re-render readers", func(t *testing.T) {
		f := setup(t, false)
		src := NewSource("a")
		renders := 0

		f.render(t, H("div", nil, E(sourceReader("value", src, &renders), nil)))
		assert.Equal(t, "<div>value:a</div>", f.container.String())
		assert.Equal(t, 1, src.Subscribers())

		go src.Set("b")

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, f.rt.Wait(ctx))
		require.NoError(t, f.rt.FlushAll())

		assert.Equal(t, "<div>value:b</div>", f.container.String())
		assert.Equal(t, 2, renders)
		assert.Equal(t, 1, src.Subscribers())

		require.NoError(t, f.root.Unmount())
		assert.Zero(t, src.Subscribers())
	})

	t.Run("torn reads restart the render", func(t *testing.T) {
		f := setup(t, false)
		src := NewSource("a")
		renders := 0
		changed := false

		Mutator := Func("Mutator", func(ctx *RenderContext, props Props) (Node, error) {
			if !changed {
				changed = true
				src.Set("b")
			}
			return nil, nil
		})

		f.render(t, []Node{
			E(sourceReader("first", src, &renders), nil),
			E(Mutator, nil),
			E(sourceReader("second", src, &renders), nil),
		})

		assert.Equal(t, "first:bsecond:b", f.container.String())
		assert.Equal(t, 4, renders)
		assert.Equal(t, 2, src.Subscribers())
	})

	t.Run("concurrent readers are updated at async priority", func(t *testing.T) {
		f := setup(t, true)
		src := NewSource("a")
		renders := 0

		f.render(t, E(sourceReader("value", src, &renders), nil))

		src.Set("b")
		require.NoError(t, f.rt.FlushSync())
		assert.Equal(t, "value:a", f.container.String())

		require.NoError(t, f.rt.FlushAll())
		assert.Equal(t, "value:b", f.container.String())

		first, last := f.root.MutableSourcePending()
		assert.Equal(t, NoWork, first)
		assert.Equal(t, NoWork, last)
	})
}

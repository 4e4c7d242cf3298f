package fiber

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type blocker struct {
	ComponentBase
}

func (b *blocker) Render(ctx *RenderContext) (Node, error) {
	return b.Props.Children(), nil
}

func (b *blocker) ShouldComponentUpdate(nextProps Props, nextState any) bool {
	return false
}

var Blocker = Class("Blocker", func(props Props) Component { return &blocker{} })

type pair struct{ A, B int }

func TestContext(t *testing.T) {
	t.Run("provider change reaches consumers below a blocked parent", func(t *testing.T) {
		f := setup(t, false)
		Theme := NewContext("light")
		renders := 0

		tree := func(theme string) Node {
			return Theme.Provider(theme, E(Blocker, nil, Theme.Consumer(func(v string) Node {
				renders++
				return "theme:" + v
			})))
		}

		f.render(t, tree("dark"))
		assert.Equal(t, "theme:dark", f.container.String())

		f.render(t, tree("dark"))
		assert.Equal(t, 1, renders)

		f.render(t, tree("blue"))
		assert.Equal(t, "theme:blue", f.container.String())
		assert.Equal(t, 2, renders)
	})

	t.Run("consumers below an updated consumer are updated", func(t *testing.T) {
		f := setup(t, false)
		Theme := NewContext("light")
		var log []string

		Outer := Func("Outer", func(ctx *RenderContext, props Props) (Node, error) {
			log = append(log, "outer:"+Theme.Read(ctx))
			return props.Children(), nil
		})
		Inner := Func("Inner", func(ctx *RenderContext, props Props) (Node, error) {
			log = append(log, "inner:"+Theme.Read(ctx))
			return "inner:" + Theme.Read(ctx), nil
		})

		// the same element on both renders, so Inner only renders when marked
		inner := E(Inner, nil)

		f.render(t, Theme.Provider("dark", E(Outer, nil, inner)))
		f.render(t, Theme.Provider("blue", E(Outer, nil, inner)))

		assert.Equal(t, "inner:blue", f.container.String())
		assert.Equal(t, []string{"outer:dark", "inner:dark", "outer:blue", "inner:blue"}, log)
	})

	t.Run("propagation is logged with the context id", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		f := setup(t, false, WithLogger(log))
		Theme := NewContext("light")

		tree := func(theme string) Node {
			return Theme.Provider(theme, E(Blocker, nil, Theme.Consumer(func(v string) Node { return v })))
		}
		f.render(t, tree("dark"))
		f.render(t, tree("blue"))

		assert.NotEmpty(t, Theme.Raw().ID)
		assert.Contains(t, buf.String(), "context change propagated")
		assert.Contains(t, buf.String(), "context="+Theme.Raw().ID)
		assert.Contains(t, buf.String(), "consumers=1")
	})

	t.Run("default value outside of a provider", func(t *testing.T) {
		f := setup(t, false)
		Theme := NewContext("light")

		f.render(t, H("div", nil, Theme.Consumer(func(v string) Node { return v })))

		assert.Equal(t, "<div>light</div>", f.container.String())
	})

	t.Run("nested providers shadow outer ones", func(t *testing.T) {
		f := setup(t, false)
		Theme := NewContext("light")
		Show := Func("Show", func(ctx *RenderContext, props Props) (Node, error) {
			return "[" + Theme.Read(ctx) + "]", nil
		})

		f.render(t, Theme.Provider("dark",
			E(Show, nil),
			Theme.Provider("blue", E(Show, nil)),
			E(Show, nil),
		))

		assert.Equal(t, "[dark][blue][dark]", f.container.String())
	})

	t.Run("class context type", func(t *testing.T) {
		f := setup(t, false)
		Theme := NewContext("light")

		Themed := Class("Themed", func(props Props) Component { return &themed{} })
		Themed.ContextType = Theme.Raw()

		f.render(t, Theme.Provider("dark", E(Blocker, nil, E(Themed, nil))))
		assert.Equal(t, "themed:dark", f.container.String())

		f.render(t, Theme.Provider("blue", E(Blocker, nil, E(Themed, nil))))
		assert.Equal(t, "themed:blue", f.container.String())
	})

	t.Run("observed bits filter updates", func(t *testing.T) {
		f := setup(t, false)
		Pair := NewContext(pair{}).WithChangedBits(func(prev, next pair) uint32 {
			var bits uint32
			if prev.A != next.A {
				bits |= 1
			}
			if prev.B != next.B {
				bits |= 2
			}
			return bits
		})

		renders := map[string]int{}
		reader := func(name string, bits uint32, field func(pair) int) *FunctionType {
			return Func(name, func(ctx *RenderContext, props Props) (Node, error) {
				renders[name]++
				return fmt.Sprintf("%s%d", name, field(Pair.ReadBits(ctx, bits))), nil
			})
		}
		ReadA := reader("A", 1, func(p pair) int { return p.A })
		ReadB := reader("B", 2, func(p pair) int { return p.B })

		tree := func(p pair) Node {
			return Pair.Provider(p, E(Blocker, nil, E(ReadA, nil), E(ReadB, nil)))
		}

		f.render(t, tree(pair{1, 1}))
		f.render(t, tree(pair{2, 1}))

		assert.Equal(t, "A2B1", f.container.String())
		assert.Equal(t, map[string]int{"A": 2, "B": 1}, renders)
	})
}

type themed struct {
	ComponentBase
}

func (c *themed) Render(ctx *RenderContext) (Node, error) {
	return fmt.Sprintf("themed:%v", c.Context), nil
}

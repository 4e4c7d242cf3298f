package fiber

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnatoleLucet/fiber/internal"
	"github.com/AnatoleLucet/fiber/internal/memhost"
)

type fixture struct {
	host      *memhost.Host
	container *memhost.Node
	rt        *Runtime
	root      *Root
	clock     *ManualClock
}

func setup(t *testing.T, concurrent bool, opts ...Option) *fixture {
	t.Helper()

	clock := NewManualClock()
	host := memhost.New()
	container := host.NewContainer("root")
	rt := New(host, append([]Option{WithClock(clock)}, opts...)...)

	return &fixture{
		host:      host,
		container: container,
		rt:        rt,
		root:      rt.CreateRoot(container, concurrent),
		clock:     clock,
	}
}

func (f *fixture) render(t *testing.T, children Node) {
	t.Helper()
	require.NoError(t, f.root.Render(children, nil))
	require.NoError(t, f.rt.FlushAll())
}

// countFibers counts the logical nodes reachable from the committed root.
func countFibers(f *internal.Fiber) int {
	n := 1
	for child := range f.Children() {
		n += countFibers(child)
	}
	return n
}

// checkChildExpiration asserts that every node summarizes the pending work
// of its children.
func checkChildExpiration(t *testing.T, f *internal.Fiber) {
	t.Helper()

	want := NoWork
	for child := range f.Children() {
		want = min(want, child.ExpirationTime, child.ChildExpirationTime)
		checkChildExpiration(t, child)
	}
	assert.Equal(t, want, f.ChildExpirationTime, "child expiration of %s", f.Name())
}

// tracked is a class component that logs its lifecycle.
type tracked struct {
	ComponentBase
	id  int
	log *[]string
}

func (c *tracked) Render(ctx *RenderContext) (Node, error) {
	return c.Props["text"], nil
}

func (c *tracked) ComponentDidMount() error {
	*c.log = append(*c.log, fmt.Sprintf("%s#%d mounted", c.Props["name"], c.id))
	return nil
}

func (c *tracked) ComponentWillUnmount() error {
	*c.log = append(*c.log, fmt.Sprintf("%s#%d unmounted", c.Props["name"], c.id))
	return nil
}

func trackedClass(log *[]string) *ClassType {
	instances := 0
	return Class("Tracked", func(props Props) Component {
		instances++
		*log = append(*log, fmt.Sprintf("%s#%d constructed", props["name"], instances))
		return &tracked{id: instances, log: log}
	})
}

func TestReconcile(t *testing.T) {
	t.Run("no-op update produces no host operations", func(t *testing.T) {
		log := []string{}
		f := setup(t, false)
		Item := trackedClass(&log)

		tree := func() Node {
			return H("div", Props{"id": "app"},
				E(Item, Props{"name": "item", "text": "hello"}),
				H("span", nil, "world"),
			)
		}

		f.render(t, tree())
		f.host.Reset()
		log = log[:0]

		f.render(t, tree())

		assert.Empty(t, f.host.Ops)
		assert.Empty(t, log)
		assert.Equal(t, `<div id="app">hello<span>world</span></div>`, f.container.String())
	})

	t.Run("unchanged element skips the subtree", func(t *testing.T) {
		renders := 0
		f := setup(t, false)

		Child := Func("Child", func(ctx *RenderContext, props Props) (Node, error) {
			renders++
			return "child", nil
		})
		child := E(Child, nil)

		f.render(t, H("div", nil, child))
		f.host.Reset()
		f.render(t, H("div", nil, child))

		assert.Equal(t, 1, renders)
		assert.Empty(t, f.host.Ops)
	})

	t.Run("keyed reorder reuses every instance", func(t *testing.T) {
		log := []string{}
		f := setup(t, false)

		list := func(keys ...string) Node {
			items := make([]Node, len(keys))
			for i, k := range keys {
				items[i] = H("li", Props{"key": k}, k)
			}
			return H("ul", nil, items...)
		}

		f.render(t, list("a", "b", "c"))
		ul := f.container.Children[0]
		before := map[string]*memhost.Node{}
		for _, li := range ul.Children {
			before[li.Text] = li
		}
		f.host.Reset()

		f.render(t, list("c", "a", "b"))

		assert.Equal(t, "<ul><li>c</li><li>a</li><li>b</li></ul>", f.container.String())
		for _, li := range ul.Children {
			assert.Same(t, before[li.Text], li)
		}
		assert.Equal(t, []string{
			"append li#2 to ul#5",
			"append li#3 to ul#5",
		}, f.host.Ops)
		assert.Empty(t, log)
	})

	t.Run("keyed reorder of classes runs no lifecycle", func(t *testing.T) {
		log := []string{}
		f := setup(t, false)
		Item := trackedClass(&log)

		list := func(keys ...string) Node {
			items := make([]Node, len(keys))
			for i, k := range keys {
				items[i] = E(Item, Props{"key": k, "name": k, "text": k})
			}
			return items
		}

		f.render(t, list("a", "b", "c", "d"))
		log = log[:0]

		f.render(t, list("d", "b", "a", "c"))

		assert.Equal(t, "dbac", f.container.String())
		assert.Empty(t, log)
	})

	t.Run("round trip matches a fresh mount", func(t *testing.T) {
		original := func() Node {
			return H("div", Props{"class": "a"},
				H("span", Props{"key": "x"}, "x"),
				"text",
				H("p", nil, H("b", nil, "bold")),
			)
		}
		other := func() Node {
			return H("div", Props{"class": "b"},
				H("p", nil, "changed"),
			)
		}

		fresh := setup(t, false)
		fresh.render(t, original())

		f := setup(t, false)
		f.render(t, original())
		f.render(t, other())
		assert.Equal(t, `<div class="b"><p>changed</p></div>`, f.container.String())
		f.render(t, original())

		assert.Equal(t, fresh.container.String(), f.container.String())
		assert.Equal(t, countFibers(fresh.root.Current()), countFibers(f.root.Current()))
		assert.Equal(t, countFibers(f.root.Current()), f.rt.Store().Live())
	})

	t.Run("type change under the same key mounts fresh", func(t *testing.T) {
		f := setup(t, false)

		f.render(t, H("div", Props{"key": "a"}, "one"))
		old := f.container.Children[0]

		f.render(t, H("section", Props{"key": "a"}, "one"))

		require.Len(t, f.container.Children, 1)
		assert.NotSame(t, old, f.container.Children[0])
		assert.Nil(t, old.Parent)
		assert.Equal(t, "<section>one</section>", f.container.String())
	})

	t.Run("unmount releases every node", func(t *testing.T) {
		log := []string{}
		f := setup(t, false)
		Item := trackedClass(&log)

		f.render(t, H("div", nil, E(Item, Props{"name": "a", "text": "a"}), H("span", nil, "b")))
		require.NoError(t, f.root.Unmount())

		assert.Equal(t, "", f.container.String())
		assert.Equal(t, []string{"a#1 constructed", "a#1 mounted", "a#1 unmounted"}, log)
		assert.Equal(t, 1, f.rt.Store().Live())
	})

	t.Run("invalid child is an error", func(t *testing.T) {
		f := setup(t, false)

		err := f.root.Render(H("div", nil, struct{}{}), nil)

		assert.ErrorIs(t, err, ErrInvalidChild)
		var renderErr *RenderError
		assert.ErrorAs(t, err, &renderErr)
		assert.Equal(t, "", f.container.String())
		assert.Equal(t, 1, f.rt.Store().Live())
	})

	t.Run("portal renders into its container", func(t *testing.T) {
		f := setup(t, false)
		modal := f.host.NewContainer("modal")

		f.render(t, H("div", nil, "page", Portal(modal, H("p", nil, "dialog"))))
		assert.Equal(t, "<div>page</div>", f.container.String())
		assert.Equal(t, "<p>dialog</p>", modal.String())

		f.render(t, H("div", nil, "page"))
		assert.Equal(t, "", modal.String())
	})

	t.Run("refs are attached and detached", func(t *testing.T) {
		f := setup(t, false)
		ref := &Ref{}

		f.render(t, H("div", Props{"ref": ref}, "x"))
		require.NotNil(t, ref.Current)
		assert.Same(t, f.container.Children[0], ref.Current)

		f.render(t, nil)
		assert.Nil(t, ref.Current)
	})
}

func TestWrongGoroutine(t *testing.T) {
	f := setup(t, false)

	entries := map[string]func() error{
		"render":    func() error { return f.root.Render("x", nil) },
		"flush all": f.rt.FlushAll,
		"batch":     func() error { return f.rt.Batch(func() {}) },
		"priority": func() error {
			ran := false
			err := f.rt.RunWithPriority(PrioritySync, func() { ran = true })
			if ran {
				return nil
			}
			return err
		},
	}

	for name, entry := range entries {
		t.Run(name, func(t *testing.T) {
			done := make(chan error)
			go func() {
				done <- entry()
			}()

			assert.ErrorIs(t, <-done, ErrWrongGoroutine)
		})
	}

	assert.NoError(t, f.rt.RunWithPriority(PriorityInteractive, func() {}))
}

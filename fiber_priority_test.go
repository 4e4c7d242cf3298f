package fiber

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	ComponentBase
}

func (c *counter) Render(ctx *RenderContext) (Node, error) {
	return fmt.Sprintf("%s%d", c.Props["name"], c.State.(Props)["n"]), nil
}

// counterClass registers every instance under its name prop.
func counterClass(instances map[string]*counter) *ClassType {
	return Class("Counter", func(props Props) Component {
		c := &counter{ComponentBase{State: Props{"n": 0}}}
		instances[props["name"].(string)] = c
		return c
	})
}

func counters(Counter *ClassType) Node {
	return H("div", nil,
		E(Counter, Props{"name": "a"}),
		H("p", nil, E(Counter, Props{"name": "b"})),
	)
}

func TestPriority(t *testing.T) {
	t.Run("child expiration summarizes pending work at every step", func(t *testing.T) {
		f := setup(t, true)
		c := map[string]*counter{}

		f.render(t, counters(counterClass(c)))
		assert.Equal(t, "<div>a0<p>b0</p></div>", f.container.String())

		require.NoError(t, c["a"].SetState(Props{"n": 1}))
		f.rt.RunWithPriority(PriorityInteractive, func() {
			require.NoError(t, c["b"].SetState(Props{"n": 1}))
		})
		checkChildExpiration(t, f.root.Current())

		var seen []string
		for {
			more, err := f.rt.PerformUnitOfWork()
			require.NoError(t, err)
			checkChildExpiration(t, f.root.Current())
			seen = append(seen, f.container.String())
			if !more {
				break
			}
		}

		assert.Contains(t, seen, "<div>a0<p>b1</p></div>")
		assert.Equal(t, "<div>a1<p>b1</p></div>", f.container.String())
		assert.Equal(t, NoWork, f.root.Current().ChildExpirationTime)
	})

	t.Run("work yields to the deadline", func(t *testing.T) {
		f := setup(t, true)
		c := map[string]*counter{}

		require.NoError(t, f.root.Render(counters(counterClass(c)), nil))

		more, err := f.rt.PerformWork(NewUnitDeadline(2))
		require.NoError(t, err)
		assert.True(t, more)
		assert.Equal(t, "", f.container.String())

		require.NoError(t, f.rt.FlushAll())
		assert.Equal(t, "<div>a0<p>b0</p></div>", f.container.String())
	})

	t.Run("time based deadline", func(t *testing.T) {
		f := setup(t, true)
		c := map[string]*counter{}

		require.NoError(t, f.root.Render(counters(counterClass(c)), nil))

		more, err := f.rt.PerformWork(f.rt.DeadlineAfter(0))
		require.NoError(t, err)
		assert.True(t, more)

		more, err = f.rt.PerformWork(f.rt.DeadlineAfter(time.Hour))
		require.NoError(t, err)
		assert.False(t, more)
		assert.Equal(t, "<div>a0<p>b0</p></div>", f.container.String())
	})

	t.Run("expired work ignores the deadline", func(t *testing.T) {
		f := setup(t, true)
		c := map[string]*counter{}
		f.render(t, counters(counterClass(c)))

		require.NoError(t, c["a"].SetState(Props{"n": 1}))
		f.clock.Advance(10 * time.Second)

		more, err := f.rt.PerformWork(NewUnitDeadline(1))
		require.NoError(t, err)
		assert.False(t, more)
		assert.Equal(t, "<div>a1<p>b0</p></div>", f.container.String())
	})

	t.Run("sync update interrupts an async render", func(t *testing.T) {
		f := setup(t, true)
		c := map[string]*counter{}
		f.render(t, counters(counterClass(c)))

		require.NoError(t, c["a"].SetState(Props{"n": 1}))
		for range 2 {
			more, err := f.rt.PerformUnitOfWork()
			require.NoError(t, err)
			require.True(t, more)
		}

		f.rt.RunWithPriority(PrioritySync, func() {
			require.NoError(t, c["b"].SetState(Props{"n": 5}))
		})
		assert.Equal(t, "<div>a0<p>b5</p></div>", f.container.String())

		require.NoError(t, f.rt.FlushAll())
		assert.Equal(t, "<div>a1<p>b5</p></div>", f.container.String())
		assert.Equal(t, countFibers(f.root.Current()), f.rt.Store().Live())
	})

	t.Run("batched renders commit once", func(t *testing.T) {
		f := setup(t, false)
		renders := 0
		Text := Func("Text", func(ctx *RenderContext, props Props) (Node, error) {
			renders++
			return props["text"], nil
		})

		require.NoError(t, f.rt.Batch(func() {
			require.NoError(t, f.root.Render(E(Text, Props{"text": "one"}), nil))
			assert.Equal(t, "", f.container.String())
			require.NoError(t, f.root.Render(E(Text, Props{"text": "two"}), nil))
		}))

		assert.Equal(t, "two", f.container.String())
		assert.Equal(t, 1, renders)
	})

	t.Run("updates from lifecycles are limited", func(t *testing.T) {
		f := setup(t, false)
		Looping := Class("Looping", func(props Props) Component {
			return &looping{counter{ComponentBase{State: Props{"n": 0}}}}
		})

		err := f.root.Render(E(Looping, Props{"name": "loop"}), nil)

		assert.ErrorIs(t, err, ErrMaxUpdateDepth)
		assert.False(t, f.rt.HasPendingWork())
	})

	t.Run("render callbacks run after commit", func(t *testing.T) {
		f := setup(t, false)
		var seen string

		require.NoError(t, f.root.Render(H("b", nil, "x"), func() {
			seen = f.container.String()
		}))

		assert.Equal(t, "<b>x</b>", seen)
	})
}

type looping struct {
	counter
}

func (c *looping) ComponentDidMount() error {
	return c.bump()
}

func (c *looping) ComponentDidUpdate(prevProps Props, prevState any) error {
	return c.bump()
}

func (c *looping) bump() error {
	n := c.State.(Props)["n"].(int)
	_ = c.SetState(Props{"n": n + 1})
	return nil
}

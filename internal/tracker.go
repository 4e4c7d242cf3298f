package internal

// RenderContext is handed to every render callback. It is only valid for the
// duration of that call.
type RenderContext struct {
	r     *Runtime
	fiber *Fiber
	exp   ExpirationTime
	done  bool
}

// ReadContext returns the nearest provided value of ctx and subscribes the
// component to every change of it.
func (c *RenderContext) ReadContext(ctx *Context) any {
	return c.ReadContextBits(ctx, MaxBits)
}

// ReadContextBits subscribes only to the changes intersecting observedBits.
func (c *RenderContext) ReadContextBits(ctx *Context, observedBits uint32) any {
	if c.done {
		return ctx.DefaultValue
	}

	v, _ := c.r.readContext(ctx, observedBits)
	return v
}

// ReadMutableSource reads a snapshot of src and subscribes the component to
// its changes. It fails when the source changed during the current render.
func (c *RenderContext) ReadMutableSource(src MutableSource, getSnapshot func() any) (any, error) {
	if c.done {
		return nil, invariant("render context used after render")
	}
	return c.r.readMutableSource(c.fiber, src, getSnapshot)
}

// ExpirationTime is the expiration the current render is targeting.
func (c *RenderContext) ExpirationTime() ExpirationTime {
	return c.exp
}

// Key is the key of the rendering element.
func (c *RenderContext) Key() string {
	return c.fiber.Key
}

// render runs fn as the render of fiber. Panics become errors. The caller
// prepares the fiber for reading context.
func (r *Runtime) render(fiber *Fiber, exp ExpirationTime, fn func(ctx *RenderContext) (Node, error)) (children Node, err error) {
	ctx := &RenderContext{r: r, fiber: fiber, exp: exp}

	defer func() {
		ctx.done = true
		r.finishReadingContext()
	}()
	defer recoverInto(&err)

	children, err = fn(ctx)
	if err == nil {
		markStaleSubscriptions(fiber)
	}
	return children, err
}

// safely runs a lifecycle hook, converting a panic into an error.
func safely(fn func() error) (err error) {
	defer recoverInto(&err)
	return fn()
}

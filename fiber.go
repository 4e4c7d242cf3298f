// Package fiber is an incremental tree reconciler. Element trees rendered
// into a Root are diffed against the committed tree in units of work that
// can be paused, resumed, prioritized and abandoned, and the resulting
// mutations are applied to a HostConfig in one commit.
package fiber

import "github.com/AnatoleLucet/fiber/internal"

type (
	Runtime        = internal.Runtime
	Root           = internal.FiberRoot
	Option         = internal.Option
	HostConfig     = internal.HostConfig
	Node           = internal.Node
	Props          = internal.Props
	Element        = internal.Element
	ElementType    = internal.ElementType
	Ref            = internal.Ref
	RenderContext  = internal.RenderContext
	Component      = internal.Component
	ComponentBase  = internal.ComponentBase
	ClassType      = internal.ClassType
	FunctionType   = internal.FunctionType
	ErrorInfo      = internal.ErrorInfo
	StateUpdater   = internal.StateUpdater
	Priority       = internal.Priority
	ExpirationTime = internal.ExpirationTime
	Deadline       = internal.Deadline
	Clock          = internal.Clock
	ManualClock    = internal.ManualClock
	Wakeable       = internal.Wakeable
	Deferred       = internal.Deferred
	MutableSource  = internal.MutableSource
	Source         = internal.Source

	RenderError    = internal.RenderError
	InvariantError = internal.InvariantError
	PanicError     = internal.PanicError
	NotReadyError  = internal.NotReadyError
)

const (
	PriorityNormal      = internal.PriorityNormal
	PriorityInteractive = internal.PriorityInteractive
	PrioritySync        = internal.PrioritySync
	PriorityIdle        = internal.PriorityIdle

	NoWork = internal.NoWork
	Never  = internal.Never
	Sync   = internal.Sync
)

var (
	ErrNoSuspenseBoundary = internal.ErrNoSuspenseBoundary
	ErrMaxUpdateDepth     = internal.ErrMaxUpdateDepth
	ErrWrongGoroutine     = internal.ErrWrongGoroutine
	ErrNotMounted         = internal.ErrNotMounted
	ErrInvalidChild       = internal.ErrInvalidChild
	ErrInvalidElementType = internal.ErrInvalidElementType
)

var (
	WithLogger = internal.WithLogger
	WithConfig = internal.WithConfig
	WithClock  = internal.WithClock

	NewManualClock  = internal.NewManualClock
	NewUnitDeadline = internal.NewUnitDeadline
	NewSource       = internal.NewSource
	NewDeferred     = internal.NewDeferred
)

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

// New creates a runtime rendering into host. It must be driven from the
// calling goroutine.
func New(host HostConfig, opts ...Option) *Runtime {
	return internal.NewRuntime(host, opts...)
}

// H creates a host element such as a div.
func H(tag string, props Props, children ...Node) *Element {
	return internal.NewElement(internal.HostType(tag), props, children...)
}

// E creates an element of any type.
func E(typ ElementType, props Props, children ...Node) *Element {
	return internal.NewElement(typ, props, children...)
}

// Func declares a function component.
func Func(name string, render func(ctx *RenderContext, props Props) (Node, error)) *FunctionType {
	return &FunctionType{Name: name, Render: render}
}

// Class declares a class component built by construct.
func Class(name string, construct func(props Props) Component) *ClassType {
	return &ClassType{Name: name, New: construct}
}

// Fragment groups children without a host node.
func Fragment(props Props, children ...Node) *Element {
	return internal.NewElement(internal.Fragment, props, children...)
}

// Suspense shows fallback while something in children is suspended.
func Suspense(fallback Node, children ...Node) *Element {
	return internal.NewElement(internal.Suspense, Props{"fallback": fallback}, children...)
}

// Portal renders children into container.
func Portal(container any, children ...Node) *Element {
	return internal.NewElement(&internal.PortalType{Container: container}, nil, children...)
}

// StrictMode marks a subtree; it renders its children as is.
func StrictMode(children ...Node) *Element {
	return internal.NewElement(internal.ModeType{Mode: internal.StrictMode}, nil, children...)
}

// ConcurrentMode buckets the updates of a subtree by priority.
func ConcurrentMode(children ...Node) *Element {
	return internal.NewElement(internal.ModeType{Mode: internal.ConcurrentMode}, nil, children...)
}

// Profiler wraps children with an id; it renders them as is.
func Profiler(id string, children ...Node) *Element {
	return internal.NewElement(internal.ProfilerType{ID: id}, nil, children...)
}

// Suspend is returned by a render that waits on w.
func Suspend(w Wakeable) error {
	return internal.Suspend(w)
}

type Context[T any] struct {
	ctx *internal.Context
}

// NewContext creates a context whose consumers see defaultValue outside of
// any provider.
func NewContext[T any](defaultValue T) *Context[T] {
	return &Context[T]{internal.NewContext(defaultValue)}
}

// WithChangedBits sets how value changes map to the bits consumers observe.
func (c *Context[T]) WithChangedBits(fn func(prev, next T) uint32) *Context[T] {
	c.ctx.ChangedBits = func(prev, next any) uint32 {
		return fn(as[T](prev), as[T](next))
	}
	return c
}

// Provider provides value to children.
func (c *Context[T]) Provider(value T, children ...Node) *Element {
	return internal.NewElement(c.ctx.Provider, Props{"value": value}, children...)
}

// Consumer renders the result of render for the nearest provided value.
func (c *Context[T]) Consumer(render func(value T) Node) *Element {
	return internal.NewElement(c.ctx.Consumer, Props{"children": func(v any) Node {
		return render(as[T](v))
	}})
}

// Read returns the nearest provided value and subscribes the rendering
// component to it.
func (c *Context[T]) Read(ctx *RenderContext) T {
	return as[T](ctx.ReadContext(c.ctx))
}

// ReadBits subscribes only to the changes intersecting observedBits.
func (c *Context[T]) ReadBits(ctx *RenderContext, observedBits uint32) T {
	return as[T](ctx.ReadContextBits(c.ctx, observedBits))
}

// Raw is the untyped context, used as a ClassType.ContextType.
func (c *Context[T]) Raw() *internal.Context {
	return c.ctx
}

// ReadSource reads a snapshot of src during render.
func ReadSource[T any](ctx *RenderContext, src MutableSource, getSnapshot func() T) (T, error) {
	v, err := ctx.ReadMutableSource(src, func() any { return getSnapshot() })
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v), nil
}

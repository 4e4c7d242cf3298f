package internal

import (
	"math"

	"github.com/google/uuid"
)

// MaxBits observes every change of a context.
const MaxBits uint32 = math.MaxUint32

// Context is a value provided to a subtree. Its current value lives in the
// runtime while a render is in progress.
type Context struct {
	ID           string
	DefaultValue any

	// ChangedBits maps a value change to the bits consumers may observe.
	// nil reports MaxBits for any change.
	ChangedBits func(prev, next any) uint32

	Provider *ProviderType
	Consumer *ConsumerType
}

type ProviderType struct{ Context *Context }

type ConsumerType struct{ Context *Context }

func NewContext(defaultValue any) *Context {
	ctx := &Context{
		ID:           uuid.NewString(),
		DefaultValue: defaultValue,
	}
	ctx.Provider = &ProviderType{Context: ctx}
	ctx.Consumer = &ConsumerType{Context: ctx}
	return ctx
}

func (r *Runtime) pushProvider(fiber *Fiber, ctx *Context, value any) {
	prev, had := r.contextValues[ctx]
	r.stack.push(fiber, func() {
		if had {
			r.contextValues[ctx] = prev
		} else {
			delete(r.contextValues, ctx)
		}
	})

	r.contextValues[ctx] = value
}

func (r *Runtime) popProvider(fiber *Fiber) error {
	return r.stack.pop(fiber)
}

func (r *Runtime) contextValue(ctx *Context) any {
	if v, ok := r.contextValues[ctx]; ok {
		return v
	}
	return ctx.DefaultValue
}

func calculateChangedBits(ctx *Context, prev, next any) uint32 {
	if isEqual(prev, next) {
		return 0
	}
	if ctx.ChangedBits == nil {
		return MaxBits
	}
	return ctx.ChangedBits(prev, next)
}

// prepareToReadContext starts a fresh dependency list for fiber.
func (r *Runtime) prepareToReadContext(fiber *Fiber) {
	r.currentlyRendering = fiber
	fiber.clearDependencies()
}

func (r *Runtime) finishReadingContext() {
	r.currentlyRendering = nil
}

func (r *Runtime) readContext(ctx *Context, observedBits uint32) (any, error) {
	fiber := r.currentlyRendering
	if fiber == nil {
		return nil, invariant("context can only be read while rendering")
	}

	if observedBits != 0 {
		fiber.addDependency(&dependencyLink{context: ctx, observedBits: observedBits})
	}

	return r.contextValue(ctx), nil
}

// propagateContextChange marks every consumer below provider that observes
// changedBits and bubbles their expiration up to the root. It does not scan
// below a nested provider of the same context.
func (r *Runtime) propagateContextChange(provider *Fiber, ctx *Context, changedBits uint32, renderExp ExpirationTime) {
	fiber := provider.Child
	if fiber != nil {
		fiber.Return = provider
	}

	consumers := 0

	for fiber != nil {
		var next *Fiber

		for dep := range fiber.Dependencies() {
			if dep.context != ctx || dep.observedBits&changedBits == 0 {
				continue
			}

			consumers++
			if fiber.Kind == KindClass {
				enqueueUpdate(fiber, &Update{ExpirationTime: renderExp, Tag: ForceUpdate})
			}
			markPendingAt(fiber, renderExp)
			bubbleChildExpiration(fiber.Return, renderExp)
			break
		}

		if fiber.Kind != KindContextProvider || fiber.Type != provider.Type {
			next = fiber.Child
		}

		if next != nil {
			next.Return = fiber
		} else {
			next = fiber
			for next != nil {
				if next == provider {
					next = nil
					break
				}
				if sibling := next.Sibling; sibling != nil {
					sibling.Return = next.Return
					next = sibling
					break
				}
				next = next.Return
			}
		}

		fiber = next
	}

	r.log.Debug("context change propagated", "context", ctx.ID, "consumers", consumers, "expiration", renderExp)
}

// markPendingAt lowers the own expiration of fiber and its alternate.
func markPendingAt(fiber *Fiber, exp ExpirationTime) {
	if fiber.ExpirationTime > exp {
		fiber.ExpirationTime = exp
	}
	if alt := fiber.Alternate(); alt != nil && alt.ExpirationTime > exp {
		alt.ExpirationTime = exp
	}
}

// bubbleChildExpiration lowers ChildExpirationTime from node up to the root,
// stopping once both copies of an ancestor are already urgent enough.
func bubbleChildExpiration(node *Fiber, exp ExpirationTime) {
	for ; node != nil; node = node.Return {
		alt := node.Alternate()

		switch {
		case node.ChildExpirationTime > exp:
			node.ChildExpirationTime = exp
			if alt != nil && alt.ChildExpirationTime > exp {
				alt.ChildExpirationTime = exp
			}
		case alt != nil && alt.ChildExpirationTime > exp:
			alt.ChildExpirationTime = exp
		default:
			return
		}
	}
}

package internal

// beginWork renders wip and returns the next fiber to work on, or nil when
// wip has no child to descend into.
func (r *Runtime) beginWork(current, wip *Fiber, renderExp ExpirationTime) (*Fiber, error) {
	if current != nil && isEqual(current.MemoizedProps, wip.PendingProps) && !wip.ExpirationTime.IsPendingAt(renderExp) {
		// nothing to do on this fiber, only push what its subtree expects
		switch wip.Kind {
		case KindHostRoot:
			r.pushHostRootContext(wip)
		case KindHostComponent:
			r.pushHostContext(wip)
		case KindHostPortal:
			r.pushHostContainer(wip, wip.StateNode.(*portalState).container)
		case KindContextProvider:
			r.pushProvider(wip, wip.Type.(*ProviderType).Context, propsOf(wip.MemoizedProps)["value"])
		case KindSuspense:
			if next, handled, err := r.bailoutSuspenseComponent(current, wip, renderExp); handled {
				return next, err
			}
		}
		return r.bailoutOnAlreadyFinishedWork(current, wip, renderExp)
	}

	wip.ExpirationTime = NoWork

	switch wip.Kind {
	case KindFunction:
		return r.updateFunctionComponent(current, wip, wip.Type.(*FunctionType), renderExp)
	case KindClass:
		return r.updateClassComponent(current, wip, wip.Type.(*ClassType), renderExp)
	case KindHostRoot:
		return r.updateHostRoot(current, wip, renderExp)
	case KindHostComponent:
		return r.updateHostComponent(current, wip, renderExp)
	case KindHostText:
		return nil, nil
	case KindSuspense:
		return r.updateSuspenseComponent(current, wip, renderExp)
	case KindHostPortal:
		return r.updatePortalComponent(current, wip, renderExp)
	case KindFragment:
		return r.updateChildrenOf(current, wip, wip.PendingProps, renderExp)
	case KindMode, KindProfiler:
		return r.updateChildrenOf(current, wip, propsOf(wip.PendingProps).Children(), renderExp)
	case KindContextProvider:
		return r.updateContextProvider(current, wip, renderExp)
	case KindContextConsumer:
		return r.updateContextConsumer(current, wip, renderExp)
	}

	return nil, invariant("unknown fiber kind %s", wip.Kind)
}

// bailoutOnAlreadyFinishedWork skips wip. Its children are cloned when some
// of them have pending work, otherwise the whole subtree is skipped.
func (r *Runtime) bailoutOnAlreadyFinishedWork(current, wip *Fiber, renderExp ExpirationTime) (*Fiber, error) {
	if current != nil {
		wip.firstDependency = current.firstDependency
	}

	if !wip.ChildExpirationTime.IsPendingAt(renderExp) {
		return nil, nil
	}

	if err := r.cloneChildFibers(current, wip); err != nil {
		return nil, err
	}
	return wip.Child, nil
}

func (r *Runtime) cloneChildFibers(current, wip *Fiber) error {
	if current != nil && wip.Child != current.Child {
		return invariant("resuming work on %s is not supported", wip.Name())
	}
	if wip.Child == nil {
		return nil
	}

	currentChild := wip.Child
	newChild := r.store.createWorkInProgress(currentChild, currentChild.PendingProps)
	wip.Child = newChild
	newChild.Return = wip

	for currentChild.Sibling != nil {
		currentChild = currentChild.Sibling
		newChild.Sibling = r.store.createWorkInProgress(currentChild, currentChild.PendingProps)
		newChild = newChild.Sibling
		newChild.Return = wip
	}
	newChild.Sibling = nil
	return nil
}

func (r *Runtime) updateChildrenOf(current, wip *Fiber, nextChildren Node, renderExp ExpirationTime) (*Fiber, error) {
	if err := r.reconcileChildren(current, wip, nextChildren, renderExp); err != nil {
		return nil, err
	}
	return wip.Child, nil
}

func (r *Runtime) updateFunctionComponent(current, wip *Fiber, fn *FunctionType, renderExp ExpirationTime) (*Fiber, error) {
	if fn.Render == nil {
		return nil, invalidChild(fn)
	}

	props := propsOf(wip.PendingProps)

	r.prepareToReadContext(wip)
	nextChildren, err := r.render(wip, renderExp, func(ctx *RenderContext) (Node, error) {
		return fn.Render(ctx, props)
	})
	if err != nil {
		return nil, err
	}

	wip.Effect.Add(PerformedWork)
	return r.updateChildrenOf(current, wip, nextChildren, renderExp)
}

func (r *Runtime) updateHostRoot(current, wip *Fiber, renderExp ExpirationTime) (*Fiber, error) {
	r.pushHostRootContext(wip)

	queue := wip.UpdateQueue
	if queue == nil {
		return nil, invariant("host root %s has no update queue", wip.StateNode.(*FiberRoot).ID)
	}

	prevChildren := propsOf(wip.MemoizedState)["element"]
	if err := r.processUpdateQueue(wip, queue, nil, renderExp); err != nil {
		return nil, err
	}
	nextChildren := propsOf(wip.MemoizedState)["element"]

	if isEqual(prevChildren, nextChildren) {
		return r.bailoutOnAlreadyFinishedWork(current, wip, renderExp)
	}

	return r.updateChildrenOf(current, wip, nextChildren, renderExp)
}

func (r *Runtime) updateHostComponent(current, wip *Fiber, renderExp ExpirationTime) (*Fiber, error) {
	r.pushHostContext(wip)

	typ := string(wip.Type.(HostType))
	nextProps := propsOf(wip.PendingProps)

	var prevProps Props
	if current != nil {
		prevProps = propsOf(current.MemoizedProps)
	}

	nextChildren := nextProps.Children()
	if r.host.ShouldSetTextContent(typ, nextProps) {
		// the host renders the text itself
		nextChildren = nil
	} else if prevProps != nil && r.host.ShouldSetTextContent(typ, prevProps) {
		wip.Effect.Add(ContentReset)
	}

	markRef(current, wip)

	if renderExp != Never && wip.Mode.Has(ConcurrentMode) && r.host.ShouldDeprioritizeSubtree(typ, nextProps) {
		// rendered offscreen once nothing more urgent is left
		wip.ExpirationTime = Never
		wip.MemoizedProps = nextProps
		return nil, nil
	}

	return r.updateChildrenOf(current, wip, nextChildren, renderExp)
}

func (r *Runtime) updatePortalComponent(current, wip *Fiber, renderExp ExpirationTime) (*Fiber, error) {
	r.pushHostContainer(wip, wip.StateNode.(*portalState).container)

	nextChildren := wip.PendingProps
	if current == nil {
		// inserted into the portal container, so placements are tracked
		// even though the portal itself is new
		child, err := r.updateChildren.reconcile(wip, nil, nextChildren, renderExp)
		if err != nil {
			return nil, err
		}
		wip.Child = child
		return child, nil
	}

	return r.updateChildrenOf(current, wip, nextChildren, renderExp)
}

func (r *Runtime) updateContextProvider(current, wip *Fiber, renderExp ExpirationTime) (*Fiber, error) {
	ctx := wip.Type.(*ProviderType).Context

	newProps := propsOf(wip.PendingProps)
	oldProps := propsOf(wip.MemoizedProps)
	newValue := newProps["value"]

	r.pushProvider(wip, ctx, newValue)

	if oldProps != nil {
		changedBits := calculateChangedBits(ctx, oldProps["value"], newValue)
		if changedBits == 0 {
			if isEqual(oldProps.Children(), newProps.Children()) {
				return r.bailoutOnAlreadyFinishedWork(current, wip, renderExp)
			}
		} else {
			r.propagateContextChange(wip, ctx, changedBits, renderExp)
		}
	}

	return r.updateChildrenOf(current, wip, newProps.Children(), renderExp)
}

func (r *Runtime) updateContextConsumer(current, wip *Fiber, renderExp ExpirationTime) (*Fiber, error) {
	ctx := wip.Type.(*ConsumerType).Context
	newProps := propsOf(wip.PendingProps)

	observedBits := MaxBits
	if bits, ok := newProps["observedBits"].(uint32); ok {
		observedBits = bits
	}

	r.prepareToReadContext(wip)
	value, err := r.readContext(ctx, observedBits)
	if err != nil {
		return nil, err
	}

	nextChildren, err := r.render(wip, renderExp, func(*RenderContext) (Node, error) {
		switch fn := newProps.Children().(type) {
		case func(any) Node:
			return fn(value), nil
		case func(any) (Node, error):
			return fn(value)
		}
		return nil, invalidChild(newProps.Children())
	})
	if err != nil {
		return nil, err
	}

	wip.Effect.Add(PerformedWork)
	return r.updateChildrenOf(current, wip, nextChildren, renderExp)
}

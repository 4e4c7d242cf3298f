package internal

// commitError is the first error raised by user code while committing.
type commitError struct {
	start  *Fiber
	source *Fiber
	err    error
}

// commitRoot applies the effect list of finished to the host and makes it
// the current tree.
func (r *Runtime) commitRoot(root *FiberRoot, finished *Fiber, exp ExpirationTime) error {
	if root == r.lastCommittedRoot {
		r.nestedUpdateCount++
	} else {
		r.lastCommittedRoot = root
		r.nestedUpdateCount = 0
	}

	r.isWorking = true
	r.isCommitting = true

	r.nextRoot = nil
	r.wipRoot = nil
	r.nextUnitOfWork = nil
	r.nextRenderExpirationTime = NoWork

	// the root is the last entry of its own list
	first := finished.FirstEffect
	if finished.Effect.HasCommitEffect() {
		finished.NextEffect = nil
		if finished.LastEffect != nil {
			finished.LastEffect.NextEffect = finished
		} else {
			first = finished
		}
	}

	root.log.Debug("commit started", "expiration", exp)

	for e := first; e != nil; e = e.NextEffect {
		r.commitMutationEffect(e)
	}

	root.current = finished

	for e := first; e != nil; e = e.NextEffect {
		r.commitLifecycleEffect(e)
	}

	for e := first; e != nil; {
		next := e.NextEffect
		e.NextEffect = nil
		e = next
	}
	finished.FirstEffect = nil
	finished.LastEffect = nil

	for _, d := range r.deletions {
		r.store.releaseSubtree(d)
	}
	for _, o := range r.orphans {
		r.store.release(o)
	}
	r.deletions = r.deletions[:0]
	r.orphans = r.orphans[:0]

	r.store.commitPass()
	clear(r.sourceVersions)
	root.clearMutableSourcePending(exp)

	r.isWorking = false
	r.isCommitting = false

	remaining := min(finished.ExpirationTime, finished.ChildExpirationTime)
	root.expirationTime = remaining
	if remaining == NoWork {
		r.roots.Remove(root)
	} else {
		r.roots.Insert(root)
	}

	root.log.Debug("commit finished", "remaining", remaining, "live", r.store.Live())

	if remaining != NoWork && r.nestedUpdateCount > r.config.WorkLoop.MaxNestedUpdates {
		r.unschedule(root)
		return ErrMaxUpdateDepth
	}

	return r.routeCommitError(root)
}

func (r *Runtime) captureCommitError(start, source *Fiber, err error) {
	if r.commitErr != nil {
		r.log.Debug("commit error dropped", "component", source.Name(), "err", err)
		return
	}
	r.commitErr = &commitError{start: start, source: source, err: err}
}

// routeCommitError hands the first commit error to the nearest boundary
// still mounted, as a synchronous update. Without one it is returned.
func (r *Runtime) routeCommitError(root *FiberRoot) error {
	ce := r.commitErr
	r.commitErr = nil
	if ce == nil {
		return nil
	}

	captured := captureError(ce.source, ce.err)
	for node := ce.start; node != nil; node = node.Return {
		if node.Kind != KindClass || !r.canCatch(node) {
			continue
		}

		root.log.Debug("commit error captured", "component", ce.source.Name(), "boundary", node.Name(), "err", ce.err)
		enqueueUpdate(node, r.createClassErrorUpdate(node, captured, Sync))
		_, err := r.scheduleWork(node, Sync)
		return err
	}

	return &RenderError{Err: ce.err, ComponentStack: captured.stack}
}

func (r *Runtime) commitMutationEffect(e *Fiber) {
	if e.Effect.Has(ContentReset) {
		r.host.ResetTextContent(e.HostInstance())
	}

	if e.Effect.Has(RefEffect) {
		if current := e.Alternate(); current != nil {
			detachRef(current)
		}
	}

	switch e.Effect & (Placement | UpdateEffect | Deletion) {
	case Placement:
		r.commitPlacement(e)
		e.Effect.Remove(Placement)
	case Placement | UpdateEffect:
		r.commitPlacement(e)
		e.Effect.Remove(Placement)
		r.commitWork(e.Alternate(), e)
	case UpdateEffect:
		r.commitWork(e.Alternate(), e)
	case Deletion:
		r.commitDeletion(e)
	}
}

func (r *Runtime) commitLifecycleEffect(e *Fiber) {
	if e.Effect.Has(Deletion) {
		return
	}

	if e.Effect.Has(UpdateEffect | Callback) {
		r.commitLifeCycles(e.Alternate(), e)
	}
	if e.Effect.Has(RefEffect) {
		attachRef(e)
	}
	if e.Effect.Has(Subscription) {
		r.commitSubscriptions(e)
	}
}

func getHostParentFiber(f *Fiber) *Fiber {
	for parent := f.Return; parent != nil; parent = parent.Return {
		if parent.isHostParent() {
			return parent
		}
	}
	return nil
}

// hostParentOf returns the host node children of parent are inserted into.
func hostParentOf(parent *Fiber) (node any, isContainer bool) {
	switch parent.Kind {
	case KindHostComponent:
		return parent.HostInstance(), false
	case KindHostRoot:
		return parent.StateNode.(*FiberRoot).Container, true
	case KindHostPortal:
		return parent.StateNode.(*portalState).container, true
	}
	return nil, false
}

// getHostSibling finds the host node to insert before: the next host node in
// the same host parent that is not itself being placed.
func getHostSibling(f *Fiber) any {
	node := f

siblings:
	for {
		for node.Sibling == nil {
			if node.Return == nil || node.Return.isHostParent() {
				return nil
			}
			node = node.Return
		}
		node.Sibling.Return = node.Return
		node = node.Sibling

		for node.Kind != KindHostComponent && node.Kind != KindHostText {
			if node.Effect.Has(Placement) || node.Child == nil || node.Kind == KindHostPortal {
				continue siblings
			}
			node.Child.Return = node
			node = node.Child
		}

		if !node.Effect.Has(Placement) {
			return node.HostInstance()
		}
	}
}

func (r *Runtime) commitPlacement(finished *Fiber) {
	parentFiber := getHostParentFiber(finished)
	if parentFiber == nil {
		return
	}

	parent, isContainer := hostParentOf(parentFiber)
	if parentFiber.Effect.Has(ContentReset) {
		r.host.ResetTextContent(parent)
		parentFiber.Effect.Remove(ContentReset)
	}

	before := getHostSibling(finished)

	node := finished
	for {
		switch {
		case node.Kind == KindHostComponent || node.Kind == KindHostText:
			inst := node.HostInstance()
			switch {
			case before != nil && isContainer:
				r.host.InsertInContainerBefore(parent, inst, before)
			case before != nil:
				r.host.InsertBefore(parent, inst, before)
			case isContainer:
				r.host.AppendChildToContainer(parent, inst)
			default:
				r.host.AppendChild(parent, inst)
			}
		case node.Kind == KindHostPortal:
			// its children are placed into the portal container
		case node.Child != nil:
			node.Child.Return = node
			node = node.Child
			continue
		}

		if node == finished {
			return
		}
		for node.Sibling == nil {
			if node.Return == nil || node.Return == finished {
				return
			}
			node = node.Return
		}
		node.Sibling.Return = node.Return
		node = node.Sibling
	}
}

func (r *Runtime) commitWork(current, finished *Fiber) {
	switch finished.Kind {
	case KindHostComponent:
		inst := finished.HostInstance()
		payload := finished.updatePayload
		finished.updatePayload = nil
		if inst == nil || payload == nil {
			return
		}

		newProps := propsOf(finished.MemoizedProps)
		oldProps := newProps
		if current != nil {
			oldProps = propsOf(current.MemoizedProps)
		}
		r.host.CommitUpdate(inst, payload, string(finished.Type.(HostType)), oldProps, newProps)

	case KindHostText:
		newText, _ := finished.MemoizedProps.(string)
		oldText := newText
		if current != nil {
			oldText, _ = current.MemoizedProps.(string)
		}
		r.host.CommitTextUpdate(finished.HostInstance(), oldText, newText)

	case KindSuspense:
		r.commitSuspenseComponent(current, finished)
	}
}

// commitSuspenseComponent switches the host between the primary children
// and the fallback and repairs the return pointers of the children that
// moved between the boundary and its primary fragment.
func (r *Runtime) commitSuspenseComponent(current, finished *Fiber) {
	state := suspenseStateOf(finished)
	timedOut := state != nil && state.DidTimeout
	wasTimedOut := didTimeout(current)

	primaryParent := finished
	if timedOut {
		state.AlreadyCaptured = false
		if state.TimedOutAt == NoWork {
			state.TimedOutAt = r.requestCurrentTime()
		}

		primary := finished.Child
		primary.borrowed = false
		for child := primary.Child; child != nil; child = child.Sibling {
			child.Return = primary
			if alt := child.Alternate(); alt != nil {
				alt.Return = primary
			}
		}
		primaryParent = primary
	} else if wasTimedOut {
		for child := finished.Child; child != nil; child = child.Sibling {
			if alt := child.Alternate(); alt != nil {
				alt.Return = finished
			}
		}

		primary := current.Child
		r.orphans = append(r.orphans, primary, primary.Sibling)
	}

	if timedOut != wasTimedOut {
		r.hideOrUnhideAllChildren(primaryParent, timedOut)
	}
}

func (r *Runtime) commitDeletion(current *Fiber) {
	r.currentDeletion = current
	r.unmountHostComponents(current)
	r.currentDeletion = nil

	r.deletions = append(r.deletions, current)
}

// unmountHostComponents removes the top level host nodes of the deleted
// subtree from their host parent and unmounts everything below.
func (r *Runtime) unmountHostComponents(current *Fiber) {
	node := current

	var parent any
	var isContainer, parentValid bool

	for {
		if !parentValid {
			if p := getHostParentFiber(node); p != nil {
				parent, isContainer = hostParentOf(p)
			}
			parentValid = true
		}

		switch node.Kind {
		case KindHostComponent, KindHostText:
			r.commitNestedUnmounts(node)
			if isContainer {
				r.host.RemoveChildFromContainer(parent, node.HostInstance())
			} else {
				r.host.RemoveChild(parent, node.HostInstance())
			}

		case KindHostPortal:
			parent, isContainer = node.StateNode.(*portalState).container, true
			if node.Child != nil {
				node.Child.Return = node
				node = node.Child
				continue
			}

		default:
			r.commitUnmount(node)
			if node.Child != nil {
				node.Child.Return = node
				node = node.Child
				continue
			}
		}

		if node == current {
			return
		}
		for node.Sibling == nil {
			if node.Return == nil || node.Return == current {
				return
			}
			node = node.Return
			if node.Kind == KindHostPortal {
				// back out of the portal, look the parent up again
				parentValid = false
			}
		}
		node.Sibling.Return = node.Return
		node = node.Sibling
	}
}

// commitNestedUnmounts unmounts every fiber below root without touching the
// host tree, whose removal is done once at root.
func (r *Runtime) commitNestedUnmounts(root *Fiber) {
	node := root
	for {
		r.commitUnmount(node)

		if node.Child != nil && node.Kind != KindHostPortal {
			node.Child.Return = node
			node = node.Child
			continue
		}

		if node == root {
			return
		}
		for node.Sibling == nil {
			if node.Return == nil || node.Return == root {
				return
			}
			node = node.Return
		}
		node.Sibling.Return = node.Return
		node = node.Sibling
	}
}

func (r *Runtime) commitUnmount(current *Fiber) {
	switch current.Kind {
	case KindClass:
		detachRef(current)
		if hook, ok := current.Component().(UnmountHook); ok {
			if err := safely(hook.ComponentWillUnmount); err != nil {
				r.captureCommitError(r.currentDeletion.Return, current, err)
			}
		}
	case KindHostComponent:
		detachRef(current)
	case KindHostPortal:
		// a portal nested in a removed host node still owns host children
		// in its own container
		r.unmountHostComponents(current)
	}

	r.unsubscribeAll(current)
}

func (r *Runtime) commitLifeCycles(current, finished *Fiber) {
	switch finished.Kind {
	case KindClass:
		inst := finished.Component()

		if finished.Effect.Has(UpdateEffect) {
			var err error
			if current == nil {
				if hook, ok := inst.(MountHook); ok {
					err = safely(hook.ComponentDidMount)
				}
			} else if hook, ok := inst.(UpdateHook); ok {
				prevProps := propsOf(current.MemoizedProps)
				prevState := current.MemoizedState
				err = safely(func() error { return hook.ComponentDidUpdate(prevProps, prevState) })
			}
			if err != nil {
				r.captureCommitError(finished.Return, finished, err)
			}
		}

		b := inst.base()
		b.Props = propsOf(finished.MemoizedProps)
		b.State = finished.MemoizedState

		if q := finished.UpdateQueue; q != nil {
			r.commitUpdateQueue(finished, q)
		}

	case KindHostRoot:
		if q := finished.UpdateQueue; q != nil {
			r.commitUpdateQueue(finished, q)
		}

	case KindHostComponent:
		if current == nil && finished.Effect.Has(UpdateEffect) {
			r.host.CommitMount(finished.HostInstance(), string(finished.Type.(HostType)), propsOf(finished.MemoizedProps))
		}
	}
}

func attachRef(finished *Fiber) {
	if finished.Ref == nil {
		return
	}

	switch finished.Kind {
	case KindClass:
		finished.Ref.Current = finished.Component()
	default:
		finished.Ref.Current = finished.HostInstance()
	}
}

func detachRef(current *Fiber) {
	if current.Ref != nil {
		current.Ref.Current = nil
	}
}

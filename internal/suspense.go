package internal

import "sync"

// Wakeable is the handle a suspended render waits on. Then must call resolve
// once, possibly from another goroutine, when the data is ready. resolve is
// safe to call more than once.
type Wakeable interface {
	Then(resolve func())
}

// Suspend returns the error a render callback returns when its data is not
// ready yet.
func Suspend(w Wakeable) error {
	return &NotReadyError{Wakeable: w}
}

// Deferred is a Wakeable resolved by hand.
type Deferred struct {
	mu       sync.Mutex
	done     bool
	value    any
	handlers []func()
}

func NewDeferred() *Deferred {
	return &Deferred{}
}

func (d *Deferred) Then(resolve func()) {
	d.mu.Lock()
	if d.done {
		d.mu.Unlock()
		resolve()
		return
	}
	d.handlers = append(d.handlers, resolve)
	d.mu.Unlock()
}

// Resolve stores value and wakes every waiter. Later calls are ignored.
func (d *Deferred) Resolve(value any) {
	d.mu.Lock()
	if d.done {
		d.mu.Unlock()
		return
	}
	d.done = true
	d.value = value
	handlers := d.handlers
	d.handlers = nil
	d.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

// Value returns the resolved value, or Suspend(d) while it is pending.
func (d *Deferred) Value() (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.done {
		return nil, Suspend(d)
	}
	return d.value, nil
}

func (d *Deferred) Done() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// SuspenseState is the memoized state of a boundary. A nil state means the
// primary children are shown.
type SuspenseState struct {
	// AlreadyCaptured is set once something below suspended during the
	// render in progress.
	AlreadyCaptured bool
	DidTimeout      bool
	TimedOutAt      ExpirationTime
}

func suspenseStateOf(f *Fiber) *SuspenseState {
	if f == nil {
		return nil
	}
	s, _ := f.MemoizedState.(*SuspenseState)
	return s
}

func didTimeout(f *Fiber) bool {
	s := suspenseStateOf(f)
	return s != nil && s.DidTimeout
}

// suspenseChildren returns the children to render for the given visibility.
// A func(didTimeout bool) Node child is called as a render prop.
func suspenseChildren(props Props, timedOut bool) Node {
	if fn, ok := props.Children().(func(bool) Node); ok {
		return fn(timedOut)
	}
	if timedOut {
		return props["fallback"]
	}
	return props.Children()
}

// updateSuspenseComponent renders either the primary children or, once they
// suspended during this render, the fallback. While timed out both child sets
// are kept, each under its own fragment, and only the fallback is worked on.
func (r *Runtime) updateSuspenseComponent(current, wip *Fiber, renderExp ExpirationTime) (*Fiber, error) {
	mode := wip.Mode
	nextProps := propsOf(wip.PendingProps)

	nextState := suspenseStateOf(wip)
	timedOut := false

	if nextState != nil {
		if !nextState.AlreadyCaptured {
			// nothing suspended yet in this render, try the primary children
			nextState = nil
		} else {
			timedOut = true
			if current != nil && nextState == suspenseStateOf(current) {
				nextState = &SuspenseState{AlreadyCaptured: true, DidTimeout: true, TimedOutAt: nextState.TimedOutAt}
			} else {
				nextState.AlreadyCaptured = true
				nextState.DidTimeout = true
			}
		}
	}

	if timedOut {
		r.releaseAbandoned(current, wip)
	}

	nextChildren := suspenseChildren(nextProps, timedOut)

	var child, next *Fiber
	var err error

	switch {
	case current == nil && timedOut:
		primary := r.createFiberFromFragment(nil, mode, NoWork, "")
		fallback := r.createFiberFromFragment(nextChildren, mode, renderExp, "")
		primary.Sibling = fallback
		primary.Return, fallback.Return = wip, wip
		child, next = primary, fallback

	case current == nil:
		child, err = r.mountChildren.reconcile(wip, nil, nextChildren, renderExp)
		next = child

	case didTimeout(current):
		currentPrimary := current.Child
		currentFallback := currentPrimary.Sibling

		if timedOut {
			primary := r.store.createWorkInProgress(currentPrimary, currentPrimary.PendingProps)
			primary.ExpirationTime = NoWork
			primary.ChildExpirationTime = NoWork

			fallback := r.store.createWorkInProgress(currentFallback, nextChildren)
			fallback.Effect.Add(Placement)
			primary.Sibling = fallback
			fallback.Sibling = nil
			primary.Return, fallback.Return = wip, wip
			child, next = primary, fallback
			break
		}

		// back to the primary children, the fragments are dropped at commit
		child, err = r.updateChildren.reconcile(wip, currentPrimary.Child, nextChildren, renderExp)
		if err != nil {
			return nil, err
		}
		if _, err = r.updateChildren.reconcile(wip, currentFallback.Child, nil, renderExp); err != nil {
			return nil, err
		}
		next = child

	default:
		if timedOut {
			// the current children move under a fragment, their return
			// pointers are updated at commit
			primary := r.createFiberFromFragment(nil, mode, NoWork, "")
			primary.Child = current.Child
			primary.borrowed = true
			fallback := r.createFiberFromFragment(nextChildren, mode, renderExp, "")
			fallback.Effect.Add(Placement)
			primary.Sibling = fallback
			primary.Return, fallback.Return = wip, wip
			child, next = primary, fallback
			break
		}

		child, err = r.updateChildren.reconcile(wip, current.Child, nextChildren, renderExp)
		next = child
	}

	if err != nil {
		return nil, err
	}

	wip.MemoizedProps = nextProps
	wip.MemoizedState = nextState
	wip.Child = child
	return next, nil
}

// releaseAbandoned frees the fibers allocated by an attempt to render the
// primary children of wip that suspended.
func (r *Runtime) releaseAbandoned(current, wip *Fiber) {
	if wip.Child == nil || (current != nil && wip.Child == current.Child) {
		return
	}
	r.store.releaseAbandoned(wip.Child)
	wip.Child = nil
}

// bailoutSuspenseComponent handles a boundary whose own props and state did
// not change. A timed out boundary with pending work in its hidden children
// is rendered again so they get a chance to leave the fallback.
func (r *Runtime) bailoutSuspenseComponent(current, wip *Fiber, renderExp ExpirationTime) (*Fiber, bool, error) {
	if !didTimeout(wip) {
		return nil, false, nil
	}

	primary := wip.Child
	if primary != nil && primary.ChildExpirationTime.IsPendingAt(renderExp) {
		next, err := r.updateSuspenseComponent(current, wip, renderExp)
		return next, true, err
	}

	child, err := r.bailoutOnAlreadyFinishedWork(current, wip, renderExp)
	if err != nil || child == nil {
		return nil, true, err
	}

	// skip the hidden primary children
	return child.Sibling, true, nil
}

// hideOrUnhideAllChildren toggles the visibility of the top level host nodes
// below parent. Nested boundaries that timed out keep their primary children
// hidden.
func (r *Runtime) hideOrUnhideAllChildren(parent *Fiber, hide bool) {
	node := parent
	for {
		switch {
		case node.Kind == KindHostComponent:
			if hide {
				r.host.HideInstance(node.HostInstance())
			} else {
				r.host.UnhideInstance(node.HostInstance(), propsOf(node.MemoizedProps))
			}
		case node.Kind == KindHostText:
			if hide {
				r.host.HideTextInstance(node.HostInstance())
			} else {
				text, _ := node.MemoizedProps.(string)
				r.host.UnhideTextInstance(node.HostInstance(), text)
			}
		case node.Kind == KindSuspense && didTimeout(node) && node != parent:
			fallback := node.Child.Sibling
			fallback.Return = node
			node = fallback
			continue
		case node.Child != nil:
			node.Child.Return = node
			node = node.Child
			continue
		}

		if node == parent {
			return
		}
		for node.Sibling == nil {
			if node.Return == nil || node.Return == parent {
				return
			}
			node = node.Return
		}
		node.Sibling.Return = node.Return
		node = node.Sibling
	}
}

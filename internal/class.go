package internal

import "fmt"

// Component is a class component instance. Implementations embed
// ComponentBase.
type Component interface {
	Render(ctx *RenderContext) (Node, error)
	base() *ComponentBase
}

// Optional lifecycle hooks of a Component.
type (
	MountHook interface {
		ComponentDidMount() error
	}
	UpdateHook interface {
		ComponentDidUpdate(prevProps Props, prevState any) error
	}
	UnmountHook interface {
		ComponentWillUnmount() error
	}
	ShouldUpdateHook interface {
		ShouldComponentUpdate(nextProps Props, nextState any) bool
	}
	CatchHook interface {
		ComponentDidCatch(err error, info ErrorInfo)
	}
)

// ComponentBase holds the inputs of a class component as of its last render.
type ComponentBase struct {
	Props   Props
	State   any
	Context any

	updater *classUpdater
}

func (b *ComponentBase) base() *ComponentBase { return b }

// SetState enqueues a partial state, or a StateUpdater, merged into the
// current state. Callbacks run once the update is committed.
func (b *ComponentBase) SetState(update any, callbacks ...func()) error {
	if b.updater == nil {
		return ErrNotMounted
	}
	return b.updater.enqueue(UpdateState, update, callbacks)
}

// ReplaceState enqueues a state that replaces the current one.
func (b *ComponentBase) ReplaceState(state any, callbacks ...func()) error {
	if b.updater == nil {
		return ErrNotMounted
	}
	return b.updater.enqueue(ReplaceState, state, callbacks)
}

// ForceUpdate renders the component again even if ShouldComponentUpdate
// would skip it.
func (b *ComponentBase) ForceUpdate(callbacks ...func()) error {
	if b.updater == nil {
		return ErrNotMounted
	}
	return b.updater.enqueue(ForceUpdate, nil, callbacks)
}

type classUpdater struct {
	r      *Runtime
	handle fiberHandle
}

func (u *classUpdater) enqueue(tag UpdateTag, payload any, callbacks []func()) error {
	r := u.r
	if err := r.checkOwner(); err != nil {
		return err
	}

	fiber := u.handle.resolve()
	if fiber == nil {
		return ErrNotMounted
	}

	exp := r.computeExpirationForFiber(r.requestCurrentTime(), fiber)
	enqueueUpdate(fiber, &Update{
		ExpirationTime: exp,
		Tag:            tag,
		Payload:        payload,
		Callback:       joinCallbacks(callbacks),
	})

	if _, err := r.scheduleWork(fiber, exp); err != nil {
		return err
	}
	return r.takeError()
}

func joinCallbacks(callbacks []func()) func() {
	switch len(callbacks) {
	case 0:
		return nil
	case 1:
		return callbacks[0]
	}
	return func() {
		for _, cb := range callbacks {
			cb()
		}
	}
}

func (r *Runtime) adoptClassInstance(wip *Fiber, inst Component) {
	inst.base().updater = &classUpdater{r: r, handle: handleOf(wip)}
	wip.StateNode = &classState{component: inst}
}

func (r *Runtime) classContext(ctor *ClassType) (any, error) {
	if ctor.ContextType == nil {
		return nil, nil
	}
	return r.readContext(ctor.ContextType, MaxBits)
}

func (r *Runtime) constructClassInstance(wip *Fiber, ctor *ClassType, props Props) error {
	if ctor.New == nil {
		return fmt.Errorf("%w: class %s has no constructor", ErrInvalidElementType, wip.Name())
	}

	var inst Component
	err := safely(func() error {
		inst = ctor.New(props)
		return nil
	})
	if err != nil {
		return err
	}
	if inst == nil {
		return fmt.Errorf("%w: class %s constructed a nil component", ErrInvalidElementType, wip.Name())
	}

	b := inst.base()
	b.Props = props
	wip.MemoizedState = b.State
	r.adoptClassInstance(wip, inst)
	return nil
}

func (r *Runtime) applyDerivedStateFromProps(wip *Fiber, ctor *ClassType, nextProps Props) error {
	prev := wip.MemoizedState

	var partial any
	err := safely(func() error {
		partial = ctor.DerivedStateFromProps(nextProps, prev)
		return nil
	})
	if err != nil {
		return err
	}

	memoized := prev
	if partial != nil {
		memoized = mergeState(prev, partial)
	}
	wip.MemoizedState = memoized

	if queue := wip.UpdateQueue; queue != nil && wip.ExpirationTime == NoWork {
		queue.BaseState = memoized
	}
	return nil
}

func (r *Runtime) mountClassInstance(wip *Fiber, ctor *ClassType, props Props, renderExp ExpirationTime) error {
	inst := wip.Component()
	b := inst.base()

	context, err := r.classContext(ctor)
	if err != nil {
		return err
	}
	b.Props = props
	b.State = wip.MemoizedState
	b.Context = context

	if queue := wip.UpdateQueue; queue != nil {
		if err := r.processUpdateQueue(wip, queue, props, renderExp); err != nil {
			return err
		}
		b.State = wip.MemoizedState
	}

	if ctor.DerivedStateFromProps != nil {
		if err := r.applyDerivedStateFromProps(wip, ctor, props); err != nil {
			return err
		}
		b.State = wip.MemoizedState
	}

	if _, ok := inst.(MountHook); ok {
		wip.Effect.Add(UpdateEffect)
	}
	return nil
}

func checkShouldComponentUpdate(inst Component, newProps Props, newState any) (should bool, err error) {
	hook, ok := inst.(ShouldUpdateHook)
	if !ok {
		return true, nil
	}

	err = safely(func() error {
		should = hook.ShouldComponentUpdate(newProps, newState)
		return nil
	})
	return should, err
}

// resumeMountClassInstance renders an instance again before it ever
// committed, which happens to a boundary that captured an error on mount.
func (r *Runtime) resumeMountClassInstance(wip *Fiber, ctor *ClassType, renderExp ExpirationTime) (bool, error) {
	inst := wip.Component()
	b := inst.base()

	oldProps := propsOf(wip.MemoizedProps)
	newProps := propsOf(wip.PendingProps)
	b.Props = oldProps

	context, err := r.classContext(ctor)
	if err != nil {
		return false, err
	}

	oldState := wip.MemoizedState
	newState := oldState
	r.hasForceUpdate = false
	if queue := wip.UpdateQueue; queue != nil {
		if err := r.processUpdateQueue(wip, queue, newProps, renderExp); err != nil {
			return false, err
		}
		newState = wip.MemoizedState
	}

	_, mountHook := inst.(MountHook)

	if isEqual(oldProps, newProps) && isEqual(oldState, newState) && !r.hasForceUpdate {
		if mountHook {
			wip.Effect.Add(UpdateEffect)
		}
		return false, nil
	}

	if ctor.DerivedStateFromProps != nil {
		if err := r.applyDerivedStateFromProps(wip, ctor, newProps); err != nil {
			return false, err
		}
		newState = wip.MemoizedState
	}

	shouldUpdate := r.hasForceUpdate
	if !shouldUpdate {
		if shouldUpdate, err = checkShouldComponentUpdate(inst, newProps, newState); err != nil {
			return false, err
		}
	}

	if mountHook {
		wip.Effect.Add(UpdateEffect)
	}
	if !shouldUpdate {
		wip.MemoizedProps = newProps
		wip.MemoizedState = newState
	}

	b.Props = newProps
	b.State = newState
	b.Context = context
	return shouldUpdate, nil
}

func (r *Runtime) updateClassInstance(current, wip *Fiber, ctor *ClassType, renderExp ExpirationTime) (bool, error) {
	inst := wip.Component()
	b := inst.base()

	oldProps := propsOf(wip.MemoizedProps)
	newProps := propsOf(wip.PendingProps)
	b.Props = oldProps

	context, err := r.classContext(ctor)
	if err != nil {
		return false, err
	}

	oldState := wip.MemoizedState
	newState := oldState
	r.hasForceUpdate = false
	if queue := wip.UpdateQueue; queue != nil {
		if err := r.processUpdateQueue(wip, queue, newProps, renderExp); err != nil {
			return false, err
		}
		newState = wip.MemoizedState
	}

	_, updateHook := inst.(UpdateHook)
	changedSinceCommit := !isEqual(oldProps, current.MemoizedProps) || !isEqual(oldState, current.MemoizedState)

	if isEqual(oldProps, newProps) && isEqual(oldState, newState) && !r.hasForceUpdate {
		if updateHook && changedSinceCommit {
			wip.Effect.Add(UpdateEffect)
		}
		return false, nil
	}

	if ctor.DerivedStateFromProps != nil {
		if err := r.applyDerivedStateFromProps(wip, ctor, newProps); err != nil {
			return false, err
		}
		newState = wip.MemoizedState
	}

	shouldUpdate := r.hasForceUpdate
	if !shouldUpdate {
		if shouldUpdate, err = checkShouldComponentUpdate(inst, newProps, newState); err != nil {
			return false, err
		}
	}

	if shouldUpdate {
		if updateHook {
			wip.Effect.Add(UpdateEffect)
		}
	} else {
		if updateHook && changedSinceCommit {
			wip.Effect.Add(UpdateEffect)
		}
		// memoize even though the render is skipped
		wip.MemoizedProps = newProps
		wip.MemoizedState = newState
	}

	b.Props = newProps
	b.State = newState
	b.Context = context
	return shouldUpdate, nil
}

func (r *Runtime) updateClassComponent(current, wip *Fiber, ctor *ClassType, renderExp ExpirationTime) (*Fiber, error) {
	r.prepareToReadContext(wip)
	props := propsOf(wip.PendingProps)

	var shouldUpdate bool
	var err error

	switch {
	case wip.StateNode == nil:
		if err = r.constructClassInstance(wip, ctor, props); err != nil {
			return nil, err
		}
		if err = r.mountClassInstance(wip, ctor, props, renderExp); err != nil {
			return nil, err
		}
		shouldUpdate = true
	case current == nil:
		shouldUpdate, err = r.resumeMountClassInstance(wip, ctor, renderExp)
	default:
		shouldUpdate, err = r.updateClassInstance(current, wip, ctor, renderExp)
	}
	if err != nil {
		return nil, err
	}

	return r.finishClassComponent(current, wip, ctor, shouldUpdate, renderExp)
}

func (r *Runtime) finishClassComponent(current, wip *Fiber, ctor *ClassType, shouldUpdate bool, renderExp ExpirationTime) (*Fiber, error) {
	markRef(current, wip)

	didCaptureError := wip.Effect.Has(DidCapture)
	if !shouldUpdate && !didCaptureError {
		return r.bailoutOnAlreadyFinishedWork(current, wip, renderExp)
	}

	inst := wip.Component()

	var nextChildren Node
	if !didCaptureError || ctor.DerivedStateFromError != nil {
		var err error
		if nextChildren, err = r.render(wip, renderExp, inst.Render); err != nil {
			return nil, err
		}
	}
	// a boundary without DerivedStateFromError unmounts its children until
	// ComponentDidCatch schedules an update

	wip.Effect.Add(PerformedWork)

	var err error
	if current != nil && didCaptureError {
		err = r.forceUnmountCurrentAndReconcile(current, wip, nextChildren, renderExp)
	} else {
		err = r.reconcileChildren(current, wip, nextChildren, renderExp)
	}
	if err != nil {
		return nil, err
	}

	wip.MemoizedState = inst.base().State
	return wip.Child, nil
}

func markRef(current, wip *Fiber) {
	if (current == nil && wip.Ref != nil) || (current != nil && current.Ref != wip.Ref) {
		wip.Effect.Add(RefEffect)
	}
}

// capturedError is an error with the component stack of its source.
type capturedError struct {
	err   error
	stack string
}

func captureError(source *Fiber, err error) capturedError {
	return capturedError{err: err, stack: componentStack(source)}
}

// isErrorBoundary reports whether fiber can capture a render error now.
func (r *Runtime) isErrorBoundary(fiber *Fiber) bool {
	return fiber.Kind == KindClass && !fiber.Effect.Has(DidCapture) && r.canCatch(fiber)
}

// canCatch reports whether the class of fiber handles errors and has not
// already failed to recover through ComponentDidCatch alone.
func (r *Runtime) canCatch(fiber *Fiber) bool {
	ctor, _ := fiber.Type.(*ClassType)
	if ctor != nil && ctor.DerivedStateFromError != nil {
		return true
	}

	inst := fiber.Component()
	if _, ok := inst.(CatchHook); ok {
		_, failed := r.failedBoundaries[inst]
		return !failed
	}
	return false
}

// createClassErrorUpdate builds the update delivering captured to boundary.
func (r *Runtime) createClassErrorUpdate(boundary *Fiber, captured capturedError, exp ExpirationTime) *Update {
	update := &Update{ExpirationTime: exp, Tag: CaptureUpdate}

	ctor, _ := boundary.Type.(*ClassType)
	if ctor != nil && ctor.DerivedStateFromError != nil {
		update.Payload = StateUpdater(func(any, Props) any {
			return ctor.DerivedStateFromError(captured.err)
		})
	}

	inst := boundary.Component()
	if catcher, ok := inst.(CatchHook); ok {
		update.Callback = func() {
			if ctor == nil || ctor.DerivedStateFromError == nil {
				// it must recover through its own update from now on
				r.failedBoundaries[inst] = struct{}{}
			}
			catcher.ComponentDidCatch(captured.err, ErrorInfo{ComponentStack: captured.stack})
		}
	}

	return update
}

package internal

import (
	"errors"
	"fmt"
	"sync"
)

// maxTornRestarts bounds how often a render restarts after a mutable source
// changed under it.
const maxTornRestarts = 25

// scheduleWork records pending work at exp on fiber and its ancestors and
// asks for the root to be rendered. It returns nil when fiber is no longer
// attached to a root.
func (r *Runtime) scheduleWork(fiber *Fiber, exp ExpirationTime) (*FiberRoot, error) {
	root := scheduleWorkToRoot(fiber, exp)
	if root == nil {
		return nil, nil
	}

	if !r.isWorking && r.nextRenderExpirationTime != NoWork && exp < r.nextRenderExpirationTime {
		// more urgent than the render in progress
		r.log.Debug("render interrupted", "root", root.ID, "expiration", exp)
		r.resetStack()
	}

	root.markPending(exp)

	if r.nestedUpdateCount > r.config.WorkLoop.MaxNestedUpdates {
		return root, ErrMaxUpdateDepth
	}

	if !r.isWorking || r.isCommitting || r.nextRoot != root {
		r.requestWork(root)
	}
	return root, nil
}

func scheduleWorkToRoot(fiber *Fiber, exp ExpirationTime) *FiberRoot {
	markPendingAt(fiber, exp)

	if fiber.Return == nil {
		root, _ := fiber.StateNode.(*FiberRoot)
		return root
	}

	for node := fiber.Return; node != nil; node = node.Return {
		if node.ChildExpirationTime > exp {
			node.ChildExpirationTime = exp
		}
		if alt := node.Alternate(); alt != nil && alt.ChildExpirationTime > exp {
			alt.ChildExpirationTime = exp
		}

		if node.Return == nil {
			root, _ := node.StateNode.(*FiberRoot)
			return root
		}
	}

	return nil
}

func (r *Runtime) requestWork(root *FiberRoot) {
	r.roots.Insert(root)

	if r.isRendering {
		// picked up by the loop in progress
		return
	}
	if r.batcher.IsBatching() {
		r.batcher.Defer()
		return
	}

	if root.expirationTime == Sync {
		r.performSyncWork()
	}
}

func (r *Runtime) unschedule(root *FiberRoot) {
	root.expirationTime = NoWork
	r.roots.Remove(root)
}

func (r *Runtime) performSyncWork() {
	r.performWork(Sync, nil)
}

// performWork renders and commits roots, most urgent first, while their work
// is pending at minExp. Work that has not expired yields to deadline.
func (r *Runtime) performWork(minExp ExpirationTime, deadline Deadline) {
	if r.isRendering {
		return
	}

	r.isRendering = true
	r.deadlineDidExpire = false
	clear(r.failedBoundaries)

	defer func() {
		r.isRendering = false
		r.nestedUpdateCount = 0
		r.lastCommittedRoot = nil
	}()

	for {
		r.drainInbox()

		root := r.roots.Highest()
		if root == nil || !root.expirationTime.IsPendingAt(minExp) {
			return
		}

		exp := root.expirationTime
		expired := exp == Sync || exp.IsPendingAt(r.recomputeCurrentTime())

		if deadline != nil && r.deadlineDidExpire && !expired {
			return
		}

		var d Deadline
		if !expired {
			d = deadline
		}

		done, err := r.performWorkOnRoot(root, exp, d)
		if err != nil {
			r.errs = append(r.errs, err)
		}
		if !done {
			return
		}
	}
}

// performWorkOnRoot reports false when the render yielded before completing.
func (r *Runtime) performWorkOnRoot(root *FiberRoot, exp ExpirationTime, deadline Deadline) (bool, error) {
	finished, err := r.renderRoot(root, exp, deadline)
	if err != nil {
		return true, err
	}
	if finished == nil {
		return false, nil
	}

	return true, r.commitRoot(root, finished, r.nextRenderExpirationTime)
}

// renderRoot works on root until the tree is complete or deadline runs out,
// resuming the render in progress when it targets the same root and
// expiration.
func (r *Runtime) renderRoot(root *FiberRoot, exp ExpirationTime, deadline Deadline) (*Fiber, error) {
	r.isWorking = true
	defer func() { r.isWorking = false }()

	if root != r.nextRoot || exp != r.nextRenderExpirationTime || r.nextUnitOfWork == nil {
		r.resetStack()
		r.prepareFreshStack(root, exp)
	}

	for {
		err := r.workLoop(deadline)
		if err == nil {
			break
		}

		if errors.Is(err, errTornRead) && r.tornRestarts < maxTornRestarts {
			r.tornRestarts++

			// include every pending source update so the reads agree
			next := r.nextRenderExpirationTime
			if _, last := root.MutableSourcePending(); last != NoWork {
				next = max(next, last)
			}
			root.log.Debug("restarting torn render", "expiration", next, "attempt", r.tornRestarts)

			r.resetStack()
			r.prepareFreshStack(root, next)
			continue
		}

		if errors.Is(err, errTornRead) {
			err = fmt.Errorf("%w after %d restarts", err, r.tornRestarts)
		}
		return nil, r.abortRender(root, r.nextRenderExpirationTime, err)
	}

	if r.nextUnitOfWork != nil {
		return nil, nil
	}

	r.tornRestarts = 0
	finished := r.wipRoot
	if finished.Effect.Has(Incomplete) {
		return nil, r.abortRender(root, r.nextRenderExpirationTime, invariant("root completed with an uncaught error"))
	}
	return finished, nil
}

func (r *Runtime) prepareFreshStack(root *FiberRoot, exp ExpirationTime) {
	r.nextRoot = root
	r.nextRenderExpirationTime = exp
	r.wipRoot = r.store.createWorkInProgress(root.current, nil)
	r.nextUnitOfWork = r.wipRoot

	root.log.Debug("render started", "expiration", exp)
}

// resetStack abandons the render in progress.
func (r *Runtime) resetStack() {
	if r.nextRoot != nil {
		r.store.abortPass()
	}

	r.stack.reset()
	clear(r.contextValues)
	clear(r.sourceVersions)

	r.rootContainer = nil
	r.hostContext = nil
	r.currentlyRendering = nil

	r.nextRoot = nil
	r.wipRoot = nil
	r.nextUnitOfWork = nil
	r.nextRenderExpirationTime = NoWork
}

// abortRender drops the render in progress and the root updates it was
// rendering, so the failure is not retried on its own.
func (r *Runtime) abortRender(root *FiberRoot, exp ExpirationTime, err error) error {
	r.resetStack()
	r.tornRestarts = 0

	current := root.current
	if q := current.UpdateQueue; q != nil {
		q.dropThrough(exp)
	}
	if alt := current.Alternate(); alt != nil && alt.UpdateQueue != nil && alt.UpdateQueue != current.UpdateQueue {
		alt.UpdateQueue.dropThrough(exp)
	}
	r.unschedule(root)

	root.log.Debug("render aborted", "expiration", exp, "err", err)
	return err
}

func (r *Runtime) workLoop(deadline Deadline) error {
	for r.nextUnitOfWork != nil {
		unit := r.nextUnitOfWork

		next, err := r.performUnitOfWork(unit)
		if err != nil {
			if err := r.handleError(unit, err); err != nil {
				return err
			}
		} else {
			r.nextUnitOfWork = next
		}

		if deadline != nil && deadline.TimeRemaining() <= 0 {
			r.deadlineDidExpire = true
			return nil
		}
	}
	return nil
}

func (r *Runtime) performUnitOfWork(wip *Fiber) (*Fiber, error) {
	current := wip.Alternate()

	next, err := r.beginWork(current, wip, r.nextRenderExpirationTime)
	r.finishReadingContext()
	if err != nil {
		return nil, err
	}

	wip.MemoizedProps = wip.PendingProps
	if next == nil {
		return r.completeUnitOfWork(wip)
	}
	return next, nil
}

// completeUnitOfWork completes wip and its ancestors until one has a sibling
// left to begin. Incomplete fibers are unwound instead until a boundary
// takes over.
func (r *Runtime) completeUnitOfWork(wip *Fiber) (*Fiber, error) {
	renderExp := r.nextRenderExpirationTime

	for {
		current := wip.Alternate()
		ret := wip.Return
		sibling := wip.Sibling

		if !wip.Effect.Has(Incomplete) {
			if err := r.completeWork(current, wip, renderExp); err != nil {
				return nil, err
			}
			resetChildExpirationTime(wip, renderExp)
			spliceDeletions(wip)

			if ret != nil && !ret.Effect.Has(Incomplete) {
				appendEffects(ret, wip)
			}
		} else {
			next, err := r.unwindWork(current, wip)
			if err != nil {
				return nil, err
			}
			if next != nil {
				// render the boundary again in its capturing state
				next.Effect &= hostEffectMask
				return next, nil
			}

			if ret != nil {
				ret.FirstEffect = nil
				ret.LastEffect = nil
				ret.Deletions = nil
				ret.Effect.Add(Incomplete)
			}
		}

		if sibling != nil {
			return sibling, nil
		}
		if ret == nil {
			return nil, nil
		}
		wip = ret
	}
}

// unwindWork pops what wip pushed and returns wip when it captured the
// error being unwound.
func (r *Runtime) unwindWork(current, wip *Fiber) (*Fiber, error) {
	switch wip.Kind {
	case KindClass:
		if wip.Effect.Has(ShouldCapture) {
			wip.Effect.Replace(ShouldCapture, DidCapture)
			r.releaseAbandoned(current, wip)
			return wip, nil
		}

	case KindSuspense:
		if wip.Effect.Has(ShouldCapture) {
			wip.Effect.Remove(ShouldCapture)

			state := suspenseStateOf(wip)
			switch {
			case state == nil:
				state = &SuspenseState{AlreadyCaptured: true, TimedOutAt: NoWork}
			case current != nil && state == suspenseStateOf(current):
				state = &SuspenseState{AlreadyCaptured: true, DidTimeout: state.DidTimeout, TimedOutAt: state.TimedOutAt}
			default:
				state.AlreadyCaptured = true
			}
			wip.MemoizedState = state
			return wip, nil
		}

	case KindHostRoot, KindHostPortal:
		return nil, r.popHostContainer(wip)

	case KindHostComponent:
		return nil, r.popHostContext(wip)

	case KindContextProvider:
		return nil, r.popProvider(wip)
	}

	return nil, nil
}

// handleError routes an error returned while working on source. Errors
// captured by a boundary resume the loop at that boundary.
func (r *Runtime) handleError(source *Fiber, err error) error {
	if IsInvariant(err) || errors.Is(err, errTornRead) {
		return err
	}

	ret := source.Return
	if ret == nil {
		// the root itself failed
		return &RenderError{Err: err, ComponentStack: componentStack(source)}
	}

	if err := r.throwException(ret, source, err, r.nextRenderExpirationTime); err != nil {
		return err
	}

	next, err := r.completeUnitOfWork(source)
	if err != nil {
		return err
	}
	r.nextUnitOfWork = next
	return nil
}

// throwException marks source incomplete and finds the boundary that handles
// err: the nearest suspense boundary for a suspension, otherwise the nearest
// error boundary.
func (r *Runtime) throwException(ret, source *Fiber, err error, renderExp ExpirationTime) error {
	source.Effect.Add(Incomplete)
	source.FirstEffect = nil
	source.LastEffect = nil

	if notReady, ok := IsNotReady(err); ok {
		if notReady.Wakeable != nil {
			for node := ret; node != nil; node = node.Return {
				if node.Kind != KindSuspense {
					continue
				}
				if state := suspenseStateOf(node); state != nil && state.AlreadyCaptured {
					continue
				}

				r.attachPingListener(node, notReady.Wakeable)
				node.Effect.Add(ShouldCapture)
				node.ExpirationTime = renderExp

				r.log.Debug("suspended", "component", source.Name(), "boundary", node.Name())
				return nil
			}
		}

		err = fmt.Errorf("%w%s", ErrNoSuspenseBoundary, componentStack(source))
	}

	captured := captureError(source, err)
	for node := ret; node != nil; node = node.Return {
		if !r.isErrorBoundary(node) {
			continue
		}

		node.Effect.Add(ShouldCapture)
		node.ExpirationTime = renderExp
		enqueueCapturedUpdate(node, r.createClassErrorUpdate(node, captured, renderExp))

		r.log.Debug("error captured", "component", source.Name(), "boundary", node.Name(), "err", err)
		return nil
	}

	return &RenderError{Err: err, ComponentStack: captured.stack}
}

// attachPingListener retries boundary once wakeable resolves. The retry is
// handed to the owner goroutine through the inbox.
func (r *Runtime) attachPingListener(boundary *Fiber, wakeable Wakeable) {
	handle := handleOf(boundary)

	var once sync.Once
	wakeable.Then(func() {
		once.Do(func() {
			r.inbox.push(func() error { return r.retrySuspenseBoundary(handle) })
		})
	})
}

func (r *Runtime) retrySuspenseBoundary(handle fiberHandle) error {
	boundary := handle.resolve()
	if boundary == nil {
		return nil
	}

	exp := Sync
	if boundary.Mode.Has(ConcurrentMode) {
		exp = r.computeAsyncExpiration(r.requestCurrentTime())
	}

	root, err := r.scheduleWork(boundary, exp)
	if root != nil {
		root.log.Debug("suspense boundary retried", "expiration", exp)
	}
	return err
}

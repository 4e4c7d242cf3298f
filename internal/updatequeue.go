package internal

type UpdateTag uint8

const (
	UpdateState UpdateTag = iota
	ReplaceState
	ForceUpdate
	CaptureUpdate
)

// StateUpdater computes the next state from the previous one.
type StateUpdater func(prev any, props Props) any

type Update struct {
	ExpirationTime ExpirationTime
	Tag            UpdateTag
	// Payload is a StateUpdater or a partial state.
	Payload  any
	Callback func()
}

// UpdateQueue is an ordered list of pending state transitions folded over
// BaseState. The current and work in progress fibers share a queue until the
// work in progress copy processes it.
type UpdateQueue struct {
	BaseState any

	updates  []*Update
	captured []*Update

	// processed updates whose callbacks run at commit
	effects         []*Update
	capturedEffects []*Update
}

func newUpdateQueue(baseState any) *UpdateQueue {
	return &UpdateQueue{BaseState: baseState}
}

func (q *UpdateQueue) clone() *UpdateQueue {
	return &UpdateQueue{
		BaseState: q.BaseState,
		updates:   append([]*Update(nil), q.updates...),
	}
}

// Pending is the number of unprocessed updates.
func (q *UpdateQueue) Pending() int {
	return len(q.updates)
}

// enqueueUpdate appends update to the queues of fiber and its alternate.
func enqueueUpdate(fiber *Fiber, update *Update) {
	alt := fiber.Alternate()

	var q1, q2 *UpdateQueue
	if alt == nil {
		if fiber.UpdateQueue == nil {
			fiber.UpdateQueue = newUpdateQueue(fiber.MemoizedState)
		}
		q1 = fiber.UpdateQueue
	} else {
		q1, q2 = fiber.UpdateQueue, alt.UpdateQueue
		switch {
		case q1 == nil && q2 == nil:
			q1 = newUpdateQueue(fiber.MemoizedState)
			q2 = newUpdateQueue(alt.MemoizedState)
			fiber.UpdateQueue, alt.UpdateQueue = q1, q2
		case q1 == nil:
			q1 = q2.clone()
			fiber.UpdateQueue = q1
		case q2 == nil:
			q2 = q1.clone()
			alt.UpdateQueue = q2
		}
	}

	q1.updates = append(q1.updates, update)
	if q2 != nil && q2 != q1 {
		q2.updates = append(q2.updates, update)
	}
}

// enqueueCapturedUpdate adds an error recovery update to the work in progress
// queue only.
func enqueueCapturedUpdate(wip *Fiber, update *Update) {
	if wip.UpdateQueue == nil {
		wip.UpdateQueue = newUpdateQueue(wip.MemoizedState)
	}
	queue := ensureWorkInProgressQueueIsAClone(wip, wip.UpdateQueue)
	queue.captured = append(queue.captured, update)
}

func ensureWorkInProgressQueueIsAClone(wip *Fiber, queue *UpdateQueue) *UpdateQueue {
	if current := wip.Alternate(); current != nil && queue == current.UpdateQueue {
		queue = queue.clone()
		wip.UpdateQueue = queue
	}
	return queue
}

// processUpdateQueue applies every update pending at renderExp. Updates with
// insufficient priority are kept, together with every update after the first
// skipped one so the skipped update is later rebased on top of them.
func (r *Runtime) processUpdateQueue(wip *Fiber, queue *UpdateQueue, props Props, renderExp ExpirationTime) error {
	r.hasForceUpdate = false
	queue = ensureWorkInProgressQueueIsAClone(wip, queue)

	newBase := queue.BaseState
	result := newBase
	newExp := NoWork
	skipped := false

	var remaining []*Update
	for _, update := range queue.updates {
		if !update.ExpirationTime.IsPendingAt(renderExp) {
			if !skipped {
				skipped = true
				newBase = result
			}
			remaining = append(remaining, update)
			newExp = min(newExp, update.ExpirationTime)
			continue
		}

		next, err := r.getStateFromUpdate(wip, update, result, props)
		if err != nil {
			return err
		}
		result = next

		if update.Callback != nil {
			wip.Effect.Add(Callback)
			queue.effects = append(queue.effects, update)
		}

		if skipped {
			// already applied, replay it unconditionally after the skipped one
			remaining = append(remaining, &Update{ExpirationTime: Sync, Tag: update.Tag, Payload: update.Payload})
		}
	}

	var capturedRemaining []*Update
	for _, update := range queue.captured {
		if !update.ExpirationTime.IsPendingAt(renderExp) {
			capturedRemaining = append(capturedRemaining, update)
			newExp = min(newExp, update.ExpirationTime)
			continue
		}

		next, err := r.getStateFromUpdate(wip, update, result, props)
		if err != nil {
			return err
		}
		result = next

		if update.Callback != nil {
			wip.Effect.Add(Callback)
			queue.capturedEffects = append(queue.capturedEffects, update)
		}
	}

	if !skipped {
		newBase = result
	}

	queue.BaseState = newBase
	queue.updates = remaining
	queue.captured = capturedRemaining

	wip.ExpirationTime = newExp
	wip.MemoizedState = result
	return nil
}

func (r *Runtime) getStateFromUpdate(wip *Fiber, update *Update, prev any, props Props) (next any, err error) {
	defer recoverInto(&err)

	switch update.Tag {
	case ReplaceState:
		if fn, ok := asUpdater(update.Payload); ok {
			return fn(prev, props), nil
		}
		return update.Payload, nil

	case CaptureUpdate, UpdateState:
		if update.Tag == CaptureUpdate {
			wip.Effect.Replace(ShouldCapture, DidCapture)
		}

		partial := update.Payload
		if fn, ok := asUpdater(partial); ok {
			partial = fn(prev, props)
		}
		if partial == nil {
			return prev, nil
		}
		return mergeState(prev, partial), nil

	case ForceUpdate:
		r.hasForceUpdate = true
		return prev, nil
	}

	return prev, invariant("unknown update tag %d", update.Tag)
}

func asUpdater(payload any) (StateUpdater, bool) {
	switch fn := payload.(type) {
	case StateUpdater:
		return fn, true
	case func(prev any, props Props) any:
		return fn, true
	}
	return nil, false
}

// mergeState shallowly merges map states and replaces anything else.
func mergeState(prev, partial any) any {
	switch p := partial.(type) {
	case Props:
		if base, ok := prev.(Props); ok {
			out := make(Props, len(base)+len(p))
			for k, v := range base {
				out[k] = v
			}
			for k, v := range p {
				out[k] = v
			}
			return out
		}
	case map[string]any:
		if base, ok := prev.(map[string]any); ok {
			out := make(map[string]any, len(base)+len(p))
			for k, v := range base {
				out[k] = v
			}
			for k, v := range p {
				out[k] = v
			}
			return out
		}
	}
	return partial
}

// commitUpdateQueue runs the callbacks of the updates applied by the
// committed render.
func (r *Runtime) commitUpdateQueue(finished *Fiber, queue *UpdateQueue) {
	effects := append(queue.effects, queue.capturedEffects...)
	queue.effects = nil
	queue.capturedEffects = nil

	for _, update := range effects {
		if err := safely(func() error { update.Callback(); return nil }); err != nil {
			r.captureCommitError(finished.Return, finished, err)
		}
	}
}

// dropThrough discards every update included in a render at exp.
func (q *UpdateQueue) dropThrough(exp ExpirationTime) ExpirationTime {
	newExp := NoWork
	var kept []*Update
	for _, update := range q.updates {
		if update.ExpirationTime.IsPendingAt(exp) {
			continue
		}
		kept = append(kept, update)
		newExp = min(newExp, update.ExpirationTime)
	}
	q.updates = kept
	return newExp
}

package internal

import (
	"log/slog"

	"github.com/google/uuid"
)

// FiberRoot is the handle of one rendered tree and its host container.
type FiberRoot struct {
	ID        string
	Container any

	current *Fiber

	// most urgent pending work anywhere in the tree, NoWork when idle
	expirationTime ExpirationTime

	// range of pending mutable source updates
	mutableSourceFirstPending ExpirationTime
	mutableSourceLastPending  ExpirationTime

	r   *Runtime
	log *slog.Logger
}

// CreateRoot creates an empty tree rendering into container. Concurrent
// roots bucket their updates by priority, others render synchronously.
func (r *Runtime) CreateRoot(container any, concurrent bool) *FiberRoot {
	mode := NoMode
	if concurrent {
		mode = ConcurrentMode | StrictMode
	}

	root := &FiberRoot{
		ID:                        uuid.NewString(),
		Container:                 container,
		expirationTime:            NoWork,
		mutableSourceFirstPending: NoWork,
		mutableSourceLastPending:  NoWork,
		r:                         r,
	}
	root.log = r.log.With("root", root.ID)

	uninitialized := r.store.createHostRootFiber(mode)
	uninitialized.StateNode = root
	root.current = uninitialized

	return root
}

// Current is the committed host root fiber.
func (root *FiberRoot) Current() *Fiber {
	return root.current
}

// ExpirationTime is the most urgent pending work of the tree.
func (root *FiberRoot) ExpirationTime() ExpirationTime {
	return root.expirationTime
}

// Render schedules children as the new content of the root. On a synchronous
// root the work is performed before Render returns, unless called from a
// batch or from inside the runtime.
func (root *FiberRoot) Render(children Node, callback func()) error {
	r := root.r
	if err := r.checkOwner(); err != nil {
		return err
	}

	r.drainInbox()

	current := root.current
	exp := r.computeExpirationForFiber(r.requestCurrentTime(), current)

	update := &Update{
		ExpirationTime: exp,
		Tag:            UpdateState,
		Payload:        Props{"element": children},
		Callback:       callback,
	}
	enqueueUpdate(current, update)

	if _, err := r.scheduleWork(current, exp); err != nil {
		return err
	}

	return r.takeError()
}

// Unmount removes every child of the root.
func (root *FiberRoot) Unmount() error {
	return root.Render(nil, nil)
}

// markPending records exp as pending on the root.
func (root *FiberRoot) markPending(exp ExpirationTime) {
	root.expirationTime = min(root.expirationTime, exp)
}

func (root *FiberRoot) setMutableSourcePending(exp ExpirationTime) {
	if root.mutableSourceLastPending == NoWork {
		root.mutableSourceLastPending = exp
	} else {
		root.mutableSourceLastPending = max(root.mutableSourceLastPending, exp)
	}
	root.mutableSourceFirstPending = min(root.mutableSourceFirstPending, exp)
}

// clearMutableSourcePending forgets the source updates serviced by a commit
// at exp.
func (root *FiberRoot) clearMutableSourcePending(exp ExpirationTime) {
	switch {
	case root.mutableSourceLastPending == NoWork:
	case root.mutableSourceLastPending.IsPendingAt(exp):
		root.mutableSourceFirstPending = NoWork
		root.mutableSourceLastPending = NoWork
	case root.mutableSourceFirstPending.IsPendingAt(exp):
		root.mutableSourceFirstPending = root.mutableSourceLastPending
	}
}

// MutableSourcePending returns the pending range of mutable source updates.
func (root *FiberRoot) MutableSourcePending() (first, last ExpirationTime) {
	return root.mutableSourceFirstPending, root.mutableSourceLastPending
}

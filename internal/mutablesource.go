package internal

import (
	"sync"
)

// MutableSource is external data read during render. Version must change
// whenever the data does. Implementations must be comparable, typically a
// pointer.
type MutableSource interface {
	Version() any
	// Subscribe registers onChange and returns its unsubscribe function.
	// onChange may be called from any goroutine.
	Subscribe(onChange func()) (unsubscribe func())
}

// Source is a concurrency safe MutableSource holding a single value.
type Source struct {
	mu sync.Mutex

	value   any
	version uint64

	subs   map[int]func()
	nextID int
}

func NewSource(initial any) *Source {
	return &Source{
		value: initial,
		subs:  make(map[int]func()),
	}
}

func (s *Source) Get() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *Source) Version() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Set stores v and notifies subscribers when it differs from the current
// value.
func (s *Source) Set(v any) {
	s.mu.Lock()
	if isEqual(s.value, v) {
		s.mu.Unlock()
		return
	}

	s.value = v
	s.version++

	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

func (s *Source) Subscribe(onChange func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = onChange

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Subscribers is the number of live subscriptions.
func (s *Source) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// subscriptionSet is shared by both copies of a fiber. It holds the
// subscriptions made at commit and the versions that were committed.
type subscriptionSet struct {
	unsubscribe map[MutableSource]func()
	committed   map[MutableSource]any
}

func (f *Fiber) ensureSubscriptions() *subscriptionSet {
	if f.subscriptions == nil {
		f.subscriptions = &subscriptionSet{
			unsubscribe: make(map[MutableSource]func()),
			committed:   make(map[MutableSource]any),
		}
		if alt := f.Alternate(); alt != nil {
			alt.subscriptions = f.subscriptions
		}
	}
	return f.subscriptions
}

// readMutableSource returns a snapshot of src for the fiber being rendered.
// Every read of src within one render must observe the same version, and a
// source with pending updates not included in this render cannot be read.
func (r *Runtime) readMutableSource(fiber *Fiber, src MutableSource, getSnapshot func() any) (snapshot any, err error) {
	version := src.Version()

	if seen, ok := r.sourceVersions[src]; ok {
		if !isEqual(seen, version) {
			return nil, errTornRead
		}
	} else {
		if root := r.nextRoot; root != nil {
			last := root.mutableSourceLastPending
			if last != NoWork && !last.IsPendingAt(r.nextRenderExpirationTime) {
				return nil, errTornRead
			}
		}
		r.sourceVersions[src] = version
	}

	snapshot, err = callSnapshot(getSnapshot)
	if err != nil {
		return nil, err
	}

	fiber.addDependency(&dependencyLink{source: src, version: version})

	if set := fiber.subscriptions; set == nil || set.unsubscribe[src] == nil || !isEqual(set.committed[src], version) {
		fiber.Effect.Add(Subscription)
	}

	return snapshot, nil
}

func callSnapshot(getSnapshot func() any) (v any, err error) {
	defer recoverInto(&err)
	return getSnapshot(), nil
}

// commitSubscriptions subscribes the finished fiber to the sources it read
// and drops the ones it no longer reads.
func (r *Runtime) commitSubscriptions(finished *Fiber) {
	set := finished.ensureSubscriptions()
	handle := handleOf(finished)

	read := make(map[MutableSource]bool)
	for dep := range finished.Dependencies() {
		if dep.source == nil {
			continue
		}
		src := dep.source
		read[src] = true
		set.committed[src] = dep.version

		if set.unsubscribe[src] != nil {
			continue
		}

		set.unsubscribe[src] = src.Subscribe(func() {
			r.inbox.push(func() error { return r.onSourceChange(handle, src) })
		})
	}

	for src, unsubscribe := range set.unsubscribe {
		if !read[src] {
			unsubscribe()
			delete(set.unsubscribe, src)
			delete(set.committed, src)
		}
	}
}

// markStaleSubscriptions requests a Subscription effect when the fiber holds
// a subscription to a source it did not read this time.
func markStaleSubscriptions(fiber *Fiber) {
	set := fiber.subscriptions
	if set == nil || len(set.unsubscribe) == 0 || fiber.Effect.Has(Subscription) {
		return
	}

	read := 0
	for dep := range fiber.Dependencies() {
		if dep.source != nil && set.unsubscribe[dep.source] != nil {
			read++
		}
	}
	if read < len(set.unsubscribe) {
		fiber.Effect.Add(Subscription)
	}
}

// unsubscribeAll runs when a fiber is unmounted.
func (r *Runtime) unsubscribeAll(f *Fiber) {
	set := f.subscriptions
	if set == nil {
		return
	}

	for src, unsubscribe := range set.unsubscribe {
		unsubscribe()
		delete(set.unsubscribe, src)
	}
}

// onSourceChange runs on the owner goroutine after a subscribed source
// reported a change.
func (r *Runtime) onSourceChange(handle fiberHandle, src MutableSource) error {
	fiber := handle.resolve()
	if fiber == nil || fiber.subscriptions == nil || fiber.subscriptions.unsubscribe[src] == nil {
		return nil
	}

	if isEqual(fiber.subscriptions.committed[src], src.Version()) {
		return nil
	}

	exp := r.computeExpirationForFiber(r.requestCurrentTime(), fiber)
	root, err := r.scheduleWork(fiber, exp)
	if root != nil {
		root.setMutableSourcePending(exp)
	}
	return err
}

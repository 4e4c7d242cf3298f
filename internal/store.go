package internal

const chunkSize = 256

// fiberPair holds the two slots of one logical node. gen is bumped every time
// the pair is released so stale handles can be detected.
type fiberPair struct {
	slots [2]Fiber
	gen   uint32
}

// Store is an arena of fiber pairs. Chunks are never grown in place so slot
// addresses stay stable for the lifetime of the store.
type Store struct {
	chunks [][]fiberPair
	next   int

	free []*fiberPair

	// pairs allocated by the render pass in progress, released if it is
	// abandoned
	fresh []*fiberPair

	live int
}

func NewStore() *Store {
	return &Store{}
}

// Live is the number of logical nodes currently allocated.
func (s *Store) Live() int {
	return s.live
}

func (s *Store) alloc(track bool) *Fiber {
	var p *fiberPair

	if n := len(s.free); n > 0 {
		p = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		if len(s.chunks) == 0 || s.next == chunkSize {
			s.chunks = append(s.chunks, make([]fiberPair, chunkSize))
			s.next = 0
		}
		p = &s.chunks[len(s.chunks)-1][s.next]
		s.next++
	}

	if track {
		s.fresh = append(s.fresh, p)
	}
	s.live++

	p.slots[0] = Fiber{pair: p, side: 0, inUse: true}
	p.slots[1] = Fiber{pair: p, side: 1}

	return &p.slots[0]
}

func (s *Store) createFiber(kind Kind, pendingProps any, key string, mode Mode) *Fiber {
	f := s.alloc(true)
	f.Kind = kind
	f.Key = key
	f.Mode = mode
	f.PendingProps = pendingProps
	f.ExpirationTime = NoWork
	f.ChildExpirationTime = NoWork
	return f
}

func (s *Store) createHostRootFiber(mode Mode) *Fiber {
	f := s.alloc(false)
	f.Kind = KindHostRoot
	f.Mode = mode
	f.ExpirationTime = NoWork
	f.ChildExpirationTime = NoWork
	return f
}

// createWorkInProgress returns the alternate slot of current, initialized
// from current. The slot is reused when it was already in use.
func (s *Store) createWorkInProgress(current *Fiber, pendingProps any) *Fiber {
	p := current.pair
	wip := &p.slots[1-current.side]

	if !wip.inUse {
		*wip = Fiber{pair: p, side: 1 - current.side, inUse: true}
		wip.Kind = current.Kind
		wip.Key = current.Key
		wip.Type = current.Type
		wip.StateNode = current.StateNode
		wip.Mode = current.Mode
	} else {
		wip.resetEffects()
		wip.updatePayload = nil
	}

	wip.PendingProps = pendingProps
	wip.ExpirationTime = current.ExpirationTime
	wip.ChildExpirationTime = current.ChildExpirationTime

	wip.Child = current.Child
	wip.MemoizedProps = current.MemoizedProps
	wip.MemoizedState = current.MemoizedState
	wip.UpdateQueue = current.UpdateQueue
	wip.firstDependency = current.firstDependency
	wip.subscriptions = current.subscriptions

	wip.Sibling = current.Sibling
	wip.Index = current.Index
	wip.Ref = current.Ref

	return wip
}

// release returns the pair owning f to the free list.
func (s *Store) release(f *Fiber) {
	p := f.pair
	if p == nil || (!p.slots[0].inUse && !p.slots[1].inUse) {
		return
	}

	p.gen++
	p.slots[0] = Fiber{}
	p.slots[1] = Fiber{}
	s.free = append(s.free, p)
	s.live--
}

// releaseSubtree releases f and everything below it.
func (s *Store) releaseSubtree(f *Fiber) {
	var pending []*Fiber
	for child := f.Child; child != nil; child = child.Sibling {
		pending = append(pending, child)
	}

	for len(pending) > 0 {
		n := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		for child := n.Child; child != nil; child = child.Sibling {
			pending = append(pending, child)
		}
		s.release(n)
	}

	s.release(f)
}

// releaseAbandoned releases the fibers created by a render attempt that was
// thrown away. Clones of committed fibers are kept since they remain the
// alternate of their node.
func (s *Store) releaseAbandoned(first *Fiber) {
	for f := first; f != nil; {
		next := f.Sibling

		alt := f.Alternate()
		switch {
		case alt == nil && f.borrowed:
			s.release(f)
		case alt == nil:
			s.releaseSubtree(f)
		case f.Child != nil && f.Child != alt.Child:
			s.releaseAbandoned(f.Child)
		}

		f = next
	}
}

// commitPass forgets the fresh pairs of a committed render.
func (s *Store) commitPass() {
	s.fresh = s.fresh[:0]
}

// abortPass releases every pair allocated by an abandoned render.
func (s *Store) abortPass() {
	for i := len(s.fresh) - 1; i >= 0; i-- {
		s.release(&s.fresh[i].slots[0])
	}
	s.fresh = s.fresh[:0]
}

// fiberHandle refers to a logical node without keeping its slot alive.
type fiberHandle struct {
	pair *fiberPair
	gen  uint32
}

func handleOf(f *Fiber) fiberHandle {
	return fiberHandle{pair: f.pair, gen: f.pair.gen}
}

// resolve returns a live slot of the node, or nil once it was released.
func (h fiberHandle) resolve() *Fiber {
	if h.pair == nil || h.pair.gen != h.gen {
		return nil
	}

	for i := range h.pair.slots {
		if h.pair.slots[i].inUse {
			return &h.pair.slots[i]
		}
	}

	return nil
}

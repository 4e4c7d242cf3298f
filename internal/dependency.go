package internal

import "iter"

// dependencyLink is one entry of the ordered list of contexts and mutable
// sources a fiber read during its last render.
type dependencyLink struct {
	context      *Context
	observedBits uint32

	source  MutableSource
	version any

	prev *dependencyLink
	next *dependencyLink
}

func (f *Fiber) addDependency(link *dependencyLink) {
	if f.firstDependency == nil {
		f.firstDependency = link
		link.prev = link // loop to self
		link.next = nil
		return
	}

	head := f.firstDependency
	tail := head.prev

	// dont link if already present as the most recent dependency
	if tail.context != nil && tail.context == link.context {
		tail.observedBits |= link.observedBits
		return
	}

	tail.next = link
	link.prev = tail
	link.next = nil
	head.prev = link
}

// Dependencies iterates what the fiber read during its last render.
func (f *Fiber) Dependencies() iter.Seq[*dependencyLink] {
	return func(yield func(*dependencyLink) bool) {
		for link := f.firstDependency; link != nil; link = link.next {
			if !yield(link) {
				return
			}
		}
	}
}

func (f *Fiber) clearDependencies() {
	f.firstDependency = nil
}

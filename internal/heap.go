package internal

import "iter"

// RootQueue holds the roots with pending work, in scheduling order. Entries
// form an intrusive list whose head.prev points at the tail.
type RootQueue struct {
	head *queueEntry

	lookup map[*FiberRoot]*queueEntry // for O(1) removal
}

type queueEntry struct {
	root *FiberRoot

	next *queueEntry
	prev *queueEntry
}

func NewRootQueue() *RootQueue {
	return &RootQueue{
		lookup: make(map[*FiberRoot]*queueEntry),
	}
}

// Insert appends root unless it is already scheduled.
func (q *RootQueue) Insert(root *FiberRoot) {
	if _, ok := q.lookup[root]; ok {
		return
	}

	entry := &queueEntry{root: root}
	q.lookup[root] = entry

	if q.head == nil {
		q.head = entry
		entry.prev = entry // loop to self
		entry.next = nil
		return
	}

	tail := q.head.prev
	tail.next = entry
	entry.prev = tail
	entry.next = nil
	q.head.prev = entry
}

func (q *RootQueue) Remove(root *FiberRoot) {
	entry, ok := q.lookup[root]
	if !ok {
		return
	}
	delete(q.lookup, root)

	// single entry
	if entry.prev == entry {
		q.head = nil
		return
	}

	head := q.head
	if entry == head {
		q.head = entry.next
	} else {
		entry.prev.next = entry.next
	}

	next := entry.next
	if next == nil {
		next = q.head
	}
	next.prev = entry.prev

	entry.prev = entry
	entry.next = nil
}

func (q *RootQueue) Has(root *FiberRoot) bool {
	_, ok := q.lookup[root]
	return ok
}

func (q *RootQueue) Len() int {
	return len(q.lookup)
}

// All iterates the scheduled roots in insertion order.
func (q *RootQueue) All() iter.Seq[*FiberRoot] {
	return func(yield func(*FiberRoot) bool) {
		for entry := q.head; entry != nil; {
			next := entry.next
			if !yield(entry.root) {
				return
			}
			entry = next
		}
	}
}

// Highest drops the roots without remaining work and returns the most urgent
// of the others, the earliest scheduled one on ties.
func (q *RootQueue) Highest() *FiberRoot {
	var best *FiberRoot

	for root := range q.All() {
		if root.expirationTime == NoWork {
			q.Remove(root)
			continue
		}
		if best == nil || root.expirationTime < best.expirationTime {
			best = root
		}
	}

	return best
}

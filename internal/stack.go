package internal

type stackEntry struct {
	fiber   *Fiber
	restore func()
}

// valueStack records the values pushed by fibers on the way down so they can
// be restored on the way up, in completion or unwinding order.
type valueStack struct {
	entries []stackEntry
}

func (s *valueStack) push(fiber *Fiber, restore func()) {
	s.entries = append(s.entries, stackEntry{fiber: fiber, restore: restore})
}

func (s *valueStack) pop(fiber *Fiber) error {
	n := len(s.entries)
	if n == 0 {
		return invariant("unexpected pop for %s", fiber.Kind)
	}

	e := s.entries[n-1]
	if e.fiber != fiber {
		return invariant("unexpected pop for %s, top belongs to %s", fiber.Kind, e.fiber.Kind)
	}

	s.entries = s.entries[:n-1]
	e.restore()
	return nil
}

// reset unwinds every entry, used when a render is abandoned.
func (s *valueStack) reset() {
	for i := len(s.entries) - 1; i >= 0; i-- {
		s.entries[i].restore()
	}
	s.entries = s.entries[:0]
}

func (s *valueStack) len() int {
	return len(s.entries)
}

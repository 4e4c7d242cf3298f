package internal

import "sync"

// Inbox collects work handed to the runtime from other goroutines, such as
// suspense retries and mutable source changes. It is drained by the owner
// goroutine at the start of every entry point.
type Inbox struct {
	mu    sync.Mutex
	tasks []func() error

	notify chan struct{}
}

func NewInbox() *Inbox {
	return &Inbox{
		tasks:  make([]func() error, 0),
		notify: make(chan struct{}, 1),
	}
}

func (q *Inbox) push(task func() error) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Inbox) take() []func() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks := q.tasks
	q.tasks = make([]func() error, 0)
	return tasks
}

func (q *Inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Ready is signalled after work was pushed.
func (q *Inbox) Ready() <-chan struct{} {
	return q.notify
}

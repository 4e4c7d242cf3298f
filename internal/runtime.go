package internal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/AnatoleLucet/fiber/internal/config"
)

// Runtime owns the fiber store and every root rendered through it. It must
// be driven from the goroutine that created it; other goroutines hand work
// over through the inbox.
type Runtime struct {
	host   HostConfig
	store  *Store
	config config.Config
	log    *slog.Logger
	clock  Clock
	owner  int64

	inbox   *Inbox
	roots   *RootQueue
	batcher *Batcher

	mountChildren  *childReconciler
	updateChildren *childReconciler

	// render phase
	stack              valueStack
	contextValues      map[*Context]any
	rootContainer      any
	hostContext        any
	currentlyRendering *Fiber
	hasForceUpdate     bool
	sourceVersions     map[MutableSource]any

	nextRoot                 *FiberRoot
	wipRoot                  *Fiber
	nextUnitOfWork           *Fiber
	nextRenderExpirationTime ExpirationTime
	tornRestarts             int

	isWorking         bool
	isCommitting      bool
	isRendering       bool
	deadlineDidExpire bool

	priority             Priority
	currentSchedulerTime ExpirationTime

	nestedUpdateCount int
	lastCommittedRoot *FiberRoot
	failedBoundaries  map[Component]struct{}

	// commit phase
	deletions       []*Fiber
	orphans         []*Fiber
	currentDeletion *Fiber
	commitErr       *commitError

	errs []error
}

type Option func(*Runtime)

func WithLogger(log *slog.Logger) Option {
	return func(r *Runtime) { r.log = log }
}

func WithConfig(cfg config.Config) Option {
	return func(r *Runtime) { r.config = cfg }
}

func WithClock(clock Clock) Option {
	return func(r *Runtime) { r.clock = clock }
}

func NewRuntime(host HostConfig, opts ...Option) *Runtime {
	r := &Runtime{
		host:   host,
		store:  NewStore(),
		config: config.Default(),
		log:    slog.New(slog.DiscardHandler),
		clock:  NewRealClock(),
		owner:  currentGoroutine(),

		inbox:   NewInbox(),
		roots:   NewRootQueue(),
		batcher: NewBatcher(),

		contextValues:    make(map[*Context]any),
		sourceVersions:   make(map[MutableSource]any),
		failedBoundaries: make(map[Component]struct{}),

		nextRenderExpirationTime: NoWork,
		currentSchedulerTime:     NoWork,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.mountChildren = &childReconciler{r: r, trackSideEffects: false}
	r.updateChildren = &childReconciler{r: r, trackSideEffects: true}
	r.currentSchedulerTime = r.recomputeCurrentTime()

	return r
}

func (r *Runtime) Store() *Store {
	return r.store
}

func (r *Runtime) Logger() *slog.Logger {
	return r.log
}

// Inbox is where other goroutines hand work to the runtime.
func (r *Runtime) Inbox() *Inbox {
	return r.inbox
}

func (r *Runtime) checkOwner() error {
	if currentGoroutine() != r.owner {
		return ErrWrongGoroutine
	}
	return nil
}

// takeError returns the errors collected since the last call, once control
// is about to return to the caller of an entry point.
func (r *Runtime) takeError() error {
	if r.isRendering || r.batcher.IsBatching() {
		return nil
	}

	err := errors.Join(r.errs...)
	r.errs = nil
	return err
}

func (r *Runtime) drainInbox() {
	for _, task := range r.inbox.take() {
		if err := task(); err != nil {
			r.errs = append(r.errs, err)
		}
	}
}

// FlushAll renders and commits all pending work, including offscreen work,
// without yielding.
func (r *Runtime) FlushAll() error {
	if err := r.checkOwner(); err != nil {
		return err
	}

	r.performWork(Never, nil)
	return r.takeError()
}

// FlushSync renders and commits only the synchronous work.
func (r *Runtime) FlushSync() error {
	if err := r.checkOwner(); err != nil {
		return err
	}

	r.performSyncWork()
	return r.takeError()
}

// PerformWork renders pending work until deadline runs out, then returns
// whether work is left. Expired work is finished regardless of deadline.
func (r *Runtime) PerformWork(deadline Deadline) (bool, error) {
	if err := r.checkOwner(); err != nil {
		return false, err
	}

	r.performWork(Never, deadline)
	return r.HasPendingWork(), r.takeError()
}

// PerformUnitOfWork performs a single unit of work of the most urgent root,
// committing it when that unit completed the tree.
func (r *Runtime) PerformUnitOfWork() (bool, error) {
	return r.PerformWork(NewUnitDeadline(1))
}

// HasPendingWork reports whether a root has work left or work was handed
// over from another goroutine.
func (r *Runtime) HasPendingWork() bool {
	return r.roots.Highest() != nil || r.inbox.Len() > 0
}

// Wait blocks until another goroutine hands work over or ctx is done.
func (r *Runtime) Wait(ctx context.Context) error {
	if r.inbox.Len() > 0 {
		return nil
	}

	select {
	case <-r.inbox.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Batch runs fn and defers synchronous work scheduled by it until the
// outermost batch returns.
func (r *Runtime) Batch(fn func()) error {
	if err := r.checkOwner(); err != nil {
		return err
	}

	r.batcher.Batch(fn, r.performSyncWork)
	return r.takeError()
}

// RunWithPriority runs fn with p as the priority of the updates it schedules.
func (r *Runtime) RunWithPriority(p Priority, fn func()) error {
	if err := r.checkOwner(); err != nil {
		return err
	}

	prev := r.priority
	r.priority = p
	defer func() { r.priority = prev }()

	fn()
	return nil
}

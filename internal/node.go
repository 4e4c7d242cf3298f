package internal

import "iter"

// Kind is the closed set of fiber variants.
type Kind uint8

const (
	KindFunction Kind = iota
	KindClass
	KindHostRoot
	KindHostPortal
	KindHostComponent
	KindHostText
	KindFragment
	KindMode
	KindProfiler
	KindContextProvider
	KindContextConsumer
	KindSuspense
)

var kindNames = [...]string{
	KindFunction:        "Function",
	KindClass:           "Class",
	KindHostRoot:        "HostRoot",
	KindHostPortal:      "HostPortal",
	KindHostComponent:   "HostComponent",
	KindHostText:        "HostText",
	KindFragment:        "Fragment",
	KindMode:            "Mode",
	KindProfiler:        "Profiler",
	KindContextProvider: "ContextProvider",
	KindContextConsumer: "ContextConsumer",
	KindSuspense:        "Suspense",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Mode bits are inherited from the parent when a fiber is created.
type Mode uint8

const (
	NoMode         Mode = 0
	ConcurrentMode Mode = 1 << iota
	StrictMode
)

func (m Mode) Has(flag Mode) bool {
	return m&flag != 0
}

// stateNode is the kind specific payload of a fiber.
type stateNode interface{ stateNode() }

type hostState struct{ instance any }

type textState struct{ instance any }

type portalState struct{ container any }

type classState struct{ component Component }

func (*hostState) stateNode()   {}
func (*textState) stateNode()   {}
func (*portalState) stateNode() {}
func (*classState) stateNode()  {}
func (*FiberRoot) stateNode()   {}

// Fiber is both a unit of work and a node of the committed tree. Every
// logical node owns exactly two fiber slots in the Store; the other slot is
// its alternate.
type Fiber struct {
	Kind      Kind
	Key       string
	Type      ElementType
	StateNode stateNode
	Mode      Mode

	Return  *Fiber
	Child   *Fiber
	Sibling *Fiber
	Index   int
	Ref     *Ref

	PendingProps  any
	MemoizedProps any
	MemoizedState any
	UpdateQueue   *UpdateQueue

	ExpirationTime      ExpirationTime
	ChildExpirationTime ExpirationTime

	Effect      EffectTag
	NextEffect  *Fiber
	FirstEffect *Fiber
	LastEffect  *Fiber
	Deletions   []*Fiber

	updatePayload   any
	firstDependency *dependencyLink
	subscriptions   *subscriptionSet

	// set on a fragment created to hold children of the committed tree
	borrowed bool

	pair  *fiberPair
	side  uint8
	inUse bool
}

// Alternate returns the other copy of this logical node, or nil if it was
// never cloned.
func (f *Fiber) Alternate() *Fiber {
	if f.pair == nil {
		return nil
	}

	alt := &f.pair.slots[1-f.side]
	if !alt.inUse {
		return nil
	}

	return alt
}

// Children iterates the live child chain.
func (f *Fiber) Children() iter.Seq[*Fiber] {
	return func(yield func(*Fiber) bool) {
		for child := f.Child; child != nil; child = child.Sibling {
			if !yield(child) {
				return
			}
		}
	}
}

// Effects iterates the effect list starting at this fiber's first effect.
func (f *Fiber) Effects() iter.Seq[*Fiber] {
	return func(yield func(*Fiber) bool) {
		for e := f.FirstEffect; e != nil; e = e.NextEffect {
			if !yield(e) {
				return
			}
		}
	}
}

// Name is used in component stacks and traces.
func (f *Fiber) Name() string {
	switch t := f.Type.(type) {
	case HostType:
		return string(t)
	case *FunctionType:
		if t.Name != "" {
			return t.Name
		}
	case *ClassType:
		if t.Name != "" {
			return t.Name
		}
	}

	return f.Kind.String()
}

// HostInstance returns the host node of a HostComponent or HostText fiber.
func (f *Fiber) HostInstance() any {
	switch s := f.StateNode.(type) {
	case *hostState:
		return s.instance
	case *textState:
		return s.instance
	}
	return nil
}

// Component returns the class instance of a Class fiber.
func (f *Fiber) Component() Component {
	if s, ok := f.StateNode.(*classState); ok {
		return s.component
	}
	return nil
}

func (f *Fiber) resetEffects() {
	f.Effect = NoEffect
	f.NextEffect = nil
	f.FirstEffect = nil
	f.LastEffect = nil
	f.Deletions = nil
}

func (f *Fiber) isHostParent() bool {
	return f.Kind == KindHostComponent || f.Kind == KindHostRoot || f.Kind == KindHostPortal
}

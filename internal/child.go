package internal

import (
	"fmt"
	"strconv"
)

// childReconciler diffs the previous child list of a fiber against a new
// child description. The mount variant skips side effect tracking because
// the whole subtree is inserted at once by its nearest placed ancestor.
type childReconciler struct {
	r                *Runtime
	trackSideEffects bool
}

func (r *Runtime) reconcileChildren(current, wip *Fiber, nextChildren Node, renderExp ExpirationTime) error {
	var err error
	if current == nil {
		wip.Child, err = r.mountChildren.reconcile(wip, nil, nextChildren, renderExp)
	} else {
		wip.Child, err = r.updateChildren.reconcile(wip, current.Child, nextChildren, renderExp)
	}
	return err
}

// forceUnmountCurrentAndReconcile deletes every current child before mounting
// nextChildren so that no instance survives the pass, even under the same key.
func (r *Runtime) forceUnmountCurrentAndReconcile(current, wip *Fiber, nextChildren Node, renderExp ExpirationTime) error {
	var err error
	if wip.Child, err = r.updateChildren.reconcile(wip, current.Child, nil, renderExp); err != nil {
		return err
	}
	wip.Child, err = r.updateChildren.reconcile(wip, nil, nextChildren, renderExp)
	return err
}

func (c *childReconciler) deleteChild(ret, child *Fiber) {
	if !c.trackSideEffects {
		return
	}
	ret.Deletions = append(ret.Deletions, child)
}

func (c *childReconciler) deleteRemainingChildren(ret, first *Fiber) *Fiber {
	if !c.trackSideEffects {
		return nil
	}
	for child := first; child != nil; child = child.Sibling {
		c.deleteChild(ret, child)
	}
	return nil
}

func mapKey(key string, index int) string {
	if key != "" {
		return "k:" + key
	}
	return "i:" + strconv.Itoa(index)
}

// mapRemainingChildren indexes the old children by key. The first
// occurrence of a duplicate key wins, later ones are returned apart so they
// can be deleted.
func mapRemainingChildren(first *Fiber) (map[string]*Fiber, []*Fiber) {
	existing := make(map[string]*Fiber)
	var duplicates []*Fiber

	for child := first; child != nil; child = child.Sibling {
		k := mapKey(child.Key, child.Index)
		if _, ok := existing[k]; ok {
			duplicates = append(duplicates, child)
			continue
		}
		existing[k] = child
	}

	return existing, duplicates
}

func (c *childReconciler) useFiber(fiber *Fiber, pendingProps any) *Fiber {
	clone := c.r.store.createWorkInProgress(fiber, pendingProps)
	clone.Index = 0
	clone.Sibling = nil
	return clone
}

func (c *childReconciler) placeChild(newFiber *Fiber, lastPlacedIndex, newIndex int) int {
	newFiber.Index = newIndex
	if !c.trackSideEffects {
		return lastPlacedIndex
	}

	if current := newFiber.Alternate(); current != nil {
		oldIndex := current.Index
		if oldIndex < lastPlacedIndex {
			// moved
			newFiber.Effect.Add(Placement)
			return lastPlacedIndex
		}
		return oldIndex
	}

	newFiber.Effect.Add(Placement)
	return lastPlacedIndex
}

func (c *childReconciler) placeSingleChild(newFiber *Fiber) *Fiber {
	if c.trackSideEffects && newFiber.Alternate() == nil {
		newFiber.Effect.Add(Placement)
	}
	return newFiber
}

func (c *childReconciler) updateTextNode(ret, current *Fiber, text string, exp ExpirationTime) *Fiber {
	var f *Fiber
	if current == nil || current.Kind != KindHostText {
		f = c.r.createFiberFromText(text, ret.Mode, exp)
	} else {
		f = c.useFiber(current, text)
	}
	f.Return = ret
	return f
}

func (c *childReconciler) updateElement(ret, current *Fiber, el *Element, exp ExpirationTime) (*Fiber, error) {
	if current != nil && isEqual(current.Type, el.Type) {
		existing := c.useFiber(current, el.Props)
		existing.Ref = el.Ref
		existing.Return = ret
		return existing, nil
	}

	created, err := c.r.createFiberFromElement(el, ret.Mode, exp)
	if err != nil {
		return nil, err
	}
	created.Return = ret
	return created, nil
}

func (c *childReconciler) updatePortal(ret, current *Fiber, el *Element, exp ExpirationTime) *Fiber {
	var f *Fiber
	if current == nil || current.Kind != KindHostPortal || !samePortal(current, el) {
		f = c.r.createFiberFromPortal(el, ret.Mode, exp)
	} else {
		f = c.useFiber(current, el.Props.Children())
	}
	f.Return = ret
	return f
}

func (c *childReconciler) updateFragment(ret, current *Fiber, children Node, exp ExpirationTime, key string) *Fiber {
	var f *Fiber
	if current == nil || current.Kind != KindFragment {
		f = c.r.createFiberFromFragment(children, ret.Mode, exp, key)
	} else {
		f = c.useFiber(current, children)
	}
	f.Return = ret
	return f
}

func (c *childReconciler) createChild(ret *Fiber, newChild Node, exp ExpirationTime) (*Fiber, error) {
	if text, ok := textOf(newChild); ok {
		f := c.r.createFiberFromText(text, ret.Mode, exp)
		f.Return = ret
		return f, nil
	}

	if el, ok := newChild.(*Element); ok && el != nil {
		f, err := c.r.createFiberFromElement(el, ret.Mode, exp)
		if err != nil {
			return nil, err
		}
		f.Return = ret
		return f, nil
	}

	if list, ok := listOf(newChild); ok {
		f := c.r.createFiberFromFragment(list, ret.Mode, exp, "")
		f.Return = ret
		return f, nil
	}

	if isEmptyChild(newChild) {
		return nil, nil
	}
	return nil, invalidChild(newChild)
}

// updateSlot reuses oldFiber when the keys match and returns nil otherwise.
func (c *childReconciler) updateSlot(ret, oldFiber *Fiber, newChild Node, exp ExpirationTime) (*Fiber, error) {
	key := ""
	if oldFiber != nil {
		key = oldFiber.Key
	}

	if text, ok := textOf(newChild); ok {
		if key != "" {
			return nil, nil
		}
		return c.updateTextNode(ret, oldFiber, text, exp), nil
	}

	if el, ok := newChild.(*Element); ok && el != nil {
		if el.Key != key {
			return nil, nil
		}
		return c.updateElementLike(ret, oldFiber, el, exp)
	}

	if list, ok := listOf(newChild); ok {
		if key != "" {
			return nil, nil
		}
		return c.updateFragment(ret, oldFiber, list, exp, ""), nil
	}

	if isEmptyChild(newChild) {
		return nil, nil
	}
	return nil, invalidChild(newChild)
}

func (c *childReconciler) updateElementLike(ret, oldFiber *Fiber, el *Element, exp ExpirationTime) (*Fiber, error) {
	switch el.Type.(type) {
	case *PortalType:
		return c.updatePortal(ret, oldFiber, el, exp), nil
	case fragmentType:
		return c.updateFragment(ret, oldFiber, el.Props.Children(), exp, el.Key), nil
	}
	return c.updateElement(ret, oldFiber, el, exp)
}

func (c *childReconciler) updateFromMap(existing map[string]*Fiber, ret *Fiber, newIdx int, newChild Node, exp ExpirationTime) (*Fiber, error) {
	if text, ok := textOf(newChild); ok {
		return c.updateTextNode(ret, existing[mapKey("", newIdx)], text, exp), nil
	}

	if el, ok := newChild.(*Element); ok && el != nil {
		return c.updateElementLike(ret, existing[mapKey(el.Key, newIdx)], el, exp)
	}

	if list, ok := listOf(newChild); ok {
		return c.updateFragment(ret, existing[mapKey("", newIdx)], list, exp, ""), nil
	}

	if isEmptyChild(newChild) {
		return nil, nil
	}
	return nil, invalidChild(newChild)
}

func (c *childReconciler) reconcileChildrenArray(ret, currentFirst *Fiber, newChildren []Node, exp ExpirationTime) (*Fiber, error) {
	var first, previous *Fiber
	link := func(f *Fiber) {
		if previous == nil {
			first = f
		} else {
			previous.Sibling = f
		}
		previous = f
	}

	oldFiber := currentFirst
	lastPlacedIndex := 0
	newIdx := 0

	for ; oldFiber != nil && newIdx < len(newChildren); newIdx++ {
		var nextOldFiber *Fiber
		if oldFiber.Index > newIdx {
			nextOldFiber = oldFiber
			oldFiber = nil
		} else {
			nextOldFiber = oldFiber.Sibling
		}

		newFiber, err := c.updateSlot(ret, oldFiber, newChildren[newIdx], exp)
		if err != nil {
			return nil, err
		}
		if newFiber == nil {
			if oldFiber == nil {
				oldFiber = nextOldFiber
			}
			break
		}

		if c.trackSideEffects && oldFiber != nil && newFiber.Alternate() == nil {
			// matched the slot without reusing the fiber
			c.deleteChild(ret, oldFiber)
		}

		lastPlacedIndex = c.placeChild(newFiber, lastPlacedIndex, newIdx)
		link(newFiber)
		oldFiber = nextOldFiber
	}

	if newIdx == len(newChildren) {
		c.deleteRemainingChildren(ret, oldFiber)
		return first, nil
	}

	if oldFiber == nil {
		for ; newIdx < len(newChildren); newIdx++ {
			newFiber, err := c.createChild(ret, newChildren[newIdx], exp)
			if err != nil {
				return nil, err
			}
			if newFiber == nil {
				continue
			}
			lastPlacedIndex = c.placeChild(newFiber, lastPlacedIndex, newIdx)
			link(newFiber)
		}
		return first, nil
	}

	existing, duplicates := mapRemainingChildren(oldFiber)

	for ; newIdx < len(newChildren); newIdx++ {
		newFiber, err := c.updateFromMap(existing, ret, newIdx, newChildren[newIdx], exp)
		if err != nil {
			return nil, err
		}
		if newFiber == nil {
			continue
		}

		if c.trackSideEffects && newFiber.Alternate() != nil {
			// consumed, a later duplicate key must not match it again
			delete(existing, mapKey(newFiber.Key, newIdx))
		}

		lastPlacedIndex = c.placeChild(newFiber, lastPlacedIndex, newIdx)
		link(newFiber)
	}

	if c.trackSideEffects {
		// keep deletion order stable with respect to the old list
		for child := oldFiber; child != nil; child = child.Sibling {
			if existing[mapKey(child.Key, child.Index)] == child {
				c.deleteChild(ret, child)
			}
		}
		for _, child := range duplicates {
			c.deleteChild(ret, child)
		}
	}

	return first, nil
}

func (c *childReconciler) reconcileSingleTextNode(ret, currentFirst *Fiber, text string, exp ExpirationTime) *Fiber {
	if currentFirst != nil && currentFirst.Kind == KindHostText {
		c.deleteRemainingChildren(ret, currentFirst.Sibling)
		existing := c.useFiber(currentFirst, text)
		existing.Return = ret
		return existing
	}

	c.deleteRemainingChildren(ret, currentFirst)
	created := c.r.createFiberFromText(text, ret.Mode, exp)
	created.Return = ret
	return created
}

func (c *childReconciler) reconcileSingleElement(ret, currentFirst *Fiber, el *Element, exp ExpirationTime) (*Fiber, error) {
	_, fragment := el.Type.(fragmentType)

	for child := currentFirst; child != nil; child = child.Sibling {
		if child.Key != el.Key {
			c.deleteChild(ret, child)
			continue
		}

		if isEqual(child.Type, el.Type) {
			c.deleteRemainingChildren(ret, child.Sibling)

			var props any = el.Props
			if fragment {
				props = el.Props.Children()
			}
			existing := c.useFiber(child, props)
			existing.Ref = el.Ref
			existing.Return = ret
			return existing, nil
		}

		c.deleteRemainingChildren(ret, child)
		break
	}

	created, err := c.r.createFiberFromElement(el, ret.Mode, exp)
	if err != nil {
		return nil, err
	}
	created.Return = ret
	return created, nil
}

func (c *childReconciler) reconcileSinglePortal(ret, currentFirst *Fiber, el *Element, exp ExpirationTime) *Fiber {
	for child := currentFirst; child != nil; child = child.Sibling {
		if child.Key != el.Key {
			c.deleteChild(ret, child)
			continue
		}

		if child.Kind == KindHostPortal && samePortal(child, el) {
			c.deleteRemainingChildren(ret, child.Sibling)
			existing := c.useFiber(child, el.Props.Children())
			existing.Return = ret
			return existing
		}

		c.deleteRemainingChildren(ret, child)
		break
	}

	created := c.r.createFiberFromPortal(el, ret.Mode, exp)
	created.Return = ret
	return created
}

// reconcile returns the new first child of ret. An unkeyed top level
// fragment is treated as its children.
func (c *childReconciler) reconcile(ret, currentFirst *Fiber, newChild Node, exp ExpirationTime) (*Fiber, error) {
	if el, ok := newChild.(*Element); ok && el != nil && el.Key == "" && isEqual(el.Type, Fragment) {
		newChild = el.Props.Children()
	}

	if el, ok := newChild.(*Element); ok && el != nil {
		if _, portal := el.Type.(*PortalType); portal {
			return c.placeSingleChild(c.reconcileSinglePortal(ret, currentFirst, el, exp)), nil
		}

		f, err := c.reconcileSingleElement(ret, currentFirst, el, exp)
		if err != nil {
			return nil, err
		}
		return c.placeSingleChild(f), nil
	}

	if text, ok := textOf(newChild); ok {
		return c.placeSingleChild(c.reconcileSingleTextNode(ret, currentFirst, text, exp)), nil
	}

	if list, ok := listOf(newChild); ok {
		return c.reconcileChildrenArray(ret, currentFirst, list, exp)
	}

	if isEmptyChild(newChild) {
		return c.deleteRemainingChildren(ret, currentFirst), nil
	}

	return nil, invalidChild(newChild)
}

func isEmptyChild(child Node) bool {
	switch c := child.(type) {
	case nil, bool:
		return true
	case *Element:
		return c == nil
	}
	return false
}

func invalidChild(child Node) error {
	return fmt.Errorf("%w: %T", ErrInvalidChild, child)
}

func samePortal(f *Fiber, el *Element) bool {
	ps, ok := f.StateNode.(*portalState)
	return ok && isEqual(ps.container, el.Type.(*PortalType).Container)
}

func (r *Runtime) createFiberFromText(text string, mode Mode, exp ExpirationTime) *Fiber {
	f := r.store.createFiber(KindHostText, text, "", mode)
	f.ExpirationTime = exp
	return f
}

func (r *Runtime) createFiberFromFragment(children Node, mode Mode, exp ExpirationTime, key string) *Fiber {
	f := r.store.createFiber(KindFragment, children, key, mode)
	f.Type = Fragment
	f.ExpirationTime = exp
	return f
}

func (r *Runtime) createFiberFromPortal(el *Element, mode Mode, exp ExpirationTime) *Fiber {
	pt := el.Type.(*PortalType)
	f := r.store.createFiber(KindHostPortal, el.Props.Children(), el.Key, mode)
	f.Type = pt
	f.StateNode = &portalState{container: pt.Container}
	f.ExpirationTime = exp
	return f
}

func (r *Runtime) createFiberFromElement(el *Element, mode Mode, exp ExpirationTime) (*Fiber, error) {
	var kind Kind

	switch t := el.Type.(type) {
	case HostType:
		kind = KindHostComponent
	case *FunctionType:
		kind = KindFunction
	case *ClassType:
		kind = KindClass
	case ModeType:
		kind = KindMode
		mode |= t.Mode
	case ProfilerType:
		kind = KindProfiler
	case suspenseType:
		kind = KindSuspense
	case *ProviderType:
		kind = KindContextProvider
	case *ConsumerType:
		kind = KindContextConsumer
	case fragmentType:
		return r.createFiberFromFragment(el.Props.Children(), mode, exp, el.Key), nil
	case *PortalType:
		return r.createFiberFromPortal(el, mode, exp), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidElementType, el.Type)
	}

	f := r.store.createFiber(kind, el.Props, el.Key, mode)
	f.Type = el.Type
	f.Ref = el.Ref
	f.ExpirationTime = exp
	return f, nil
}

package internal

// completeWork creates or diffs the host side of wip once all its children
// completed, and pops what beginWork pushed for it.
func (r *Runtime) completeWork(current, wip *Fiber, renderExp ExpirationTime) error {
	switch wip.Kind {
	case KindFunction, KindClass, KindFragment, KindMode, KindProfiler, KindContextConsumer:
		return nil

	case KindHostRoot:
		return r.popHostContainer(wip)

	case KindHostPortal:
		return r.popHostContainer(wip)

	case KindContextProvider:
		return r.popProvider(wip)

	case KindHostComponent:
		if err := r.popHostContext(wip); err != nil {
			return err
		}

		typ := string(wip.Type.(HostType))
		props := propsOf(wip.PendingProps)

		if current != nil && wip.HostInstance() != nil {
			oldProps := propsOf(current.MemoizedProps)
			if !isEqual(oldProps, props) {
				wip.updatePayload = r.host.PrepareUpdate(wip.HostInstance(), typ, oldProps, props)
				if wip.updatePayload != nil {
					wip.Effect.Add(UpdateEffect)
				}
			}
			if current.Ref != wip.Ref {
				wip.Effect.Add(RefEffect)
			}
			return nil
		}

		inst := r.host.CreateInstance(typ, props, r.rootContainer, r.hostContext)
		r.appendAllChildren(inst, wip)
		if r.host.FinalizeInitialChildren(inst, typ, props) {
			wip.Effect.Add(UpdateEffect)
		}
		wip.StateNode = &hostState{instance: inst}
		if wip.Ref != nil {
			wip.Effect.Add(RefEffect)
		}
		return nil

	case KindHostText:
		text, _ := wip.PendingProps.(string)

		if current != nil && wip.HostInstance() != nil {
			if old, _ := current.MemoizedProps.(string); old != text {
				wip.Effect.Add(UpdateEffect)
			}
			return nil
		}

		inst := r.host.CreateTextInstance(text, r.rootContainer, r.hostContext)
		wip.StateNode = &textState{instance: inst}
		return nil

	case KindSuspense:
		state := suspenseStateOf(wip)
		nextDidTimeout := state != nil && state.DidTimeout
		prevDidTimeout := didTimeout(current)

		// the commit toggles visibility and settles the captured flag
		if nextDidTimeout != prevDidTimeout || (state != nil && state.AlreadyCaptured) {
			wip.Effect.Add(UpdateEffect)
		}
		return nil
	}

	return invariant("unknown fiber kind %s", wip.Kind)
}

// appendAllChildren attaches the top level host nodes below wip to the new
// instance parent. Portals keep their children.
func (r *Runtime) appendAllChildren(parent any, wip *Fiber) {
	node := wip.Child
	for node != nil {
		switch {
		case node.Kind == KindHostComponent || node.Kind == KindHostText:
			r.host.AppendInitialChild(parent, node.HostInstance())
		case node.Kind == KindHostPortal:
		case node.Child != nil:
			node.Child.Return = node
			node = node.Child
			continue
		}

		if node == wip {
			return
		}
		for node.Sibling == nil {
			if node.Return == nil || node.Return == wip {
				return
			}
			node = node.Return
		}
		node.Sibling.Return = node.Return
		node = node.Sibling
	}
}

// resetChildExpirationTime recomputes the pending work summary of wip from
// its children. Offscreen children that were not rendered keep theirs.
func resetChildExpirationTime(wip *Fiber, renderExp ExpirationTime) {
	if renderExp != Never && wip.ChildExpirationTime == Never {
		return
	}

	newExp := NoWork
	for child := wip.Child; child != nil; child = child.Sibling {
		newExp = min(newExp, child.ExpirationTime, child.ChildExpirationTime)
	}
	wip.ChildExpirationTime = newExp
}

// spliceDeletions puts the children deleted from wip in front of its effect
// list so removals are committed before insertions.
func spliceDeletions(wip *Fiber) {
	if len(wip.Deletions) == 0 {
		return
	}

	var first, last *Fiber
	for _, d := range wip.Deletions {
		d.Effect = Deletion
		d.NextEffect = nil
		if last == nil {
			first = d
		} else {
			last.NextEffect = d
		}
		last = d
	}

	last.NextEffect = wip.FirstEffect
	if wip.LastEffect == nil {
		wip.LastEffect = last
	}
	wip.FirstEffect = first
	wip.Deletions = nil
}

// appendEffects adds the effects of wip's subtree, then wip itself, to the
// effect list of ret.
func appendEffects(ret, wip *Fiber) {
	if ret.FirstEffect == nil {
		ret.FirstEffect = wip.FirstEffect
	}
	if wip.LastEffect != nil {
		if ret.LastEffect != nil {
			ret.LastEffect.NextEffect = wip.FirstEffect
		}
		ret.LastEffect = wip.LastEffect
	}

	if wip.Effect.HasCommitEffect() {
		wip.NextEffect = nil
		if ret.LastEffect != nil {
			ret.LastEffect.NextEffect = wip
		} else {
			ret.FirstEffect = wip
		}
		ret.LastEffect = wip
	}
}

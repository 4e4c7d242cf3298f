package internal

import "strings"

// EffectTag is the set of side effects a fiber carries into the commit.
type EffectTag uint16

const (
	NoEffect EffectTag = 0

	PerformedWork EffectTag = 1 << iota
	Placement
	UpdateEffect
	Deletion
	ContentReset
	Callback
	DidCapture
	RefEffect
	Subscription
	Incomplete
	ShouldCapture
)

const (
	// hostEffectMask is what survives when an unwound fiber is re-entered.
	hostEffectMask = PerformedWork | Placement | UpdateEffect | Deletion | ContentReset |
		Callback | DidCapture | RefEffect | Subscription

	commitEffectMask = Placement | UpdateEffect | Deletion | ContentReset | Callback | RefEffect | Subscription
)

var effectNames = []struct {
	tag  EffectTag
	name string
}{
	{PerformedWork, "PerformedWork"},
	{Placement, "Placement"},
	{UpdateEffect, "Update"},
	{Deletion, "Deletion"},
	{ContentReset, "ContentReset"},
	{Callback, "Callback"},
	{DidCapture, "DidCapture"},
	{RefEffect, "Ref"},
	{Subscription, "Subscription"},
	{Incomplete, "Incomplete"},
	{ShouldCapture, "ShouldCapture"},
}

func (e EffectTag) Has(tag EffectTag) bool {
	return e&tag != 0
}

func (e *EffectTag) Add(tag EffectTag) {
	*e |= tag
}

func (e *EffectTag) Remove(tag EffectTag) {
	*e &^= tag
}

func (e *EffectTag) Replace(old, new EffectTag) {
	*e = (*e &^ old) | new
}

// HasCommitEffect reports whether the fiber must be visited by the commit.
func (e EffectTag) HasCommitEffect() bool {
	return e&commitEffectMask != 0
}

func (e EffectTag) String() string {
	if e == NoEffect {
		return "NoEffect"
	}

	var names []string
	for _, n := range effectNames {
		if e.Has(n.tag) {
			names = append(names, n.name)
		}
	}

	return strings.Join(names, "|")
}

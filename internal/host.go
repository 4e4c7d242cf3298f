package internal

// HostConfig is the platform the reconciler renders into. Queries are called
// during the render phase; mutations only while committing.
type HostConfig interface {
	GetRootHostContext(container any) any
	GetChildHostContext(parentContext any, typ string) any

	CreateInstance(typ string, props Props, container any, hostContext any) any
	CreateTextInstance(text string, container any, hostContext any) any
	AppendInitialChild(parent, child any)
	// FinalizeInitialChildren reports whether CommitMount must run.
	FinalizeInitialChildren(instance any, typ string, props Props) bool
	// PrepareUpdate returns nil when nothing changed.
	PrepareUpdate(instance any, typ string, oldProps, newProps Props) any
	ShouldSetTextContent(typ string, props Props) bool
	ShouldDeprioritizeSubtree(typ string, props Props) bool

	AppendChild(parent, child any)
	AppendChildToContainer(container, child any)
	InsertBefore(parent, child, before any)
	InsertInContainerBefore(container, child, before any)
	RemoveChild(parent, child any)
	RemoveChildFromContainer(container, child any)

	CommitMount(instance any, typ string, props Props)
	CommitUpdate(instance any, payload any, typ string, oldProps, newProps Props)
	CommitTextUpdate(textInstance any, oldText, newText string)
	ResetTextContent(instance any)

	HideInstance(instance any)
	UnhideInstance(instance any, props Props)
	HideTextInstance(textInstance any)
	UnhideTextInstance(textInstance any, text string)
}

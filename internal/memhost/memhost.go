// Package memhost renders fibers into an in-memory node tree and records
// every host mutation, for tests and scenario traces.
package memhost

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/AnatoleLucet/fiber/internal"
)

// Node is a host instance, a text instance or a container.
type Node struct {
	ID        int
	Type      string // empty for text
	Text      string
	Namespace string

	Props   internal.Props
	Hidden  bool
	Mounted bool

	Parent   *Node
	Children []*Node
}

func (n *Node) IsText() bool {
	return n.Type == ""
}

func (n *Node) label() string {
	if n.IsText() {
		return fmt.Sprintf("%q", n.Text)
	}
	return fmt.Sprintf("%s#%d", n.Type, n.ID)
}

func (n *Node) indexOf(child *Node) int {
	return slices.Index(n.Children, child)
}

func (n *Node) detach(child *Node) {
	if i := n.indexOf(child); i >= 0 {
		n.Children = slices.Delete(n.Children, i, i+1)
	}
	child.Parent = nil
}

// String renders the visible subtree as markup.
func (n *Node) String() string {
	var b strings.Builder
	for _, child := range n.Children {
		child.write(&b, false)
	}
	return b.String()
}

// Dump renders the whole subtree, hidden nodes included.
func (n *Node) Dump() string {
	var b strings.Builder
	for _, child := range n.Children {
		child.write(&b, true)
	}
	return b.String()
}

// TextContent concatenates the visible text below n.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	if n.Hidden {
		return
	}
	b.WriteString(n.Text)
	for _, child := range n.Children {
		child.writeText(b)
	}
}

func (n *Node) write(b *strings.Builder, all bool) {
	if n.Hidden && !all {
		return
	}

	if n.IsText() {
		b.WriteString(n.Text)
		return
	}

	b.WriteString("<")
	b.WriteString(n.Type)
	for _, k := range attributeKeys(n.Props) {
		fmt.Fprintf(b, " %s=%q", k, fmt.Sprint(n.Props[k]))
	}
	if n.Hidden {
		b.WriteString(" hidden")
	}
	b.WriteString(">")

	b.WriteString(n.Text)
	for _, child := range n.Children {
		child.write(b, all)
	}

	b.WriteString("</")
	b.WriteString(n.Type)
	b.WriteString(">")
}

// attributeKeys lists the props rendered as attributes, sorted.
func attributeKeys(props internal.Props) []string {
	keys := make([]string, 0, len(props))
	for k, v := range props {
		if k == "children" || v == nil {
			continue
		}
		if reflect.TypeOf(v).Kind() == reflect.Func {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Host implements internal.HostConfig on Nodes.
type Host struct {
	nextID int

	// Ops lists the mutations applied since the last Reset.
	Ops []string

	log *slog.Logger
}

type Option func(*Host)

func WithLogger(log *slog.Logger) Option {
	return func(h *Host) { h.log = log }
}

func New(opts ...Option) *Host {
	h := &Host{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewContainer creates a root container.
func (h *Host) NewContainer(name string) *Node {
	return &Node{ID: h.id(), Type: name}
}

// Reset clears the operation log and returns what it held.
func (h *Host) Reset() []string {
	ops := h.Ops
	h.Ops = nil
	return ops
}

func (h *Host) id() int {
	h.nextID++
	return h.nextID
}

func (h *Host) record(format string, args ...any) {
	op := fmt.Sprintf(format, args...)
	h.Ops = append(h.Ops, op)
	h.log.Debug("host op", "op", op)
}

type hostContext struct {
	namespace string
}

func (h *Host) GetRootHostContext(container any) any {
	return hostContext{namespace: "html"}
}

func (h *Host) GetChildHostContext(parent any, typ string) any {
	if typ == "svg" {
		return hostContext{namespace: "svg"}
	}
	if typ == "foreignObject" {
		return hostContext{namespace: "html"}
	}
	return parent
}

func (h *Host) CreateInstance(typ string, props internal.Props, container any, hostCtx any) any {
	n := &Node{ID: h.id(), Type: typ, Props: props}
	if ctx, ok := hostCtx.(hostContext); ok {
		n.Namespace = ctx.namespace
	}
	if typ == "svg" {
		n.Namespace = "svg"
	}
	if text, ok := textChild(props); ok {
		n.Text = text
	}
	h.record("create %s", n.label())
	return n
}

func (h *Host) CreateTextInstance(text string, container any, hostCtx any) any {
	n := &Node{ID: h.id(), Text: text}
	h.record("create text %s", n.label())
	return n
}

func (h *Host) AppendInitialChild(parent, child any) {
	p, c := parent.(*Node), child.(*Node)
	c.Parent = p
	p.Children = append(p.Children, c)
}

func (h *Host) FinalizeInitialChildren(instance any, typ string, props internal.Props) bool {
	autoFocus, _ := props["autoFocus"].(bool)
	return autoFocus
}

// PrepareUpdate returns the changed props, with nil for removed ones.
func (h *Host) PrepareUpdate(instance any, typ string, oldProps, newProps internal.Props) any {
	changed := internal.Props{}

	for k, old := range oldProps {
		if k == "children" {
			continue
		}
		if next, ok := newProps[k]; !ok {
			changed[k] = nil
		} else if !sameValue(old, next) {
			changed[k] = next
		}
	}
	for k, next := range newProps {
		if _, ok := oldProps[k]; !ok && k != "children" {
			changed[k] = next
		}
	}

	oldText, _ := textChild(oldProps)
	newText, isText := textChild(newProps)
	if isText && oldText != newText {
		changed["children"] = newText
	}

	if len(changed) == 0 {
		return nil
	}
	return changed
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a).Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return reflect.DeepEqual(a, b)
}

func (h *Host) ShouldSetTextContent(typ string, props internal.Props) bool {
	if typ == "textarea" {
		return true
	}
	_, ok := textChild(props)
	return ok
}

func (h *Host) ShouldDeprioritizeSubtree(typ string, props internal.Props) bool {
	hidden, _ := props["hidden"].(bool)
	return hidden
}

func (h *Host) AppendChild(parent, child any) {
	p, c := parent.(*Node), child.(*Node)
	if c.Parent != nil {
		c.Parent.detach(c)
	}
	c.Parent = p
	p.Children = append(p.Children, c)
	h.record("append %s to %s", c.label(), p.label())
}

func (h *Host) AppendChildToContainer(container, child any) {
	h.AppendChild(container, child)
}

func (h *Host) InsertBefore(parent, child, before any) {
	p, c, b := parent.(*Node), child.(*Node), before.(*Node)
	if c.Parent != nil {
		c.Parent.detach(c)
	}

	i := p.indexOf(b)
	if i < 0 {
		panic(fmt.Sprintf("memhost: %s is not a child of %s", b.label(), p.label()))
	}
	c.Parent = p
	p.Children = slices.Insert(p.Children, i, c)
	h.record("insert %s before %s in %s", c.label(), b.label(), p.label())
}

func (h *Host) InsertInContainerBefore(container, child, before any) {
	h.InsertBefore(container, child, before)
}

func (h *Host) RemoveChild(parent, child any) {
	p, c := parent.(*Node), child.(*Node)
	if p.indexOf(c) < 0 {
		panic(fmt.Sprintf("memhost: %s is not a child of %s", c.label(), p.label()))
	}
	p.detach(c)
	h.record("remove %s from %s", c.label(), p.label())
}

func (h *Host) RemoveChildFromContainer(container, child any) {
	h.RemoveChild(container, child)
}

func (h *Host) CommitMount(instance any, typ string, props internal.Props) {
	n := instance.(*Node)
	n.Mounted = true
	h.record("mount %s", n.label())
}

func (h *Host) CommitUpdate(instance any, payload any, typ string, oldProps, newProps internal.Props) {
	n := instance.(*Node)
	n.Props = newProps
	if text, ok := payload.(internal.Props)["children"].(string); ok {
		n.Text = text
	}
	h.record("update %s %s", n.label(), formatPayload(payload.(internal.Props)))
}

func formatPayload(payload internal.Props) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, payload[k])
	}
	return strings.Join(parts, " ")
}

func (h *Host) CommitTextUpdate(textInstance any, oldText, newText string) {
	n := textInstance.(*Node)
	n.Text = newText
	h.record("text %s -> %q", fmt.Sprintf("%q", oldText), newText)
}

func (h *Host) ResetTextContent(instance any) {
	n := instance.(*Node)
	n.Text = ""
	h.record("reset text %s", n.label())
}

func (h *Host) HideInstance(instance any) {
	n := instance.(*Node)
	n.Hidden = true
	h.record("hide %s", n.label())
}

func (h *Host) UnhideInstance(instance any, props internal.Props) {
	n := instance.(*Node)
	n.Hidden = false
	h.record("unhide %s", n.label())
}

func (h *Host) HideTextInstance(textInstance any) {
	n := textInstance.(*Node)
	n.Hidden = true
	h.record("hide text %s", n.label())
}

func (h *Host) UnhideTextInstance(textInstance any, text string) {
	n := textInstance.(*Node)
	n.Hidden = false
	h.record("unhide text %s", n.label())
}

// textChild reports whether props carry a single text child.
func textChild(props internal.Props) (string, bool) {
	switch c := props.Children().(type) {
	case string:
		return c, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(c), true
	}
	return "", false
}

var _ internal.HostConfig = (*Host)(nil)

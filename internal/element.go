package internal

import (
	"fmt"
	"iter"
	"reflect"
)

// Node is a child description: nil, bool, string, a number, *Element,
// []Node, iter.Seq[Node], or a render function for context consumers.
type Node = any

// Props are the inputs of an element. Children live under "children".
type Props map[string]any

// Children returns the "children" prop.
func (p Props) Children() Node {
	if p == nil {
		return nil
	}
	return p["children"]
}

type Element struct {
	Type  ElementType
	Key   string
	Ref   *Ref
	Props Props
}

// Ref receives the host instance or class component at commit time.
type Ref struct {
	Current any
}

// ElementType is the closed set of element descriptors.
type ElementType interface{ elementType() }

// HostType is a host element tag such as "div".
type HostType string

type RenderFunc func(ctx *RenderContext, props Props) (Node, error)

type FunctionType struct {
	Name   string
	Render RenderFunc
}

type ClassType struct {
	Name string
	New  func(props Props) Component

	DerivedStateFromProps func(props Props, state any) any
	DerivedStateFromError func(err error) any

	// ContextType is read into ComponentBase.Context on every render.
	ContextType *Context
}

type fragmentType struct{}

type ModeType struct{ Mode Mode }

type ProfilerType struct{ ID string }

type suspenseType struct{}

// PortalType renders its children into Container instead of the parent host.
type PortalType struct{ Container any }

var (
	Fragment ElementType = fragmentType{}
	Suspense ElementType = suspenseType{}
)

func (HostType) elementType()      {}
func (*FunctionType) elementType() {}
func (*ClassType) elementType()    {}
func (fragmentType) elementType()  {}
func (ModeType) elementType()      {}
func (ProfilerType) elementType()  {}
func (suspenseType) elementType()  {}
func (*PortalType) elementType()   {}
func (*ProviderType) elementType() {}
func (*ConsumerType) elementType() {}

// NewElement copies props, extracting "key" and "ref", and stores children
// under "children": one child as is, several as a []Node.
func NewElement(typ ElementType, props Props, children ...Node) *Element {
	el := &Element{Type: typ, Props: make(Props, len(props)+1)}

	for k, v := range props {
		switch k {
		case "key":
			if v != nil {
				el.Key = fmt.Sprint(v)
			}
		case "ref":
			if ref, ok := v.(*Ref); ok {
				el.Ref = ref
			}
		default:
			el.Props[k] = v
		}
	}

	switch len(children) {
	case 0:
	case 1:
		el.Props["children"] = children[0]
	default:
		el.Props["children"] = []Node(children)
	}

	return el
}

func propsOf(v any) Props {
	p, _ := v.(Props)
	return p
}

// textOf reports whether a child renders as host text.
func textOf(child Node) (string, bool) {
	switch c := child.(type) {
	case string:
		return c, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(c), true
	}
	return "", false
}

// listOf normalizes the list shaped children.
func listOf(child Node) ([]Node, bool) {
	switch c := child.(type) {
	case []Node:
		return c, true
	case []*Element:
		out := make([]Node, len(c))
		for i, el := range c {
			out[i] = el
		}
		return out, true
	case []string:
		out := make([]Node, len(c))
		for i, s := range c {
			out[i] = s
		}
		return out, true
	case iter.Seq[Node]:
		var out []Node
		for n := range c {
			out = append(out, n)
		}
		return out, true
	}
	return nil, false
}

// isEqual is identity comparison that never panics: maps, slices and funcs
// compare by address.
func isEqual(a, b any) (eq bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}

	if ta.Comparable() {
		defer func() {
			if recover() != nil {
				eq = false
			}
		}()
		return a == b
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Slice:
		return va.Len() == vb.Len() && va.Pointer() == vb.Pointer()
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	}

	return false
}

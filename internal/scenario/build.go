package scenario

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AnatoleLucet/fiber"
)

// builder turns YAML trees into elements. Component types are created once
// per name so consecutive renders reconcile against each other.
//
// A node is a scalar (text), a sequence (list) or a mapping with a single
// key naming the element type. Host tags are plain names; the built in
// components start with a $:
//
//	$fragment  children
//	$suspense  fallback, children
//	$async     name, text: suspends until a resolve step names it
//	$provider  context, value, children
//	$consumer  context: renders the provided value
//	$throw     message: fails to render
//	$boundary  children: renders "Caught: <message>" once a child failed
type builder struct {
	deferreds map[string]*fiber.Deferred
	contexts  map[string]*fiber.Context[any]
	async     map[string]*fiber.FunctionType

	thrower  *fiber.FunctionType
	boundary *fiber.ClassType
}

func newBuilder() *builder {
	b := &builder{
		deferreds: make(map[string]*fiber.Deferred),
		contexts:  make(map[string]*fiber.Context[any]),
		async:     make(map[string]*fiber.FunctionType),
	}

	b.thrower = fiber.Func("Throw", func(ctx *fiber.RenderContext, props fiber.Props) (fiber.Node, error) {
		return nil, errors.New(fmt.Sprint(props["message"]))
	})

	b.boundary = fiber.Class("Boundary", func(props fiber.Props) fiber.Component {
		return &boundary{}
	})
	b.boundary.DerivedStateFromError = func(err error) any {
		return fiber.Props{"error": err.Error()}
	}

	return b
}

type boundary struct {
	fiber.ComponentBase
}

func (c *boundary) Render(ctx *fiber.RenderContext) (fiber.Node, error) {
	if state, _ := c.State.(fiber.Props); state["error"] != nil {
		return fmt.Sprintf("Caught: %v", state["error"]), nil
	}
	return c.Props.Children(), nil
}

func (b *builder) deferred(name string) *fiber.Deferred {
	d, ok := b.deferreds[name]
	if !ok {
		d = fiber.NewDeferred()
		b.deferreds[name] = d
	}
	return d
}

func (b *builder) context(name string) *fiber.Context[any] {
	c, ok := b.contexts[name]
	if !ok {
		c = fiber.NewContext[any](nil)
		b.contexts[name] = c
	}
	return c
}

func (b *builder) build(n *yaml.Node) (fiber.Node, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return b.build(n.Content[0])

	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return n.Value, nil

	case yaml.SequenceNode:
		list := make([]fiber.Node, 0, len(n.Content))
		for _, item := range n.Content {
			child, err := b.build(item)
			if err != nil {
				return nil, err
			}
			list = append(list, child)
		}
		return list, nil

	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, fmt.Errorf("line %d: an element has exactly one type key", n.Line)
		}
		return b.element(n.Content[0].Value, n.Content[1])
	}

	return nil, fmt.Errorf("line %d: unsupported node", n.Line)
}

// element builds typ from body, which holds its props or, as a scalar or a
// sequence, its children.
func (b *builder) element(typ string, body *yaml.Node) (fiber.Node, error) {
	props := fiber.Props{}
	var children fiber.Node

	switch body.Kind {
	case yaml.MappingNode:
		for i := 0; i < len(body.Content); i += 2 {
			key, value := body.Content[i].Value, body.Content[i+1]

			switch key {
			case "children", "fallback":
				node, err := b.build(value)
				if err != nil {
					return nil, err
				}
				if key == "children" {
					children = node
				} else {
					props[key] = node
				}
			default:
				var v any
				if err := value.Decode(&v); err != nil {
					return nil, fmt.Errorf("line %d: %s: %w", value.Line, key, err)
				}
				props[key] = v
			}
		}
	default:
		node, err := b.build(body)
		if err != nil {
			return nil, err
		}
		children = node
	}

	var kids []fiber.Node
	if children != nil {
		kids = []fiber.Node{children}
	}

	if !strings.HasPrefix(typ, "$") {
		return fiber.H(typ, props, kids...), nil
	}

	switch typ {
	case "$fragment":
		return fiber.Fragment(props, kids...), nil

	case "$suspense":
		return fiber.Suspense(props["fallback"], kids...), nil

	case "$async":
		name, err := stringProp(typ, props, "name")
		if err != nil {
			return nil, err
		}
		return fiber.E(b.asyncType(name), props), nil

	case "$provider":
		name, err := stringProp(typ, props, "context")
		if err != nil {
			return nil, err
		}
		return b.context(name).Provider(props["value"], kids...), nil

	case "$consumer":
		name, err := stringProp(typ, props, "context")
		if err != nil {
			return nil, err
		}
		return b.context(name).Consumer(func(v any) fiber.Node {
			return fmt.Sprint(v)
		}), nil

	case "$throw":
		return fiber.E(b.thrower, props), nil

	case "$boundary":
		return fiber.E(b.boundary, props, kids...), nil
	}

	return nil, fmt.Errorf("unknown component %s", typ)
}

func (b *builder) asyncType(name string) *fiber.FunctionType {
	if t, ok := b.async[name]; ok {
		return t
	}

	d := b.deferred(name)
	t := fiber.Func("Async", func(ctx *fiber.RenderContext, props fiber.Props) (fiber.Node, error) {
		v, err := d.Value()
		if err != nil {
			return nil, err
		}
		if text, ok := props["text"]; ok {
			return fmt.Sprint(text), nil
		}
		return fmt.Sprint(v), nil
	})
	b.async[name] = t
	return t
}

func stringProp(typ string, props fiber.Props, key string) (string, error) {
	s, ok := props[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s needs a %s", typ, key)
	}
	return s, nil
}

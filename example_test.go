package fiber_test

import (
	"fmt"

	"github.com/AnatoleLucet/fiber"
	"github.com/AnatoleLucet/fiber/internal/memhost"
)

func Example() {
	host := memhost.New()
	container := host.NewContainer("root")

	rt := fiber.New(host)
	root := rt.CreateRoot(container, false)

	li := func(key string) fiber.Node {
		return fiber.H("li", fiber.Props{"key": key, "children": key})
	}

	root.Render(fiber.H("ul", nil, li("a"), li("b")), nil)
	fmt.Println(container)
	host.Reset()

	root.Render(fiber.H("ul", nil, li("b"), li("a")), nil)
	fmt.Println(container)
	fmt.Println(host.Reset())

	// Output:
	// <ul><li>a</li><li>b</li></ul>
	// <ul><li>b</li><li>a</li></ul>
	// [append li#2 to ul#4]
}

func ExampleRuntime_FlushAll() {
	host := memhost.New()
	container := host.NewContainer("root")

	rt := fiber.New(host, fiber.WithClock(fiber.NewManualClock()))
	root := rt.CreateRoot(container, true)

	root.Render(fiber.H("p", fiber.Props{"children": "hi"}), nil)
	fmt.Printf("%q %t\n", container.String(), rt.HasPendingWork())

	rt.FlushAll()
	fmt.Printf("%q %t\n", container.String(), rt.HasPendingWork())

	// Output:
	// "" true
	// "<p>hi</p>" false
}

func ExampleSuspense() {
	host := memhost.New()
	container := host.NewContainer("root")

	rt := fiber.New(host)
	root := rt.CreateRoot(container, false)

	name := fiber.NewDeferred()
	Greeting := fiber.Func("Greeting", func(ctx *fiber.RenderContext, props fiber.Props) (fiber.Node, error) {
		v, err := name.Value()
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("hello %v", v), nil
	})

	root.Render(fiber.Suspense("loading", fiber.E(Greeting, nil)), nil)
	fmt.Println(container)

	name.Resolve("world")
	rt.FlushAll()
	fmt.Println(container)

	// Output:
	// loading
	// hello world
}

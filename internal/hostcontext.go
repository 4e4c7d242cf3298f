package internal

func (r *Runtime) pushHostContainer(fiber *Fiber, container any) {
	prevContainer, prevContext := r.rootContainer, r.hostContext
	r.stack.push(fiber, func() {
		r.rootContainer, r.hostContext = prevContainer, prevContext
	})

	r.rootContainer = container
	r.hostContext = r.host.GetRootHostContext(container)
}

func (r *Runtime) popHostContainer(fiber *Fiber) error {
	return r.stack.pop(fiber)
}

func (r *Runtime) pushHostContext(fiber *Fiber) {
	prev := r.hostContext
	r.stack.push(fiber, func() { r.hostContext = prev })

	r.hostContext = r.host.GetChildHostContext(prev, string(fiber.Type.(HostType)))
}

func (r *Runtime) popHostContext(fiber *Fiber) error {
	return r.stack.pop(fiber)
}

func (r *Runtime) pushHostRootContext(fiber *Fiber) {
	root := fiber.StateNode.(*FiberRoot)
	r.pushHostContainer(fiber, root.Container)
}

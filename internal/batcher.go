package internal

// Batcher defers synchronous rendering while a batch is open.
type Batcher struct {
	// each nested batch increases the depth by 1
	depth int

	// set when synchronous work was requested inside the batch
	deferred bool
}

func NewBatcher() *Batcher {
	return &Batcher{}
}

func (b *Batcher) IsBatching() bool {
	return b.depth > 0
}

// Defer records that flush must run once the outermost batch returns.
func (b *Batcher) Defer() {
	b.deferred = true
}

func (b *Batcher) Batch(fn, flush func()) {
	b.depth++
	defer func() {
		b.depth--
		if b.depth == 0 && b.deferred {
			b.deferred = false
			flush()
		}
	}()

	fn()
}

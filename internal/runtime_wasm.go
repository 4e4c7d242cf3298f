//go:build wasm

package internal

// wasm runs a single goroutine at a time, the owner check is meaningless.
func currentGoroutine() int64 {
	return 0
}

//go:build !wasm

package internal

import "github.com/petermattis/goid"

func currentGoroutine() int64 {
	return goid.Get()
}

package internal

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

var (
	ErrNoSuspenseBoundary = errors.New("fiber: a component suspended but no suspense boundary was found")
	ErrMaxUpdateDepth     = errors.New("fiber: maximum update depth exceeded")
	ErrWrongGoroutine     = errors.New("fiber: runtime used outside its owner goroutine")
	ErrNotMounted         = errors.New("fiber: component is not mounted")
	ErrInvalidChild       = errors.New("fiber: not a valid child")
	ErrInvalidElementType = errors.New("fiber: not a valid element type")

	errTornRead = errors.New("fiber: mutable source changed during render")
)

// InvariantError is a defect in the reconciler itself. It is never routed to
// an error boundary.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "fiber: invariant violation: " + e.Message
}

func invariant(format string, args ...any) *InvariantError {
	return &InvariantError{Message: fmt.Sprintf(format, args...)}
}

// PanicError wraps a value recovered from user code.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("fiber: panic in user code: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// NotReadyError is the suspension signal. It is returned by a render
// callback whose data is not available yet.
type NotReadyError struct {
	Wakeable Wakeable
}

func (e *NotReadyError) Error() string {
	return "fiber: component suspended"
}

// RenderError is returned when a render error reached the root without an
// error boundary to capture it.
type RenderError struct {
	Err            error
	ComponentStack string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("fiber: uncaught render error: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// ErrorInfo is passed to ComponentDidCatch.
type ErrorInfo struct {
	ComponentStack string
}

func IsNotReady(err error) (*NotReadyError, bool) {
	var nr *NotReadyError
	ok := errors.As(err, &nr)
	return nr, ok
}

func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// recoverInto converts a panic into an error stored at dst.
func recoverInto(dst *error) {
	v := recover()
	if v == nil {
		return
	}

	if err, ok := v.(error); ok {
		if _, notReady := IsNotReady(err); notReady {
			*dst = err
			return
		}
	}

	*dst = &PanicError{Value: v, Stack: debug.Stack()}
}

// componentStack lists the names from f up to the root.
func componentStack(f *Fiber) string {
	var b strings.Builder
	for node := f; node != nil; node = node.Return {
		switch node.Kind {
		case KindHostRoot, KindFragment, KindMode:
			continue
		}
		b.WriteString("\n    in ")
		b.WriteString(node.Name())
	}
	return b.String()
}

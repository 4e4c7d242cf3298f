package internal

import (
	"math"
	"strconv"
)

// ExpirationTime is the deadline by which a pending update must be visibly
// applied. Smaller values are more urgent.
type ExpirationTime uint32

const (
	// NoWork is the maximal sentinel, so min folds ignore it.
	NoWork ExpirationTime = math.MaxUint32
	// Never marks offscreen work that only runs when nothing else is pending.
	Never ExpirationTime = math.MaxUint32 - 1
	Sync  ExpirationTime = 1

	unitSize          = 10 // ms per expiration unit
	magicNumberOffset = 2
)

func (e ExpirationTime) String() string {
	switch e {
	case NoWork:
		return "NoWork"
	case Never:
		return "Never"
	case Sync:
		return "Sync"
	}

	return strconv.FormatUint(uint64(e), 10)
}

// IsPendingAt reports whether work stamped with e must be processed by a
// render targeting renderTime.
func (e ExpirationTime) IsPendingAt(renderTime ExpirationTime) bool {
	return e <= renderTime
}

func MsToExpirationTime(ms int64) ExpirationTime {
	return ExpirationTime(ms/unitSize + magicNumberOffset)
}

func ExpirationTimeToMs(e ExpirationTime) int64 {
	return (int64(e) - magicNumberOffset) * unitSize
}

func ceiling(num, precision int64) int64 {
	return (num/precision + 1) * precision
}

// computeExpirationBucket rounds current+expirationMs up to the next bucket so
// that updates scheduled close together are batched into one render.
func computeExpirationBucket(current ExpirationTime, expirationMs, bucketSizeMs int64) ExpirationTime {
	return ExpirationTime(magicNumberOffset +
		ceiling(int64(current)-magicNumberOffset+expirationMs/unitSize, bucketSizeMs/unitSize))
}

// Priority selects how far in the future an update expires.
type Priority uint8

const (
	PriorityNormal Priority = iota
	PriorityInteractive
	PrioritySync
	PriorityIdle
)

func (p Priority) String() string {
	switch p {
	case PriorityInteractive:
		return "interactive"
	case PrioritySync:
		return "sync"
	case PriorityIdle:
		return "idle"
	default:
		return "normal"
	}
}

func (r *Runtime) computeAsyncExpiration(current ExpirationTime) ExpirationTime {
	c := r.config.Expiration
	return computeExpirationBucket(current, c.AsyncMs, c.AsyncBucketMs)
}

func (r *Runtime) computeInteractiveExpiration(current ExpirationTime) ExpirationTime {
	c := r.config.Expiration
	return computeExpirationBucket(current, c.InteractiveMs, c.InteractiveBucketMs)
}

// computeExpirationForFiber picks the expiration of a new update on fiber
// from the phase the runtime is in and the ambient priority.
func (r *Runtime) computeExpirationForFiber(current ExpirationTime, fiber *Fiber) ExpirationTime {
	var exp ExpirationTime

	switch {
	case r.isWorking && r.isCommitting:
		exp = Sync
	case r.isWorking:
		exp = r.nextRenderExpirationTime
	case !fiber.Mode.Has(ConcurrentMode):
		exp = Sync
	default:
		switch r.priority {
		case PrioritySync:
			exp = Sync
		case PriorityInteractive:
			exp = r.computeInteractiveExpiration(current)
		case PriorityIdle:
			exp = Never
		default:
			exp = r.computeAsyncExpiration(current)
		}

		// never land in the batch that is currently rendering
		if r.nextRoot != nil && exp == r.nextRenderExpirationTime {
			exp++
		}
	}

	return exp
}

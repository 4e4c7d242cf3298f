package internal

import "time"

// Clock measures the time elapsed since the runtime started.
type Clock interface {
	Now() time.Duration
}

type realClock struct {
	start time.Time
}

func NewRealClock() Clock {
	return realClock{start: time.Now()}
}

func (c realClock) Now() time.Duration {
	return time.Since(c.start)
}

// ManualClock only moves when advanced, so expirations are deterministic.
type ManualClock struct {
	now time.Duration
}

func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (c *ManualClock) Now() time.Duration {
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.now += d
}

// recomputeCurrentTime reads the clock as an expiration time.
func (r *Runtime) recomputeCurrentTime() ExpirationTime {
	return MsToExpirationTime(r.clock.Now().Milliseconds())
}

// requestCurrentTime is the time updates are stamped with. It stays the same
// for the whole of a render loop so updates scheduled from lifecycle hooks
// land in the same bucket.
func (r *Runtime) requestCurrentTime() ExpirationTime {
	if r.isRendering && r.currentSchedulerTime != NoWork {
		return r.currentSchedulerTime
	}

	r.currentSchedulerTime = r.recomputeCurrentTime()
	return r.currentSchedulerTime
}

// Deadline is consulted after every unit of work; work yields once no time
// is remaining.
type Deadline interface {
	TimeRemaining() time.Duration
}

type timeDeadline struct {
	clock Clock
	until time.Duration
}

func (d timeDeadline) TimeRemaining() time.Duration {
	return d.until - d.clock.Now()
}

// DeadlineAfter returns a deadline expiring d from now on the runtime clock.
func (r *Runtime) DeadlineAfter(d time.Duration) Deadline {
	return timeDeadline{clock: r.clock, until: r.clock.Now() + d}
}

// UnitDeadline allows a fixed number of units of work.
type UnitDeadline struct {
	units int
}

func NewUnitDeadline(units int) *UnitDeadline {
	return &UnitDeadline{units: units}
}

// TimeRemaining accounts for one completed unit.
func (d *UnitDeadline) TimeRemaining() time.Duration {
	d.units--
	if d.units <= 0 {
		return 0
	}
	return time.Duration(d.units)
}

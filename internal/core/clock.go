// Injectable wall-clock source (spec §6 "Environment & services", §9
// "Global mutable state... replace with per-actor injection"). Grounded on
// the teacher's internal/extensibility/eventsource.go, which already
// schedules purely with time.Ticker/time.Timer; no clock-abstraction
// library (benbjohnson/clock, k8s.io/utils/clock, ...) appears anywhere in
// the retrieval pack, so this stays a small stdlib-backed interface rather
// than adopt a library the corpus never reaches for.
package core

import "time"

// Clock abstracts wall-clock time so timer scheduling (C6) can be replaced
// with a deterministic implementation in tests (spec P-5).
type Clock interface {
	Now() time.Time
	// AfterFunc schedules fn to run after d elapses and returns a handle
	// that cancels the pending call.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is the cancellable handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// RealClock is the default Clock, backed directly by the time package.
type RealClock struct{}

// NewRealClock returns a Clock backed by the real wall clock.
func NewRealClock() RealClock { return RealClock{} }

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// VirtualClock is a deterministic, manually-advanced Clock for tests: no
// goroutine runs on its own, and Advance fires every due callback in
// fire-time order, ties broken by scheduling order (spec §6: "test implementations permit deterministic
// replay... incrementing clock").
type VirtualClock struct {
	now     time.Time
	pending []*virtualTimer
	seq     int
}

// NewVirtualClock returns a VirtualClock starting at the given time.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time { return c.now }

func (c *VirtualClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.seq++
	t := &virtualTimer{clock: c, fireAt: c.now.Add(d), fn: fn, seq: c.seq}
	c.pending = append(c.pending, t)
	return t
}

// Advance moves the clock forward by d, firing (in fireAt, then insertion,
// order) every timer due at or before the new time, including timers that
// a callback schedules within that window. While a callback runs, Now
// reports that timer's fire time.
func (c *VirtualClock) Advance(d time.Duration) {
	cur := c.now
	target := cur.Add(d)
	for {
		c.now = target
		idx, ok := c.nextDue()
		if !ok {
			return
		}
		t := c.pending[idx]
		c.pending = append(c.pending[:idx], c.pending[idx+1:]...)
		if t.fireAt.After(cur) {
			cur = t.fireAt
		}
		c.now = cur
		t.fn()
	}
}

func (c *VirtualClock) nextDue() (int, bool) {
	best := -1
	for i, t := range c.pending {
		if t.stopped {
			continue
		}
		if t.fireAt.After(c.now) {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		bt := c.pending[best]
		if t.fireAt.Before(bt.fireAt) || (t.fireAt.Equal(bt.fireAt) && t.seq < bt.seq) {
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

type virtualTimer struct {
	clock   *VirtualClock
	fireAt  time.Time
	fn      func()
	seq     int
	stopped bool
}

func (t *virtualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Package testutil provides deterministic helpers shared by package tests.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/five82/sheetsync/internal/autosave"
)

// ManualClock is an autosave.Clock whose time only moves when Advance is
// called. Timer callbacks run synchronously on the goroutine calling
// Advance, in deadline order, so tests observe every transition in order.
//
// Thread-safety: all methods are safe for concurrent use. Callbacks run
// without the clock's lock held and may schedule further timers.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int64
	timers []*ManualTimer
}

// ManualTimer is a timer created by ManualClock.
type ManualTimer struct {
	clock   *ManualClock
	when    time.Time
	seq     int64
	fn      func()
	stopped bool
	fired   bool
}

var _ autosave.Clock = (*ManualClock)(nil)

// NewManualClock creates a clock starting at a fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run once Advance moves past now+d.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) autosave.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &ManualTimer{clock: c, when: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop cancels the timer. It reports whether the call prevented the callback.
func (t *ManualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d, firing every timer that comes due,
// including timers scheduled by callbacks during the advance.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.compactLocked()
			c.mu.Unlock()
			return
		}
		c.now = next.when
		next.fired = true
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
}

// Pending returns how many timers are still waiting to fire.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// NextDeadline returns the offset from now of the earliest active timer.
func (c *ManualClock) NextDeadline() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.nextDueLocked(time.Time{})
	if next == nil {
		return 0, false
	}
	return next.when.Sub(c.now), true
}

// nextDueLocked returns the earliest active timer due at or before limit.
// A zero limit means no limit.
func (c *ManualClock) nextDueLocked(limit time.Time) *ManualTimer {
	active := make([]*ManualTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if t.stopped || t.fired {
			continue
		}
		if !limit.IsZero() && t.when.After(limit) {
			continue
		}
		active = append(active, t)
	}
	if len(active) == 0 {
		return nil
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].when.Equal(active[j].when) {
			return active[i].seq < active[j].seq
		}
		return active[i].when.Before(active[j].when)
	})
	return active[0]
}

func (c *ManualClock) compactLocked() {
	kept := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			kept = append(kept, t)
		}
	}
	c.timers = kept
}

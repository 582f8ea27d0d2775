// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock that only moves when Advance is called. It is
// safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
	changed *sync.Cond
}

type fakeTimer struct {
	deadline time.Time
	fire     chan time.Time
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	clock := &FakeClock{now: start}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTimer registers a pending timer. Timers with d <= 0 fire at once
// and are never pending.
func (c *FakeClock) NewTimer(d time.Duration) *Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	fire := make(chan time.Time, 1)
	if d <= 0 {
		fire <- c.now
		return &Timer{C: fire, stop: func() bool { return false }}
	}

	timer := &fakeTimer{deadline: c.now.Add(d), fire: fire}
	c.pending = append(c.pending, timer)
	c.changed.Broadcast()
	return &Timer{C: fire, stop: func() bool { return c.cancel(timer) }}
}

func (c *FakeClock) cancel(timer *fakeTimer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	index := slices.Index(c.pending, timer)
	if index < 0 {
		return false
	}
	c.pending = slices.Delete(c.pending, index, index+1)
	c.changed.Broadcast()
	return true
}

// Advance moves the clock forward by d and fires every timer due by
// the new time, earliest deadline first.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []*fakeTimer
	c.pending = slices.DeleteFunc(c.pending, func(timer *fakeTimer) bool {
		if timer.deadline.After(now) {
			return false
		}
		due = append(due, timer)
		return true
	})
	c.changed.Broadcast()
	c.mu.Unlock()

	slices.SortStableFunc(due, func(a, b *fakeTimer) int {
		return a.deadline.Compare(b.deadline)
	})
	for _, timer := range due {
		timer.fire <- now
	}
}

// WaitForTimers blocks until at least n timers are pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) < n {
		c.changed.Wait()
	}
}

// Pending returns the number of timers that have neither fired nor
// been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// UntilNext returns how far the earliest pending deadline lies ahead.
// ok is false when no timer is pending.
func (c *FakeClock) UntilNext() (wait time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return 0, false
	}
	earliest := c.pending[0].deadline
	for _, timer := range c.pending[1:] {
		if timer.deadline.Before(earliest) {
			earliest = timer.deadline
		}
	}
	return earliest.Sub(c.now), true
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source for the watch loop's pauses, call timing,
// and recording timestamps.
type Clock interface {
	Now() time.Time

	// NewTimer returns a Timer that fires once after d. A timer with
	// d <= 0 has already fired when NewTimer returns.
	NewTimer(d time.Duration) *Timer
}

// Timer delivers its fire time on C once unless stopped first.
type Timer struct {
	C <-chan time.Time

	stop func() bool
}

// Stop cancels the timer and reports whether it was still pending.
func (t *Timer) Stop() bool { return t.stop() }

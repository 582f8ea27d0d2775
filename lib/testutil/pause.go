// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"time"

	"github.com/bureau-foundation/homewire/lib/clock"
)

// ExpectPause waits until code under test registers a timer on fake,
// fails the test unless the earliest pending delay equals want, and
// advances the clock by exactly that delay.
//
//	testutil.ExpectPause(t, fake, 25*time.Millisecond)  // inter-poll pause
//	testutil.ExpectPause(t, fake, 100*time.Millisecond) // first backoff
func ExpectPause(t TB, fake *clock.FakeClock, want time.Duration) {
	t.Helper()
	fake.WaitForTimers(1)
	got, ok := fake.UntilNext()
	if !ok {
		t.Fatalf("no pending timer after WaitForTimers")
	}
	if got != want {
		t.Fatalf("pending delay = %v, want %v", got, want)
	}
	fake.Advance(got)
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets tests drive time.
//
// The watch loop pauses between polls, backs off after failures, and
// pauses before unsubscribing. Each of those waits is a Timer from a
// Clock, so a test can hold the loop at any wait and release it:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go consume(watch.Stream(ctx, source, ids, watch.Options{Clock: fake}))
//	fake.WaitForTimers(1)       // the loop is waiting
//	wait, _ := fake.UntilNext() // for this long
//	fake.Advance(wait)          // release it
package clock

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package watch turns a stateful long-poll primitive into a lazy,
// cancellable stream of change events.
//
// The controller has no push channel. To observe changes a client
// enables a subscription for a set of resource ids, repeatedly calls a
// wait-for-changes operation that blocks up to a timeout, and finally
// disables the subscription. A [Source] supplies those three steps for
// one resource family; [Stream] drives them:
//
//	for event, err := range watch.Stream(ctx, source, []int{10, 20}, watch.Options{}) {
//	    if err != nil {
//	        return err // *SubscriptionError or *FatalError
//	    }
//	    handle(event)
//	}
//
// Before every poll the loop pauses briefly (PollPause) so it never
// saturates the controller. A failed poll is retried after a backoff of
// count² × BackoffUnit, where count is the number of consecutive
// failures; a successful poll resets the count. Once the count exceeds
// MaxConsecutiveErrors the stream yields a [*FatalError] and ends.
//
// However the stream ends (the consumer breaks out of the loop, ctx is
// cancelled, or the loop gives up) the subscription is disabled exactly
// once, after a short CleanupPause, on a context detached from the
// caller's cancellation. Disable failures are logged and never replace
// the original reason the stream ended. Cancellation is not an error: a
// cancelled stream simply stops.
//
// Exactly one poll is in flight per stream. Independent streams over
// different id sets may run concurrently against one session.
package watch

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"errors"
	"fmt"
)

// ErrNoResources is yielded when a stream is started with no resource
// ids. No subscription is attempted.
var ErrNoResources = errors.New("watch: no resource ids to watch")

// SubscriptionError reports a failed enable or disable step. An enable
// failure ends the stream before any poll; a disable failure during
// cleanup is only logged.
type SubscriptionError struct {
	// Operation is "enable" or "disable".
	Operation string
	IDs       []int
	Err       error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("watch: %s subscription for %v: %v", e.Operation, e.IDs, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// FatalError ends a stream after more than MaxConsecutiveErrors polls
// failed back to back. Err is the last poll failure.
type FatalError struct {
	Attempts int
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("watch: giving up after %d consecutive poll failures: %v", e.Attempts, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

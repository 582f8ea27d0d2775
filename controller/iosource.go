// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"iter"
	"time"

	"github.com/bureau-foundation/homewire/lib/netutil"
	"github.com/bureau-foundation/homewire/lib/watch"
)

// ioSource adapts a Session's state-change subscription calls to
// watch.Source.
type ioSource struct {
	session *Session
}

var _ watch.Source[ChangeEvent] = ioSource{}

func (s ioSource) Enable(ctx context.Context, ids []int) error {
	return s.session.EnableStateChangeEvents(ctx, ids)
}

func (s ioSource) Wait(ctx context.Context, timeout time.Duration) ([]ChangeEvent, error) {
	events, err := s.session.WaitStateChangeEvents(ctx, timeout)
	if err != nil && netutil.IsConnectionError(err) {
		// A dropped keep-alive connection would otherwise be handed out
		// again from the pool on the next poll.
		s.session.client.CloseIdleConnections()
	}
	return events, err
}

func (s ioSource) Disable(ctx context.Context, ids []int) error {
	err := s.session.DisableStateChangeEvents(ctx, ids)
	if isNotAuthenticated(err) {
		// The subscription ended with the session.
		return nil
	}
	return err
}

// WatchResources streams value changes of the resources in ids. Nothing
// happens until the sequence is ranged over. Ranging subscribes, polls
// until ctx is cancelled or the loop breaks, and unsubscribes on exit.
// Transient failures are retried with backoff; a *watch.FatalError is
// yielded once the failure threshold is exceeded. When options.Logger
// and Clock are nil the client's are used.
func (s *Session) WatchResources(ctx context.Context, ids []int, options watch.Options) iter.Seq2[ChangeEvent, error] {
	if options.Logger == nil {
		options.Logger = s.client.logger
	}
	if options.Clock == nil {
		options.Clock = s.client.clock
	}
	return watch.Stream[ChangeEvent](ctx, ioSource{session: s}, ids, options)
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/bureau-foundation/homewire/lib/clock"
)

// Source supplies the subscribe, poll, and unsubscribe steps for one
// family of pollable resources.
type Source[E any] interface {
	// Enable activates change tracking for ids.
	Enable(ctx context.Context, ids []int) error

	// Wait blocks until changes are available or timeout elapses and
	// returns the changes in controller order. An empty result is not
	// an error.
	Wait(ctx context.Context, timeout time.Duration) ([]E, error)

	// Disable deactivates change tracking for ids.
	Disable(ctx context.Context, ids []int) error
}

// Defaults applied to zero-valued Options fields.
const (
	DefaultPollPause = 25 * time.Millisecond

	// DefaultWaitTimeout stays below the controller's own wait ceiling
	// (about 20 seconds) so the controller never ends the wait first.
	DefaultWaitTimeout = 15 * time.Second

	DefaultBackoffUnit          = 100 * time.Millisecond
	DefaultMaxConsecutiveErrors = 10
	DefaultCleanupPause         = 25 * time.Millisecond
	DefaultCleanupTimeout       = 10 * time.Second
)

// Options tune a stream. The zero value uses the defaults above.
type Options struct {
	// Clock drives every pause. If nil, clock.Real() is used.
	Clock clock.Clock

	// Logger receives retry and cleanup diagnostics. If nil,
	// slog.Default() is used.
	Logger *slog.Logger

	// PollPause is the pause before every poll.
	PollPause time.Duration

	// WaitTimeout is passed to Source.Wait.
	WaitTimeout time.Duration

	// BackoffUnit scales the delay after a failed poll.
	BackoffUnit time.Duration

	// MaxConsecutiveErrors is the number of back-to-back poll failures
	// tolerated. The next failure ends the stream with a FatalError.
	MaxConsecutiveErrors int

	// CleanupPause is the pause before Disable.
	CleanupPause time.Duration

	// CleanupTimeout bounds the pause and Disable call during cleanup.
	CleanupTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.PollPause <= 0 {
		o.PollPause = DefaultPollPause
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	if o.BackoffUnit <= 0 {
		o.BackoffUnit = DefaultBackoffUnit
	}
	if o.MaxConsecutiveErrors <= 0 {
		o.MaxConsecutiveErrors = DefaultMaxConsecutiveErrors
	}
	if o.CleanupPause <= 0 {
		o.CleanupPause = DefaultCleanupPause
	}
	if o.CleanupTimeout <= 0 {
		o.CleanupTimeout = DefaultCleanupTimeout
	}
	return o
}

// BackoffDelay returns the delay after the count-th consecutive
// failure: count² × unit. The delay is not capped.
func BackoffDelay(count int, unit time.Duration) time.Duration {
	return time.Duration(count) * time.Duration(count) * unit
}

// Stream returns a lazy sequence of the change events for ids. Nothing
// happens until the sequence is ranged over. Duplicate ids are dropped,
// keeping the first occurrence, so the subscription is an ordered,
// duplicate-free set.
//
// Errors are yielded at most once, as the final element: ErrNoResources,
// a *SubscriptionError when Enable fails, or a *FatalError when polling
// keeps failing. A cancelled ctx ends the sequence without an error.
func Stream[E any](ctx context.Context, source Source[E], ids []int, options Options) iter.Seq2[E, error] {
	options = options.withDefaults()
	subscription := uniqueIDs(ids)

	return func(yield func(E, error) bool) {
		var zero E
		if len(subscription) == 0 {
			yield(zero, ErrNoResources)
			return
		}
		if ctx.Err() != nil {
			return
		}

		logger := options.Logger.With("resources", subscription)
		if err := source.Enable(ctx, subscription); err != nil {
			yield(zero, &SubscriptionError{Operation: "enable", IDs: subscription, Err: err})
			return
		}
		logger.Debug("watch subscription enabled")
		defer unsubscribe(ctx, source, subscription, options, logger)

		consecutiveErrors := 0
		for {
			if pause(ctx, options.Clock, options.PollPause) != nil {
				return
			}

			events, err := source.Wait(ctx, options.WaitTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				consecutiveErrors++
				if consecutiveErrors > options.MaxConsecutiveErrors {
					logger.Error("watch poll failing persistently, giving up",
						"attempts", consecutiveErrors,
						"error", err,
					)
					yield(zero, &FatalError{Attempts: consecutiveErrors, Err: err})
					return
				}
				delay := BackoffDelay(consecutiveErrors, options.BackoffUnit)
				logger.Debug("watch poll failed, backing off",
					"attempt", consecutiveErrors,
					"max_attempts", options.MaxConsecutiveErrors,
					"delay", delay,
					"error", err,
				)
				if pause(ctx, options.Clock, delay) != nil {
					return
				}
				continue
			}
			consecutiveErrors = 0

			for _, event := range events {
				if ctx.Err() != nil {
					return
				}
				if !yield(event, nil) {
					return
				}
			}
		}
	}
}

// unsubscribe runs on every exit path once Enable has succeeded. It is
// detached from ctx cancellation so a cancelled stream still disables
// its subscription, and bounded by CleanupTimeout.
func unsubscribe[E any](ctx context.Context, source Source[E], ids []int, options Options, logger *slog.Logger) {
	cleanupContext, cancel := context.WithTimeout(context.WithoutCancel(ctx), options.CleanupTimeout)
	defer cancel()

	if err := pause(cleanupContext, options.Clock, options.CleanupPause); err != nil {
		logger.Warn("watch cleanup pause interrupted", "error", err)
	}
	if err := source.Disable(cleanupContext, ids); err != nil {
		logger.Warn("disabling watch subscription failed",
			"error", &SubscriptionError{Operation: "disable", IDs: ids, Err: err},
		)
		return
	}
	logger.Debug("watch subscription disabled")
}

// pause suspends for d or until ctx is done, whichever comes first.
func pause(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := clk.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	unique := make([]int, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}

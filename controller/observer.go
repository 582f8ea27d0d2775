// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CallRecord describes one completed transport call. Request and
// Response hold redacted, escaped envelope text. Exactly one of
// Response and Err is meaningful: Err is set when the call failed.
type CallRecord struct {
	// ID correlates the record with log lines from the same call.
	ID uuid.UUID

	// Operation is "<service>.<action>".
	Operation string

	Request  string
	Response string
	Err      error

	// StatusCode is the HTTP status, or zero when no answer arrived.
	StatusCode int

	Started  time.Time
	Duration time.Duration
}

// CallObserver receives a record of every transport call. Observers
// are called synchronously on the calling goroutine and must not block.
type CallObserver interface {
	ObserveCall(ctx context.Context, record CallRecord)
}

// LogObserver writes call records to a structured logger: successful
// calls at debug level, failures at warn level.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) ObserveCall(ctx context.Context, record CallRecord) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attributes := []any{
		"call_id", record.ID.String(),
		"operation", record.Operation,
		"duration", record.Duration,
		"request", record.Request,
	}
	if record.StatusCode != 0 {
		attributes = append(attributes, "status", record.StatusCode)
	}
	if record.Err != nil {
		logger.WarnContext(ctx, "controller call failed", append(attributes, "error", record.Err)...)
		return
	}
	logger.DebugContext(ctx, "controller call", append(attributes, "response", record.Response)...)
}

// Observers fans one record out to several observers in order.
type Observers []CallObserver

func (o Observers) ObserveCall(ctx context.Context, record CallRecord) {
	for _, observer := range o {
		observer.ObserveCall(ctx, record)
	}
}

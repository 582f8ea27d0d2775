// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bureau-foundation/homewire/controller"
	"github.com/bureau-foundation/homewire/lib/envelope"
	"github.com/bureau-foundation/homewire/lib/version"
	"github.com/bureau-foundation/homewire/lib/watch"
)

// Call outcomes, used as the "outcome" label.
const (
	OutcomeSuccess   = "success"
	OutcomeFault     = "fault"
	OutcomeDecode    = "decode"
	OutcomeTransport = "transport"
	OutcomeError     = "error"
)

// Observer collects controller call and watch metrics. It implements
// controller.CallObserver. Each Observer owns its collectors, so tests
// and multiple clients can each register their own.
type Observer struct {
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	watchEvents  *prometheus.CounterVec
	watchErrors  *prometheus.CounterVec
	buildInfo    *prometheus.GaugeVec
}

var _ controller.CallObserver = (*Observer)(nil)

// New creates an Observer with unregistered collectors.
func New() *Observer {
	observer := &Observer{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "homewire",
				Name:      "calls_total",
				Help:      "Controller calls by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "homewire",
				Name:      "call_duration_seconds",
				Help:      "Controller call duration in seconds, including long-poll waits.",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"operation"},
		),
		watchEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "homewire",
				Subsystem: "watch",
				Name:      "events_total",
				Help:      "Change events delivered by watch streams, by value type.",
			},
			[]string{"type"},
		),
		watchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "homewire",
				Subsystem: "watch",
				Name:      "errors_total",
				Help:      "Errors that ended a watch stream, by kind.",
			},
			[]string{"kind"},
		),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "homewire",
				Name:      "build_info",
				Help:      "Build information for the homewire client.",
			},
			[]string{"version", "commit"},
		),
	}
	observer.buildInfo.WithLabelValues(version.Short(), version.Commit()).Set(1)
	return observer
}

// Register adds the observer's collectors to registerer.
func (o *Observer) Register(registerer prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{o.calls, o.callDuration, o.watchEvents, o.watchErrors, o.buildInfo} {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// ObserveCall records one controller call.
func (o *Observer) ObserveCall(_ context.Context, record controller.CallRecord) {
	o.calls.WithLabelValues(record.Operation, Outcome(record.Err)).Inc()
	o.callDuration.WithLabelValues(record.Operation).Observe(record.Duration.Seconds())
}

// ObserveWatchEvent counts one delivered change event.
func (o *Observer) ObserveWatchEvent(event controller.ChangeEvent) {
	o.watchEvents.WithLabelValues(event.Type.String()).Inc()
}

// ObserveWatchError counts an error yielded by a watch stream.
func (o *Observer) ObserveWatchError(err error) {
	kind := "other"
	var fatal *watch.FatalError
	var subscription *watch.SubscriptionError
	switch {
	case errors.As(err, &fatal):
		kind = "fatal"
	case errors.As(err, &subscription):
		kind = "subscription"
	case errors.Is(err, watch.ErrNoResources):
		kind = "no_resources"
	}
	o.watchErrors.WithLabelValues(kind).Inc()
}

// Outcome classifies a call error for the "outcome" label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var fault *envelope.Fault
	var decodeErr *envelope.DecodeError
	var transportErr *controller.TransportError
	switch {
	case errors.As(err, &fault):
		return OutcomeFault
	case errors.As(err, &decodeErr):
		return OutcomeDecode
	case errors.As(err, &transportErr):
		return OutcomeTransport
	default:
		return OutcomeError
	}
}

// Handler serves gatherer's metrics in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes controller call and watch statistics to
// Prometheus.
//
// An [Observer] is passed as ClientConfig.Observer (alone or inside
// controller.Observers next to a LogObserver) and is fed watch results
// by the caller:
//
//	observer := metrics.New()
//	registry := prometheus.NewRegistry()
//	if err := observer.Register(registry); err != nil { ... }
//	http.Handle("/metrics", metrics.Handler(registry))
//
// Exported series:
//
//   - homewire_calls_total{operation,outcome}
//   - homewire_call_duration_seconds{operation}
//   - homewire_watch_events_total{type}
//   - homewire_watch_errors_total{kind}
//   - homewire_build_info{version,commit}
package metrics

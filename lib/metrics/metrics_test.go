// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/homewire/controller"
	"github.com/bureau-foundation/homewire/lib/envelope"
	"github.com/bureau-foundation/homewire/lib/watch"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{fmt.Errorf("controller: IOService.GetValues: %w", &envelope.Fault{Code: "s:Client"}), OutcomeFault},
		{fmt.Errorf("wrapped: %w", &envelope.DecodeError{Field: "x"}), OutcomeDecode},
		{&controller.TransportError{Operation: "IOService.GetValues", StatusCode: 503}, OutcomeTransport},
		{errors.New("something else"), OutcomeError},
	}
	for _, test := range tests {
		if got := Outcome(test.err); got != test.want {
			t.Errorf("Outcome(%v) = %q, want %q", test.err, got, test.want)
		}
	}
}

func TestObserver(t *testing.T) {
	observer := New()
	registry := prometheus.NewRegistry()
	if err := observer.Register(registry); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx := context.Background()
	observer.ObserveCall(ctx, controller.CallRecord{Operation: "IOService.GetValues", Duration: 100 * time.Millisecond})
	observer.ObserveCall(ctx, controller.CallRecord{Operation: "IOService.GetValues", Duration: 50 * time.Millisecond})
	observer.ObserveCall(ctx, controller.CallRecord{
		Operation: "IOService.WaitStateChangeEvents",
		Err:       &controller.TransportError{Operation: "IOService.WaitStateChangeEvents", StatusCode: 502},
	})
	observer.ObserveWatchEvent(controller.ChangeEvent{ResourceID: 4, Type: controller.TypeBool, Value: controller.BoolValue(true)})
	observer.ObserveWatchEvent(controller.ChangeEvent{ResourceID: 5, Type: controller.TypeBool, Value: controller.BoolValue(false)})
	observer.ObserveWatchError(&watch.FatalError{Attempts: 11, Err: errors.New("down")})

	if v := testutil.ToFloat64(observer.calls.WithLabelValues("IOService.GetValues", OutcomeSuccess)); v != 2 {
		t.Errorf("successful GetValues calls = %v, want 2", v)
	}
	if v := testutil.ToFloat64(observer.calls.WithLabelValues("IOService.WaitStateChangeEvents", OutcomeTransport)); v != 1 {
		t.Errorf("failed wait calls = %v, want 1", v)
	}
	if v := testutil.ToFloat64(observer.watchEvents.WithLabelValues("bool")); v != 2 {
		t.Errorf("bool events = %v, want 2", v)
	}
	if v := testutil.ToFloat64(observer.watchErrors.WithLabelValues("fatal")); v != 1 {
		t.Errorf("fatal errors = %v, want 1", v)
	}
	if count := testutil.CollectAndCount(observer.callDuration); count != 2 {
		t.Errorf("duration series = %d, want 2", count)
	}

	if err := observer.Register(registry); err == nil {
		t.Error("registering twice succeeded")
	}
}

func TestHandler(t *testing.T) {
	observer := New()
	registry := prometheus.NewRegistry()
	if err := observer.Register(registry); err != nil {
		t.Fatalf("Register: %v", err)
	}
	observer.ObserveCall(context.Background(), controller.CallRecord{Operation: "SessionService.Authenticate"})

	server := httptest.NewServer(Handler(registry))
	defer server.Close()

	response, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	for _, want := range []string{
		`homewire_calls_total{operation="SessionService.Authenticate",outcome="success"} 1`,
		"homewire_build_info{",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s:\n%s", want, body)
		}
	}
}

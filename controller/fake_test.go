// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bureau-foundation/homewire/lib/secret"
)

const testCookie = "c0ffee-session"

// recordedCall is one request as seen by the fake controller.
type recordedCall struct {
	Path        string
	SOAPAction  string
	ContentType string
	Cookie      string
	Body        string
}

// Action returns the action name from the SOAPAction header.
func (c recordedCall) Action() string {
	action := strings.Trim(c.SOAPAction, `"`)
	return action[strings.LastIndexByte(action, '/')+1:]
}

// fakeController answers envelope calls by action name. Authenticate
// and Logout have default handlers; tests install others with handle.
type fakeController struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    []recordedCall
}

func newFakeController(t *testing.T) *fakeController {
	t.Helper()
	fake := &fakeController{t: t, handlers: make(map[string]http.HandlerFunc)}
	fake.handle("Authenticate", func(writer http.ResponseWriter, _ *http.Request) {
		http.SetCookie(writer, &http.Cookie{Name: DefaultCookieName, Value: testCookie, Path: "/"})
		writeEnvelope(writer, `<AuthenticateResponse xmlns="`+Namespace+`"><return>true</return></AuthenticateResponse>`)
	})
	fake.handle("Logout", func(writer http.ResponseWriter, _ *http.Request) {
		writeEnvelope(writer, `<LogoutResponse xmlns="`+Namespace+`"/>`)
	})
	fake.server = httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(fake.server.Close)
	return fake
}

func (f *fakeController) handle(action string, handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[action] = handler
}

func (f *fakeController) serve(writer http.ResponseWriter, request *http.Request) {
	body, err := io.ReadAll(request.Body)
	if err != nil {
		f.t.Errorf("reading request body: %v", err)
	}
	call := recordedCall{
		Path:        request.URL.Path,
		SOAPAction:  request.Header.Get("SOAPAction"),
		ContentType: request.Header.Get("Content-Type"),
		Body:        string(body),
	}
	if cookie, err := request.Cookie(DefaultCookieName); err == nil {
		call.Cookie = cookie.Value
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	handler, ok := f.handlers[call.Action()]
	f.mu.Unlock()

	if !ok {
		f.t.Errorf("unexpected action %q", call.Action())
		writer.WriteHeader(http.StatusNotFound)
		return
	}
	request.Body = io.NopCloser(bytes.NewReader(body))
	handler(writer, request)
}

// recorded returns the calls for action, in arrival order.
func (f *fakeController) recorded(action string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []recordedCall
	for _, call := range f.calls {
		if call.Action() == action {
			matches = append(matches, call)
		}
	}
	return matches
}

func (f *fakeController) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func writeEnvelope(writer http.ResponseWriter, payload string) {
	writer.Header().Set("Content-Type", "text/xml; charset=utf-8")
	io.WriteString(writer, `<?xml version="1.0" encoding="utf-8"?>`+
		`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" `+
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><s:Body>`+
		payload+`</s:Body></s:Envelope>`)
}

// recordingObserver keeps every call record.
type recordingObserver struct {
	mu      sync.Mutex
	records []CallRecord
}

func (o *recordingObserver) ObserveCall(_ context.Context, record CallRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
}

func (o *recordingObserver) all() []CallRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]CallRecord(nil), o.records...)
}

// newTestClient creates a Client pointed at fake. config fields other
// than Endpoint are passed through.
func newTestClient(t *testing.T, fake *fakeController, config ClientConfig) *Client {
	t.Helper()
	config.Endpoint = fake.server.URL
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(client.CloseIdleConnections)
	return client
}

func testPassword(t *testing.T) *secret.Buffer {
	t.Helper()
	password, err := secret.NewFromString("hunter2")
	if err != nil {
		t.Fatalf("creating password buffer: %v", err)
	}
	t.Cleanup(func() { password.Close() })
	return password
}

// newTestSession authenticates against fake and closes the session at
// cleanup.
func newTestSession(t *testing.T, fake *fakeController, config ClientConfig) *Session {
	t.Helper()
	client := newTestClient(t, fake, config)
	session, err := client.Authenticate(context.Background(), Credentials{
		Username:    "admin",
		Password:    testPassword(t),
		Application: "homewire-test",
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	t.Cleanup(session.Close)
	return session
}

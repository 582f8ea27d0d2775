// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/homewire/controller"
	"github.com/bureau-foundation/homewire/lib/config"
	"github.com/bureau-foundation/homewire/lib/testutil"
)

var idsPattern = regexp.MustCompile(`<ids>(\d+)</ids>`)

// fakeHouse is a controller whose resources are all booleans. Each
// session gets its own cookie; WaitStateChangeEvents reports every
// subscribed resource once per session, then waits out the poll.
type fakeHouse struct {
	t      *testing.T
	server *httptest.Server

	// failWaits makes every WaitStateChangeEvents answer 503.
	failWaits bool

	mu       sync.Mutex
	sessions int
	pending  map[string][]int
	actions  map[string]int
	values   map[int]string
}

func newFakeHouse(t *testing.T) *fakeHouse {
	t.Helper()
	house := &fakeHouse{
		t:       t,
		pending: make(map[string][]int),
		actions: make(map[string]int),
		values:  map[int]string{4: "true", 7: "false", 9: "true"},
	}
	house.server = httptest.NewServer(http.HandlerFunc(house.serve))
	t.Cleanup(house.server.Close)
	return house
}

func (h *fakeHouse) serve(writer http.ResponseWriter, request *http.Request) {
	body, err := io.ReadAll(request.Body)
	if err != nil {
		h.t.Errorf("reading request: %v", err)
	}
	action := strings.Trim(request.Header.Get("SOAPAction"), `"`)
	action = action[strings.LastIndexByte(action, '/')+1:]
	var cookie string
	if sessionCookie, err := request.Cookie("session"); err == nil {
		cookie = sessionCookie.Value
	}
	var ids []int
	for _, match := range idsPattern.FindAllStringSubmatch(string(body), -1) {
		id, _ := strconv.Atoi(match[1])
		ids = append(ids, id)
	}

	h.mu.Lock()
	h.actions[action]++
	h.mu.Unlock()

	switch action {
	case "Authenticate":
		h.mu.Lock()
		h.sessions++
		cookie := fmt.Sprintf("session-%d", h.sessions)
		h.mu.Unlock()
		http.SetCookie(writer, &http.Cookie{Name: "session", Value: cookie, Path: "/"})
		respond(writer, "AuthenticateResponse", "<return>true</return>")
	case "Logout":
		respond(writer, "LogoutResponse", "")
	case "GetServerInfo":
		respond(writer, "GetServerInfoResponse", "<name>Fake House</name><version>2.4.1</version>")
	case "GetValues":
		respond(writer, "GetValuesResponse", h.changes(ids))
	case "SetValue":
		match := regexp.MustCompile(`<id>(\d+)</id><value>([^<]*)</value>`).FindStringSubmatch(string(body))
		if match != nil {
			id, _ := strconv.Atoi(match[1])
			h.mu.Lock()
			h.values[id] = match[2]
			h.mu.Unlock()
		}
		respond(writer, "SetValueResponse", "")
	case "EnableStateChangeEvents":
		h.mu.Lock()
		h.pending[cookie] = ids
		h.mu.Unlock()
		respond(writer, "EnableStateChangeEventsResponse", "<return>true</return>")
	case "DisableStateChangeEvents":
		respond(writer, "DisableStateChangeEventsResponse", "<return>true</return>")
	case "WaitStateChangeEvents":
		if h.failWaits {
			writer.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		h.mu.Lock()
		ids := h.pending[cookie]
		delete(h.pending, cookie)
		h.mu.Unlock()
		if len(ids) == 0 {
			select {
			case <-request.Context().Done():
			case <-time.After(20 * time.Millisecond):
			}
		}
		respond(writer, "WaitStateChangeEventsResponse", h.changes(ids))
	default:
		writer.WriteHeader(http.StatusNotFound)
	}
}

func (h *fakeHouse) changes(ids []int) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var builder strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&builder, `<return xsi:type="BoolChange"><id>%d</id><value>%s</value></return>`, id, h.values[id])
	}
	return builder.String()
}

func (h *fakeHouse) count(action string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.actions[action]
}

func (h *fakeHouse) value(id int) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.values[id]
}

// settings returns valid settings for the fake with fast watch timings.
func (h *fakeHouse) settings(t *testing.T) *config.Settings {
	settings := config.Default()
	settings.Endpoint = h.server.URL
	settings.Username = "admin"
	settings.PasswordFile = testutil.WriteFile(t, "password", "hunter2\n")
	settings.Watch = config.WatchSettings{
		PollPause:      config.Duration(time.Millisecond),
		WaitTimeout:    config.Duration(time.Second),
		BackoffUnit:    config.Duration(time.Millisecond),
		CleanupPause:   config.Duration(time.Millisecond),
		CleanupTimeout: config.Duration(time.Second),
	}
	return settings
}

func respond(writer http.ResponseWriter, element, inner string) {
	writer.Header().Set("Content-Type", "text/xml; charset=utf-8")
	io.WriteString(writer, `<?xml version="1.0" encoding="utf-8"?>`+
		`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" `+
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><s:Body>`+
		`<`+element+` xmlns="`+controller.Namespace+`">`+inner+`</`+element+`>`+
		`</s:Body></s:Envelope>`)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

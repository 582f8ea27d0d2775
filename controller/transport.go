// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"reflect"

	"github.com/google/uuid"

	"github.com/bureau-foundation/homewire/lib/envelope"
	"github.com/bureau-foundation/homewire/lib/netutil"
	"github.com/bureau-foundation/homewire/lib/version"
)

// Operation names one controller action. RequestHints shape the
// encoded request payload and ResponseHints the decoded response, so an
// element or namespace override on one side never leaks to the other.
type Operation struct {
	Service       string
	Action        string
	RequestHints  envelope.Hints
	ResponseHints envelope.Hints
}

func (o Operation) String() string { return o.Service + "." + o.Action }

// SOAPAction is the action identifier sent with the request.
func (o Operation) SOAPAction() string { return `"` + Namespace + "/" + o.Action + `"` }

var changeHints = envelope.Hints{Subtypes: changeSubtypes}

var (
	opAuthenticate             = Operation{Service: ServiceSession, Action: "Authenticate"}
	opLogout                   = Operation{Service: ServiceSession, Action: "Logout"}
	opGetServerInfo            = Operation{Service: ServiceSession, Action: "GetServerInfo"}
	opGetValues                = Operation{Service: ServiceIO, Action: "GetValues", ResponseHints: changeHints}
	opSetValue                 = Operation{Service: ServiceIO, Action: "SetValue", RequestHints: changeHints}
	opEnableStateChangeEvents  = Operation{Service: ServiceIO, Action: "EnableStateChangeEvents"}
	opWaitStateChangeEvents    = Operation{Service: ServiceIO, Action: "WaitStateChangeEvents", ResponseHints: changeHints}
	opDisableStateChangeEvents = Operation{Service: ServiceIO, Action: "DisableStateChangeEvents"}
)

// invoke performs one call: encode the request, attach the cookie held
// by guard, POST it, capture any updated cookie, and decode the answer
// into response. A non-2xx status fails with *TransportError before the
// body is parsed. Every call, successful or not, produces a CallRecord.
func (c *Client) invoke(ctx context.Context, guard *cookieGuard, operation Operation, request, response any) (err error) {
	record := CallRecord{
		ID:        uuid.New(),
		Operation: operation.String(),
		Started:   c.clock.Now(),
	}
	defer func() {
		record.Err = err
		record.Duration = c.clock.Now().Sub(record.Started)
		c.observer.ObserveCall(ctx, record)
	}()

	if response == nil || reflect.TypeOf(response).Kind() != reflect.Pointer {
		return fmt.Errorf("controller: %s: response must be a non-nil pointer, got %T", operation, response)
	}

	body, err := c.codec.Encode(request, operation.RequestHints)
	if err != nil {
		return fmt.Errorf("controller: %s: encoding request: %w", operation, err)
	}
	record.Request = redactBody(string(body), c.logSensitive)

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/ws/"+operation.Service, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("controller: %s: building request: %w", operation, err)
	}
	httpRequest.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpRequest.Header.Set("SOAPAction", operation.SOAPAction())
	httpRequest.Header.Set("User-Agent", version.UserAgent())
	if cookie, ok := guard.Get(); ok {
		httpRequest.AddCookie(&http.Cookie{Name: c.cookieName, Value: cookie})
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return &TransportError{Operation: operation.String(), Err: err}
	}
	defer httpResponse.Body.Close()
	record.StatusCode = httpResponse.StatusCode

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return &TransportError{
			Operation:  operation.String(),
			StatusCode: httpResponse.StatusCode,
			Body:       redactBody(netutil.ErrorBody(httpResponse.Body), c.logSensitive),
		}
	}

	// The cookie is captured before the body is parsed, so a session
	// refresh is kept even when the payload turns out to be malformed.
	for _, cookie := range httpResponse.Cookies() {
		if cookie.Name == c.cookieName && cookie.Value != "" {
			if err := guard.Set(cookie.Value); err != nil {
				return fmt.Errorf("controller: %s: storing session cookie: %w", operation, err)
			}
		}
	}

	responseBody, err := netutil.ReadResponse(httpResponse.Body)
	if err != nil {
		return &TransportError{Operation: operation.String(), StatusCode: httpResponse.StatusCode, Err: err}
	}
	record.Response = redactBody(string(responseBody), c.logSensitive)

	if err := c.codec.Decode(responseBody, response, operation.ResponseHints); err != nil {
		return fmt.Errorf("controller: %s: %w", operation, err)
	}
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// waitGrace extends a WaitStateChangeEvents call's deadline beyond the
// server-side wait so a controller that holds the request slightly past
// its timeout is not cut off, while a stalled one still fails.
const waitGrace = 10 * time.Second

// Session is an authenticated controller session. Calls from several
// goroutines may share a Session; the cookie guard serializes access to
// the session cookie. Close the Session to release its protected
// memory.
type Session struct {
	client *Client
	cookie *cookieGuard
}

// Client returns the client the session was opened on.
func (s *Session) Client() *Client { return s.client }

// Authenticated reports whether the session still holds a cookie.
func (s *Session) Authenticated() bool {
	_, ok := s.cookie.Get()
	return ok
}

// Call performs one controller operation with the session cookie.
// request is encoded as the body payload; response must be a pointer to
// the expected response payload. Returns ErrNotAuthenticated without
// network traffic after Disconnect or Close.
func (s *Session) Call(ctx context.Context, operation Operation, request, response any) error {
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	return s.client.invoke(ctx, s.cookie, operation, request, response)
}

// Disconnect logs the session out and clears the cookie. The Logout
// call is best-effort: its failure is logged, and the cookie is cleared
// regardless. Calling Disconnect on a disconnected session does nothing.
func (s *Session) Disconnect(ctx context.Context) {
	if !s.Authenticated() {
		return
	}
	if err := s.Logout(ctx); err != nil {
		s.client.logger.Warn("controller logout failed", "endpoint", s.client.endpoint, "error", err)
	}
	s.cookie.Clear()
	s.client.logger.Info("controller session closed", "endpoint", s.client.endpoint)
}

// Close clears the cookie and releases its protected memory without
// contacting the controller. Safe to call more than once.
func (s *Session) Close() {
	s.cookie.Clear()
}

// Logout ends the session on the controller. The local cookie is left
// in place; Disconnect clears it.
func (s *Session) Logout(ctx context.Context) error {
	var response LogoutResponse
	return s.Call(ctx, opLogout, LogoutRequest{}, &response)
}

// GetServerInfo returns the controller's identity and clock.
func (s *Session) GetServerInfo(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	if err := s.Call(ctx, opGetServerInfo, GetServerInfoRequest{}, &info); err != nil {
		return ServerInfo{}, err
	}
	return info, nil
}

// GetValues returns the current value of each resource in ids, in the
// order the controller reports them.
func (s *Session) GetValues(ctx context.Context, ids []int) ([]ChangeEvent, error) {
	if len(ids) == 0 {
		return nil, &ValidationError{Field: "ids", Reason: "at least one resource id is required"}
	}
	var response GetValuesResponse
	if err := s.Call(ctx, opGetValues, GetValuesRequest{IDs: ids}, &response); err != nil {
		return nil, err
	}
	return eventsFrom(response.Values), nil
}

// SetValue writes value to one resource.
func (s *Session) SetValue(ctx context.Context, resourceID int, value Value) error {
	change, err := stateChangeFor(resourceID, value)
	if err != nil {
		return err
	}
	var response SetValueResponse
	return s.Call(ctx, opSetValue, SetValueRequest{Change: change}, &response)
}

// EnableStateChangeEvents subscribes the session to changes of ids.
func (s *Session) EnableStateChangeEvents(ctx context.Context, ids []int) error {
	var response EnableStateChangeEventsResponse
	if err := s.Call(ctx, opEnableStateChangeEvents, EnableStateChangeEventsRequest{IDs: ids}, &response); err != nil {
		return err
	}
	if !response.Result {
		return fmt.Errorf("controller: %s: controller refused subscription for %v", opEnableStateChangeEvents, ids)
	}
	return nil
}

// WaitStateChangeEvents blocks on the controller for up to timeout and
// returns the changes reported, possibly none. The timeout is sent in
// whole seconds, at least one. The call's context deadline is timeout
// plus a grace period unless ctx already carries an earlier one.
func (s *Session) WaitStateChangeEvents(ctx context.Context, timeout time.Duration) ([]ChangeEvent, error) {
	seconds := int(timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(seconds)*time.Second+waitGrace)
	defer cancel()

	var response WaitStateChangeEventsResponse
	if err := s.Call(ctx, opWaitStateChangeEvents, WaitStateChangeEventsRequest{Timeout: seconds}, &response); err != nil {
		return nil, err
	}
	return eventsFrom(response.Changes), nil
}

// DisableStateChangeEvents unsubscribes the session from changes of ids.
func (s *Session) DisableStateChangeEvents(ctx context.Context, ids []int) error {
	var response DisableStateChangeEventsResponse
	if err := s.Call(ctx, opDisableStateChangeEvents, DisableStateChangeEventsRequest{IDs: ids}, &response); err != nil {
		return err
	}
	if !response.Result {
		return fmt.Errorf("controller: %s: controller refused to unsubscribe %v", opDisableStateChangeEvents, ids)
	}
	return nil
}

// isNotAuthenticated reports whether err means the session is gone.
func isNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

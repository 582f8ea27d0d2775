// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by session calls made after
// Disconnect or Close, before any network traffic.
var ErrNotAuthenticated = errors.New("controller: session is not authenticated")

// ErrAuthenticationRejected is returned when the controller answers an
// Authenticate call with false.
var ErrAuthenticationRejected = errors.New("controller: credentials rejected")

// ValidationError reports a structurally invalid argument or setting,
// detected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("controller: invalid %s: %s", e.Field, e.Reason)
}

// TransportError reports a failed HTTP exchange. When the controller
// answered with a non-success status, StatusCode and Body describe the
// answer and the body was not parsed. When no answer arrived,
// StatusCode is zero and Err holds the cause.
//
//	var transportErr *controller.TransportError
//	if errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusServiceUnavailable {
//	    ...
//	}
type TransportError struct {
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("controller: %s: %v", e.Operation, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("controller: %s: HTTP %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("controller: %s: HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportStatus reports whether err is or wraps a *TransportError
// carrying the given HTTP status code.
func IsTransportStatus(err error, statusCode int) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode == statusCode
	}
	return false
}

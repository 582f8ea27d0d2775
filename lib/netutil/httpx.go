// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O utilities for the controller client.
//
// ReadResponse and ErrorBody bound every response body read so that a
// misbehaving controller cannot exhaust memory. IsConnectionError
// classifies transport failures that leave a pooled connection unusable.
package netutil

import (
	"fmt"
	"io"
)

// MaxResponseSize bounds envelope response reads: 32 MB. The largest
// legitimate responses (full resource listings) are a few hundred
// kilobytes.
const MaxResponseSize int64 = 32 << 20

// MaxErrorBodySize bounds the body kept for diagnostics on a failed
// exchange. Error pages are only ever shown to people.
const MaxErrorBodySize int64 = 4 << 10

// ReadResponse reads a response body up to MaxResponseSize bytes. A body
// that exceeds the limit is an error rather than silently truncated,
// since a truncated envelope would fail to parse with a misleading
// message.
func ReadResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("response body exceeds %d bytes", MaxResponseSize)
	}
	return data, nil
}

// ErrorBody reads an error response body (up to MaxErrorBodySize bytes)
// and returns it as a string for diagnostic error messages. Read errors
// are silently ignored: a partial or empty body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorBodySize))
	return string(data)
}

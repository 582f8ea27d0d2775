// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// connectionFailures end an exchange on a connection that carried a
// request. Refused connections are absent: nothing was pooled.
var connectionFailures = []error{
	io.EOF,
	io.ErrUnexpectedEOF,
	net.ErrClosed,
	syscall.EPIPE,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
}

// IsConnectionError reports whether err broke an established
// connection. The keep-alive connection behind such an error must not
// be reused; callers drop idle connections before the next request.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	for _, failure := range connectionFailures {
		if errors.Is(err, failure) {
			return true
		}
	}
	return false
}

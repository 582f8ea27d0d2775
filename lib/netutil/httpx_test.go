// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"
)

func TestReadResponse(t *testing.T) {
	t.Run("normal body", func(t *testing.T) {
		data, err := ReadResponse(strings.NewReader(`<Envelope/>`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `<Envelope/>` {
			t.Fatalf("got %q", data)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) != 0 {
			t.Fatalf("expected empty, got %d bytes", len(data))
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		oversized := io.LimitReader(zeroReader{}, MaxResponseSize+1)
		if _, err := ReadResponse(oversized); err == nil {
			t.Fatal("expected error for body over the limit")
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if _, err := ReadResponse(&failReader{}); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestErrorBody(t *testing.T) {
	t.Run("returns body as string", func(t *testing.T) {
		if got := ErrorBody(strings.NewReader("Service Unavailable")); got != "Service Unavailable" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("truncates long bodies", func(t *testing.T) {
		got := ErrorBody(strings.NewReader(strings.Repeat("x", int(MaxErrorBodySize)*2)))
		if int64(len(got)) != MaxErrorBodySize {
			t.Fatalf("len = %d, want %d", len(got), MaxErrorBodySize)
		}
	})

	t.Run("read error returns empty", func(t *testing.T) {
		if got := ErrorBody(&failReader{}); got != "" {
			t.Fatalf("expected empty from failing reader, got %q", got)
		}
	})
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{io.EOF, true},
		{fmt.Errorf("post: %w", io.ErrUnexpectedEOF), true},
		{net.ErrClosed, true},
		{&net.OpError{Op: "read", Err: syscall.ECONNRESET}, true},
		{syscall.EPIPE, true},
		{fmt.Errorf("write: %w", syscall.ECONNABORTED), true},
		{syscall.ECONNREFUSED, false},
		{fmt.Errorf("status 500"), false},
	}
	for _, test := range tests {
		if got := IsConnectionError(test.err); got != test.want {
			t.Errorf("IsConnectionError(%v) = %v, want %v", test.err, got, test.want)
		}
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// failReader always returns an error on Read.
type failReader struct{}

func (*failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated read failure")
}

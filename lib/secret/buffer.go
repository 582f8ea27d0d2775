// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"crypto/subtle"
	"fmt"
	"sync"
)

// Buffer holds one secret in locked memory until Close. Reading a
// closed Buffer panics. Do not copy a Buffer.
type Buffer struct {
	mu    sync.Mutex
	pages []byte
	size  int
}

// NewFromBytes moves source into a new Buffer: the bytes are copied
// into locked memory and source is zeroed.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("secret: empty secret")
	}
	pages, err := lockedPages(len(source))
	if err != nil {
		Zero(source)
		return nil, err
	}
	copy(pages, source)
	Zero(source)
	return &Buffer{pages: pages, size: len(source)}, nil
}

// NewFromString stores value. Strings cannot be zeroed, so this only
// bounds how long the heap copy is the one being kept; session cookies
// arrive as header strings anyway.
func NewFromString(value string) (*Buffer, error) {
	return NewFromBytes([]byte(value))
}

// contents returns the secret bytes. The caller must hold b.mu.
func (b *Buffer) contents() []byte {
	if b.pages == nil {
		panic("secret: use of closed buffer")
	}
	return b.pages[:b.size]
}

// String returns a heap copy of the secret, for request payloads and
// headers that only accept strings.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.contents())
}

// Equal reports in constant time whether the buffer holds value.
func (b *Buffer) Equal(value []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return subtle.ConstantTimeCompare(b.contents(), value) == 1
}

// Close zeroes and releases the memory. Later calls do nothing.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pages == nil {
		return nil
	}
	pages := b.pages
	b.pages = nil
	return releasePages(pages)
}

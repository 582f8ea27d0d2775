// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"log/slog"
	"sync"

	"github.com/bureau-foundation/homewire/lib/secret"
)

// DefaultCookieName is the cookie the controller issues on a successful
// Authenticate call.
const DefaultCookieName = "session"

// redactedPlaceholder replaces sensitive values in every log record.
const redactedPlaceholder = "<redacted>"

// cookieGuard owns the one authoritative copy of a session's cookie. A
// single mutex serializes every read and write, so a concurrent set can
// never be observed half-applied. The value lives in protected memory.
//
// Every get and set emits a debug record. The record carries the
// literal value only when logSensitive is set.
type cookieGuard struct {
	mu           sync.Mutex
	value        *secret.Buffer
	logger       *slog.Logger
	logSensitive bool
}

func newCookieGuard(logger *slog.Logger, logSensitive bool) *cookieGuard {
	return &cookieGuard{logger: logger, logSensitive: logSensitive}
}

// Get returns the current cookie. ok is false when no cookie is held.
func (g *cookieGuard) Get() (cookie string, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.value != nil {
		cookie, ok = g.value.String(), true
	}
	g.logger.Debug("session cookie read", "present", ok, "cookie", g.display(cookie))
	return cookie, ok
}

// Set replaces the cookie. An empty value clears it. Setting the value
// already held is a no-op apart from the diagnostic record.
func (g *cookieGuard) Set(cookie string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Debug("session cookie set", "cookie", g.display(cookie))
	if cookie == "" {
		g.releaseLocked()
		return nil
	}
	if g.value != nil && g.value.Equal([]byte(cookie)) {
		return nil
	}
	replacement, err := secret.NewFromString(cookie)
	if err != nil {
		return err
	}
	g.releaseLocked()
	g.value = replacement
	return nil
}

// Clear drops the cookie and releases its memory.
func (g *cookieGuard) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.value != nil {
		g.logger.Debug("session cookie cleared")
	}
	g.releaseLocked()
}

func (g *cookieGuard) releaseLocked() {
	if g.value == nil {
		return
	}
	if err := g.value.Close(); err != nil {
		g.logger.Warn("releasing session cookie memory", "error", err)
	}
	g.value = nil
}

func (g *cookieGuard) display(cookie string) string {
	if g.logSensitive || cookie == "" {
		return cookie
	}
	return redactedPlaceholder
}

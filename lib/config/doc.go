// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads homewire settings.
//
// Settings are loaded from a single file named by either the
// HOMEWIRE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery, and
// no automatic file search.
//
// YAML (.yaml, .yml) and JSON with comments (.json, .jsonc) are both
// accepted. Durations are Go duration strings ("15s", "250ms").
//
//	endpoint: http://192.168.1.40
//	username: admin
//	password_file: ~/.config/homewire/password
//	watch:
//	  wait_timeout: 15s
//	  max_consecutive_errors: 10
//
// [Settings.Validate] reports every invalid field as a [FieldError]
// joined with errors.Join, before any network call is made.
//
// This package depends on no other homewire packages.
package config

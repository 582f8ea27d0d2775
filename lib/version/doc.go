// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports what homewire binary is running.
//
// Release builds inject the version, commit, and build time:
//
//	go build -ldflags "-X github.com/bureau-foundation/homewire/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Without injection the commit and time come from the VCS stamp in the
// binary's build info, and read "unknown" in test binaries.
package version

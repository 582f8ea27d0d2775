// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps the controller password and the session cookie
// out of swap and core dumps.
//
// A [Buffer] lives in anonymous memory mapped outside the Go heap,
// pinned with mlock and marked MADV_DONTDUMP. Close zeroes it before
// unmapping. Every buffer pins at least one page against the often
// small RLIMIT_MEMLOCK, so a process should hold only a few.
//
// [ReadFromPath] loads a password file, or one line of stdin for "-".
package secret

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for homewire packages.
//
// [RequireReceive] is the one place tests wait on wall-clock time, and
// only as a hang guard. Everything time-dependent inside the code under
// test runs on a [clock.FakeClock], which [ExpectPause] steps through
// one pending timer at a time.
//
// [WriteFile] places a fixture file in a per-test temporary directory.
//
// Helpers fail the test on error rather than returning one.
package testutil

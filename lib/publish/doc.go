// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish fans watched change events out to other programs.
//
// [RedisPublisher] publishes each controller.ChangeEvent as JSON on a
// per-resource channel and keeps the latest value of every resource in
// one hash, so a consumer can both subscribe to changes and read the
// current state without talking to the controller:
//
//	SUBSCRIBE homewire:changes:4
//	HGETALL homewire:state
package publish

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration.
//
// Two serialization formats are in use with a clear boundary:
//
//   - JSON for external interfaces: Redis change messages, CLI output,
//     and settings files.
//   - CBOR for change recordings written by "homewire watch --record"
//     and read back by "homewire replay".
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same logical data always produces identical bytes, which keeps a
// recording's digest reproducible.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// A recording is a plain concatenation of items; [NewDecoder] reads
// them back one at a time.
//
// # Struct Tag Rules
//
// A `cbor` tag marks a type that is only ever serialized as CBOR (the
// recording frame). A `json` tag marks a type serialized as both:
// fxamacker/cbor v2 reads `json` tags when `cbor` tags are absent, so a
// single tag controls both formats (controller.ChangeEvent). Never put
// both tags on one field.
package codec

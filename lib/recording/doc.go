// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package recording stores change events in an append-only file for
// later replay.
//
// A recording is a short header (magic "HWREC", format version, and a
// [Compression] byte) followed by a body: a CBOR sequence, optionally
// wrapped in a zstd or LZ4 frame stream. Each body item is a frame
// {seq, time, event} with the event encoded by lib/codec. The last item
// is a trailer holding the frame count and a keyed BLAKE3 digest over
// the encoded frames, so a truncated or edited recording is detected
// on replay:
//
//	writer, err := recording.NewWriter(file, recording.WriterConfig{
//	    Compression: recording.CompressionForPath(path),
//	})
//	err = writer.Append(event)
//	err = writer.Close()
//
//	reader, err := recording.NewReader(file)
//	defer reader.Close()
//	for frame, err := range reader.Frames() {
//	    var event controller.ChangeEvent
//	    err = frame.Decode(&event)
//	}
package recording

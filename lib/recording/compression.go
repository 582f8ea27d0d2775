// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the stream compression of a recording body.
// The value is stored in the file header; changing a value breaks
// existing recordings.
type Compression uint8

const (
	// CompressionNone stores frames as a plain CBOR sequence.
	CompressionNone Compression = 0

	// CompressionZstd wraps the body in a zstd stream. Best ratio for
	// long recordings of repetitive change events.
	CompressionZstd Compression = 1

	// CompressionLZ4 wraps the body in an LZ4 frame stream. Cheaper on
	// CPU, which matters on small always-on hosts.
	CompressionLZ4 Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name produced by String.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("recording: unknown compression %q (want none, zstd, or lz4)", name)
	}
}

// CompressionForPath picks a compression from a file name: ".zst" and
// ".zstd" select zstd, ".lz4" selects LZ4, anything else none.
func CompressionForPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return CompressionZstd
	case ".lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// nopWriteCloser lets the uncompressed body share the compressor path.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func compressor(destination io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case CompressionNone:
		return nopWriteCloser{destination}, nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(destination, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("recording: zstd encoder: %w", err)
		}
		return encoder, nil
	case CompressionLZ4:
		return lz4.NewWriter(destination), nil
	default:
		return nil, fmt.Errorf("recording: unsupported compression %s", compression)
	}
}

// decompressor returns a reader over the decompressed body and a
// function releasing its resources.
func decompressor(source io.Reader, compression Compression) (io.Reader, func(), error) {
	switch compression {
	case CompressionNone:
		return source, func() {}, nil
	case CompressionZstd:
		decoder, err := zstd.NewReader(source)
		if err != nil {
			return nil, nil, fmt.Errorf("recording: zstd decoder: %w", err)
		}
		return decoder, decoder.Close, nil
	case CompressionLZ4:
		return lz4.NewReader(source), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("recording: unsupported compression %s", compression)
	}
}

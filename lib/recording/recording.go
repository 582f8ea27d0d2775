// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/homewire/lib/clock"
	"github.com/bureau-foundation/homewire/lib/codec"
)

// magic opens every recording. The last byte is the format version.
var magic = []byte("HWREC\x01")

// digestKey is the BLAKE3 key for the frame digest: the ASCII domain
// name zero-padded to 32 bytes. Changing it invalidates every existing
// recording's trailer.
var digestKey = [32]byte{
	'h', 'o', 'm', 'e', 'w', 'i', 'r', 'e', '.', 'r', 'e', 'c', 'o', 'r', 'd', 'i',
	'n', 'g', '.', 'f', 'r', 'a', 'm', 'e', 's', 0, 0, 0, 0, 0, 0, 0,
}

var (
	// ErrDigestMismatch means the frames read do not hash to the
	// digest stored in the trailer.
	ErrDigestMismatch = errors.New("recording: frame digest does not match trailer")

	// ErrTruncated means the body ended before the trailer.
	ErrTruncated = errors.New("recording: truncated (no trailer)")

	// ErrClosed is returned by Append after Close.
	ErrClosed = errors.New("recording: writer is closed")
)

// item is one CBOR data item of the body. Event frames carry Event;
// the single trailer carries Digest and, in Sequence, the frame count.
type item struct {
	Sequence uint64           `cbor:"seq"`
	Time     int64            `cbor:"time,omitempty"`
	Event    codec.RawMessage `cbor:"event,omitempty"`
	Digest   []byte           `cbor:"digest,omitempty"`
}

// Frame is one recorded event.
type Frame struct {
	// Sequence numbers frames from 1 without gaps.
	Sequence uint64
	Time     time.Time
	// Event is the CBOR encoding of the appended value.
	Event codec.RawMessage
}

// Decode unmarshals the frame's event into out.
func (f Frame) Decode(out any) error {
	return codec.Unmarshal(f.Event, out)
}

func newDigest() *blake3.Hasher {
	hasher, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		panic("recording: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

// WriterConfig configures a Writer.
type WriterConfig struct {
	Compression Compression

	// Clock stamps frames. If nil, clock.Real() is used.
	Clock clock.Clock
}

// Writer appends events to a recording. Safe for concurrent use; frames
// are numbered in the order Append calls acquire the writer.
type Writer struct {
	mu       sync.Mutex
	body     io.WriteCloser
	digest   *blake3.Hasher
	clock    clock.Clock
	sequence uint64
	closed   bool
}

// NewWriter writes the recording header to destination and returns a
// Writer for the body. Close the Writer to write the trailer; closing
// destination remains the caller's job.
func NewWriter(destination io.Writer, config WriterConfig) (*Writer, error) {
	header := append(append([]byte(nil), magic...), byte(config.Compression))
	body, err := compressor(destination, config.Compression)
	if err != nil {
		return nil, err
	}
	if _, err := destination.Write(header); err != nil {
		return nil, fmt.Errorf("recording: writing header: %w", err)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	return &Writer{body: body, digest: newDigest(), clock: config.Clock}, nil
}

// Append records event as the next frame.
func (w *Writer) Append(event any) error {
	encoded, err := codec.Marshal(event)
	if err != nil {
		return fmt.Errorf("recording: encoding event: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	frame := item{Sequence: w.sequence + 1, Time: w.clock.Now().UnixNano(), Event: encoded}
	if err := w.writeItem(frame); err != nil {
		return err
	}
	w.sequence++
	return nil
}

// Count returns the number of frames appended so far.
func (w *Writer) Count() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sequence
}

// Close writes the trailer and flushes the compressor. Safe to call
// more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	trailer := item{Sequence: w.sequence, Digest: w.digest.Sum(nil)}
	encoded, err := codec.Marshal(trailer)
	if err != nil {
		return fmt.Errorf("recording: encoding trailer: %w", err)
	}
	if _, err := w.body.Write(encoded); err != nil {
		return fmt.Errorf("recording: writing trailer: %w", err)
	}
	if err := w.body.Close(); err != nil {
		return fmt.Errorf("recording: flushing: %w", err)
	}
	return nil
}

func (w *Writer) writeItem(frame item) error {
	encoded, err := codec.Marshal(frame)
	if err != nil {
		return fmt.Errorf("recording: encoding frame %d: %w", frame.Sequence, err)
	}
	if _, err := w.body.Write(encoded); err != nil {
		return fmt.Errorf("recording: writing frame %d: %w", frame.Sequence, err)
	}
	w.digest.Write(encoded)
	return nil
}

// Reader reads a recording written by Writer.
type Reader struct {
	Compression Compression

	decoder *codec.Decoder
	release func()
}

// NewReader reads and checks the recording header. Call Close when
// done to release decompressor resources.
func NewReader(source io.Reader) (*Reader, error) {
	header := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(source, header); err != nil {
		return nil, fmt.Errorf("recording: reading header: %w", err)
	}
	if !bytes.Equal(header[:len(magic)], magic) {
		return nil, fmt.Errorf("recording: not a recording (bad magic %q)", header[:len(magic)])
	}
	compression := Compression(header[len(magic)])
	body, release, err := decompressor(source, compression)
	if err != nil {
		return nil, err
	}
	return &Reader{Compression: compression, decoder: codec.NewDecoder(body), release: release}, nil
}

// Frames yields every frame in order. After the last frame the trailer
// is verified: a digest mismatch yields ErrDigestMismatch, and a body
// that ends without a trailer yields ErrTruncated. Iteration stops at
// the first error.
func (r *Reader) Frames() iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		digest := newDigest()
		var count uint64
		for {
			var raw codec.RawMessage
			if err := r.decoder.Decode(&raw); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					yield(Frame{}, ErrTruncated)
					return
				}
				yield(Frame{}, fmt.Errorf("recording: decoding frame %d: %w", count+1, err))
				return
			}

			var decoded item
			if err := codec.Unmarshal(raw, &decoded); err != nil {
				yield(Frame{}, fmt.Errorf("recording: decoding frame %d: %w", count+1, err))
				return
			}

			if decoded.Digest != nil {
				if decoded.Sequence != count {
					yield(Frame{}, fmt.Errorf("recording: trailer counts %d frames, read %d", decoded.Sequence, count))
					return
				}
				if !bytes.Equal(decoded.Digest, digest.Sum(nil)) {
					yield(Frame{}, ErrDigestMismatch)
				}
				return
			}

			digest.Write(raw)
			count++
			if decoded.Sequence != count {
				yield(Frame{}, fmt.Errorf("recording: frame %d out of sequence (want %d)", decoded.Sequence, count))
				return
			}
			frame := Frame{Sequence: decoded.Sequence, Time: time.Unix(0, decoded.Time).UTC(), Event: decoded.Event}
			if !yield(frame, nil) {
				return
			}
		}
	}
}

// Close releases the decompressor. It does not close the source.
func (r *Reader) Close() {
	r.release()
}

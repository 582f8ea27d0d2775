// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
)

// kind is a TextMarshaler enum standing in for controller.ValueType.
type kind int

const (
	kindSwitch kind = iota + 1
	kindDimmer
)

func (k kind) MarshalText() ([]byte, error) {
	switch k {
	case kindSwitch:
		return []byte("switch"), nil
	case kindDimmer:
		return []byte("dimmer"), nil
	}
	return nil, fmt.Errorf("unknown kind %d", int(k))
}

func (k *kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "switch":
		*k = kindSwitch
	case "dimmer":
		*k = kindDimmer
	default:
		return fmt.Errorf("unknown kind %q", text)
	}
	return nil
}

type sampleFrame struct {
	Sequence uint64    `cbor:"seq"`
	Time     time.Time `cbor:"time"`
	Note     string    `cbor:"note,omitempty"`
}

type sampleEvent struct {
	ResourceID int    `json:"resource_id"`
	Kind       kind   `json:"kind"`
	Text       string `json:"text"`
}

func TestMarshalRoundtrip(t *testing.T) {
	original := sampleFrame{Sequence: 7, Time: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC), Note: "boot"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleFrame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Sequence != original.Sequence || decoded.Note != original.Note || !decoded.Time.Equal(original.Time) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestDeterministicEncoding(t *testing.T) {
	value := map[string]any{"zeta": 1, "alpha": 2, "mid": []int{3, 4}}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 20 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestTextMarshalerEncodesAsString(t *testing.T) {
	original := sampleEvent{ResourceID: 4, Kind: kindDimmer, Text: "40"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"kind": "dimmer"`) {
		t.Errorf("kind not encoded by name: %s", notation)
	}
	if !strings.Contains(notation, `"resource_id": 4`) {
		t.Errorf("json tag name not used as key: %s", notation)
	}

	var decoded sampleEvent
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestDecoderStream(t *testing.T) {
	events := []sampleEvent{
		{ResourceID: 1, Kind: kindSwitch, Text: "true"},
		{ResourceID: 2, Kind: kindDimmer, Text: "75"},
		{ResourceID: 1, Kind: kindSwitch, Text: "false"},
	}

	// Concatenated items, the way recording frames are written.
	var buffer bytes.Buffer
	for _, event := range events {
		data, err := Marshal(event)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		buffer.Write(data)
	}

	decoder := NewDecoder(&buffer)
	for index, want := range events {
		var got sampleEvent
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode event %d: %v", index, err)
		}
		if got != want {
			t.Errorf("event %d: got %+v, want %+v", index, got, want)
		}
	}
}

func TestRawMessageDefersDecoding(t *testing.T) {
	type envelope struct {
		Sequence uint64     `cbor:"seq"`
		Event    RawMessage `cbor:"event"`
	}

	inner, err := Marshal(sampleEvent{ResourceID: 9, Kind: kindSwitch, Text: "true"})
	if err != nil {
		t.Fatalf("Marshal inner: %v", err)
	}
	data, err := Marshal(envelope{Sequence: 1, Event: inner})
	if err != nil {
		t.Fatalf("Marshal envelope: %v", err)
	}

	var decoded envelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	if !bytes.Equal(decoded.Event, inner) {
		t.Errorf("raw event bytes changed: %x != %x", decoded.Event, inner)
	}
	var event sampleEvent
	if err := Unmarshal(decoded.Event, &event); err != nil {
		t.Fatalf("Unmarshal event: %v", err)
	}
	if event.ResourceID != 9 {
		t.Errorf("event = %+v", event)
	}
}

func TestAnyMapsDecodeWithStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"resource_id": 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := decoded.(map[string]any); !ok {
		t.Errorf("decoded %T, want map[string]any", decoded)
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var frame sampleFrame
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &frame); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

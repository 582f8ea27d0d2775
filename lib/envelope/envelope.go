// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"bytes"
	"fmt"
	"reflect"
)

// Namespaces declared on every request envelope.
const (
	SOAPNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	XSINamespace  = "http://www.w3.org/2001/XMLSchema-instance"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema"
)

// Codec encodes and decodes envelopes. Each Codec owns its schema cache;
// share one Codec across all calls of a client rather than creating one
// per call. A Codec is safe for concurrent use.
type Codec struct {
	cache *Cache
}

// NewCodec returns a Codec with an empty schema cache.
func NewCodec() *Codec {
	return &Codec{cache: NewCache()}
}

// Cache returns the codec's schema cache.
func (c *Codec) Cache() *Cache {
	return c.cache
}

// Encode writes payload as a complete request envelope. payload must be
// a struct or a non-nil pointer to one.
func (c *Codec) Encode(payload any, hints Hints) ([]byte, error) {
	value := reflect.ValueOf(payload)
	if !value.IsValid() {
		return nil, fmt.Errorf("envelope: cannot encode nil payload")
	}
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, fmt.Errorf("envelope: cannot encode nil %s", value.Type())
		}
		value = value.Elem()
	}

	schema, err := c.cache.Schema(value.Type(), hints)
	if err != nil {
		return nil, err
	}

	var buffer bytes.Buffer
	writer := &envelopeWriter{buffer: &buffer}
	if err := writer.writeEnvelope(schema, value); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Decode maps the payload inside a response envelope onto out, which
// must be a non-nil pointer to a struct. A SOAP fault in the body is
// returned as *Fault; every other mapping failure is a *DecodeError.
func (c *Codec) Decode(data []byte, out any, hints Hints) error {
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("envelope: decode target must be a non-nil pointer, got %T", out)
	}
	target = target.Elem()

	schema, err := c.cache.Schema(target.Type(), hints)
	if err != nil {
		return err
	}

	if err := decodeEnvelope(schema, data, target); err != nil {
		if decodeErr, ok := err.(*DecodeError); ok { //nolint:errorlint // constructed locally, never wrapped
			decodeErr.Raw = string(data)
		}
		return err
	}
	return nil
}

// DecodeAs decodes a response envelope into a new value of type T.
func DecodeAs[T any](codec *Codec, data []byte, hints Hints) (T, error) {
	var value T
	err := codec.Decode(data, &value, hints)
	return value, err
}

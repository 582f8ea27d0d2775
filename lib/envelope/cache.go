// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"reflect"
	"sync"
)

// SchemaKey identifies a cached schema. It is built from structural
// content only: the payload type, the root name hints, a canonical
// rendering of the field overrides, and the sorted identifiers of the
// extra subtypes. Two override maps with the same entries produce equal
// keys regardless of which map instance the caller passed.
type SchemaKey struct {
	Type      reflect.Type
	Namespace string
	Element   string
	Overrides string
	Subtypes  string
}

// KeyFor derives the cache key for payloadType under hints. Pointer
// types are keyed by their element type.
func KeyFor(payloadType reflect.Type, hints Hints) SchemaKey {
	for payloadType.Kind() == reflect.Pointer {
		payloadType = payloadType.Elem()
	}
	return SchemaKey{
		Type:      payloadType,
		Namespace: hints.Namespace,
		Element:   hints.Element,
		Overrides: canonicalOverrides(hints.Overrides),
		Subtypes:  canonicalSubtypes(hints.Subtypes),
	}
}

// Cache memoizes schemas for the lifetime of its owner. It is safe for
// unlimited concurrent use. The set of payload shapes a client uses is
// small and fixed, so entries are never evicted.
type Cache struct {
	schemas sync.Map // SchemaKey -> *Schema
}

// NewCache returns an empty schema cache.
func NewCache() *Cache {
	return &Cache{}
}

// GetOrCreate returns the schema stored under key, calling create to
// build it on first use. When several goroutines race to create the same
// key, exactly one result is stored and every caller receives that one.
// A failed create stores nothing.
func (c *Cache) GetOrCreate(key SchemaKey, create func() (*Schema, error)) (*Schema, error) {
	if existing, ok := c.schemas.Load(key); ok {
		return existing.(*Schema), nil
	}
	created, err := create()
	if err != nil {
		return nil, err
	}
	actual, _ := c.schemas.LoadOrStore(key, created)
	return actual.(*Schema), nil
}

// Schema returns the schema for payloadType under hints, building and
// caching it on first use.
func (c *Cache) Schema(payloadType reflect.Type, hints Hints) (*Schema, error) {
	key := KeyFor(payloadType, hints)
	return c.GetOrCreate(key, func() (*Schema, error) {
		return buildSchema(key, key.Type, hints)
	})
}

// Len returns the number of cached schemas.
func (c *Cache) Len() int {
	count := 0
	c.schemas.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

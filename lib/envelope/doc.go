// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope serializes typed request payloads into the SOAP-style
// XML envelopes the controller expects, and maps response envelopes back
// onto typed Go values.
//
// A [Codec] derives a [Schema] from a payload's Go type plus a small set
// of structural [Hints] (namespace, root element name, element-name
// overrides, and extra subtypes for interface-typed fields). The wire
// shape depends only on the schema, never on the payload's runtime
// content. Schemas are memoized in a [Cache] owned by the Codec, keyed by
// a [SchemaKey] derived from structural content: the payload type, a
// canonical rendering of the overrides, and the sorted identifiers of the
// extra subtypes. Two lookups with equal keys share one schema instance;
// entries are never evicted.
//
// Requests are written with fixed prefixes:
//
//	<?xml version="1.0" encoding="utf-8"?>
//	<soap:Envelope xmlns:soap="..." xmlns:xsi="..." xmlns:xsd="...">
//	  <soap:Header/>
//	  <soap:Body>
//	    <Authenticate xmlns="urn:...">
//	      <userName>a</userName>
//	      ...
//
// Responses are parsed tolerantly: namespace prefixes are resolved rather
// than compared, xsi:type annotations select subtypes for interface fields
// and are otherwise ignored, xsi:nil and absent elements leave optional
// fields unset, and repeated sibling elements sharing one name decode into
// a slice in document order. Anything that cannot be mapped produces a
// [*DecodeError] naming the field path and carrying the raw text.
//
// Field mapping follows the familiar encoding/xml tag syntax:
//
//	type Authenticate struct {
//	    XMLName     xml.Name `xml:"urn:example:ws Authenticate"`
//	    UserName    string   `xml:"userName"`
//	    Password    string   `xml:"password"`
//	    Application string   `xml:"application,omitempty"`
//	}
//
// Pointer, slice, and omitempty fields are optional; every other field is
// required when decoding.
package envelope

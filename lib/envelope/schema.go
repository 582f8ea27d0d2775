// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"encoding"
	"encoding/xml"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Hints carry the structural information that is not derivable from a
// payload's Go type alone. Hints are part of the schema identity: two
// lookups that differ in any hint never share a schema.
type Hints struct {
	// Namespace overrides the payload root namespace. When empty, the
	// namespace from the payload's XMLName tag is used.
	Namespace string

	// Element overrides the payload root element name. When empty, the
	// local name from the XMLName tag is used, falling back to the Go
	// type name.
	Element string

	// Overrides renames elements for individual struct fields. Keys are
	// "TypeName.FieldName", values are the replacement element names.
	Overrides map[string]string

	// Subtypes lists the concrete types an interface-typed field may
	// hold. On encode the chosen subtype is announced with xsi:type; on
	// decode xsi:type selects among these by type name.
	Subtypes []reflect.Type
}

// Schema is the derived wire description of one payload type under one
// set of hints. Schemas are immutable once built and safe to share.
type Schema struct {
	// Key is the cache identity this schema was built for.
	Key SchemaKey

	// Element is the local name of the payload root element.
	Element string

	// Namespace is the namespace declared on the payload root element.
	Namespace string

	root *typeSchema
}

// Type returns the payload type described by the schema.
func (s *Schema) Type() reflect.Type { return s.root.typ }

// Fields returns the element names of the payload's direct children in
// wire order.
func (s *Schema) Fields() []string {
	names := make([]string, 0, len(s.root.fields))
	for _, field := range s.root.fields {
		names = append(names, field.element)
	}
	return names
}

type schemaKind int

const (
	kindText schemaKind = iota
	kindStruct
	kindInterface
)

type typeSchema struct {
	typ      reflect.Type
	kind     schemaKind
	fields   []*fieldSchema
	subtypes []*subtypeSchema
}

type fieldSchema struct {
	goName   string
	index    []int
	element  string
	optional bool
	repeated bool
	pointer  bool
	elem     *typeSchema
}

type subtypeSchema struct {
	name string
	// pointer is set when only the pointer type implements the
	// interface, so decoded values must be stored by address.
	pointer bool
	schema  *typeSchema
}

var (
	xmlNameType         = reflect.TypeOf(xml.Name{})
	timeType            = reflect.TypeOf(time.Time{})
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// buildSchema derives the schema for payloadType under hints. The key is
// recorded on the result so callers can trace which cache entry they hold.
func buildSchema(key SchemaKey, payloadType reflect.Type, hints Hints) (*Schema, error) {
	if payloadType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("envelope: payload type %s is not a struct", payloadType)
	}

	builder := &schemaBuilder{
		overrides: hints.Overrides,
		subtypes:  hints.Subtypes,
		seen:      make(map[reflect.Type]*typeSchema),
	}
	root, err := builder.build(payloadType)
	if err != nil {
		return nil, err
	}

	namespace, element := rootName(payloadType)
	if hints.Namespace != "" {
		namespace = hints.Namespace
	}
	if hints.Element != "" {
		element = hints.Element
	}

	return &Schema{
		Key:       key,
		Element:   element,
		Namespace: namespace,
		root:      root,
	}, nil
}

// rootName reads the namespace and local name from an XMLName field tag
// of the form `xml:"namespace local"` or `xml:"local"`.
func rootName(payloadType reflect.Type) (namespace, local string) {
	local = payloadType.Name()
	field, ok := payloadType.FieldByName("XMLName")
	if !ok || field.Type != xmlNameType {
		return "", local
	}
	name, _ := parseTag(field.Tag.Get("xml"))
	if name == "" {
		return "", local
	}
	if space := strings.LastIndexByte(name, ' '); space >= 0 {
		return name[:space], name[space+1:]
	}
	return "", name
}

type schemaBuilder struct {
	overrides map[string]string
	subtypes  []reflect.Type
	seen      map[reflect.Type]*typeSchema
}

func (b *schemaBuilder) build(t reflect.Type) (*typeSchema, error) {
	if existing, ok := b.seen[t]; ok {
		return existing, nil
	}

	switch {
	case isScalar(t):
		schema := &typeSchema{typ: t, kind: kindText}
		b.seen[t] = schema
		return schema, nil

	case t.Kind() == reflect.Struct:
		schema := &typeSchema{typ: t, kind: kindStruct}
		// Registered before recursing so self-referential types terminate.
		b.seen[t] = schema
		for index := 0; index < t.NumField(); index++ {
			field := t.Field(index)
			if !field.IsExported() || field.Type == xmlNameType {
				continue
			}
			fieldSchema, err := b.buildField(t, field)
			if err != nil {
				return nil, err
			}
			if fieldSchema != nil {
				schema.fields = append(schema.fields, fieldSchema)
			}
		}
		return schema, nil

	case t.Kind() == reflect.Interface:
		schema := &typeSchema{typ: t, kind: kindInterface}
		b.seen[t] = schema
		for _, candidate := range b.subtypes {
			concrete := candidate
			for concrete.Kind() == reflect.Pointer {
				concrete = concrete.Elem()
			}
			byValue := concrete.Implements(t)
			if !byValue && !reflect.PointerTo(concrete).Implements(t) {
				continue
			}
			subSchema, err := b.build(concrete)
			if err != nil {
				return nil, err
			}
			schema.subtypes = append(schema.subtypes, &subtypeSchema{
				name:    concrete.Name(),
				pointer: !byValue,
				schema:  subSchema,
			})
		}
		if len(schema.subtypes) == 0 {
			return nil, fmt.Errorf("envelope: interface %s has no declared subtypes", t)
		}
		return schema, nil

	default:
		return nil, fmt.Errorf("envelope: unsupported type %s", t)
	}
}

func (b *schemaBuilder) buildField(owner reflect.Type, field reflect.StructField) (*fieldSchema, error) {
	name, options := parseTag(field.Tag.Get("xml"))
	if name == "-" {
		return nil, nil
	}
	if name == "" {
		name = field.Name
	}
	if override, ok := b.overrides[owner.Name()+"."+field.Name]; ok {
		name = override
	}

	schema := &fieldSchema{
		goName:   field.Name,
		index:    field.Index,
		element:  name,
		optional: options.has("omitempty"),
	}

	fieldType := field.Type
	if fieldType.Kind() == reflect.Slice && fieldType.Elem().Kind() != reflect.Uint8 {
		schema.repeated = true
		schema.optional = true
		fieldType = fieldType.Elem()
	}
	if fieldType.Kind() == reflect.Pointer {
		schema.pointer = true
		schema.optional = true
		fieldType = fieldType.Elem()
	}
	if fieldType.Kind() == reflect.Interface {
		schema.optional = true
	}

	elem, err := b.build(fieldType)
	if err != nil {
		return nil, fmt.Errorf("envelope: field %s.%s: %w", owner.Name(), field.Name, err)
	}
	schema.elem = elem
	return schema, nil
}

// isScalar reports whether values of t are written as element text.
func isScalar(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return true
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

type tagOptions string

func (o tagOptions) has(option string) bool {
	for _, candidate := range strings.Split(string(o), ",") {
		if candidate == option {
			return true
		}
	}
	return false
}

func parseTag(tag string) (string, tagOptions) {
	name, options, _ := strings.Cut(tag, ",")
	return name, tagOptions(options)
}

// typeIdentifier names a type by package path and name, which is stable
// across processes and independent of reflect.Type pointer identity.
func typeIdentifier(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// canonicalOverrides renders overrides as sorted "key=value" pairs.
func canonicalOverrides(overrides map[string]string) string {
	if len(overrides) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(overrides))
	for key, value := range overrides {
		pairs = append(pairs, key+"="+value)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ";")
}

// canonicalSubtypes renders the sorted, duplicate-free identifiers of
// the extra subtypes.
func canonicalSubtypes(subtypes []reflect.Type) string {
	if len(subtypes) == 0 {
		return ""
	}
	identifiers := make([]string, 0, len(subtypes))
	seen := make(map[string]bool, len(subtypes))
	for _, subtype := range subtypes {
		identifier := typeIdentifier(subtype)
		if seen[identifier] {
			continue
		}
		seen[identifier] = true
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return strings.Join(identifiers, ",")
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// node is one parsed element. Names carry resolved namespace URIs, so
// prefix choice in the source text is irrelevant after parsing.
type node struct {
	name     xml.Name
	attrs    []xml.Attr
	children []*node
	text     strings.Builder
}

func (n *node) childrenNamed(local string) []*node {
	var matches []*node
	for _, child := range n.children {
		if child.name.Local == local {
			matches = append(matches, child)
		}
	}
	return matches
}

func (n *node) firstChild(local string) *node {
	for _, child := range n.children {
		if child.name.Local == local {
			return child
		}
	}
	return nil
}

// xsiAttribute returns the value of the xsi-namespaced attribute local.
// An undeclared "xsi" prefix is accepted as well: the decoder leaves
// such prefixes unresolved.
func (n *node) xsiAttribute(local string) (string, bool) {
	for _, attribute := range n.attrs {
		if attribute.Name.Local != local {
			continue
		}
		if attribute.Name.Space == XSINamespace || attribute.Name.Space == "xsi" {
			return attribute.Value, true
		}
	}
	return "", false
}

func (n *node) isNil() bool {
	value, ok := n.xsiAttribute("nil")
	if !ok {
		return false
	}
	isNil, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && isNil
}

func parseDocument(data []byte) (*node, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel
	var root *node
	var stack []*node

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch token := token.(type) {
		case xml.StartElement:
			element := &node{name: token.Name, attrs: token.Copy().Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = element
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, element)
			}
			stack = append(stack, element)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(token)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return root, nil
}

func decodeEnvelope(schema *Schema, data []byte, target reflect.Value) error {
	root, err := parseDocument(data)
	if err != nil {
		return &DecodeError{Err: fmt.Errorf("malformed xml: %w", err)}
	}
	if root.name.Local != "Envelope" {
		return &DecodeError{Err: fmt.Errorf("root element is %q, expected Envelope", root.name.Local)}
	}
	body := root.firstChild("Body")
	if body == nil {
		return &DecodeError{Err: fmt.Errorf("envelope has no Body")}
	}
	if len(body.children) == 0 {
		return &DecodeError{Err: fmt.Errorf("envelope Body is empty")}
	}

	payload := body.children[0]
	if payload.name.Local == "Fault" {
		return parseFault(payload)
	}
	if payload.name.Local != schema.Element {
		return &DecodeError{
			Field: payload.name.Local,
			Err:   fmt.Errorf("body element %q does not match expected %q", payload.name.Local, schema.Element),
		}
	}

	target.Set(reflect.Zero(target.Type()))
	return decodeStruct(schema.root, payload, target, schema.Element)
}

func decodeStruct(schema *typeSchema, element *node, value reflect.Value, path string) error {
	for _, field := range schema.fields {
		matches := element.childrenNamed(field.element)
		fieldValue := value.FieldByIndex(field.index)
		fieldPath := path + "." + field.element

		if field.repeated {
			if len(matches) == 0 {
				continue
			}
			slice := reflect.MakeSlice(fieldValue.Type(), 0, len(matches))
			for index, match := range matches {
				itemPath := fmt.Sprintf("%s[%d]", fieldPath, index)
				if match.isNil() {
					if !field.pointer {
						return &DecodeError{Field: itemPath, Err: errNilElement}
					}
					slice = reflect.Append(slice, reflect.Zero(fieldValue.Type().Elem()))
					continue
				}
				item := reflect.New(field.elem.typ)
				if err := decodeNode(field.elem, match, item.Elem(), itemPath); err != nil {
					return err
				}
				if field.pointer {
					slice = reflect.Append(slice, item)
				} else {
					slice = reflect.Append(slice, item.Elem())
				}
			}
			fieldValue.Set(slice)
			continue
		}

		if len(matches) == 0 {
			if field.optional {
				continue
			}
			return &DecodeError{Field: fieldPath, Err: errMissingElement}
		}
		match := matches[0]
		if match.isNil() {
			if field.optional {
				continue
			}
			return &DecodeError{Field: fieldPath, Err: errNilElement}
		}

		if field.pointer {
			item := reflect.New(field.elem.typ)
			if err := decodeNode(field.elem, match, item.Elem(), fieldPath); err != nil {
				return err
			}
			fieldValue.Set(item)
			continue
		}
		if err := decodeNode(field.elem, match, fieldValue, fieldPath); err != nil {
			return err
		}
	}
	return nil
}

func decodeNode(schema *typeSchema, element *node, value reflect.Value, path string) error {
	switch schema.kind {
	case kindText:
		if err := parseScalar(element.text.String(), value); err != nil {
			return &DecodeError{Field: path, Err: err}
		}
		return nil

	case kindStruct:
		return decodeStruct(schema, element, value, path)

	case kindInterface:
		subtype, err := selectSubtype(schema, element)
		if err != nil {
			return &DecodeError{Field: path, Err: err}
		}
		concrete := reflect.New(subtype.schema.typ)
		if err := decodeNode(subtype.schema, element, concrete.Elem(), path); err != nil {
			return err
		}
		if subtype.pointer {
			value.Set(concrete)
		} else {
			value.Set(concrete.Elem())
		}
		return nil
	}
	return &DecodeError{Field: path, Err: fmt.Errorf("unknown schema kind %d", schema.kind)}
}

// selectSubtype picks the declared subtype named by xsi:type. Without an
// xsi:type annotation the element is only decodable when exactly one
// subtype is declared.
func selectSubtype(schema *typeSchema, element *node) (*subtypeSchema, error) {
	annotated, ok := element.xsiAttribute("type")
	if !ok {
		if len(schema.subtypes) == 1 {
			return schema.subtypes[0], nil
		}
		return nil, fmt.Errorf("missing xsi:type for %s (%d subtypes declared)", schema.typ, len(schema.subtypes))
	}
	local := strings.TrimSpace(annotated)
	if colon := strings.LastIndexByte(local, ':'); colon >= 0 {
		local = local[colon+1:]
	}
	for _, subtype := range schema.subtypes {
		if subtype.name == local {
			return subtype, nil
		}
	}
	return nil, fmt.Errorf("xsi:type %q is not a declared subtype of %s", annotated, schema.typ)
}

// parseScalar sets value from element text in xsd lexical form. Strings
// are taken verbatim; every other kind is parsed after trimming
// surrounding whitespace.
func parseScalar(text string, value reflect.Value) error {
	valueType := value.Type()
	if valueType.Kind() != reflect.String {
		text = strings.TrimSpace(text)
	}

	if valueType == timeType {
		parsed, err := parseDateTime(text)
		if err != nil {
			return err
		}
		value.Set(reflect.ValueOf(parsed))
		return nil
	}
	if valueType.Kind() == reflect.Slice && valueType.Elem().Kind() == reflect.Uint8 {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return fmt.Errorf("invalid base64Binary: %w", err)
		}
		value.SetBytes(decoded)
		return nil
	}
	if value.CanAddr() {
		if unmarshaler, ok := value.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return unmarshaler.UnmarshalText([]byte(text))
		}
	}

	switch value.Kind() {
	case reflect.String:
		value.SetString(text)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(text)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", text)
		}
		value.SetBool(parsed)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(text, 10, valueType.Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", text)
		}
		value.SetInt(parsed)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := strconv.ParseUint(text, 10, valueType.Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", text)
		}
		value.SetUint(parsed)
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(text, valueType.Bits())
		if err != nil {
			return fmt.Errorf("invalid float %q", text)
		}
		value.SetFloat(parsed)
	default:
		return fmt.Errorf("cannot parse text into %s", valueType)
	}
	return nil
}

// parseDateTime accepts xsd:dateTime with or without a zone designator.
// Zone-less values are interpreted as UTC.
func parseDateTime(text string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return parsed, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", text, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid dateTime %q", text)
	}
	return parsed, nil
}

func parseFault(element *node) error {
	fault := &Fault{}
	if code := element.firstChild("faultcode"); code != nil {
		fault.Code = strings.TrimSpace(code.text.String())
	} else if code := element.firstChild("Code"); code != nil {
		if value := code.firstChild("Value"); value != nil {
			fault.Code = strings.TrimSpace(value.text.String())
		}
	}
	if message := element.firstChild("faultstring"); message != nil {
		fault.Message = strings.TrimSpace(message.text.String())
	} else if reason := element.firstChild("Reason"); reason != nil {
		if text := reason.firstChild("Text"); text != nil {
			fault.Message = strings.TrimSpace(text.text.String())
		}
	}
	detail := element.firstChild("detail")
	if detail == nil {
		detail = element.firstChild("Detail")
	}
	if detail != nil {
		fault.Detail = strings.TrimSpace(flattenText(detail))
	}
	return fault
}

func flattenText(element *node) string {
	var builder strings.Builder
	builder.WriteString(element.text.String())
	for _, child := range element.children {
		builder.WriteString(flattenText(child))
	}
	return builder.String()
}

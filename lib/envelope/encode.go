// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

const (
	xmlDeclaration = `<?xml version="1.0" encoding="utf-8"?>`
	envelopeOpen   = `<soap:Envelope xmlns:soap="` + SOAPNamespace + `" xmlns:xsi="` + XSINamespace + `" xmlns:xsd="` + XSDNamespace + `">`
	envelopeClose  = `</soap:Envelope>`
	headerEmpty    = `<soap:Header/>`
	bodyOpen       = `<soap:Body>`
	bodyClose      = `</soap:Body>`
)

// envelopeWriter emits request text directly rather than through
// xml.Encoder, which cannot produce fixed namespace prefixes.
type envelopeWriter struct {
	buffer *bytes.Buffer
}

func (w *envelopeWriter) writeEnvelope(schema *Schema, payload reflect.Value) error {
	w.buffer.WriteString(xmlDeclaration)
	w.buffer.WriteString(envelopeOpen)
	w.buffer.WriteString(headerEmpty)
	w.buffer.WriteString(bodyOpen)

	w.buffer.WriteByte('<')
	w.buffer.WriteString(schema.Element)
	if schema.Namespace != "" {
		w.buffer.WriteString(` xmlns="`)
		w.escape(schema.Namespace)
		w.buffer.WriteByte('"')
	}
	w.buffer.WriteByte('>')
	if err := w.writeFields(schema.root, payload, schema.Element); err != nil {
		return err
	}
	w.closeElement(schema.Element)

	w.buffer.WriteString(bodyClose)
	w.buffer.WriteString(envelopeClose)
	return nil
}

func (w *envelopeWriter) writeFields(schema *typeSchema, value reflect.Value, path string) error {
	for _, field := range schema.fields {
		fieldValue := value.FieldByIndex(field.index)
		fieldPath := path + "." + field.element

		if field.repeated {
			for index := 0; index < fieldValue.Len(); index++ {
				item := fieldValue.Index(index)
				if item.Kind() == reflect.Interface && item.IsNil() {
					continue
				}
				if field.pointer {
					if item.IsNil() {
						continue
					}
					item = item.Elem()
				}
				if err := w.writeElement(field.element, field.elem, item, fmt.Sprintf("%s[%d]", fieldPath, index)); err != nil {
					return err
				}
			}
			continue
		}

		if field.pointer || fieldValue.Kind() == reflect.Interface {
			if fieldValue.IsNil() {
				continue
			}
			if field.pointer {
				fieldValue = fieldValue.Elem()
			}
		} else if field.optional && fieldValue.IsZero() {
			continue
		}

		if err := w.writeElement(field.element, field.elem, fieldValue, fieldPath); err != nil {
			return err
		}
	}
	return nil
}

func (w *envelopeWriter) writeElement(element string, schema *typeSchema, value reflect.Value, path string) error {
	switch schema.kind {
	case kindText:
		text, err := formatScalar(value)
		if err != nil {
			return fmt.Errorf("envelope: encoding %s: %w", path, err)
		}
		w.openElement(element, "")
		w.escape(text)
		w.closeElement(element)
		return nil

	case kindStruct:
		w.openElement(element, "")
		if err := w.writeFields(schema, value, path); err != nil {
			return err
		}
		w.closeElement(element)
		return nil

	case kindInterface:
		concrete := value.Elem()
		for concrete.Kind() == reflect.Pointer {
			concrete = concrete.Elem()
		}
		for _, subtype := range schema.subtypes {
			if subtype.schema.typ != concrete.Type() {
				continue
			}
			w.openElement(element, subtype.name)
			if subtype.schema.kind == kindText {
				text, err := formatScalar(concrete)
				if err != nil {
					return fmt.Errorf("envelope: encoding %s: %w", path, err)
				}
				w.escape(text)
			} else if err := w.writeFields(subtype.schema, concrete, path); err != nil {
				return err
			}
			w.closeElement(element)
			return nil
		}
		return fmt.Errorf("envelope: encoding %s: %s is not a declared subtype of %s",
			path, concrete.Type(), schema.typ)
	}
	return fmt.Errorf("envelope: encoding %s: unknown schema kind %d", path, schema.kind)
}

func (w *envelopeWriter) openElement(element, xsiType string) {
	w.buffer.WriteByte('<')
	w.buffer.WriteString(element)
	if xsiType != "" {
		w.buffer.WriteString(` xsi:type="`)
		w.escape(xsiType)
		w.buffer.WriteByte('"')
	}
	w.buffer.WriteByte('>')
}

func (w *envelopeWriter) closeElement(element string) {
	w.buffer.WriteString("</")
	w.buffer.WriteString(element)
	w.buffer.WriteByte('>')
}

func (w *envelopeWriter) escape(text string) {
	// xml.EscapeText only fails when the writer fails; bytes.Buffer never does.
	_ = xml.EscapeText(w.buffer, []byte(text))
}

// formatScalar renders a text-kind value in its xsd lexical form.
func formatScalar(value reflect.Value) (string, error) {
	valueType := value.Type()
	if valueType == timeType {
		return value.Interface().(time.Time).Format(time.RFC3339Nano), nil
	}
	if valueType.Kind() == reflect.Slice && valueType.Elem().Kind() == reflect.Uint8 {
		return base64.StdEncoding.EncodeToString(value.Bytes()), nil
	}
	if valueType.Implements(textMarshalerType) || reflect.PointerTo(valueType).Implements(textMarshalerType) {
		addressable := reflect.New(valueType)
		addressable.Elem().Set(value)
		text, err := addressable.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", err
		}
		return string(text), nil
	}

	switch value.Kind() {
	case reflect.String:
		return value.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(value.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(value.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(value.Uint(), 10), nil
	case reflect.Float32:
		return formatFloat(value.Float(), 32), nil
	case reflect.Float64:
		return formatFloat(value.Float(), 64), nil
	}
	return "", fmt.Errorf("cannot format %s as text", valueType)
}

func formatFloat(value float64, bitSize int) string {
	switch {
	case math.IsNaN(value):
		return "NaN"
	case math.IsInf(value, 1):
		return "INF"
	case math.IsInf(value, -1):
		return "-INF"
	}
	return strconv.FormatFloat(value, 'g', -1, bitSize)
}

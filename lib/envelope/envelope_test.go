// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"encoding/xml"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

const testNamespace = "http://www.homewire.io/ws/v1"

type authenticateRequest struct {
	XMLName     xml.Name `xml:"http://www.homewire.io/ws/v1 Authenticate"`
	UserName    string   `xml:"userName"`
	Password    string   `xml:"password"`
	Application string   `xml:"application"`
}

const referenceAuthenticate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"
               xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
               xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <soap:Header/>
  <soap:Body>
    <Authenticate xmlns="http://www.homewire.io/ws/v1">
      <userName>a</userName>
      <password>b</password>
      <application>c</application>
    </Authenticate>
  </soap:Body>
</soap:Envelope>`

// withoutWhitespace removes all whitespace so envelopes can be compared
// independent of indentation.
func withoutWhitespace(text string) string {
	return strings.Join(strings.Fields(text), "")
}

func TestEncodeMatchesReference(t *testing.T) {
	codec := NewCodec()
	encoded, err := codec.Encode(authenticateRequest{UserName: "a", Password: "b", Application: "c"}, Hints{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, want := withoutWhitespace(string(encoded)), withoutWhitespace(referenceAuthenticate); got != want {
		t.Errorf("encoded envelope mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestDecodeReference(t *testing.T) {
	codec := NewCodec()
	decoded, err := DecodeAs[authenticateRequest](codec, []byte(referenceAuthenticate), Hints{})
	if err != nil {
		t.Fatalf("DecodeAs: %v", err)
	}
	want := authenticateRequest{UserName: "a", Password: "b", Application: "c"}
	if decoded != want {
		t.Errorf("decoded = %+v, want %+v", decoded, want)
	}
}

func TestDecodeDeclaredCharset(t *testing.T) {
	latin1 := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
		`<Authenticate xmlns="http://www.homewire.io/ws/v1">` +
		"<userName>Ren\xe9</userName><password>b</password><application>c</application>" +
		`</Authenticate></soap:Body></soap:Envelope>`

	decoded, err := DecodeAs[authenticateRequest](NewCodec(), []byte(latin1), Hints{})
	if err != nil {
		t.Fatalf("DecodeAs: %v", err)
	}
	if decoded.UserName != "René" {
		t.Errorf("userName = %q, want René", decoded.UserName)
	}
}

func TestEncodeEscapesText(t *testing.T) {
	codec := NewCodec()
	encoded, err := codec.Encode(&authenticateRequest{UserName: `<x&"y">`}, Hints{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(encoded), "<userName>&lt;x&amp;&#34;y&#34;&gt;</userName>") {
		t.Errorf("user name not escaped: %s", encoded)
	}

	decoded, err := DecodeAs[authenticateRequest](codec, encoded, Hints{})
	if err != nil {
		t.Fatalf("DecodeAs: %v", err)
	}
	if decoded.UserName != `<x&"y">` {
		t.Errorf("UserName = %q after round trip", decoded.UserName)
	}
}

type valueEntry struct {
	ID    int `xml:"id"`
	Value int `xml:"value"`
}

type getValuesResponse struct {
	XMLName xml.Name     `xml:"http://www.homewire.io/ws/v1 GetValuesResponse"`
	Values  []valueEntry `xml:"values"`
}

func TestDecodeRepeatedSiblings(t *testing.T) {
	codec := NewCodec()

	t.Run("two entries keep source order", func(t *testing.T) {
		response := `<?xml version="1.0"?>
<S:Envelope xmlns:S="http://schemas.xmlsoap.org/soap/envelope/">
  <S:Body>
    <ns2:GetValuesResponse xmlns:ns2="http://www.homewire.io/ws/v1">
      <values><id>2</id><value>1</value></values>
      <values><id>4</id><value>3</value></values>
    </ns2:GetValuesResponse>
  </S:Body>
</S:Envelope>`
		decoded, err := DecodeAs[getValuesResponse](codec, []byte(response), Hints{})
		if err != nil {
			t.Fatalf("DecodeAs: %v", err)
		}
		want := []valueEntry{{ID: 2, Value: 1}, {ID: 4, Value: 3}}
		if !reflect.DeepEqual(decoded.Values, want) {
			t.Errorf("Values = %+v, want %+v", decoded.Values, want)
		}
	})

	t.Run("single entry", func(t *testing.T) {
		response := `<Envelope><Body><GetValuesResponse><values><id>7</id><value>0</value></values></GetValuesResponse></Body></Envelope>`
		decoded, err := DecodeAs[getValuesResponse](codec, []byte(response), Hints{})
		if err != nil {
			t.Fatalf("DecodeAs: %v", err)
		}
		if len(decoded.Values) != 1 || decoded.Values[0].ID != 7 {
			t.Errorf("Values = %+v, want one entry with id 7", decoded.Values)
		}
	})

	t.Run("zero entries", func(t *testing.T) {
		response := `<Envelope><Body><GetValuesResponse/></Body></Envelope>`
		decoded, err := DecodeAs[getValuesResponse](codec, []byte(response), Hints{})
		if err != nil {
			t.Fatalf("DecodeAs: %v", err)
		}
		if len(decoded.Values) != 0 {
			t.Errorf("Values = %+v, want none", decoded.Values)
		}
	})
}

type reading interface{ isReading() }

type switchReading struct {
	On bool `xml:"on"`
}

func (switchReading) isReading() {}

type dimmerReading struct {
	Level float64 `xml:"level"`
}

func (*dimmerReading) isReading() {}

type readingEnvelope struct {
	XMLName  xml.Name  `xml:"http://www.homewire.io/ws/v1 Reading"`
	Resource int       `xml:"resource"`
	Reading  reading   `xml:"reading"`
	Readings []reading `xml:"history"`
}

var readingHints = Hints{Subtypes: []reflect.Type{
	reflect.TypeOf(switchReading{}),
	reflect.TypeOf(dimmerReading{}),
}}

func TestSubtypes(t *testing.T) {
	codec := NewCodec()
	payload := readingEnvelope{
		Resource: 12,
		Reading:  switchReading{On: true},
		Readings: []reading{&dimmerReading{Level: 0.5}, switchReading{On: false}},
	}

	encoded, err := codec.Encode(payload, readingHints)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	text := string(encoded)
	if !strings.Contains(text, `<reading xsi:type="switchReading"><on>true</on></reading>`) {
		t.Errorf("switch subtype not announced: %s", text)
	}
	if !strings.Contains(text, `<history xsi:type="dimmerReading"><level>0.5</level></history>`) {
		t.Errorf("dimmer subtype not announced: %s", text)
	}

	decoded, err := DecodeAs[readingEnvelope](codec, encoded, readingHints)
	if err != nil {
		t.Fatalf("DecodeAs: %v", err)
	}
	if !reflect.DeepEqual(decoded.Reading, reading(switchReading{On: true})) {
		t.Errorf("Reading = %#v", decoded.Reading)
	}
	if len(decoded.Readings) != 2 {
		t.Fatalf("Readings has %d entries, want 2", len(decoded.Readings))
	}
	dimmer, ok := decoded.Readings[0].(*dimmerReading)
	if !ok || dimmer.Level != 0.5 {
		t.Errorf("Readings[0] = %#v, want *dimmerReading{0.5}", decoded.Readings[0])
	}

	t.Run("foreign prefix on xsi:type value", func(t *testing.T) {
		response := `<e:Envelope xmlns:e="http://schemas.xmlsoap.org/soap/envelope/" xmlns:i="http://www.w3.org/2001/XMLSchema-instance">
<e:Body><Reading xmlns="http://www.homewire.io/ws/v1" xmlns:t="http://www.homewire.io/ws/v1">
<resource>3</resource><reading i:type="t:dimmerReading"><level>1.25</level></reading>
</Reading></e:Body></e:Envelope>`
		decoded, err := DecodeAs[readingEnvelope](codec, []byte(response), readingHints)
		if err != nil {
			t.Fatalf("DecodeAs: %v", err)
		}
		dimmer, ok := decoded.Reading.(*dimmerReading)
		if !ok || dimmer.Level != 1.25 {
			t.Errorf("Reading = %#v, want *dimmerReading{1.25}", decoded.Reading)
		}
	})

	t.Run("undeclared subtype", func(t *testing.T) {
		response := `<Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><Body><Reading>
<resource>3</resource><reading xsi:type="thermostatReading"><level>1</level></reading>
</Reading></Body></Envelope>`
		err := codec.Decode([]byte(response), &readingEnvelope{}, readingHints)
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("expected *DecodeError, got %v", err)
		}
		if decodeErr.Field != "Reading.reading" {
			t.Errorf("Field = %q, want Reading.reading", decodeErr.Field)
		}
	})

	t.Run("encode value that is not a declared subtype", func(t *testing.T) {
		onlySwitch := Hints{Subtypes: []reflect.Type{reflect.TypeOf(switchReading{})}}
		_, err := codec.Encode(readingEnvelope{Reading: &dimmerReading{}}, onlySwitch)
		if err == nil {
			t.Fatal("expected error for undeclared subtype")
		}
	})
}

type optionalFields struct {
	XMLName  xml.Name    `xml:"Optional"`
	Name     string      `xml:"name"`
	Note     *string     `xml:"note"`
	Count    int         `xml:"count,omitempty"`
	Stamp    time.Time   `xml:"stamp,omitempty"`
	Blob     []byte      `xml:"blob,omitempty"`
	Internal string      `xml:"-"`
	Nested   *valueEntry `xml:"nested"`
}

func TestOptionalAndNil(t *testing.T) {
	codec := NewCodec()

	t.Run("absent and nil optional fields stay unset", func(t *testing.T) {
		response := `<Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><Body><Optional>
<name>porch</name><note xsi:nil="true"/><nested xsi:nil="1"/><unknown>ignored</unknown>
</Optional></Body></Envelope>`
		decoded, err := DecodeAs[optionalFields](codec, []byte(response), Hints{})
		if err != nil {
			t.Fatalf("DecodeAs: %v", err)
		}
		if decoded.Name != "porch" || decoded.Note != nil || decoded.Nested != nil || decoded.Count != 0 {
			t.Errorf("decoded = %+v", decoded)
		}
	})

	t.Run("nil on required field", func(t *testing.T) {
		response := `<Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><Body><Optional>
<name xsi:nil="true"/></Optional></Body></Envelope>`
		err := codec.Decode([]byte(response), &optionalFields{}, Hints{})
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("expected *DecodeError, got %v", err)
		}
		if decodeErr.Field != "Optional.name" || !errors.Is(err, errNilElement) {
			t.Errorf("DecodeError = %v", decodeErr)
		}
	})

	t.Run("zero optional values are omitted on encode", func(t *testing.T) {
		encoded, err := codec.Encode(optionalFields{Name: "x", Internal: "secret"}, Hints{})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		body := string(encoded)
		for _, absent := range []string{"<note>", "<count>", "<stamp>", "<blob>", "Internal", "secret", "<nested>"} {
			if strings.Contains(body, absent) {
				t.Errorf("encoded envelope contains %q: %s", absent, body)
			}
		}
	})

	t.Run("scalar formats round trip", func(t *testing.T) {
		note := "evening"
		stamp := time.Date(2026, 3, 14, 15, 9, 26, 500000000, time.UTC)
		payload := optionalFields{
			Name:   "x",
			Note:   &note,
			Count:  -4,
			Stamp:  stamp,
			Blob:   []byte{0x00, 0xff, 0x10},
			Nested: &valueEntry{ID: 1, Value: 2},
		}
		encoded, err := codec.Encode(payload, Hints{})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !strings.Contains(string(encoded), "<stamp>2026-03-14T15:09:26.5Z</stamp>") {
			t.Errorf("stamp not RFC 3339: %s", encoded)
		}
		if !strings.Contains(string(encoded), "<blob>AP8Q</blob>") {
			t.Errorf("blob not base64: %s", encoded)
		}
		decoded, err := DecodeAs[optionalFields](codec, encoded, Hints{})
		if err != nil {
			t.Fatalf("DecodeAs: %v", err)
		}
		if *decoded.Note != note || decoded.Count != -4 || !decoded.Stamp.Equal(stamp) ||
			string(decoded.Blob) != string(payload.Blob) || *decoded.Nested != *payload.Nested {
			t.Errorf("decoded = %+v, want %+v", decoded, payload)
		}
	})

	t.Run("zone-less dateTime is UTC", func(t *testing.T) {
		response := `<Envelope><Body><Optional><name>x</name><stamp>2026-01-02T03:04:05</stamp></Optional></Body></Envelope>`
		decoded, err := DecodeAs[optionalFields](codec, []byte(response), Hints{})
		if err != nil {
			t.Fatalf("DecodeAs: %v", err)
		}
		want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		if !decoded.Stamp.Equal(want) {
			t.Errorf("Stamp = %v, want %v", decoded.Stamp, want)
		}
	})
}

type measurement struct {
	XMLName xml.Name `xml:"Measurement"`
	Celsius float64  `xml:"celsius"`
	Active  bool     `xml:"active"`
}

func TestFloatSpecialValues(t *testing.T) {
	codec := NewCodec()
	encoded, err := codec.Encode(measurement{Celsius: math.Inf(-1)}, Hints{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(encoded), "<celsius>-INF</celsius>") {
		t.Errorf("negative infinity not written as -INF: %s", encoded)
	}
	decoded, err := DecodeAs[measurement](codec, encoded, Hints{})
	if err != nil {
		t.Fatalf("DecodeAs: %v", err)
	}
	if !math.IsInf(decoded.Celsius, -1) {
		t.Errorf("Celsius = %v, want -Inf", decoded.Celsius)
	}
}

func TestHintsOverrideNames(t *testing.T) {
	codec := NewCodec()
	hints := Hints{
		Namespace: "urn:other",
		Element:   "Login",
		Overrides: map[string]string{"authenticateRequest.UserName": "user"},
	}
	encoded, err := codec.Encode(authenticateRequest{UserName: "a"}, hints)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	text := string(encoded)
	if !strings.Contains(text, `<Login xmlns="urn:other"><user>a</user>`) {
		t.Errorf("hints not applied: %s", text)
	}

	schema, err := codec.Cache().Schema(reflect.TypeOf(authenticateRequest{}), hints)
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if got := schema.Fields(); !reflect.DeepEqual(got, []string{"user", "password", "application"}) {
		t.Errorf("Fields = %v", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	codec := NewCodec()
	tests := []struct {
		name      string
		response  string
		wantField string
	}{
		{
			name:      "missing required element",
			response:  `<Envelope><Body><Authenticate><userName>a</userName><application>c</application></Authenticate></Body></Envelope>`,
			wantField: "Authenticate.password",
		},
		{
			name:      "unexpected body element",
			response:  `<Envelope><Body><LogoutResponse/></Body></Envelope>`,
			wantField: "LogoutResponse",
		},
		{
			name:     "not an envelope",
			response: `<Authenticate><userName>a</userName></Authenticate>`,
		},
		{
			name:     "missing body",
			response: `<Envelope><Header/></Envelope>`,
		},
		{
			name:     "empty body",
			response: `<Envelope><Body></Body></Envelope>`,
		},
		{
			name:     "malformed xml",
			response: `<Envelope><Body><Authenticate>`,
		},
		{
			name:     "empty document",
			response: ``,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := codec.Decode([]byte(test.response), &authenticateRequest{}, Hints{})
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
			if decodeErr.Field != test.wantField {
				t.Errorf("Field = %q, want %q", decodeErr.Field, test.wantField)
			}
			if decodeErr.Raw != test.response {
				t.Errorf("Raw = %q, want the response text", decodeErr.Raw)
			}
		})
	}

	t.Run("invalid scalar names its field", func(t *testing.T) {
		response := `<Envelope><Body><GetValuesResponse><values><id>2</id><value>1</value></values><values><id>four</id><value>3</value></values></GetValuesResponse></Body></Envelope>`
		err := codec.Decode([]byte(response), &getValuesResponse{}, Hints{})
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("expected *DecodeError, got %v", err)
		}
		if decodeErr.Field != "GetValuesResponse.values[1].id" {
			t.Errorf("Field = %q", decodeErr.Field)
		}
	})

	t.Run("target is not a pointer", func(t *testing.T) {
		if err := codec.Decode([]byte(referenceAuthenticate), authenticateRequest{}, Hints{}); err == nil {
			t.Fatal("expected error for non-pointer target")
		}
	})
}

func TestDecodeFault(t *testing.T) {
	codec := NewCodec()

	t.Run("soap 1.1", func(t *testing.T) {
		response := `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><soap:Fault>
<faultcode>soap:Server</faultcode><faultstring>Invalid session</faultstring><detail><reason>expired</reason></detail>
</soap:Fault></soap:Body></soap:Envelope>`
		err := codec.Decode([]byte(response), &authenticateRequest{}, Hints{})
		if !IsFault(err) {
			t.Fatalf("expected fault, got %v", err)
		}
		var fault *Fault
		errors.As(err, &fault)
		if fault.Code != "soap:Server" || fault.Message != "Invalid session" || fault.Detail != "expired" {
			t.Errorf("fault = %+v", fault)
		}
	})

	t.Run("soap 1.2", func(t *testing.T) {
		response := `<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope"><env:Body><env:Fault>
<env:Code><env:Value>env:Sender</env:Value></env:Code><env:Reason><env:Text xml:lang="en">Bad id</env:Text></env:Reason>
</env:Fault></env:Body></env:Envelope>`
		err := codec.Decode([]byte(response), &authenticateRequest{}, Hints{})
		var fault *Fault
		if !errors.As(err, &fault) {
			t.Fatalf("expected *Fault, got %v", err)
		}
		if fault.Code != "env:Sender" || fault.Message != "Bad id" {
			t.Errorf("fault = %+v", fault)
		}
	})
}

func TestEncodeRejectsInvalidPayloads(t *testing.T) {
	codec := NewCodec()
	if _, err := codec.Encode(nil, Hints{}); err == nil {
		t.Error("expected error for nil payload")
	}
	if _, err := codec.Encode((*authenticateRequest)(nil), Hints{}); err == nil {
		t.Error("expected error for nil pointer payload")
	}
	if _, err := codec.Encode(42, Hints{}); err == nil {
		t.Error("expected error for non-struct payload")
	}
	if _, err := codec.Encode(struct{ C chan int }{}, Hints{}); err == nil {
		t.Error("expected error for unsupported field type")
	}
}
